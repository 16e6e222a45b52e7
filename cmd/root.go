package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/trivial-pay-tracker/internal/logger"
	"github.com/Tiliavir/trivial-pay-tracker/internal/storage"
)

var debug bool

var rootCmd = &cobra.Command{
	Use:   "tpt",
	Short: "Trivial Pay Tracker – log work sessions and what they paid",
	Long: `tpt records work sessions (date, hours, hourly or daily rate) and the pay
they earned. Entries are appended to a remote store (Google Sheets or MySQL)
and mirrored to ~/.tpt/ so they remain available offline.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		base, err := storage.BaseDir()
		if err != nil {
			return failure(err)
		}
		if err := logger.Init(logger.Config{Debug: debug, BaseDir: base}); err != nil {
			// Logging is best effort.
			fmt.Fprintf(os.Stderr, "Warning: could not open log file: %v\n", err)
		}
		return nil
	},
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log debug output to stderr")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(chartCmd)
	rootCmd.AddCommand(monthsCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(secretCmd)
}

// exitError carries the process exit code for a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// failure marks err as a storage or remote failure (exit code 2).
func failure(err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: 2, err: err}
}

// exitCode is 2 for storage and remote failures and 1 for everything else
// (bad flags, invalid input).
func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}
