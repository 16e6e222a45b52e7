package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/trivial-pay-tracker/internal/config"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage credentials in the OS keyring",
	Long: `Store remote credentials in the OS keyring instead of config.json.
Known secrets: ` + strings.Join(config.SecretNames(), ", ") + `.
Environment variables TPT_SHEETS_API_KEY and TPT_MYSQL_DSN take precedence over the keyring.`,
}

var secretSetCmd = &cobra.Command{
	Use:       "set <name>",
	Short:     "Store a secret (prompted, not echoed)",
	Args:      cobra.ExactArgs(1),
	ValidArgs: config.SecretNames(),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if _, err := config.EnvVar(name); err != nil {
			return err
		}
		var value string
		err := huh.NewInput().
			Title(name).
			EchoMode(huh.EchoModePassword).
			Value(&value).
			Run()
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}
		if err != nil {
			return err
		}
		if err := config.SetSecret(name, strings.TrimSpace(value)); err != nil {
			return failure(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Stored %s in the keyring.\n", name)
		return nil
	},
}

var secretDeleteCmd = &cobra.Command{
	Use:       "delete <name>",
	Short:     "Remove a secret",
	Args:      cobra.ExactArgs(1),
	ValidArgs: config.SecretNames(),
	RunE: func(cmd *cobra.Command, args []string) error {
		err := config.DeleteSecret(args[0])
		switch {
		case errors.Is(err, config.ErrUnknownSecret):
			return err
		case errors.Is(err, config.ErrSecretNotFound):
			fmt.Fprintf(cmd.OutOrStdout(), "%s was not set.\n", args[0])
			return nil
		case err != nil:
			return failure(err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from the keyring.\n", args[0])
		return nil
	},
}

func init() {
	secretCmd.AddCommand(secretSetCmd)
	secretCmd.AddCommand(secretDeleteCmd)
}
