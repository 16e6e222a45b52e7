package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/trivial-pay-tracker/internal/render"
	"github.com/Tiliavir/trivial-pay-tracker/internal/report"
)

var monthsCmd = &cobra.Command{
	Use:   "months",
	Short: "List the months that have entries (values for --month)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer s.Close()

		months := report.AvailableMonths(s.repo.Entries())
		if len(months) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No entries found.")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), render.Months(months))
		return nil
	},
}
