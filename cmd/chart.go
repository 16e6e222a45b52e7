package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/trivial-pay-tracker/internal/render"
	"github.com/Tiliavir/trivial-pay-tracker/internal/report"
)

var (
	chartMonth string
	chartWidth int
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Chart total pay per month",
	Args:  cobra.NoArgs,
	RunE:  runChart,
}

func init() {
	addMonthFlag(chartCmd, &chartMonth)
	chartCmd.Flags().IntVar(&chartWidth, "width", 40, "Width of the longest bar")
}

func runChart(cmd *cobra.Command, args []string) error {
	if err := checkMonth(chartMonth); err != nil {
		return err
	}
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	series := report.Chart(s.repo.FilteredBy(chartMonth))
	if len(series.Labels) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No entries found.")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), render.Chart(series, chartWidth))
	return nil
}
