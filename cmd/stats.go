package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/trivial-pay-tracker/internal/render"
	"github.com/Tiliavir/trivial-pay-tracker/internal/report"
)

var statsMonth string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show totals and a per-month breakdown",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	addMonthFlag(statsCmd, &statsMonth)
}

func runStats(cmd *cobra.Command, args []string) error {
	if err := checkMonth(statsMonth); err != nil {
		return err
	}
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	entries := s.repo.FilteredBy(statsMonth)
	out := cmd.OutOrStdout()
	if note := sourceNote(s); note != "" {
		fmt.Fprintln(out, note)
	}

	fmt.Fprintln(out, render.Stats(report.Aggregate(entries)))
	buckets := report.GroupByMonth(entries)
	if len(buckets) == 0 {
		return nil
	}
	fmt.Fprintln(out, "--------------------------------")
	for _, b := range buckets {
		fmt.Fprintf(out, "%-12s%8s h%12s\n", b.Label, render.Hours(b.TotalHours), render.Money(b.TotalPay))
	}
	return nil
}
