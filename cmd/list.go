package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/trivial-pay-tracker/internal/model"
	"github.com/Tiliavir/trivial-pay-tracker/internal/render"
	"github.com/Tiliavir/trivial-pay-tracker/internal/report"
)

var listMonth string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List pay entries",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	addMonthFlag(listCmd, &listMonth)
}

// addMonthFlag registers --month on cmd.
func addMonthFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "month", "", "Only entries from this month (YYYY-MM)")
}

// checkMonth validates a --month value; empty means all months.
func checkMonth(m string) error {
	if m == "" {
		return nil
	}
	if _, err := time.Parse("2006-01", m); err != nil {
		return fmt.Errorf("invalid --month value %q: want YYYY-MM", m)
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	if err := checkMonth(listMonth); err != nil {
		return err
	}
	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	if note := sourceNote(s); note != "" {
		fmt.Fprintln(out, note)
	}

	entries := s.repo.Entries()
	rows := positionedRows(entries, listMonth)
	if len(rows) == 0 {
		fmt.Fprintln(out, "No entries found.")
		return nil
	}

	fmt.Fprintln(out, render.Table(rows))
	fmt.Fprintln(out)
	fmt.Fprintln(out, render.Stats(report.Aggregate(report.FilteredBy(entries, listMonth))))
	return nil
}

// positionedRows keeps each entry's position in the full sequence, so the
// number shown under a month filter still addresses the right entry.
func positionedRows(entries []model.Entry, month string) []render.Row {
	var rows []render.Row
	for i, e := range entries {
		if report.InMonth(e, month) {
			rows = append(rows, render.Row{Position: i, Entry: e})
		}
	}
	return rows
}
