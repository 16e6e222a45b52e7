package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/trivial-pay-tracker/internal/model"
	"github.com/Tiliavir/trivial-pay-tracker/internal/render"
)

var (
	exportFormat string
	exportMonth  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export pay entries to stdout",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format: csv, json, md")
	addMonthFlag(exportCmd, &exportMonth)
}

func runExport(cmd *cobra.Command, args []string) error {
	if err := checkMonth(exportMonth); err != nil {
		return err
	}
	switch exportFormat {
	case "csv", "json", "md":
	default:
		return fmt.Errorf("unknown --format %q: want csv, json or md", exportFormat)
	}

	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	switch exportFormat {
	case "json":
		data, err := json.MarshalIndent(s.repo.FilteredBy(exportMonth), "", "  ")
		if err != nil {
			return fmt.Errorf("error encoding JSON: %w", err)
		}
		fmt.Fprintln(out, string(data))
	case "md":
		fmt.Fprintln(out, render.Table(positionedRows(s.repo.Entries(), exportMonth)))
	default:
		writeCSV(out, s.repo.FilteredBy(exportMonth))
	}
	return nil
}

// writeCSV writes entries at full precision, the way they are stored.
func writeCSV(w io.Writer, entries []model.Entry) {
	fmt.Fprintln(w, "date,hours,rate_type,rate,pay")
	for _, e := range entries {
		fmt.Fprintf(w, "%s,%s,%s,%s,%s\n",
			csvEscape(e.Date),
			formatFloat(e.Hours),
			csvEscape(string(e.RateType)),
			formatFloat(e.Rate),
			formatFloat(e.Pay),
		)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// csvEscape wraps a field in quotes if it contains a comma, quote, or newline.
func csvEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	// Escape internal double quotes by doubling them.
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
