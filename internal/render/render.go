// Package render formats entries and derived views for the terminal.
package render

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"

	"github.com/Tiliavir/trivial-pay-tracker/internal/model"
	"github.com/Tiliavir/trivial-pay-tracker/internal/report"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	valueStyle  = lipgloss.NewStyle().Bold(true)
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
)

// Money formats an amount with exactly two decimals.
func Money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// Hours formats an hour count without trailing zeros, e.g. "7.5".
func Hours(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Date renders an ISO date the en-US way (3/15/2024). Unparseable input is
// returned unchanged.
func Date(iso string) string {
	t, err := time.Parse(model.DateLayout, iso)
	if err != nil {
		return iso
	}
	return t.Format("1/2/2006")
}

// Row is an entry with its position in the full ledger. Positions are shown
// 1-based so they can be passed to `tpt delete` as printed.
type Row struct {
	Position int
	Entry    model.Entry
}

// Table renders rows as a bordered table.
func Table(rows []Row) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "Date", "Hours", "Type", "Rate", "Pay").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0 || col == 2 || col >= 4:
				return numberStyle
			default:
				return cellStyle
			}
		})
	for _, r := range rows {
		e := r.Entry
		t.Row(
			strconv.Itoa(r.Position+1),
			Date(e.Date),
			Hours(e.Hours),
			string(e.RateType),
			Money(e.Rate),
			Money(e.Pay),
		)
	}
	return t.String()
}

// Stats renders the totals block.
func Stats(t report.Totals) string {
	lines := []string{
		stat("Entries", strconv.Itoa(t.Count)),
		stat("Total hours", Hours(t.TotalHours)),
		stat("Total pay", Money(t.TotalPay)),
		stat("Average pay", Money(t.AveragePay)),
	}
	return strings.Join(lines, "\n")
}

func stat(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-12s", label)) + " " + valueStyle.Render(value)
}

// Chart renders s as horizontal bars scaled so the largest value spans width
// cells. Negative values draw no bar.
func Chart(s report.Series, width int) string {
	if len(s.Labels) == 0 {
		return ""
	}
	if width < 1 {
		width = 1
	}
	labelWidth, maxValue := 0, 0.0
	for i, l := range s.Labels {
		labelWidth = max(labelWidth, len(l))
		maxValue = max(maxValue, s.Values[i])
	}

	var b strings.Builder
	for i, l := range s.Labels {
		n := 0
		if maxValue > 0 && s.Values[i] > 0 {
			n = int(math.Round(s.Values[i] / maxValue * float64(width)))
		}
		fmt.Fprintf(&b, "%-*s %s %s\n", labelWidth, l, barStyle.Render(strings.Repeat("█", n)), Money(s.Values[i]))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Months renders month keys with their labels, one per line.
func Months(keys []string) string {
	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + "  " + labelStyle.Render(report.MonthLabel(k+"-01"))
	}
	return strings.Join(lines, "\n")
}
