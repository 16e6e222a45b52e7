package remote

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Tiliavir/trivial-pay-tracker/internal/logger"
	"github.com/Tiliavir/trivial-pay-tracker/internal/model"
)

// Column positions of the row schema: date | hours | rateType | rate | pay | timestamp.
const (
	ColDate = iota
	ColHours
	ColRateType
	ColRate
	ColPay
	ColTimestamp

	// NumColumns is the width of an encoded row.
	NumColumns
)

// minColumns is the narrowest row that still carries an entry; the timestamp is optional.
const minColumns = ColPay + 1

// TimestampLayout is UTC ISO 8601 with milliseconds, e.g. 2024-03-15T18:04:05.123Z.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// EncodeRow serializes e in the fixed column order, stamping ts.
func EncodeRow(e model.Entry, ts time.Time) []any {
	return []any{
		e.Date,
		e.Hours,
		string(e.RateType),
		e.Rate,
		e.Pay,
		ts.UTC().Format(TimestampLayout),
	}
}

// DecodeRow maps one positional row to an entry. row is the 1-based row
// number used in error messages. Unparseable numbers become 0; a missing or
// invalid date or rate type is a *MalformedRowError.
func DecodeRow(row int, cells []any) (model.Entry, error) {
	if len(cells) < minColumns {
		return model.Entry{}, &MalformedRowError{Row: row, Reason: fmt.Sprintf("expected at least %d cells, got %d", minColumns, len(cells))}
	}

	date := strings.TrimSpace(cellString(cells[ColDate]))
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return model.Entry{}, &MalformedRowError{Row: row, Reason: fmt.Sprintf("invalid date %q", date)}
	}
	rateType, err := model.ParseRateType(strings.TrimSpace(cellString(cells[ColRateType])))
	if err != nil {
		return model.Entry{}, &MalformedRowError{Row: row, Reason: err.Error()}
	}

	e := model.Entry{
		Date:     date,
		Hours:    cellNumber(cells[ColHours]),
		RateType: rateType,
		Rate:     cellNumber(cells[ColRate]),
		Pay:      cellNumber(cells[ColPay]),
	}
	if len(cells) > ColTimestamp {
		if ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(cellString(cells[ColTimestamp]))); err == nil {
			e.Timestamp = ts
		}
	}
	return e, nil
}

// DecodeRows maps every row, skipping the first when header is set.
// Malformed rows are logged and dropped; the rest are returned in order.
func DecodeRows(rows [][]any, header bool, l *log.Logger) []model.Entry {
	l = logger.OrDiscard(l)
	start := 0
	if header {
		start = 1
	}
	entries := make([]model.Entry, 0, max(len(rows)-start, 0))
	for i := start; i < len(rows); i++ {
		e, err := DecodeRow(i+1, rows[i])
		if err != nil {
			l.Warn("dropping remote row", "err", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

func cellString(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case []byte:
		return string(c)
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	default:
		return fmt.Sprint(c)
	}
}

func cellNumber(v any) float64 {
	var f float64
	switch c := v.(type) {
	case float64:
		f = c
	case float32:
		f = float64(c)
	case int:
		f = float64(c)
	case int64:
		f = float64(c)
	case json.Number:
		f, _ = c.Float64()
	default:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(cellString(v)), 64)
		if err != nil {
			return 0
		}
		f = parsed
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
