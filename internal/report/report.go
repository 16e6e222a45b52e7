// Package report derives views from an entry sequence: month filters,
// totals, per-month buckets and the monthly pay chart series. Every function
// is pure and leaves its input untouched.
package report

import (
	"sort"
	"time"

	"github.com/Tiliavir/trivial-pay-tracker/internal/model"
)

// MonthKey returns the YYYY-MM prefix of an ISO date, or "" if the date is
// shorter than that.
func MonthKey(date string) string {
	if len(date) < 7 {
		return ""
	}
	return date[:7]
}

// MonthLabel returns the chart label for an ISO date, e.g. "Mar 2024".
// Unparseable dates are labelled "Invalid Date".
func MonthLabel(date string) string {
	t, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return "Invalid Date"
	}
	return t.Format("Jan 2006")
}

// FilteredBy returns the entries whose month key equals monthKey, in order.
// An empty monthKey selects every entry.
func FilteredBy(entries []model.Entry, monthKey string) []model.Entry {
	out := make([]model.Entry, 0, len(entries))
	for _, e := range entries {
		if InMonth(e, monthKey) {
			out = append(out, e)
		}
	}
	return out
}

// InMonth reports whether e belongs to monthKey; every entry does when monthKey is empty.
func InMonth(e model.Entry, monthKey string) bool {
	return monthKey == "" || MonthKey(e.Date) == monthKey
}

// Totals are the aggregate statistics over a set of entries.
type Totals struct {
	TotalHours float64
	TotalPay   float64
	AveragePay float64
	Count      int
}

// Aggregate sums hours and pay. AveragePay is pay per entry, 0 for no entries.
func Aggregate(entries []model.Entry) Totals {
	var t Totals
	for _, e := range entries {
		t.TotalHours += e.Hours
		t.TotalPay += e.Pay
	}
	t.Count = len(entries)
	if t.Count > 0 {
		t.AveragePay = t.TotalPay / float64(t.Count)
	}
	return t
}

// MonthBucket is one month's share of the entries.
type MonthBucket struct {
	Label      string
	TotalPay   float64
	TotalHours float64
	Count      int
}

// GroupByMonth buckets entries by MonthLabel. Buckets appear in the order
// their month was first seen; they are not re-sorted.
func GroupByMonth(entries []model.Entry) []MonthBucket {
	var buckets []MonthBucket
	index := make(map[string]int)
	for _, e := range entries {
		label := MonthLabel(e.Date)
		i, ok := index[label]
		if !ok {
			i = len(buckets)
			index[label] = i
			buckets = append(buckets, MonthBucket{Label: label})
		}
		buckets[i].TotalPay += e.Pay
		buckets[i].TotalHours += e.Hours
		buckets[i].Count++
	}
	return buckets
}

// AvailableMonths returns the distinct month keys, sorted. Lexicographic
// order of YYYY-MM is chronological.
func AvailableMonths(entries []model.Entry) []string {
	seen := make(map[string]struct{})
	months := []string{}
	for _, e := range entries {
		k := MonthKey(e.Date)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		months = append(months, k)
	}
	sort.Strings(months)
	return months
}

// Series is the data handed to the chart: parallel labels and total pay.
type Series struct {
	Labels []string
	Values []float64
}

// Chart builds a fresh Series from GroupByMonth.
func Chart(entries []model.Entry) Series {
	buckets := GroupByMonth(entries)
	s := Series{
		Labels: make([]string, len(buckets)),
		Values: make([]float64, len(buckets)),
	}
	for i, b := range buckets {
		s.Labels[i] = b.Label
		s.Values[i] = b.TotalPay
	}
	return s
}
