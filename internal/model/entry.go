package model

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// DateLayout is the ISO calendar date format used for Entry.Date.
const DateLayout = "2006-01-02"

// RateType selects how an entry's pay is derived from the rate entered.
type RateType string

const (
	Hourly RateType = "hourly"
	Daily  RateType = "daily"
)

// Valid reports whether r is a known rate type.
func (r RateType) Valid() bool {
	return r == Hourly || r == Daily
}

// ParseRateType accepts the wire spelling of a rate type, case-sensitively.
func ParseRateType(s string) (RateType, error) {
	r := RateType(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown rate type %q", s)
	}
	return r, nil
}

// ErrInvalidDraft is returned when a draft cannot become an entry.
var ErrInvalidDraft = errors.New("invalid entry")

// Entry represents one recorded work session.
// Entries have no identity beyond their position in the ledger.
type Entry struct {
	Date     string   `json:"date"`
	Hours    float64  `json:"hours"`
	RateType RateType `json:"rateType"`
	Rate     float64  `json:"rate"`
	Pay      float64  `json:"pay"`
	// Timestamp is the remote capture time. It is never written to local storage.
	Timestamp time.Time `json:"-"`
}

// Draft is a submitted form before rate and pay are derived.
// RawRate is the hourly rate for Hourly drafts and the flat day amount for Daily drafts.
type Draft struct {
	Date     string
	Hours    float64
	RateType RateType
	RawRate  float64
}

// NewEntry validates d and derives Rate and Pay from it.
func NewEntry(d Draft) (Entry, error) {
	if _, err := time.Parse(DateLayout, d.Date); err != nil {
		return Entry{}, fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidDraft, d.Date)
	}
	if !(d.Hours > 0) || math.IsInf(d.Hours, 0) {
		return Entry{}, fmt.Errorf("%w: hours must be positive, got %v", ErrInvalidDraft, d.Hours)
	}
	if !(d.RawRate >= 0) || math.IsInf(d.RawRate, 0) {
		return Entry{}, fmt.Errorf("%w: rate must not be negative, got %v", ErrInvalidDraft, d.RawRate)
	}

	e := Entry{Date: d.Date, Hours: d.Hours, RateType: d.RateType}
	switch d.RateType {
	case Hourly:
		e.Rate = d.RawRate
		e.Pay = d.Hours * d.RawRate
	case Daily:
		// The flat amount is the pay; the rate shown is its hourly equivalent.
		e.Pay = d.RawRate
		e.Rate = e.Pay / d.Hours
	default:
		return Entry{}, fmt.Errorf("%w: unknown rate type %q", ErrInvalidDraft, d.RateType)
	}
	if !finite(e.Pay) || !finite(e.Rate) {
		return Entry{}, fmt.Errorf("%w: pay %v at rate %v is out of range", ErrInvalidDraft, e.Pay, e.Rate)
	}
	return e, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// consistencyTolerance is the relative error allowed between pay and hours × rate.
const consistencyTolerance = 1e-9

func approxEqual(a, b float64) bool {
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= consistencyTolerance*scale
}

// PreviewPay returns the pay a draft would produce, or 0 when the inputs are incomplete.
func PreviewPay(hours float64, rateType RateType, rawRate float64) float64 {
	if rateType == Daily {
		return rawRate
	}
	return hours * rawRate
}

// Check reports the first invariant e violates, or nil.
func (e Entry) Check() error {
	if _, err := time.Parse(DateLayout, e.Date); err != nil {
		return fmt.Errorf("date %q is not YYYY-MM-DD", e.Date)
	}
	if !e.RateType.Valid() {
		return fmt.Errorf("unknown rate type %q", e.RateType)
	}
	if !(e.Hours > 0) {
		return fmt.Errorf("hours must be positive, got %v", e.Hours)
	}
	if !finite(e.Hours) || !finite(e.Rate) || !finite(e.Pay) {
		return fmt.Errorf("hours, rate and pay must be finite")
	}
	if e.Pay < 0 {
		return fmt.Errorf("pay must not be negative, got %v", e.Pay)
	}
	switch e.RateType {
	case Hourly:
		if !approxEqual(e.Pay, e.Hours*e.Rate) {
			return fmt.Errorf("hourly pay %v does not match %v h × %v", e.Pay, e.Hours, e.Rate)
		}
	case Daily:
		if !approxEqual(e.Rate, e.Pay/e.Hours) {
			return fmt.Errorf("daily rate %v does not match pay %v / %v h", e.Rate, e.Pay, e.Hours)
		}
	}
	return nil
}
