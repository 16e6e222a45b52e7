package model_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tiliavir/trivial-pay-tracker/internal/model"
)

const tolerance = 1e-9

func TestNewEntryHourly(t *testing.T) {
	e, err := model.NewEntry(model.Draft{Date: "2024-03-15", Hours: 8, RateType: model.Hourly, RawRate: 25})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15", e.Date)
	assert.InDelta(t, 8, e.Hours, tolerance)
	assert.InDelta(t, 25, e.Rate, tolerance)
	assert.InDelta(t, 200, e.Pay, tolerance)
	assert.True(t, e.Timestamp.IsZero())
}

func TestNewEntryDaily(t *testing.T) {
	e, err := model.NewEntry(model.Draft{Date: "2024-03-20", Hours: 6, RateType: model.Daily, RawRate: 150})
	require.NoError(t, err)
	assert.InDelta(t, 150, e.Pay, tolerance)
	assert.InDelta(t, 25, e.Rate, tolerance)
}

func TestNewEntryRateAndPayConsistent(t *testing.T) {
	drafts := []model.Draft{
		{Date: "2024-01-01", Hours: 7.5, RateType: model.Hourly, RawRate: 31.2},
		{Date: "2024-01-02", Hours: 0.25, RateType: model.Hourly, RawRate: 0},
		{Date: "2024-01-03", Hours: 9.75, RateType: model.Daily, RawRate: 412.5},
		{Date: "2024-01-04", Hours: 3, RateType: model.Daily, RawRate: 100},
	}
	for _, d := range drafts {
		e, err := model.NewEntry(d)
		require.NoError(t, err)
		switch d.RateType {
		case model.Hourly:
			assert.InDelta(t, e.Hours*e.Rate, e.Pay, tolerance, "hourly %s", d.Date)
		case model.Daily:
			assert.InDelta(t, d.RawRate, e.Pay, tolerance, "daily %s", d.Date)
			assert.InDelta(t, e.Pay/e.Hours, e.Rate, tolerance, "daily %s", d.Date)
		}
		assert.NoError(t, e.Check())
	}
}

func TestNewEntryRejectsInvalidDrafts(t *testing.T) {
	tests := []struct {
		name  string
		draft model.Draft
	}{
		{"bad date", model.Draft{Date: "15/03/2024", Hours: 1, RateType: model.Hourly, RawRate: 1}},
		{"empty date", model.Draft{Hours: 1, RateType: model.Hourly, RawRate: 1}},
		{"zero hours", model.Draft{Date: "2024-03-15", Hours: 0, RateType: model.Hourly, RawRate: 1}},
		{"negative hours", model.Draft{Date: "2024-03-15", Hours: -2, RateType: model.Daily, RawRate: 1}},
		{"negative rate", model.Draft{Date: "2024-03-15", Hours: 2, RateType: model.Hourly, RawRate: -1}},
		{"unknown rate type", model.Draft{Date: "2024-03-15", Hours: 2, RateType: "weekly", RawRate: 1}},
		{"hourly pay overflows", model.Draft{Date: "2024-03-15", Hours: 1e200, RateType: model.Hourly, RawRate: 1e200}},
		{"daily rate overflows", model.Draft{Date: "2024-03-15", Hours: 1e-320, RateType: model.Daily, RawRate: 150}},
		{"infinite hours", model.Draft{Date: "2024-03-15", Hours: math.Inf(1), RateType: model.Hourly, RawRate: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := model.NewEntry(tt.draft)
			assert.ErrorIs(t, err, model.ErrInvalidDraft)
		})
	}
}

func TestParseRateType(t *testing.T) {
	r, err := model.ParseRateType("daily")
	require.NoError(t, err)
	assert.Equal(t, model.Daily, r)

	_, err = model.ParseRateType("Hourly")
	assert.Error(t, err)
}

func TestPreviewPay(t *testing.T) {
	assert.InDelta(t, 200, model.PreviewPay(8, model.Hourly, 25), tolerance)
	assert.InDelta(t, 150, model.PreviewPay(6, model.Daily, 150), tolerance)
	assert.InDelta(t, 0, model.PreviewPay(0, model.Hourly, 25), tolerance)
}

func TestEntryCheck(t *testing.T) {
	ok := model.Entry{Date: "2024-03-15", Hours: 1, RateType: model.Hourly, Rate: 1, Pay: 1}
	assert.NoError(t, ok.Check())

	bad := ok
	bad.Pay = -1
	assert.Error(t, bad.Check())

	bad = ok
	bad.RateType = "monthly"
	assert.Error(t, bad.Check())

	bad = ok
	bad.Hours = 0
	assert.Error(t, bad.Check())

	bad = ok
	bad.Rate = math.NaN()
	assert.Error(t, bad.Check())
}

func TestEntryCheckRateAndPayAgree(t *testing.T) {
	tests := []struct {
		name    string
		entry   model.Entry
		wantErr bool
	}{
		{"hourly consistent", model.Entry{Date: "2024-03-15", Hours: 8, RateType: model.Hourly, Rate: 25, Pay: 200}, false},
		{"hourly edited pay", model.Entry{Date: "2024-03-15", Hours: 8, RateType: model.Hourly, Rate: 25, Pay: 999}, true},
		{"hourly rounding noise", model.Entry{Date: "2024-03-15", Hours: 7.5, RateType: model.Hourly, Rate: 31.2, Pay: 7.5 * 31.2}, false},
		{"daily consistent", model.Entry{Date: "2024-03-20", Hours: 7, RateType: model.Daily, Rate: 150.0 / 7, Pay: 150}, false},
		{"daily edited rate", model.Entry{Date: "2024-03-20", Hours: 6, RateType: model.Daily, Rate: 30, Pay: 150}, true},
		{"unpaid hourly", model.Entry{Date: "2024-03-20", Hours: 2, RateType: model.Hourly, Rate: 0, Pay: 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Check()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
