package cmd

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/trivial-pay-tracker/internal/ledger"
	"github.com/Tiliavir/trivial-pay-tracker/internal/model"
	"github.com/Tiliavir/trivial-pay-tracker/internal/render"
)

var (
	addDate  string
	addHours float64
	addRate  float64
	addDaily bool
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a work session",
	Long: `Record a work session. Without --hours and --rate an interactive form is
shown. With --daily the rate is a flat amount for the day and the hourly rate
is derived from it.`,
	Args: cobra.NoArgs,
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addDate, "date", "", "Date worked (YYYY-MM-DD); defaults to today")
	addCmd.Flags().Float64Var(&addHours, "hours", 0, "Hours worked")
	addCmd.Flags().Float64Var(&addRate, "rate", 0, "Hourly rate, or the day amount with --daily")
	addCmd.Flags().BoolVar(&addDaily, "daily", false, "Treat --rate as a flat daily amount")
}

func runAdd(cmd *cobra.Command, args []string) error {
	draft := model.Draft{
		Date:     addDate,
		Hours:    addHours,
		RateType: model.Hourly,
		RawRate:  addRate,
	}
	if draft.Date == "" {
		draft.Date = time.Now().Format(model.DateLayout)
	}
	if addDaily {
		draft.RateType = model.Daily
	}

	if !cmd.Flags().Changed("hours") || !cmd.Flags().Changed("rate") {
		fm := newDraftForm(draft)
		if err := fm.form().Run(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
				return nil
			}
			return err
		}
		var err error
		if draft, err = fm.draft(); err != nil {
			return err
		}
	}

	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	e, err := s.repo.AddEntry(cmd.Context(), draft)
	switch {
	case errors.Is(err, model.ErrInvalidDraft):
		return err
	case errors.Is(err, ledger.ErrLocalWrite):
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: saved remotely but the local copy was not updated: %v\n", err)
	case err != nil:
		return failure(err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Added %s: %s h × %s (%s) = %s\n",
		render.Date(e.Date), render.Hours(e.Hours), render.Money(e.Rate), e.RateType, render.Money(e.Pay))
	return nil
}

// draftForm holds the raw form input. Numbers stay strings until submit so
// the preview can follow partial input.
type draftForm struct {
	Date     string
	Hours    string
	RateType model.RateType
	Rate     string
}

func newDraftForm(d model.Draft) *draftForm {
	fm := &draftForm{Date: d.Date, RateType: d.RateType}
	if d.Hours > 0 {
		fm.Hours = render.Hours(d.Hours)
	}
	if d.RawRate > 0 {
		fm.Rate = strconv.FormatFloat(d.RawRate, 'f', -1, 64)
	}
	return fm
}

func (fm *draftForm) form() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Date (YYYY-MM-DD)").
				Value(&fm.Date).
				Validate(func(s string) error {
					if _, err := time.Parse(model.DateLayout, strings.TrimSpace(s)); err != nil {
						return fmt.Errorf("date must look like 2024-03-15")
					}
					return nil
				}),
			huh.NewInput().
				Title("Hours").
				Value(&fm.Hours).
				Validate(func(s string) error {
					h, err := parseNumber(s)
					if err != nil {
						return err
					}
					if h <= 0 {
						return fmt.Errorf("hours must be greater than zero")
					}
					return nil
				}),
			huh.NewSelect[model.RateType]().
				Title("Rate type").
				Options(
					huh.NewOption("Hourly", model.Hourly),
					huh.NewOption("Daily (flat amount)", model.Daily),
				).
				Value(&fm.RateType),
			huh.NewInput().
				Title("Rate").
				Value(&fm.Rate).
				Validate(func(s string) error {
					r, err := parseNumber(s)
					if err != nil {
						return err
					}
					if r < 0 {
						return fmt.Errorf("rate must not be negative")
					}
					return nil
				}),
			huh.NewNote().
				Title("Pay").
				DescriptionFunc(fm.preview, fm),
		),
	).WithTheme(huh.ThemeDracula())
}

// preview is the pay for the current input; incomplete numbers count as zero.
func (fm *draftForm) preview() string {
	h, _ := parseNumber(fm.Hours)
	r, _ := parseNumber(fm.Rate)
	return render.Money(model.PreviewPay(h, fm.RateType, r))
}

func (fm *draftForm) draft() (model.Draft, error) {
	h, err := parseNumber(fm.Hours)
	if err != nil {
		return model.Draft{}, fmt.Errorf("%w: hours: %v", model.ErrInvalidDraft, err)
	}
	r, err := parseNumber(fm.Rate)
	if err != nil {
		return model.Draft{}, fmt.Errorf("%w: rate: %v", model.ErrInvalidDraft, err)
	}
	return model.Draft{
		Date:     strings.TrimSpace(fm.Date),
		Hours:    h,
		RateType: fm.RateType,
		RawRate:  r,
	}, nil
}

// parseNumber accepts a decimal with either . or , as separator.
func parseNumber(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, fmt.Errorf("a number is required")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return v, nil
}
