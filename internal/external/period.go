package external

import (
	"errors"
	"fmt"
	"time"
)

// Provider errors
var (
	// ErrNoData is returned when a provider has nothing for the symbol.
	ErrNoData = errors.New("no data returned")

	// ErrRateLimited is returned when a provider rejects the call for quota reasons.
	ErrRateLimited = errors.New("provider rate limit reached")

	// ErrUnknownPeriod is returned for a lookback period the providers do not understand.
	ErrUnknownPeriod = errors.New("unknown period")
)

// Periods accepted by FetchBars (yfinance vocabulary)
var periods = map[string]func(time.Time) time.Time{
	"1d":  func(t time.Time) time.Time { return t.AddDate(0, 0, -1) },
	"5d":  func(t time.Time) time.Time { return t.AddDate(0, 0, -5) },
	"1mo": func(t time.Time) time.Time { return t.AddDate(0, -1, 0) },
	"3mo": func(t time.Time) time.Time { return t.AddDate(0, -3, 0) },
	"6mo": func(t time.Time) time.Time { return t.AddDate(0, -6, 0) },
	"1y":  func(t time.Time) time.Time { return t.AddDate(-1, 0, 0) },
	"2y":  func(t time.Time) time.Time { return t.AddDate(-2, 0, 0) },
	"5y":  func(t time.Time) time.Time { return t.AddDate(-5, 0, 0) },
	"10y": func(t time.Time) time.Time { return t.AddDate(-10, 0, 0) },
	"ytd": func(t time.Time) time.Time { return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC) },
	"max": func(t time.Time) time.Time { return time.Time{} },
}

// ValidatePeriod checks that period is one of 1d 5d 1mo 3mo 6mo 1y 2y 5y 10y ytd max
func ValidatePeriod(period string) error {
	if _, ok := periods[period]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPeriod, period)
	}
	return nil
}

// PeriodStart returns the first calendar day (UTC) covered by period, counted back from now
func PeriodStart(now time.Time, period string) (time.Time, error) {
	start, ok := periods[period]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownPeriod, period)
	}
	now = now.UTC()
	t := start(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC))
	return t, nil
}
