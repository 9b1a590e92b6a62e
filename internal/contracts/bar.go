package contracts

import (
	"fmt"
	"time"

	"github.com/guregu/null/v6"
)

// DateLayout is the persisted and reported date format
const DateLayout = "2006-01-02"

// RawBar is one daily bar as returned by a provider.
// Any OHLCV field may be missing (halted or holiday rows).
// ⭐ SSOT: fetch 결과 타입
type RawBar struct {
	Symbol string     `json:"symbol"`
	Date   time.Time  `json:"date"`
	Open   null.Float `json:"open"`
	High   null.Float `json:"high"`
	Low    null.Float `json:"low"`
	Close  null.Float `json:"close"`
	Volume null.Int   `json:"volume"`
}

// Bar is a fully populated OHLCV observation for one symbol and calendar date
type Bar struct {
	Symbol string    `json:"symbol" validate:"required"`
	Date   time.Time `json:"date" validate:"required"`
	Open   float64   `json:"open" validate:"finite,gte=0"`
	High   float64   `json:"high" validate:"finite,gte=0"`
	Low    float64   `json:"low" validate:"finite,gte=0"`
	Close  float64   `json:"close" validate:"finite,gte=0"`
	Volume int64     `json:"volume" validate:"gte=0"`
}

// MetricRecord is a Bar with its derived metrics.
// Records only exist for rows where every metric is defined.
// ⭐ SSOT: 변환 결과 타입 (validator → store → report)
type MetricRecord struct {
	Bar
	DailyReturn   float64 `json:"daily_return" validate:"finite"`
	MovingAverage float64 `json:"moving_average" validate:"finite,gte=0"`
	Volatility    float64 `json:"volatility" validate:"finite,gte=0"`
}

// Key returns the (symbol, date) primary key as "SYMBOL|YYYY-MM-DD"
func (r MetricRecord) Key() string {
	return fmt.Sprintf("%s|%s", r.Symbol, r.Date.Format(DateLayout))
}

// StoredRow is the persisted form of a MetricRecord (table stock_prices)
type StoredRow struct {
	Symbol        string  `json:"symbol"`
	Date          string  `json:"date"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close"`
	Volume        int64   `json:"volume"`
	DailyReturn   float64 `json:"daily_return"`
	MovingAverage float64 `json:"moving_average"`
	Volatility    float64 `json:"volatility"`
}

// ToStoredRow converts a record to its persisted form
func (r MetricRecord) ToStoredRow() StoredRow {
	return StoredRow{
		Symbol:        r.Symbol,
		Date:          r.Date.Format(DateLayout),
		Open:          r.Open,
		High:          r.High,
		Low:           r.Low,
		Close:         r.Close,
		Volume:        r.Volume,
		DailyReturn:   r.DailyReturn,
		MovingAverage: r.MovingAverage,
		Volatility:    r.Volatility,
	}
}

// ToRecord converts a persisted row back into a MetricRecord
func (s StoredRow) ToRecord() (MetricRecord, error) {
	date, err := time.Parse(DateLayout, s.Date)
	if err != nil {
		return MetricRecord{}, fmt.Errorf("parse stored date %q: %w", s.Date, err)
	}
	return MetricRecord{
		Bar: Bar{
			Symbol: s.Symbol,
			Date:   date,
			Open:   s.Open,
			High:   s.High,
			Low:    s.Low,
			Close:  s.Close,
			Volume: s.Volume,
		},
		DailyReturn:   s.DailyReturn,
		MovingAverage: s.MovingAverage,
		Volatility:    s.Volatility,
	}, nil
}

// NormalizeDate keeps the calendar date of t and drops the time of day (UTC midnight)
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
