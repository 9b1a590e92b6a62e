package transform

import (
	"errors"
	"fmt"
	"math"

	"github.com/wonny/marketpulse/internal/contracts"
)

// ErrInvalidWindow is returned when a rolling window is shorter than two rows
var ErrInvalidWindow = errors.New("window must be at least 2")

// Config holds the rolling window lengths
type Config struct {
	MAWindow  int `json:"ma_window"`
	VolWindow int `json:"vol_window"`
}

// DefaultConfig returns the default 5-day windows
func DefaultConfig() Config {
	return Config{
		MAWindow:  5,
		VolWindow: 5,
	}
}

// Result is the output of one Compute call
type Result struct {
	Records   []contracts.MetricRecord
	Discarded int // cleaned rows dropped because a metric was undefined
}

// Calculator derives daily return, moving average and volatility from cleaned bars
// ⭐ SSOT: 지표 계산은 여기서만
type Calculator struct {
	config Config
}

// NewCalculator creates a calculator, rejecting windows below 2
// (sample standard deviation needs two observations)
func NewCalculator(cfg Config) (*Calculator, error) {
	if cfg.MAWindow < 2 {
		return nil, fmt.Errorf("moving average window %d: %w", cfg.MAWindow, ErrInvalidWindow)
	}
	if cfg.VolWindow < 2 {
		return nil, fmt.Errorf("volatility window %d: %w", cfg.VolWindow, ErrInvalidWindow)
	}
	return &Calculator{config: cfg}, nil
}

// Config returns the calculator windows
func (c *Calculator) Config() Config {
	return c.config
}

// Compute derives metrics for bars, which must be date-ordered with unique dates
// (the output of Clean).
//
//	daily_return[i]   = (close[i] - close[i-1]) / close[i-1] * 100, i >= 1
//	moving_average[i] = mean(close[i-MA+1 .. i]),                  i >= MA-1
//	volatility[i]     = sample stdev(close[i-Vol+1 .. i]),         i >= Vol-1
//
// Rows with any undefined metric are dropped, so N bars yield
// max(0, N - max(MA, Vol) + 1) records unless a previous close is zero.
func (c *Calculator) Compute(bars []contracts.Bar) Result {
	result := Result{}
	if len(bars) == 0 {
		return result
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	ma := c.config.MAWindow
	vol := c.config.VolWindow

	for i, bar := range bars {
		if i < 1 || i < ma-1 || i < vol-1 {
			result.Discarded++
			continue
		}

		prev := closes[i-1]
		if prev == 0 {
			// return is undefined
			result.Discarded++
			continue
		}

		result.Records = append(result.Records, contracts.MetricRecord{
			Bar:           bar,
			DailyReturn:   (closes[i] - prev) / prev * 100,
			MovingAverage: Mean(closes[i-ma+1 : i+1]),
			Volatility:    StdDev(closes[i-vol+1 : i+1]),
		})
	}

	return result
}

// Mean 평균 계산
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev 표본 표준편차 계산 (N-1)
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	var sumSq float64
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(len(values)-1))
}
