package quality

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/marketpulse/internal/contracts"
)

func validRecord() contracts.MetricRecord {
	return contracts.MetricRecord{
		Bar: contracts.Bar{
			Symbol: "AAPL",
			Date:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			Open:   187.15,
			High:   188.44,
			Low:    183.89,
			Close:  185.64,
			Volume: 82488700,
		},
		DailyReturn:   -3.58,
		MovingAverage: 190.2,
		Volatility:    2.1,
	}
}

func TestValidateRecord(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*contracts.MetricRecord)
		wantField string
	}{
		{"valid", func(r *contracts.MetricRecord) {}, ""},
		{"negative return is fine", func(r *contracts.MetricRecord) { r.DailyReturn = -12.5 }, ""},
		{"zero volatility is fine", func(r *contracts.MetricRecord) { r.Volatility = 0 }, ""},
		{"empty symbol", func(r *contracts.MetricRecord) { r.Symbol = "" }, "symbol"},
		{"zero date", func(r *contracts.MetricRecord) { r.Date = time.Time{} }, "date"},
		{"NaN close", func(r *contracts.MetricRecord) { r.Close = math.NaN() }, "close"},
		{"Inf return", func(r *contracts.MetricRecord) { r.DailyReturn = math.Inf(1) }, "daily_return"},
		{"NaN moving average", func(r *contracts.MetricRecord) { r.MovingAverage = math.NaN() }, "moving_average"},
		{"negative price", func(r *contracts.MetricRecord) { r.Low = -1 }, "low"},
		{"negative volume", func(r *contracts.MetricRecord) { r.Volume = -5 }, "volume"},
	}

	v := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(&rec)

			err := v.ValidateRecord(rec)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), "field "+tt.wantField+" ")
		})
	}
}

func TestValidateBatch(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateBatch(nil))

	good := validRecord()
	assert.NoError(t, v.ValidateBatch([]contracts.MetricRecord{good, good}))

	bad := validRecord()
	bad.Date = bad.Date.AddDate(0, 0, 1)
	bad.Volatility = math.NaN()

	err := v.ValidateBatch([]contracts.MetricRecord{good, bad, good})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidBatch)
	assert.Contains(t, err.Error(), "AAPL|2024-01-03")
	assert.Contains(t, err.Error(), "volatility")
}
