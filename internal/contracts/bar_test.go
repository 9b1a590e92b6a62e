package contracts

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() MetricRecord {
	return MetricRecord{
		Bar: Bar{
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

func TestMetricRecord_Key(t *testing.T) {
	assert.Equal(t, "AAPL|2024-01-02", sampleRecord().Key())
}

func TestStoredRowConversion(t *testing.T) {
	rec := sampleRecord()
	row := rec.ToStoredRow()
	assert.Equal(t, "2024-01-02", row.Date)
	assert.Equal(t, rec.Volume, row.Volume)

	back, err := row.ToRecord()
	require.NoError(t, err)
	assert.Equal(t, rec, back)

	row.Date = "02/01/2024"
	_, err = row.ToRecord()
	assert.Error(t, err)
}

func TestMetricRecord_JSONIsFlat(t *testing.T) {
	data, err := json.Marshal(sampleRecord())
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m))
	for _, key := range []string{"symbol", "date", "close", "volume", "daily_return", "moving_average", "volatility"} {
		assert.Contains(t, m, key)
	}
}

func TestRawBar_NullFields(t *testing.T) {
	var bar RawBar
	require.NoError(t, json.Unmarshal([]byte(`{"symbol":"MSFT","close":null,"open":370.5,"volume":1200}`), &bar))

	assert.False(t, bar.Close.Valid)
	assert.Equal(t, null.FloatFrom(370.5), bar.Open)
	assert.Equal(t, int64(1200), bar.Volume.Int64)
}

func TestNormalizeDate(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	in := time.Date(2024, 1, 2, 9, 30, 0, 0, ny)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), NormalizeDate(in))
}
