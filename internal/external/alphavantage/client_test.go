package alphavantage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/marketpulse/internal/external"
	"github.com/wonny/marketpulse/pkg/config"
	"github.com/wonny/marketpulse/pkg/httputil"
	"github.com/wonny/marketpulse/pkg/logger"
)

const seriesJSON = `{
  "Meta Data": {"2. Symbol": "IBM"},
  "Time Series (Daily)": {
    "2024-01-04": {"1. open": "161.11", "2. high": "161.19", "3. low": "160.07", "4. close": "160.10", "5. volume": "4358756"},
    "2024-01-03": {"1. open": "161.00", "2. high": "161.73", "3. low": "160.08", "4. close": "160.61", "5. volume": "4086076"},
    "2024-01-02": {"1. open": "162.83", "2. high": "163.29", "3. low": "160.95", "4. close": "None", "5. volume": "3939296"},
    "2023-11-01": {"1. open": "144.61", "2. high": "145.65", "3. low": "144.05", "4. close": "145.40", "5. volume": "3500000"}
  }
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{Env: "test", LogLevel: "error"}
	httpClient := httputil.New(cfg, logger.Nop()).DisableRetry()

	c := NewClient(httpClient, "secret-key", logger.Nop()).WithBaseURL(server.URL)
	c.now = func() time.Time { return time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestFetchBars(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "TIME_SERIES_DAILY", q.Get("function"))
		assert.Equal(t, "IBM", q.Get("symbol"))
		assert.Equal(t, "compact", q.Get("outputsize"))
		assert.Equal(t, "secret-key", q.Get("apikey"))
		w.Write([]byte(seriesJSON))
	})

	bars, err := client.FetchBars(context.Background(), "IBM", "1mo")
	require.NoError(t, err)

	// 2023-11-01 is before the one month window
	require.Len(t, bars, 3)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), bars[0].Date)
	assert.Equal(t, time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), bars[2].Date)
	assert.False(t, bars[0].Close.Valid, `"None" becomes a missing close`)
	assert.InDelta(t, 160.61, bars[1].Close.Float64, 1e-9)
	assert.Equal(t, int64(4358756), bars[2].Volume.Int64)
}

func TestFetchBars_FullOutputForLongPeriods(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "full", r.URL.Query().Get("outputsize"))
		w.Write([]byte(seriesJSON))
	})

	bars, err := client.FetchBars(context.Background(), "IBM", "1y")
	require.NoError(t, err)
	assert.Len(t, bars, 4)
}

func TestFetchBars_ProviderMessages(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{"unknown symbol", `{"Error Message": "Invalid API call."}`, external.ErrNoData},
		{"rate limit note", `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute"}`, external.ErrRateLimited},
		{"daily quota", `{"Information": "We have detected your API key as ... 25 requests per day"}`, external.ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})

			_, err := client.FetchBars(context.Background(), "IBM", "1mo")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFetchBars_RedactsAPIKey(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := client.FetchBars(context.Background(), "IBM", "1mo")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-key")
	assert.True(t, httputil.IsStatus(err, http.StatusBadRequest))
}
