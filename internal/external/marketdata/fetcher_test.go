package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/marketpulse/internal/contracts"
	"github.com/wonny/marketpulse/internal/external"
	"github.com/wonny/marketpulse/pkg/config"
	"github.com/wonny/marketpulse/pkg/httputil"
	"github.com/wonny/marketpulse/pkg/logger"
	"github.com/wonny/marketpulse/pkg/redis"
)

type countingFetcher struct {
	calls int
	bars  []contracts.RawBar
}

func (c *countingFetcher) Name() string { return "fake" }

func (c *countingFetcher) FetchBars(ctx context.Context, symbol, period string) ([]contracts.RawBar, error) {
	c.calls++
	return c.bars, nil
}

func TestNewFetcher(t *testing.T) {
	log := logger.Nop()

	tests := []struct {
		name     string
		fetch    config.FetchConfig
		wantName string
		wantErr  bool
	}{
		{"yahoo", config.FetchConfig{Source: config.SourceYahoo, Period: "1mo"}, config.SourceYahoo, false},
		{"alpha vantage", config.FetchConfig{Source: config.SourceAlphaVantage, Period: "1y", AlphaVantageKey: "k"}, config.SourceAlphaVantage, false},
		{"unknown source", config.FetchConfig{Source: "bloomberg", Period: "1mo"}, "", true},
		{"bad period", config.FetchConfig{Source: config.SourceYahoo, Period: "1 month"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Fetch: tt.fetch}
			f, err := NewFetcher(cfg, httputil.New(cfg, log), nil, log)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, f.Name())
		})
	}
}

func TestNewFetcher_BadPeriod(t *testing.T) {
	cfg := &config.Config{Fetch: config.FetchConfig{Source: config.SourceYahoo, Period: "fortnight"}}
	_, err := NewFetcher(cfg, httputil.New(cfg, logger.Nop()), nil, logger.Nop())
	assert.ErrorIs(t, err, external.ErrUnknownPeriod)
}

func TestCachedFetcher_DisabledCachePassesThrough(t *testing.T) {
	client, err := redis.New(context.Background(), config.RedisConfig{Enabled: false})
	require.NoError(t, err)

	inner := &countingFetcher{bars: []contracts.RawBar{{
		Symbol: "AAPL",
		Date:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Close:  null.FloatFrom(185.64),
	}}}
	f := NewCachedFetcher(inner, redis.NewCache(client, "marketpulse"), time.Hour, logger.Nop())

	for i := 0; i < 2; i++ {
		bars, err := f.FetchBars(context.Background(), "AAPL", "1mo")
		require.NoError(t, err)
		assert.Len(t, bars, 1)
	}
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, "fake", f.Name())
}
