package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/marketpulse/internal/contracts"
	"github.com/wonny/marketpulse/internal/external"
	"github.com/wonny/marketpulse/internal/external/alphavantage"
	"github.com/wonny/marketpulse/internal/external/yahoo"
	"github.com/wonny/marketpulse/pkg/config"
	"github.com/wonny/marketpulse/pkg/httputil"
	"github.com/wonny/marketpulse/pkg/logger"
	"github.com/wonny/marketpulse/pkg/redis"
)

// NewFetcher builds the fetcher selected by DATA_SOURCE, wrapped in the Redis
// cache when one is given and enabled
// ⭐ SSOT: 데이터 소스 선택은 여기서만
func NewFetcher(cfg *config.Config, httpClient *httputil.Client, cache *redis.Cache, log *logger.Logger) (contracts.BarFetcher, error) {
	if err := external.ValidatePeriod(cfg.Fetch.Period); err != nil {
		return nil, err
	}

	var fetcher contracts.BarFetcher
	switch cfg.Fetch.Source {
	case config.SourceYahoo:
		fetcher = yahoo.NewClient(httpClient, log)
	case config.SourceAlphaVantage:
		fetcher = alphavantage.NewClient(httpClient, cfg.Fetch.AlphaVantageKey, log)
	default:
		return nil, fmt.Errorf("unknown data source: %s", cfg.Fetch.Source)
	}

	if cache != nil {
		fetcher = NewCachedFetcher(fetcher, cache, cfg.Redis.CacheTTL, log)
	}
	return fetcher, nil
}

// CachedFetcher serves repeated fetches of the same symbol, period and day from Redis
type CachedFetcher struct {
	next   contracts.BarFetcher
	cache  *redis.Cache
	ttl    time.Duration
	logger *logger.Logger
	now    func() time.Time
}

// Compile-time interface check.
var _ contracts.BarFetcher = (*CachedFetcher)(nil)

// NewCachedFetcher wraps next with a read-through cache
func NewCachedFetcher(next contracts.BarFetcher, cache *redis.Cache, ttl time.Duration, log *logger.Logger) *CachedFetcher {
	return &CachedFetcher{
		next:   next,
		cache:  cache,
		ttl:    ttl,
		logger: log,
		now:    time.Now,
	}
}

// Name returns the wrapped source name
func (f *CachedFetcher) Name() string {
	return f.next.Name()
}

// FetchBars returns cached bars when present; otherwise fetches and caches non-empty results.
// Cache failures never fail the fetch.
func (f *CachedFetcher) FetchBars(ctx context.Context, symbol, period string) ([]contracts.RawBar, error) {
	key := redis.BarsKey(f.next.Name(), symbol, period, f.now())

	var cached []contracts.RawBar
	found, err := f.cache.Get(ctx, key, &cached)
	if err != nil {
		f.logger.WithError(err).WithField("symbol", symbol).Warn("Cache read failed")
	}
	if found {
		f.logger.WithFields(map[string]interface{}{
			"symbol": symbol,
			"rows":   len(cached),
		}).Debug("Serving bars from cache")
		return cached, nil
	}

	bars, err := f.next.FetchBars(ctx, symbol, period)
	if err != nil {
		return nil, err
	}

	if len(bars) > 0 {
		if err := f.cache.Set(ctx, key, bars, f.ttl); err != nil {
			f.logger.WithError(err).WithField("symbol", symbol).Warn("Cache write failed")
		}
	}
	return bars, nil
}
