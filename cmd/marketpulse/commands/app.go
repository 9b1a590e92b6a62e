package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/wonny/marketpulse/internal/external/marketdata"
	"github.com/wonny/marketpulse/internal/pipeline"
	"github.com/wonny/marketpulse/internal/quality"
	"github.com/wonny/marketpulse/internal/report"
	"github.com/wonny/marketpulse/internal/store"
	"github.com/wonny/marketpulse/internal/transform"
	"github.com/wonny/marketpulse/pkg/config"
	"github.com/wonny/marketpulse/pkg/httputil"
	"github.com/wonny/marketpulse/pkg/logger"
	"github.com/wonny/marketpulse/pkg/metrics"
	"github.com/wonny/marketpulse/pkg/redis"
)

// app holds the wired components shared by the commands
type app struct {
	cfg          *config.Config
	log          *logger.Logger
	store        *store.Keyed
	redis        *redis.Client
	metrics      *metrics.Recorder
	orchestrator *pipeline.Orchestrator
}

// loadConfig loads the environment and applies the global flag overrides
func loadConfig() (*config.Config, error) {
	// overrides go through the environment so config.Load validates them
	overrides := map[string]string{
		"STORE_DRIVER": storeDriver,
		"DATA_SOURCE":  dataSource,
	}
	if verbose {
		overrides["LOG_LEVEL"] = "debug"
	}
	for key, value := range overrides {
		if value == "" {
			continue
		}
		if err := os.Setenv(key, strings.ToLower(value)); err != nil {
			return nil, fmt.Errorf("set %s: %w", key, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newStoreApp wires config, logger and store only
func newStoreApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := cfg.EnsureDirs(); err != nil {
		return nil, err
	}

	log := logger.New(cfg)

	st, err := store.Open(ctx, cfg)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}

	a := &app{
		cfg:   cfg,
		log:   log,
		store: st,
	}
	if cfg.MetricsEnabled {
		a.metrics = metrics.New()
	}
	return a, nil
}

// newApp wires every pipeline component
// ⭐ SSOT: 의존성 조립은 여기서만
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a, err := newStoreApp(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// 1. Fetch cache (optional)
	var cache *redis.Cache
	if cfg.Redis.Enabled {
		rc, err := redis.New(ctx, cfg.Redis)
		if err != nil {
			a.log.WithError(err).Warn("Redis unavailable, fetching without cache")
		} else {
			a.redis = rc
			cache = redis.NewCache(rc, "marketpulse")
		}
	}

	// 2. Fetcher
	httpClient := httputil.New(cfg, a.log)
	fetcher, err := marketdata.NewFetcher(cfg, httpClient, cache, a.log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create fetcher: %w", err)
	}

	// 3. Transform + validation
	calc, err := transform.NewCalculator(transform.Config{
		MAWindow:  cfg.Pipeline.MAWindow,
		VolWindow: cfg.Pipeline.VolWindow,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	// 4. Reports
	reporter, err := report.NewGenerator(cfg.Report.Dir, cfg.Report.Formats, a.log)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.orchestrator = pipeline.NewOrchestrator(
		fetcher, calc, quality.NewValidator(), a.store, a.log,
		pipeline.Config{
			Period:  cfg.Fetch.Period,
			Workers: cfg.Pipeline.Workers,
		},
	).WithReporter(reporter).WithMetrics(a.metrics)

	return a, nil
}

// Close releases store, cache and log file
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close store")
	}
	if a.redis != nil {
		a.redis.Close()
	}
	a.log.Close()
}
