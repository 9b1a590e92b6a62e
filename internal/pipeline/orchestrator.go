package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/marketpulse/internal/contracts"
	"github.com/wonny/marketpulse/internal/quality"
	"github.com/wonny/marketpulse/internal/store"
	"github.com/wonny/marketpulse/internal/transform"
	"github.com/wonny/marketpulse/pkg/logger"
	"github.com/wonny/marketpulse/pkg/metrics"
)

// Config holds orchestrator settings
type Config struct {
	Period  string // lookback passed to the fetcher
	Workers int    // concurrent symbols
}

// Orchestrator runs fetch → clean → metrics → validate → persist per symbol
// and hands the combined records to the reporter
// ⭐ SSOT: 파이프라인 오케스트레이션은 이 패키지에서만
type Orchestrator struct {
	fetcher   contracts.BarFetcher
	calc      *transform.Calculator
	validator *quality.Validator
	store     store.Store
	reporter  contracts.Reporter
	metrics   *metrics.Recorder
	logger    *logger.Logger
	config    Config
}

// NewOrchestrator creates a new Orchestrator
func NewOrchestrator(
	fetcher contracts.BarFetcher,
	calc *transform.Calculator,
	validator *quality.Validator,
	st store.Store,
	log *logger.Logger,
	cfg Config,
) *Orchestrator {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Orchestrator{
		fetcher:   fetcher,
		calc:      calc,
		validator: validator,
		store:     st,
		logger:    log.WithField("module", "pipeline"),
		config:    cfg,
	}
}

// WithReporter sets the collaborator that renders the run's records
func (o *Orchestrator) WithReporter(r contracts.Reporter) *Orchestrator {
	o.reporter = r
	return o
}

// WithMetrics sets the Prometheus recorder
func (o *Orchestrator) WithMetrics(m *metrics.Recorder) *Orchestrator {
	o.metrics = m
	return o
}

// Run processes every symbol. Per-symbol failures become Skipped results and
// never abort the run; only a store initialization failure is returned as an error.
func (o *Orchestrator) Run(ctx context.Context, symbols []string) (*RunSummary, error) {
	summary := &RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	log := o.logger.WithField("run_id", summary.RunID)

	if err := o.store.Initialize(ctx); err != nil {
		log.WithError(err).Error("Store initialization failed")
		return nil, fmt.Errorf("initialize store: %w", err)
	}

	symbols = normalizeSymbols(symbols)

	log.WithFields(map[string]interface{}{
		"symbols": strings.Join(symbols, ","),
		"period":  o.config.Period,
		"workers": o.config.Workers,
		"source":  o.fetcher.Name(),
	}).Info("Starting pipeline run")

	summary.Results = o.runWorkers(ctx, log, symbols)

	for i := range summary.Results {
		if summary.Results[i].State == StateDone {
			summary.Records = append(summary.Records, summary.Results[i].records...)
		}
		summary.Results[i].records = nil
	}
	summary.FinishedAt = time.Now()

	log.WithFields(map[string]interface{}{
		"done":     summary.Done(),
		"skipped":  summary.Skipped(),
		"records":  len(summary.Records),
		"inserted": summary.Inserted(),
		"duration": summary.FinishedAt.Sub(summary.StartedAt).String(),
	}).Info("Pipeline run completed")

	if len(summary.Records) == 0 {
		log.Warn("No data processed")
	} else if o.reporter != nil {
		start := time.Now()
		if err := o.reporter.Generate(ctx, summary.Records); err != nil {
			summary.ReportErr = err
			log.WithError(err).Error("Report generation failed")
		}
		o.metrics.RecordStage("report", time.Since(start).Seconds())
	}

	o.metrics.RecordRunFinished()
	return summary, nil
}

// runWorkers fans symbols out to the worker pool and returns results in input order
func (o *Orchestrator) runWorkers(ctx context.Context, log *logger.Logger, symbols []string) []SymbolResult {
	type job struct {
		index  int
		symbol string
	}
	type indexed struct {
		index  int
		result SymbolResult
	}

	results := make([]SymbolResult, len(symbols))
	jobCh := make(chan job, len(symbols))
	resultCh := make(chan indexed, len(symbols))

	var wg sync.WaitGroup
	for i := 0; i < o.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for j := range jobCh {
				res := o.processSymbol(ctx, log.WithFields(map[string]interface{}{
					"worker": workerID,
					"symbol": j.symbol,
				}), j.symbol)
				resultCh <- indexed{index: j.index, result: res}
			}
		}(i)
	}

	for i, s := range symbols {
		jobCh <- job{index: i, symbol: s}
	}
	close(jobCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	for r := range resultCh {
		results[r.index] = r.result
	}
	return results
}

// processSymbol runs one symbol through every stage. A panic in any stage is
// recovered into a Skipped result.
func (o *Orchestrator) processSymbol(ctx context.Context, log *logger.Logger, symbol string) (res SymbolResult) {
	start := time.Now()
	res = SymbolResult{Symbol: symbol, State: StateFetching}

	skip := func(reason string, err error) {
		res.SkippedAt = res.State
		res.State = StateSkipped
		res.Reason = reason
		res.Err = err
		res.records = nil

		entry := log.WithField("stage", string(res.SkippedAt))
		if err != nil {
			entry = entry.WithError(err)
		}
		entry.Warn("Skipping symbol: " + reason)
	}

	defer func() {
		if r := recover(); r != nil {
			log.WithField("stack", string(debug.Stack())).Error("Recovered from panic")
			skip(fmt.Sprintf("panic: %v", r), fmt.Errorf("panic: %v", r))
		}
		res.Duration = time.Since(start)
		if res.State == StateDone {
			o.metrics.RecordSymbol(metrics.StatusDone)
		} else {
			o.metrics.RecordSymbol(metrics.StatusSkipped)
		}
	}()

	if err := ctx.Err(); err != nil {
		skip("run cancelled", err)
		return res
	}

	// 1. Fetch
	stageStart := time.Now()
	raw, err := o.fetcher.FetchBars(ctx, symbol, o.config.Period)
	o.metrics.RecordStage(string(StateFetching), time.Since(stageStart).Seconds())
	if err != nil {
		o.metrics.RecordFetchError(o.fetcher.Name())
		skip("fetch failed", err)
		return res
	}
	res.Raw = len(raw)
	if len(raw) == 0 {
		skip("no data found", nil)
		return res
	}

	// 2. Clean
	res.State = StateCleaning
	for i := range raw {
		if raw[i].Symbol == "" {
			raw[i].Symbol = symbol
		}
	}
	bars, stats := transform.Clean(raw)
	res.Cleaned = len(bars)
	log.WithFields(map[string]interface{}{
		"input":      stats.Input,
		"duplicates": stats.Duplicates,
		"filled":     stats.Filled,
		"dropped":    stats.Dropped,
	}).Debug("Cleaned bars")
	if len(bars) == 0 {
		skip("no usable rows after cleaning", nil)
		return res
	}

	// 3. Metrics
	res.State = StateComputing
	computed := o.calc.Compute(bars)
	res.Discarded = computed.Discarded
	res.Records = len(computed.Records)
	o.metrics.RecordDiscarded(symbol, computed.Discarded)
	if computed.Discarded > 0 {
		log.WithField("discarded", computed.Discarded).Info("Discarded rows without a full metric window")
	}
	if len(computed.Records) == 0 {
		skip("insufficient data for metric windows", nil)
		return res
	}

	// 4. Validate
	res.State = StateValidating
	if err := o.validator.ValidateBatch(computed.Records); err != nil {
		skip("schema validation failed", err)
		return res
	}

	// 5. Persist
	res.State = StatePersisting
	stageStart = time.Now()
	inserted, err := o.store.Save(ctx, computed.Records)
	o.metrics.RecordStage(string(StatePersisting), time.Since(stageStart).Seconds())
	if err != nil {
		reason := "save failed"
		if errors.Is(err, store.ErrNotInitialized) {
			reason = "store not initialized"
		}
		skip(reason, err)
		return res
	}

	res.Inserted = inserted
	res.records = computed.Records
	res.State = StateDone
	o.metrics.RecordInserted(symbol, inserted)
	o.metrics.RecordLastClose(symbol, computed.Records[len(computed.Records)-1].Close)

	log.WithFields(map[string]interface{}{
		"records":  len(computed.Records),
		"inserted": inserted,
	}).Info("Symbol processed")

	return res
}

// normalizeSymbols upper-cases, trims and de-duplicates symbols, keeping first-seen order
func normalizeSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
