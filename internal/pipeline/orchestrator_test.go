package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/marketpulse/internal/contracts"
	"github.com/wonny/marketpulse/internal/quality"
	"github.com/wonny/marketpulse/internal/store"
	"github.com/wonny/marketpulse/internal/transform"
	"github.com/wonny/marketpulse/pkg/logger"
	"github.com/wonny/marketpulse/pkg/metrics"
)

type fakeFetcher struct {
	bars   map[string][]contracts.RawBar
	errs   map[string]error
	panics map[string]bool
}

func (f *fakeFetcher) Name() string { return "fake" }

func (f *fakeFetcher) FetchBars(ctx context.Context, symbol, period string) ([]contracts.RawBar, error) {
	if f.panics[symbol] {
		panic("provider exploded")
	}
	if err := f.errs[symbol]; err != nil {
		return nil, err
	}
	return f.bars[symbol], nil
}

type fakeReporter struct {
	mu      sync.Mutex
	calls   int
	records []contracts.MetricRecord
	err     error
}

func (r *fakeReporter) Generate(ctx context.Context, records []contracts.MetricRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.records = records
	return r.err
}

type failingInitStore struct {
	store.Store
}

func (f failingInitStore) Initialize(ctx context.Context) error {
	return errors.New("permission denied")
}

// failingSaveStore rejects every batch of one symbol
type failingSaveStore struct {
	store.Store
	symbol string
}

func (f failingSaveStore) Save(ctx context.Context, records []contracts.MetricRecord) (int, error) {
	if len(records) > 0 && records[0].Symbol == f.symbol {
		return 0, errors.New("save 2 records: database is locked")
	}
	return f.Store.Save(ctx, records)
}

func series(symbol string, closes ...float64) []contracts.RawBar {
	bars := make([]contracts.RawBar, len(closes))
	for i, c := range closes {
		bars[i] = contracts.RawBar{
			Symbol: symbol,
			Date:   time.Date(2024, 1, 2+i, 0, 0, 0, 0, time.UTC),
			Open:   null.FloatFrom(c),
			High:   null.FloatFrom(c + 1),
			Low:    null.FloatFrom(c - 1),
			Close:  null.FloatFrom(c),
			Volume: null.IntFrom(1000),
		}
	}
	return bars
}

func newOrchestrator(t *testing.T, f contracts.BarFetcher, st store.Store) *Orchestrator {
	t.Helper()
	calc, err := transform.NewCalculator(transform.Config{MAWindow: 3, VolWindow: 3})
	require.NoError(t, err)
	return NewOrchestrator(f, calc, quality.NewValidator(), st, logger.Nop(), Config{Period: "1mo", Workers: 3})
}

func TestRun_SkipsEmptySymbolAndProcessesOthers(t *testing.T) {
	fetcher := &fakeFetcher{bars: map[string][]contracts.RawBar{
		"AAPL": series("AAPL", 10, 12, 11, 13, 14, 15),
		"MSFT": series("MSFT", 20, 21, 22, 23),
		"ZZZZ": nil,
	}}
	reporter := &fakeReporter{}
	st := store.NewMemory()

	o := newOrchestrator(t, fetcher, st).WithReporter(reporter)
	summary, err := o.Run(context.Background(), []string{"AAPL", "ZZZZ", "MSFT"})
	require.NoError(t, err)

	require.Len(t, summary.Results, 3)
	assert.Equal(t, StateDone, summary.Results[0].State)
	assert.Equal(t, StateSkipped, summary.Results[1].State)
	assert.Equal(t, StateFetching, summary.Results[1].SkippedAt)
	assert.Equal(t, StateDone, summary.Results[2].State)
	assert.NotEmpty(t, summary.RunID)

	// 6 rows → 4 records, 4 rows → 2 records, concatenated in input order
	require.Len(t, summary.Records, 6)
	assert.Equal(t, "AAPL", summary.Records[0].Symbol)
	assert.Equal(t, "MSFT", summary.Records[5].Symbol)
	assert.Equal(t, 4, summary.Results[0].Inserted)
	assert.Equal(t, 2, summary.Results[0].Discarded)

	assert.Equal(t, 1, reporter.calls)
	assert.Len(t, reporter.records, 6)
}

func TestRun_IdempotentRerun(t *testing.T) {
	fetcher := &fakeFetcher{bars: map[string][]contracts.RawBar{
		"AAPL": series("AAPL", 10, 12, 11, 13, 14, 15),
	}}
	st := store.NewMemory()
	o := newOrchestrator(t, fetcher, st)
	ctx := context.Background()

	first, err := o.Run(ctx, []string{"AAPL"})
	require.NoError(t, err)
	assert.Equal(t, 4, first.Inserted())

	second, err := o.Run(ctx, []string{"AAPL"})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted())
	assert.Equal(t, StateDone, second.Results[0].State)
	assert.NotEqual(t, first.RunID, second.RunID)

	count, err := st.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestRun_NoDoneSymbols(t *testing.T) {
	fetcher := &fakeFetcher{
		bars: map[string][]contracts.RawBar{"SHORT": series("SHORT", 10, 11)},
		errs: map[string]error{"DOWN": errors.New("connection refused")},
	}
	reporter := &fakeReporter{}

	o := newOrchestrator(t, fetcher, store.NewMemory()).WithReporter(reporter)
	summary, err := o.Run(context.Background(), []string{"SHORT", "DOWN"})
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Done())
	assert.Equal(t, 2, summary.Skipped())
	assert.Equal(t, StateComputing, summary.Results[0].SkippedAt)
	assert.Equal(t, StateFetching, summary.Results[1].SkippedAt)
	assert.Empty(t, summary.Records)
	assert.Equal(t, 0, reporter.calls, "reporter is not called without data")
}

func TestRun_InitializeFailureIsFatal(t *testing.T) {
	fetcher := &fakeFetcher{bars: map[string][]contracts.RawBar{"AAPL": series("AAPL", 10, 12, 11)}}
	o := newOrchestrator(t, fetcher, failingInitStore{Store: store.NewMemory()})

	summary, err := o.Run(context.Background(), []string{"AAPL"})
	assert.Error(t, err)
	assert.Nil(t, summary)
}

func TestRun_RecoversPanic(t *testing.T) {
	fetcher := &fakeFetcher{
		bars:   map[string][]contracts.RawBar{"AAPL": series("AAPL", 10, 12, 11, 13)},
		panics: map[string]bool{"BOOM": true},
	}

	o := newOrchestrator(t, fetcher, store.NewMemory())
	summary, err := o.Run(context.Background(), []string{"BOOM", "AAPL"})
	require.NoError(t, err)

	assert.Equal(t, StateSkipped, summary.Results[0].State)
	assert.Contains(t, summary.Results[0].Reason, "panic")
	assert.Equal(t, StateDone, summary.Results[1].State)
}

func TestRun_InvalidBatchSkipped(t *testing.T) {
	bars := series("NEG", 10, 12, 11, 13)
	bars[3].Low = null.FloatFrom(-5)

	fetcher := &fakeFetcher{bars: map[string][]contracts.RawBar{"NEG": bars}}
	st := store.NewMemory()

	o := newOrchestrator(t, fetcher, st)
	summary, err := o.Run(context.Background(), []string{"NEG"})
	require.NoError(t, err)

	assert.Equal(t, StateValidating, summary.Results[0].SkippedAt)
	assert.ErrorIs(t, summary.Results[0].Err, quality.ErrInvalidBatch)

	count, err := st.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count, "a rejected batch writes nothing")
}

func TestRun_ReporterFailureIsNotFatal(t *testing.T) {
	fetcher := &fakeFetcher{bars: map[string][]contracts.RawBar{"AAPL": series("AAPL", 10, 12, 11)}}
	reporter := &fakeReporter{err: errors.New("disk full")}

	o := newOrchestrator(t, fetcher, store.NewMemory()).WithReporter(reporter)
	summary, err := o.Run(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Done())
	assert.Equal(t, 1, reporter.calls)
	assert.EqualError(t, summary.ReportErr, "disk full")
}

func TestRun_SaveFailureIsolated(t *testing.T) {
	fetcher := &fakeFetcher{bars: map[string][]contracts.RawBar{
		"AAPL": series("AAPL", 10, 12, 11, 13),
		"LOCK": series("LOCK", 50, 51, 52, 53),
		"MSFT": series("MSFT", 20, 21, 22),
	}}
	reporter := &fakeReporter{}
	mem := store.NewMemory()

	o := newOrchestrator(t, fetcher, failingSaveStore{Store: mem, symbol: "LOCK"}).WithReporter(reporter)
	summary, err := o.Run(context.Background(), []string{"AAPL", "LOCK", "MSFT"})
	require.NoError(t, err)

	assert.Equal(t, StateDone, summary.Results[0].State)
	assert.Equal(t, StateSkipped, summary.Results[1].State)
	assert.Equal(t, StatePersisting, summary.Results[1].SkippedAt)
	assert.Equal(t, "save failed", summary.Results[1].Reason)
	assert.Zero(t, summary.Results[1].Inserted)
	assert.Equal(t, StateDone, summary.Results[2].State)
	assert.NoError(t, summary.ReportErr)

	// 4 rows → 2 records, 3 rows → 1 record; nothing from LOCK
	require.Equal(t, 1, reporter.calls)
	require.Len(t, reporter.records, 3)
	for _, rec := range reporter.records {
		assert.NotEqual(t, "LOCK", rec.Symbol)
	}

	rows, err := mem.ListBySymbol(context.Background(), "LOCK", 0)
	require.NoError(t, err)
	assert.Empty(t, rows)

	count, err := mem.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestRun_NormalizesSymbols(t *testing.T) {
	fetcher := &fakeFetcher{bars: map[string][]contracts.RawBar{"AAPL": series("AAPL", 10, 12, 11)}}

	o := newOrchestrator(t, fetcher, store.NewMemory())
	summary, err := o.Run(context.Background(), []string{" aapl", "AAPL", ""})
	require.NoError(t, err)

	require.Len(t, summary.Results, 1)
	assert.Equal(t, "AAPL", summary.Results[0].Symbol)
}

func TestRun_RecordsMetrics(t *testing.T) {
	fetcher := &fakeFetcher{bars: map[string][]contracts.RawBar{
		"AAPL": series("AAPL", 10, 12, 11, 13, 14, 15),
		"ZZZZ": nil,
	}}
	rec := metrics.New()

	o := newOrchestrator(t, fetcher, store.NewMemory()).WithMetrics(rec)
	_, err := o.Run(context.Background(), []string{"AAPL", "ZZZZ"})
	require.NoError(t, err)

	n, err := testutil.GatherAndCount(rec.Registry(), "marketpulse_symbols_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "one series per status")

	n, err = testutil.GatherAndCount(rec.Registry(), "marketpulse_rows_discarded_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRun_CancelledContext(t *testing.T) {
	fetcher := &fakeFetcher{bars: map[string][]contracts.RawBar{"AAPL": series("AAPL", 10, 12, 11)}}
	st := store.NewMemory()
	require.NoError(t, st.Initialize(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := newOrchestrator(t, fetcher, st)
	summary, err := o.Run(ctx, []string{"AAPL"})
	require.NoError(t, err)
	assert.Equal(t, StateSkipped, summary.Results[0].State)
}
