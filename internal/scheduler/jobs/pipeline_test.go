package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/marketpulse/internal/pipeline"
	"github.com/wonny/marketpulse/internal/scheduler"
	"github.com/wonny/marketpulse/pkg/logger"
)

type stubRunner struct {
	symbols []string
	summary *pipeline.RunSummary
	err     error
}

func (r *stubRunner) Run(ctx context.Context, symbols []string) (*pipeline.RunSummary, error) {
	r.symbols = symbols
	return r.summary, r.err
}

var _ scheduler.Job = (*PipelineJob)(nil)

func TestPipelineJob_Run(t *testing.T) {
	runner := &stubRunner{summary: &pipeline.RunSummary{
		RunID: "run-1",
		Results: []pipeline.SymbolResult{
			{Symbol: "AAPL", State: pipeline.StateDone, Inserted: 4},
			{Symbol: "ZZZZ", State: pipeline.StateSkipped},
		},
	}}
	job := NewPipelineJob(runner, []string{"AAPL", "ZZZZ"}, "0 30 17 * * MON-FRI", logger.Nop())

	assert.Equal(t, "pipeline", job.Name())
	assert.Equal(t, "0 30 17 * * MON-FRI", job.Schedule())
	assert.Nil(t, job.LastSummary())

	require.NoError(t, job.Run(context.Background()), "skipped symbols do not fail the job")
	assert.Equal(t, []string{"AAPL", "ZZZZ"}, runner.symbols)
	assert.Equal(t, "run-1", job.LastSummary().RunID)
}

func TestPipelineJob_RunError(t *testing.T) {
	runner := &stubRunner{err: errors.New("initialize store: disk I/O error")}
	job := NewPipelineJob(runner, []string{"AAPL"}, "@daily", logger.Nop())

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline run")
	assert.Nil(t, job.LastSummary())
}

func TestPipelineJob_Scheduled(t *testing.T) {
	runner := &stubRunner{summary: &pipeline.RunSummary{RunID: "run-2"}}
	s := scheduler.New(logger.Nop())
	require.NoError(t, s.AddJob(NewPipelineJob(runner, []string{"AAPL"}, "@daily", logger.Nop())))

	result, err := s.RunJob("pipeline")
	require.NoError(t, err)
	assert.True(t, result.Success)
}
