package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/wonny/marketpulse/internal/pipeline"
	"github.com/wonny/marketpulse/pkg/logger"
)

// Runner runs the pipeline for a set of symbols
type Runner interface {
	Run(ctx context.Context, symbols []string) (*pipeline.RunSummary, error)
}

// PipelineJob runs the full fetch → store → report pipeline on a schedule
// ⭐ SSOT: 정기 파이프라인 실행은 이 Job에서만
type PipelineJob struct {
	runner   Runner
	symbols  []string
	schedule string
	logger   *logger.Logger

	mu   sync.Mutex
	last *pipeline.RunSummary
}

// NewPipelineJob creates a new pipeline job
func NewPipelineJob(runner Runner, symbols []string, schedule string, log *logger.Logger) *PipelineJob {
	return &PipelineJob{
		runner:   runner,
		symbols:  symbols,
		schedule: schedule,
		logger:   log.WithField("job", "pipeline"),
	}
}

// Name returns the job name
func (j *PipelineJob) Name() string {
	return "pipeline"
}

// Schedule returns the cron schedule (with seconds)
func (j *PipelineJob) Schedule() string {
	return j.schedule
}

// Run executes one pipeline run. Skipped symbols do not fail the job.
func (j *PipelineJob) Run(ctx context.Context) error {
	j.logger.WithField("symbols", len(j.symbols)).Info("Starting scheduled pipeline run")

	summary, err := j.runner.Run(ctx, j.symbols)
	if err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}
	j.mu.Lock()
	j.last = summary
	j.mu.Unlock()

	j.logger.WithFields(map[string]interface{}{
		"run_id":   summary.RunID,
		"done":     summary.Done(),
		"skipped":  summary.Skipped(),
		"inserted": summary.Inserted(),
	}).Info("Scheduled pipeline run completed")

	return nil
}

// LastSummary returns the summary of the most recent successful run, or nil
func (j *PipelineJob) LastSummary() *pipeline.RunSummary {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.last
}
