package pipeline

import (
	"time"

	"github.com/wonny/marketpulse/internal/contracts"
)

// State is the processing stage of one symbol
type State string

// Symbol states, in pipeline order
const (
	StateFetching   State = "fetching"
	StateCleaning   State = "cleaning"
	StateComputing  State = "computing_metrics"
	StateValidating State = "validating"
	StatePersisting State = "persisting"
	StateDone       State = "done"
	StateSkipped    State = "skipped"
)

// SymbolResult is the outcome of one symbol
type SymbolResult struct {
	Symbol    string        `json:"symbol"`
	State     State         `json:"state"`                // StateDone or StateSkipped
	SkippedAt State         `json:"skipped_at,omitempty"` // stage that produced the skip
	Reason    string        `json:"reason,omitempty"`
	Err       error         `json:"-"`
	Raw       int           `json:"raw"`
	Cleaned   int           `json:"cleaned"`
	Records   int           `json:"records"`
	Inserted  int           `json:"inserted"`
	Discarded int           `json:"discarded"`
	Duration  time.Duration `json:"duration"`

	records []contracts.MetricRecord
}

// RunSummary is the outcome of one Run
type RunSummary struct {
	RunID      string                   `json:"run_id"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
	Results    []SymbolResult           `json:"results"` // input symbol order
	Records    []contracts.MetricRecord `json:"-"`       // Done records, input symbol order
	ReportErr  error                    `json:"-"`       // reporter failure, the run itself still succeeds
}

// Done returns the number of symbols that reached StateDone
func (s *RunSummary) Done() int {
	n := 0
	for _, r := range s.Results {
		if r.State == StateDone {
			n++
		}
	}
	return n
}

// Skipped returns the number of skipped symbols
func (s *RunSummary) Skipped() int {
	return len(s.Results) - s.Done()
}

// Inserted returns the total rows inserted by the run
func (s *RunSummary) Inserted() int {
	n := 0
	for _, r := range s.Results {
		n += r.Inserted
	}
	return n
}
