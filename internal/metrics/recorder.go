package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
)

// RunOutcomeLabel enumerates final run outcomes for counters.
type RunOutcomeLabel string

const (
	RunPassed   RunOutcomeLabel = "passed"
	RunFailed   RunOutcomeLabel = "failed"
	RunCanceled RunOutcomeLabel = "canceled"
)

// Recorder defines observability hooks for matrix, cell, and baseline
// metrics. Implementations may forward to Prometheus, OpenTelemetry, etc.
type Recorder interface {
	ObserveStageDuration(cell, stage string, d time.Duration)
	IncStageResult(cell, stage string, result ResultLabel)
	ObserveCellDuration(cell string, d time.Duration)
	IncCellOutcome(cell string, passed bool)
	ObserveRunDuration(d time.Duration)
	IncRunOutcome(outcome RunOutcomeLabel)
	IncBaselineStatus(status string)
	SetParallelCells(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not
// configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, string, time.Duration) {}
func (NoopRecorder) IncStageResult(string, string, ResultLabel)         {}
func (NoopRecorder) ObserveCellDuration(string, time.Duration)          {}
func (NoopRecorder) IncCellOutcome(string, bool)                        {}
func (NoopRecorder) ObserveRunDuration(time.Duration)                   {}
func (NoopRecorder) IncRunOutcome(RunOutcomeLabel)                      {}
func (NoopRecorder) IncBaselineStatus(string)                           {}
func (NoopRecorder) SetParallelCells(int)                               {}
