package matrix

import (
	"fmt"
	"time"
)

// StageStatus enumerates per-stage outcomes.
type StageStatus string

const (
	StageSuccess  StageStatus = "success"
	StageFatal    StageStatus = "fatal"
	StageCanceled StageStatus = "canceled"
)

// StageResult records one attempted stage of a cell.
type StageResult struct {
	Stage    StageName     `json:"stage"`
	Status   StageStatus   `json:"status"`
	Duration time.Duration `json:"duration"`
	ExitCode int           `json:"exit_code"`
}

// CellResult is the terminal record of one matrix cell. Stages lists every
// attempted stage in order; on failure the failing stage is the last entry
// and no downstream stage appears after it.
type CellResult struct {
	Cell        Cell          `json:"cell"`
	Stages      []StageResult `json:"stages"`
	Passed      bool          `json:"passed"`
	FailedStage StageName     `json:"failed_stage,omitempty"`
	// Diagnostic carries the tail of the failing stage's captured stderr so
	// the summary can say why a cell failed without digging through log files.
	Diagnostic string `json:"diagnostic,omitempty"`
	// LogDir is where the cell's collected logs live.
	LogDir string    `json:"log_dir,omitempty"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

// Duration is the cell's wall-clock time across all attempted stages.
func (r CellResult) Duration() time.Duration { return r.End.Sub(r.Start) }

// Status renders the terminal status for human output.
func (r CellResult) Status() string {
	if r.Passed {
		return "passed"
	}
	return fmt.Sprintf("failed at %s", r.FailedStage)
}

// RunSummary aggregates one full matrix run. Results are ordered by the fixed
// cell enumeration regardless of execution order.
type RunSummary struct {
	RunID    string       `json:"run_id"`
	Package  string       `json:"package"`
	Version  string       `json:"version"`
	Start    time.Time    `json:"start"`
	End      time.Time    `json:"end"`
	Results  []CellResult `json:"results"`
	Canceled bool         `json:"canceled"`
}

// Total is the number of cells in the matrix.
func (s RunSummary) Total() int { return len(s.Results) }

// Passed counts cells that reached the terminal Passed state.
func (s RunSummary) Passed() int {
	n := 0
	for _, r := range s.Results {
		if r.Passed {
			n++
		}
	}
	return n
}

// Succeeded reports whether every cell passed.
func (s RunSummary) Succeeded() bool { return s.Passed() == s.Total() }

// ExitCode maps the summary to the process exit status: 0 iff all cells
// passed.
func (s RunSummary) ExitCode() int {
	if s.Succeeded() {
		return 0
	}
	return 1
}

// Line renders the single-line pass/total summary.
func (s RunSummary) Line() string {
	return fmt.Sprintf("%d/%d cells passed in %s", s.Passed(), s.Total(), s.End.Sub(s.Start).Truncate(time.Millisecond))
}
