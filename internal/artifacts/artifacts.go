// Package artifacts decides whether the directories generated by a matrix
// run are deleted or kept once the run is over.
package artifacts

import (
	"log/slog"
	"os"
	"sync"

	"git.home.luguber.info/inful/buildcheck/internal/logfields"
	"git.home.luguber.info/inful/buildcheck/internal/workspace"
)

// CIMarkerVar marks a continuous-integration environment when present. Only
// presence is checked; the value is irrelevant.
const CIMarkerVar = "CI"

// Decision is the outcome of the lifecycle policy.
type Decision string

const (
	DecisionDelete   Decision = "delete"
	DecisionPreserve Decision = "preserve"
)

// Reasons attached to a decision, in rule order.
const (
	ReasonForced  = "cleanup forced by flag"
	ReasonCI      = "CI environment retains its own artifacts"
	ReasonSuccess = "all cells passed"
	ReasonFailure = "run failed, artifacts kept for inspection"
)

// Decide applies the lifecycle policy. Rules are evaluated in order and the
// first match wins: forced cleanup always deletes, a CI environment always
// preserves, a passing run deletes, a failing run preserves.
func Decide(forceClean, inCI, succeeded bool) (Decision, string) {
	switch {
	case forceClean:
		return DecisionDelete, ReasonForced
	case inCI:
		return DecisionPreserve, ReasonCI
	case succeeded:
		return DecisionDelete, ReasonSuccess
	default:
		return DecisionPreserve, ReasonFailure
	}
}

// Outcome records what the finalizer did.
type Outcome struct {
	Decision Decision
	Reason   string
	// Dirs lists the directory trees the decision applied to.
	Dirs []string
	// Err holds the first removal failure, if any. Removal is best effort;
	// a failure here never changes the run's exit status.
	Err error
}

// Finalizer runs the lifecycle policy against a workspace exactly once, no
// matter how many exit paths reach it.
type Finalizer struct {
	layout     *workspace.Layout
	forceClean bool

	lookupEnv func(string) (string, bool)

	once    sync.Once
	outcome Outcome
}

// NewFinalizer creates a finalizer for the given workspace layout.
func NewFinalizer(layout *workspace.Layout, forceClean bool) *Finalizer {
	return &Finalizer{
		layout:     layout,
		forceClean: forceClean,
		lookupEnv:  os.LookupEnv,
	}
}

// Finalize applies the policy for the given run outcome. Repeated calls
// return the first call's outcome without touching the filesystem again,
// so it is safe to invoke from both a defer and a signal path.
func (f *Finalizer) Finalize(succeeded bool) Outcome {
	f.once.Do(func() {
		_, inCI := f.lookupEnv(CIMarkerVar)
		decision, reason := Decide(f.forceClean, inCI, succeeded)
		f.outcome = Outcome{
			Decision: decision,
			Reason:   reason,
			Dirs:     f.layout.GeneratedDirs(),
		}

		if decision == DecisionDelete {
			if err := f.layout.RemoveGenerated(); err != nil {
				f.outcome.Err = err
				slog.Warn("Artifact cleanup failed", logfields.Error(err))
				return
			}
			slog.Info("Deleted generated artifacts",
				slog.String("reason", reason),
				logfields.Path(f.layout.Root()))
			return
		}

		slog.Info("Preserving generated artifacts", slog.String("reason", reason))
		for _, dir := range f.outcome.Dirs {
			slog.Info("Kept artifact directory", logfields.Path(dir))
		}
	})
	return f.outcome
}
