// Package baseline judges whether the manifest's pinned dependency baseline
// is still current and resolvable, without mutating anything.
package baseline

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/buildcheck/internal/logfields"
	"git.home.luguber.info/inful/buildcheck/internal/manifest"
	"git.home.luguber.info/inful/buildcheck/internal/metrics"
	"git.home.luguber.info/inful/buildcheck/internal/toolchain"
)

// SkipEnvVar bypasses the guard when set. The bypass is always logged; it
// exists for emergencies, not routine use.
const SkipEnvVar = "BUILDCHECK_SKIP"

// Status classifies the outcome of a baseline check.
type Status string

const (
	StatusFresh            Status = "fresh"
	StatusStale            Status = "stale"
	StatusManifestAbsent   Status = "manifest-absent"
	StatusToolUnavailable  Status = "tool-unavailable"
	StatusResolutionFailed Status = "resolution-failed"
)

// Result is the outcome of one baseline check.
type Result struct {
	Status Status
	// MarkerLines holds the resolver's registry-update lines verbatim, for
	// operator-facing diagnostics.
	MarkerLines []string
	// Output is the tail of the resolver's combined output.
	Output string
}

// Blocking reports whether the calling guard must reject the action. Absence
// of a manifest or of the resolver tool never blocks; only staleness and
// resolution failure do.
func (r Result) Blocking() bool {
	return r.Status == StatusStale || r.Status == StatusResolutionFailed
}

// ExitCode maps the result to the guard's process exit status.
func (r Result) ExitCode() int {
	if r.Blocking() {
		return 1
	}
	return 0
}

// Remediation returns the operator-facing fix for blocking results, empty
// otherwise. Staleness and resolution failure get different messages so the
// operator knows whether to refresh pins or debug the resolver.
func (r Result) Remediation() string {
	switch r.Status {
	case StatusStale:
		return "The pinned dependency baseline is out of date.\n" +
			"Run 'vcpkg x-update-baseline' and commit the refreshed manifest before pushing."
	case StatusResolutionFailed:
		return "Dependency resolution failed against the pinned baseline.\n" +
			"Run 'vcpkg install --dry-run' locally to inspect the resolver output."
	}
	return ""
}

// Bypassed reports whether the guard is being skipped via the environment.
func Bypassed() bool {
	_, ok := os.LookupEnv(SkipEnvVar)
	return ok
}

// Checker runs the two-phase freshness check against one repository root.
type Checker struct {
	dir      string
	runner   toolchain.Runner
	recorder metrics.Recorder
}

// NewChecker creates a checker for the manifest in dir.
func NewChecker(dir string, runner toolchain.Runner) *Checker {
	if runner == nil {
		runner = toolchain.ExecRunner{}
	}
	return &Checker{dir: dir, runner: runner, recorder: metrics.NoopRecorder{}}
}

// WithRecorder attaches a metrics recorder.
func (c *Checker) WithRecorder(r metrics.Recorder) *Checker {
	if r != nil {
		c.recorder = r
	}
	return c
}

// Check performs the two-phase validation. Phase 1 recomputes the baseline in
// report-only mode and treats any verbatim registry-update line as staleness;
// phase 2 proves the manifest still resolves against the pinned baseline
// without installing anything.
func (c *Checker) Check(ctx context.Context) Result {
	result := c.check(ctx)
	c.recorder.IncBaselineStatus(string(result.Status))
	slog.Debug("Baseline check finished", logfields.Outcome(string(result.Status)))
	return result
}

func (c *Checker) check(ctx context.Context) Result {
	manifestPath := filepath.Join(c.dir, manifest.FileName)
	if _, err := os.Stat(manifestPath); err != nil {
		// No manifest means this repository declares no pinned dependencies.
		return Result{Status: StatusManifestAbsent}
	}
	if _, err := c.runner.LookPath(toolchain.ToolVcpkg); err != nil {
		return Result{Status: StatusToolUnavailable}
	}

	// Phase 1: recompute the baseline, report only, no mutation.
	out, err := c.run(ctx, "x-update-baseline", "--dry-run")
	if err != nil {
		return Result{Status: StatusResolutionFailed, Output: tail(out)}
	}
	if markers := registryUpdateLines(out); len(markers) > 0 {
		return Result{Status: StatusStale, MarkerLines: markers, Output: tail(out)}
	}

	// Phase 2: resolve against the current baseline, no install.
	out, err = c.run(ctx, "install", "--dry-run", "--x-wait-for-lock")
	if err != nil {
		return Result{Status: StatusResolutionFailed, Output: tail(out)}
	}
	return Result{Status: StatusFresh}
}

func (c *Checker) run(ctx context.Context, args ...string) (string, error) {
	var buf bytes.Buffer
	_, err := c.runner.Run(ctx, toolchain.Invocation{
		Tool:   toolchain.ToolVcpkg,
		Args:   args,
		Dir:    c.dir,
		Stdout: &buf,
		Stderr: &buf,
	})
	return buf.String(), err
}

// registryUpdateLines extracts the resolver's registry-update marker lines
// verbatim. The match is loose on casing and spacing; the resolver's phrasing
// has shifted between releases.
func registryUpdateLines(output string) []string {
	var lines []string
	for _, line := range strings.Split(output, "\n") {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "registry") && strings.Contains(lower, "updated") {
			lines = append(lines, line)
		}
	}
	return lines
}

const outputTailBytes = 2048

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > outputTailBytes {
		s = s[len(s)-outputTailBytes:]
	}
	return s
}
