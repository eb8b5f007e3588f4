// Package report renders and persists the machine- and human-readable
// records of a matrix run.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"git.home.luguber.info/inful/buildcheck/internal/matrix"
)

// Report file names within the output directory.
const (
	JSONFileName     = "run-report.json"
	TextFileName     = "run-report.txt"
	MarkdownFileName = "run-report.md"
	HTMLFileName     = "run-report.html"
)

// StageLine is one stage row of a cell, flattened for serialization.
type StageLine struct {
	Stage      string `json:"stage"`
	Status     string `json:"status"`
	DurationMS int64  `json:"duration_ms"`
	ExitCode   int    `json:"exit_code,omitempty"`
}

// CellReport is one matrix cell's record, flattened for serialization.
type CellReport struct {
	Name        string      `json:"name"`
	Build       string      `json:"build"`
	Link        string      `json:"link"`
	Stages      []StageLine `json:"stages"`
	Passed      bool        `json:"passed"`
	FailedStage string      `json:"failed_stage,omitempty"`
	Diagnostic  string      `json:"diagnostic,omitempty"`
	LogDir      string      `json:"log_dir,omitempty"`
	DurationMS  int64       `json:"duration_ms"`
}

// RunReport captures one full matrix run with an explicit schema version for
// forward-compatible consumers.
type RunReport struct {
	SchemaVersion int          `json:"schema_version"`
	RunID         string       `json:"run_id"`
	Package       string       `json:"package"`
	Version       string       `json:"version"`
	Commit        string       `json:"commit,omitempty"`
	Branch        string       `json:"branch,omitempty"`
	Start         time.Time    `json:"start"`
	End           time.Time    `json:"end"`
	Passed        int          `json:"passed"`
	Total         int          `json:"total"`
	Outcome       string       `json:"outcome"`
	Cells         []CellReport `json:"cells"`
	// PreservedDirs names artifact directories the lifecycle policy kept, so
	// a failed run's report points at the evidence.
	PreservedDirs []string `json:"preserved_dirs,omitempty"`
}

// FromSummary flattens a run summary into its report form.
func FromSummary(s matrix.RunSummary) *RunReport {
	r := &RunReport{
		SchemaVersion: 1,
		RunID:         s.RunID,
		Package:       s.Package,
		Version:       s.Version,
		Start:         s.Start,
		End:           s.End,
		Passed:        s.Passed(),
		Total:         s.Total(),
		Cells:         make([]CellReport, 0, len(s.Results)),
	}
	switch {
	case s.Canceled:
		r.Outcome = "canceled"
	case s.Succeeded():
		r.Outcome = "passed"
	default:
		r.Outcome = "failed"
	}

	for _, res := range s.Results {
		cr := CellReport{
			Name:        res.Cell.Name(),
			Build:       string(res.Cell.Build),
			Link:        string(res.Cell.Link),
			Passed:      res.Passed,
			FailedStage: string(res.FailedStage),
			Diagnostic:  res.Diagnostic,
			LogDir:      res.LogDir,
			DurationMS:  res.Duration().Milliseconds(),
		}
		for _, sr := range res.Stages {
			cr.Stages = append(cr.Stages, StageLine{
				Stage:      string(sr.Stage),
				Status:     string(sr.Status),
				DurationMS: sr.Duration.Milliseconds(),
				ExitCode:   sr.ExitCode,
			})
		}
		r.Cells = append(r.Cells, cr)
	}
	return r
}

// Summary returns a human-readable single-line summary.
func (r *RunReport) Summary() string {
	dur := r.End.Sub(r.Start)
	return fmt.Sprintf("package=%s version=%s cells=%d passed=%d duration=%s outcome=%s",
		r.Package, r.Version, r.Total, r.Passed, dur.Truncate(time.Millisecond), r.Outcome)
}

// Markdown renders the report as a GFM document with one table row per cell
// and a diagnostics section for every failed cell.
func (r *RunReport) Markdown() []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# Build matrix report\n\n")
	fmt.Fprintf(&b, "**Package:** %s %s  \n", r.Package, r.Version)
	fmt.Fprintf(&b, "**Run:** %s  \n", r.RunID)
	fmt.Fprintf(&b, "**Result:** %d/%d cells passed (%s)\n\n", r.Passed, r.Total, r.Outcome)

	b.WriteString("| Cell | Result | Failed stage | Duration |\n")
	b.WriteString("|------|--------|--------------|----------|\n")
	for _, c := range r.Cells {
		status := "passed"
		if !c.Passed {
			status = "failed"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %dms |\n", c.Name, status, c.FailedStage, c.DurationMS)
	}

	for _, c := range r.Cells {
		if c.Passed || c.Diagnostic == "" {
			continue
		}
		fmt.Fprintf(&b, "\n## %s failed at %s\n\n```\n%s\n```\n", c.Name, c.FailedStage, c.Diagnostic)
	}

	if len(r.PreservedDirs) > 0 {
		b.WriteString("\n## Preserved artifacts\n\n")
		for _, dir := range r.PreservedDirs {
			fmt.Fprintf(&b, "- `%s`\n", dir)
		}
	}
	return []byte(b.String())
}

// HTML renders the markdown form through Goldmark with GFM tables enabled.
func (r *RunReport) HTML() ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := md.Convert(r.Markdown(), &buf); err != nil {
		return nil, fmt.Errorf("render report html: %w", err)
	}
	return buf.Bytes(), nil
}

// Persist writes the report atomically into the provided directory. It writes
// four files:
//
//	run-report.json  (machine readable)
//	run-report.txt   (single-line human summary)
//	run-report.md    (markdown)
//	run-report.html  (rendered markdown)
//
// Best effort; errors are returned for caller logging but do not change the
// run outcome.
func (r *RunReport) Persist(root string) error {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return fmt.Errorf("ensure report dir: %w", err)
	}

	jb, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	if err := writeAtomic(filepath.Join(root, JSONFileName), jb); err != nil {
		return err
	}
	if err := writeAtomic(filepath.Join(root, TextFileName), []byte(r.Summary()+"\n")); err != nil {
		return err
	}
	md := r.Markdown()
	if err := writeAtomic(filepath.Join(root, MarkdownFileName), md); err != nil {
		return err
	}
	html, err := r.HTML()
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(root, HTMLFileName), html)
}

// writeAtomic writes via a temp file in the same directory plus rename, so
// report consumers never observe a partial file.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp report file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("atomic rename report file: %w", err)
	}
	return nil
}
