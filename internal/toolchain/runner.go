// Package toolchain invokes the external build tools (cmake, vcpkg) as
// black-box CLIs and resolves the environment they need.
package toolchain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"git.home.luguber.info/inful/buildcheck/internal/logfields"
)

// Invocation describes one external tool call.
type Invocation struct {
	Tool   string   // binary name (resolved via PATH) or absolute path
	Args   []string
	Dir    string   // working directory; empty means inherit
	Env    []string // KEY=VALUE pairs appended to the inherited environment
	Stdout io.Writer
	Stderr io.Writer
}

// Result captures the observable outcome of an invocation.
type Result struct {
	ExitCode int
	Duration time.Duration
}

// Runner abstracts tool execution so pipelines can be tested without cmake or
// vcpkg installed.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (Result, error)
	LookPath(tool string) (string, error)
}

// ExecRunner runs invocations with os/exec. Stage invocations are synchronous
// blocking calls with no internal timeout; callers rely on the external tool's
// own timeout behavior and on context cancellation.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, inv Invocation) (Result, error) {
	cmd := exec.CommandContext(ctx, inv.Tool, inv.Args...)
	cmd.Dir = inv.Dir
	if len(inv.Env) > 0 {
		cmd.Env = append(os.Environ(), inv.Env...)
	}
	cmd.Stdout = inv.Stdout
	cmd.Stderr = inv.Stderr

	slog.Debug("Invoking external tool",
		logfields.Tool(inv.Tool),
		slog.Any("args", inv.Args),
		logfields.Path(inv.Dir))

	start := time.Now()
	err := cmd.Run()
	res := Result{Duration: time.Since(start)}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, fmt.Errorf("%s exited with code %d", inv.Tool, res.ExitCode)
		}
		// The tool never ran (not found, context canceled before start, ...).
		res.ExitCode = -1
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		return res, fmt.Errorf("run %s: %w", inv.Tool, err)
	}
	return res, nil
}

func (ExecRunner) LookPath(tool string) (string, error) {
	return exec.LookPath(tool)
}
