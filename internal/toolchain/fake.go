package toolchain

import (
	"context"
	"fmt"
	"sync"
)

// Call records one invocation observed by a ScriptedRunner.
type Call struct {
	Tool string
	Args []string
	Dir  string
	Env  []string
}

// ScriptedRunner is a Runner test double: scripted responses keyed by tool
// name, with every invocation recorded in order. Safe for concurrent use so
// parallel-cell tests can share one instance.
type ScriptedRunner struct {
	mu    sync.Mutex
	calls []Call

	// OnRun, when set, decides each invocation's outcome. A nil OnRun means
	// every invocation succeeds with exit code 0.
	OnRun func(inv Invocation) (Result, error)
	// MissingTools makes LookPath fail for the listed names.
	MissingTools map[string]bool
}

func (s *ScriptedRunner) Run(_ context.Context, inv Invocation) (Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, Call{Tool: inv.Tool, Args: append([]string(nil), inv.Args...), Dir: inv.Dir, Env: append([]string(nil), inv.Env...)})
	s.mu.Unlock()

	if s.OnRun != nil {
		return s.OnRun(inv)
	}
	return Result{ExitCode: 0}, nil
}

func (s *ScriptedRunner) LookPath(tool string) (string, error) {
	if s.MissingTools[tool] {
		return "", fmt.Errorf("exec: %q: executable file not found in $PATH", tool)
	}
	return "/usr/bin/" + tool, nil
}

// Calls returns a copy of the recorded invocations.
func (s *ScriptedRunner) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}
