package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"git.home.luguber.info/inful/buildcheck/internal/baseline"
)

// BaselineCmd implements the 'baseline' command, the check the pre-push hook
// runs.
type BaselineCmd struct{}

func (b *BaselineCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}

	if baseline.Bypassed() {
		slog.Warn("Baseline check bypassed", slog.String("reason", baseline.SkipEnvVar+" is set"))
		fmt.Printf("Baseline check SKIPPED (%s is set)\n", baseline.SkipEnvVar)
		return nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result := baseline.NewChecker(cfg.Package.Dir, nil).Check(ctx)
	switch result.Status {
	case baseline.StatusFresh:
		fmt.Println("Baseline is fresh and resolvable")
	case baseline.StatusManifestAbsent:
		fmt.Println("No dependency manifest; nothing to check")
	case baseline.StatusToolUnavailable:
		fmt.Println("vcpkg not found on PATH; baseline check skipped")
	case baseline.StatusStale:
		fmt.Println("Baseline is STALE")
		for _, line := range result.MarkerLines {
			fmt.Printf("  %s\n", line)
		}
	case baseline.StatusResolutionFailed:
		fmt.Println("Baseline resolution FAILED")
		if result.Output != "" {
			fmt.Println(result.Output)
		}
	}

	if result.Blocking() {
		fmt.Println()
		fmt.Println(result.Remediation())
		os.Exit(result.ExitCode())
	}
	return nil
}
