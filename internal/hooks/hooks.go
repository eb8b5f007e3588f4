// Package hooks installs the git pre-push guard that runs the baseline
// freshness check before every push.
package hooks

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// HookName is the git hook the guard installs as.
const HookName = "pre-push"

// Script is the hook body. The guard can be bypassed by setting
// BUILDCHECK_SKIP, and says so out loud when that happens; contributors
// without the tool installed are never blocked.
const Script = `#!/usr/bin/env bash
# buildcheck pre-push hook - verify the dependency baseline before pushing
set -e

if [ -n "${BUILDCHECK_SKIP+x}" ]; then
    echo "BUILDCHECK_SKIP is set; bypassing baseline check" >&2
    exit 0
fi

BUILDCHECK_CMD=""
if command -v buildcheck &> /dev/null; then
    BUILDCHECK_CMD="buildcheck"
elif [ -f "go.mod" ] && grep -q "buildcheck" go.mod; then
    # In development mode - use go run
    BUILDCHECK_CMD="go run ./cmd/buildcheck"
else
    echo "buildcheck not found in PATH; skipping baseline check"
    exit 0
fi

exec $BUILDCHECK_CMD baseline
`

// InstallResult reports where the hook landed and whether the previous hook
// was preserved.
type InstallResult struct {
	Path       string
	BackupPath string
}

// Install writes the pre-push hook into hooksDir. An existing hook is backed
// up with a timestamp suffix unless force is set.
func Install(hooksDir string, force bool) (InstallResult, error) {
	if err := os.MkdirAll(hooksDir, 0o755); err != nil {
		return InstallResult{}, fmt.Errorf("failed to create hooks directory: %w", err)
	}

	result := InstallResult{Path: filepath.Join(hooksDir, HookName)}
	if _, err := os.Stat(result.Path); err == nil && !force {
		backupPath := fmt.Sprintf("%s.backup-%s", result.Path, time.Now().Format("20060102-150405"))
		content, err := os.ReadFile(result.Path)
		if err != nil {
			return InstallResult{}, fmt.Errorf("failed to read existing hook: %w", err)
		}
		if err := os.WriteFile(backupPath, content, 0o755); err != nil {
			return InstallResult{}, fmt.Errorf("failed to create backup: %w", err)
		}
		result.BackupPath = backupPath
	}

	if err := os.WriteFile(result.Path, []byte(Script), 0o755); err != nil {
		return InstallResult{}, fmt.Errorf("failed to write hook file: %w", err)
	}
	return result, nil
}
