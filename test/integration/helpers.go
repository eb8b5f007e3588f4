package integration

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/buildcheck/internal/artifacts"
	"git.home.luguber.info/inful/buildcheck/internal/config"
	"git.home.luguber.info/inful/buildcheck/internal/toolchain"
)

// setupPackageRepo creates a temporary git repository holding the given files.
// The repository is initialized with an initial commit on a branch named main
// so report metadata stays deterministic across environments.
func setupPackageRepo(t *testing.T, files map[string]string) string {
	t.Helper()

	tmpDir := t.TempDir()

	for name, content := range files {
		path := filepath.Join(tmpDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755), "failed to create package files")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644), "failed to write package file")
	}

	// Initialize git repository using go-git
	repo, err := git.PlainInit(tmpDir, false)
	require.NoError(t, err, "failed to initialize git repo")

	w, err := repo.Worktree()
	require.NoError(t, err, "failed to get worktree")

	err = w.AddGlob(".")
	require.NoError(t, err, "failed to add files to git")

	_, err = w.Commit("Initial test commit", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Test",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	require.NoError(t, err, "failed to create initial commit")

	// Ensure branch is named 'main' for consistency with the golden files.
	// go-git creates a branch based on Git's default, so we rename if needed
	headRef, err := repo.Head()
	require.NoError(t, err, "failed to get HEAD")

	if headRef.Name().Short() != "main" {
		mainRef := headRef.Name()
		err = w.Checkout(&git.CheckoutOptions{
			Branch: "refs/heads/main",
			Create: true,
		})
		require.NoError(t, err, "failed to create main branch")

		if mainRef.Short() != "main" {
			_ = repo.Storer.RemoveReference(mainRef)
			// Ignore error if reference doesn't exist
		}
	}

	return tmpDir
}

// matrixTestConfig builds a configuration pointing at pkgDir with a scratch
// workspace, a stand-in toolchain file, and the CI marker cleared so the
// artifact lifecycle behaves like a developer machine.
func matrixTestConfig(t *testing.T, pkgDir string) *config.Config {
	t.Helper()

	ws := t.TempDir()

	toolchainFile := filepath.Join(ws, "vcpkg.cmake")
	require.NoError(t, os.WriteFile(toolchainFile, []byte("# toolchain\n"), 0o644))
	t.Setenv(toolchain.EnvToolchainFile, toolchainFile)

	// Lifecycle decisions key on marker presence, so clear any ambient CI.
	t.Setenv(artifacts.CIMarkerVar, "")
	os.Unsetenv(artifacts.CIMarkerVar)

	return &config.Config{
		Package: config.PackageConfig{
			Dir:            pkgDir,
			ConsumerDir:    "test_package",
			ConsumerBinary: "example",
		},
		Workspace: config.WorkspaceConfig{Root: ws},
		Matrix:    config.MatrixConfig{Parallel: 1},
		Store:     config.StoreConfig{Path: filepath.Join(ws, "runs.db")},
	}
}

// normalizeRunReport removes or normalizes fields that change between runs.
// Run identity, timestamps, durations, and host paths are dynamic; the
// structural fields the golden files pin are left untouched.
func normalizeRunReport(doc map[string]any) {
	delete(doc, "run_id")
	delete(doc, "start")
	delete(doc, "end")
	delete(doc, "commit")

	if dirs, ok := doc["preserved_dirs"].([]any); ok {
		for i, d := range dirs {
			if s, ok := d.(string); ok {
				dirs[i] = filepath.Base(s)
			}
		}
	}

	cells, _ := doc["cells"].([]any)
	for _, c := range cells {
		cell, ok := c.(map[string]any)
		if !ok {
			continue
		}
		delete(cell, "log_dir")
		cell["duration_ms"] = 0

		stages, _ := cell["stages"].([]any)
		for _, s := range stages {
			if stage, ok := s.(map[string]any); ok {
				stage["duration_ms"] = 0
			}
		}
	}
}

// verifyRunReport compares the persisted run-report.json against a golden file.
func verifyRunReport(t *testing.T, reportPath, goldenPath string, updateGolden bool) {
	t.Helper()

	// #nosec G304 -- test utility reading from test output directory
	actualData, err := os.ReadFile(reportPath)
	require.NoError(t, err, "failed to read run report")

	var actual map[string]any
	err = json.Unmarshal(actualData, &actual)
	require.NoError(t, err, "failed to parse run report")

	normalizeRunReport(actual)

	actualJSON, err := json.MarshalIndent(actual, "", "  ")
	require.NoError(t, err, "failed to marshal normalized report")

	if updateGolden {
		writeGolden(t, goldenPath, append(actualJSON, '\n'))
		return
	}

	// #nosec G304 -- test utility reading golden file from testdata
	goldenData, err := os.ReadFile(goldenPath)
	require.NoError(t, err, "failed to read golden file: %s", goldenPath)

	require.JSONEq(t, string(goldenData), string(actualJSON), "run report mismatch")
}

// sourcePathRe matches the one portfile line that embeds the absolute source
// tree location.
var sourcePathRe = regexp.MustCompile(`set\(SOURCE_PATH "[^"]*"\)`)

// normalizePortfile replaces the temporary source path with a stable
// placeholder so golden files are reproducible.
func normalizePortfile(data []byte) []byte {
	return sourcePathRe.ReplaceAll(data, []byte(`set(SOURCE_PATH "/tmp/pkg-source")`))
}

// verifyPortfile compares a synthesized portfile.cmake against a golden file.
func verifyPortfile(t *testing.T, portfilePath, goldenPath string, updateGolden bool) {
	t.Helper()

	// #nosec G304 -- test utility reading from test output directory
	actualData, err := os.ReadFile(portfilePath)
	require.NoError(t, err, "failed to read portfile")

	normalized := normalizePortfile(actualData)

	if updateGolden {
		writeGolden(t, goldenPath, normalized)
		return
	}

	// #nosec G304 -- test utility reading golden file from testdata
	goldenData, err := os.ReadFile(goldenPath)
	require.NoError(t, err, "failed to read golden file: %s", goldenPath)

	require.Equal(t, string(goldenData), string(normalized), "portfile mismatch")
}

// verifyPortManifest compares a synthesized port vcpkg.json against a golden
// file.
func verifyPortManifest(t *testing.T, manifestPath, goldenPath string, updateGolden bool) {
	t.Helper()

	// #nosec G304 -- test utility reading from test output directory
	actualData, err := os.ReadFile(manifestPath)
	require.NoError(t, err, "failed to read port manifest")

	if updateGolden {
		writeGolden(t, goldenPath, actualData)
		return
	}

	// #nosec G304 -- test utility reading golden file from testdata
	goldenData, err := os.ReadFile(goldenPath)
	require.NoError(t, err, "failed to read golden file: %s", goldenPath)

	require.JSONEq(t, string(goldenData), string(actualData), "port manifest mismatch")
}

// writeGolden writes a golden file, creating its directory as needed.
func writeGolden(t *testing.T, path string, data []byte) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750), "failed to create golden directory")
	require.NoError(t, os.WriteFile(path, data, 0o600), "failed to write golden file")
	t.Logf("Updated golden file: %s", path)
}
