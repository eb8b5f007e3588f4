package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/buildcheck/internal/logfields"
)

// DefaultRoot is the scratch root used when none is configured. It lives
// inside the repository so preserved artifacts are easy to find after a
// failed run.
const DefaultRoot = ".buildcheck"

// Layout fixes where a run's generated directories live. Build and install
// directories are namespaced by matrix cell so cells never share mutable
// state; the overlay and log trees are shared across cells.
type Layout struct {
	root string
}

// NewLayout creates a layout rooted at root (DefaultRoot when empty).
func NewLayout(root string) *Layout {
	if root == "" {
		root = DefaultRoot
	}
	return &Layout{root: root}
}

// Root returns the scratch root directory.
func (l *Layout) Root() string { return l.root }

// BuildDir returns the isolated build directory for a cell.
func (l *Layout) BuildDir(cell string) string {
	return filepath.Join(l.root, "build", cell)
}

// InstallDir returns the isolated install prefix for a cell.
func (l *Layout) InstallDir(cell string) string {
	return filepath.Join(l.root, "install", cell)
}

// ConsumerBuildDir returns the isolated downstream-consumer build directory
// for a cell.
func (l *Layout) ConsumerBuildDir(cell string) string {
	return filepath.Join(l.root, "consumer", cell)
}

// OverlayDir returns the shared overlay scratch directory.
func (l *Layout) OverlayDir() string {
	return filepath.Join(l.root, "overlay")
}

// LogsDir returns the shared log-collection root.
func (l *Layout) LogsDir() string {
	return filepath.Join(l.root, "logs")
}

// RunLogsDir returns the log-collection directory for one run.
func (l *Layout) RunLogsDir(runID string) string {
	return filepath.Join(l.LogsDir(), runID)
}

// CellLogsDir returns the per-cell subtree of a run's log collection,
// namespaced so concurrent cells never overwrite each other.
func (l *Layout) CellLogsDir(runID, cell string) string {
	return filepath.Join(l.RunLogsDir(runID), cell)
}

// Ensure creates the scratch root.
func (l *Layout) Ensure() error {
	if err := os.MkdirAll(l.root, 0o750); err != nil {
		return fmt.Errorf("failed to create workspace directory: %w", err)
	}
	slog.Debug("Workspace ready", logfields.Path(l.root))
	return nil
}

// EnsureCell creates the cell's build, install, and consumer-build
// directories, returning the build and install paths.
func (l *Layout) EnsureCell(cell string) (buildDir, installDir string, err error) {
	buildDir = l.BuildDir(cell)
	installDir = l.InstallDir(cell)
	for _, dir := range []string{buildDir, installDir, l.ConsumerBuildDir(cell)} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return "", "", fmt.Errorf("failed to create cell directory %s: %w", dir, err)
		}
	}
	return buildDir, installDir, nil
}

// GeneratedDirs lists every directory tree the layout may have produced, in
// the order the artifact lifecycle reports them.
func (l *Layout) GeneratedDirs() []string {
	return []string{
		filepath.Join(l.root, "build"),
		filepath.Join(l.root, "install"),
		filepath.Join(l.root, "consumer"),
		l.OverlayDir(),
		l.LogsDir(),
	}
}

// RemoveGenerated deletes the generated directory trees while leaving the
// root itself (and anything else in it, such as the run history database)
// in place.
func (l *Layout) RemoveGenerated() error {
	for _, dir := range l.GeneratedDirs() {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("failed to remove %s: %w", dir, err)
		}
	}
	slog.Info("Removed generated directories", logfields.Path(l.root))
	return nil
}

// Remove deletes the entire scratch root.
func (l *Layout) Remove() error {
	if err := os.RemoveAll(l.root); err != nil {
		return fmt.Errorf("failed to remove workspace: %w", err)
	}
	slog.Info("Removed workspace", logfields.Path(l.root))
	return nil
}
