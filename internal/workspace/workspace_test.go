package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLayoutDefaultRoot(t *testing.T) {
	l := NewLayout("")
	if l.Root() != DefaultRoot {
		t.Errorf("Expected default root %q, got %q", DefaultRoot, l.Root())
	}
}

func TestLayout_CellDirsAreNamespaced(t *testing.T) {
	l := NewLayout("scratch")

	a := l.BuildDir("release-static")
	b := l.BuildDir("debug-shared")
	if a == b {
		t.Errorf("Expected distinct build dirs per cell, got %q twice", a)
	}
	if want := filepath.Join("scratch", "build", "release-static"); a != want {
		t.Errorf("Expected build dir %q, got %q", want, a)
	}
	if want := filepath.Join("scratch", "install", "debug-shared"); l.InstallDir("debug-shared") != want {
		t.Errorf("Expected install dir %q, got %q", want, l.InstallDir("debug-shared"))
	}
}

func TestLayout_EnsureCellCreatesDirectories(t *testing.T) {
	l := NewLayout(filepath.Join(t.TempDir(), "scratch"))

	buildDir, installDir, err := l.EnsureCell("release-static")
	if err != nil {
		t.Fatalf("EnsureCell() failed: %v", err)
	}

	for _, dir := range []string{buildDir, installDir, l.ConsumerBuildDir("release-static")} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("Expected directory %s to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Errorf("Expected %s to be a directory", dir)
		}
	}
}

func TestLayout_EnsureIsIdempotent(t *testing.T) {
	root := filepath.Join(t.TempDir(), "scratch")
	l := NewLayout(root)

	if err := l.Ensure(); err != nil {
		t.Fatalf("First Ensure() failed: %v", err)
	}

	marker := filepath.Join(root, "marker.txt")
	if err := os.WriteFile(marker, []byte("keep"), 0o600); err != nil {
		t.Fatalf("Failed to create marker file: %v", err)
	}

	if err := l.Ensure(); err != nil {
		t.Fatalf("Second Ensure() failed: %v", err)
	}
	if _, err := os.Stat(marker); os.IsNotExist(err) {
		t.Error("Marker file was removed by second Ensure()")
	}
}

func TestLayout_CellLogsDirSeparatesRunsAndCells(t *testing.T) {
	l := NewLayout("scratch")

	one := l.CellLogsDir("run-1", "release-static")
	two := l.CellLogsDir("run-1", "release-shared")
	if one == two {
		t.Error("Expected distinct log dirs per cell")
	}
	if !strings.HasPrefix(one, l.RunLogsDir("run-1")+string(os.PathSeparator)) {
		t.Errorf("Expected cell log dir %q under run dir %q", one, l.RunLogsDir("run-1"))
	}
}

func TestLayout_RemoveGeneratedKeepsRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "scratch")
	l := NewLayout(root)
	if err := l.Ensure(); err != nil {
		t.Fatalf("Ensure() failed: %v", err)
	}
	if _, _, err := l.EnsureCell("release-shared"); err != nil {
		t.Fatalf("EnsureCell() failed: %v", err)
	}
	keep := filepath.Join(root, "runs.db")
	if err := os.WriteFile(keep, []byte("x"), 0o640); err != nil {
		t.Fatalf("Failed to create history file: %v", err)
	}

	if err := l.RemoveGenerated(); err != nil {
		t.Fatalf("RemoveGenerated() failed: %v", err)
	}
	for _, dir := range l.GeneratedDirs() {
		if _, err := os.Stat(dir); !os.IsNotExist(err) {
			t.Errorf("Generated dir %s still exists", dir)
		}
	}
	if _, err := os.Stat(keep); err != nil {
		t.Errorf("Expected %s to survive RemoveGenerated(): %v", keep, err)
	}
}

func TestLayout_RemoveDeletesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "scratch")
	l := NewLayout(root)
	if err := l.Ensure(); err != nil {
		t.Fatalf("Ensure() failed: %v", err)
	}
	if _, _, err := l.EnsureCell("debug-static"); err != nil {
		t.Fatalf("EnsureCell() failed: %v", err)
	}

	if err := l.Remove(); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}
	if _, err := os.Stat(root); !os.IsNotExist(err) {
		t.Errorf("Workspace root still exists after Remove(): %s", root)
	}
}

func TestLayout_GeneratedDirsCoversAllTrees(t *testing.T) {
	l := NewLayout("scratch")
	dirs := l.GeneratedDirs()

	seen := map[string]bool{}
	for _, d := range dirs {
		seen[d] = true
	}
	for _, want := range []string{
		filepath.Join("scratch", "build"),
		filepath.Join("scratch", "install"),
		filepath.Join("scratch", "consumer"),
		l.OverlayDir(),
		l.LogsDir(),
	} {
		if !seen[want] {
			t.Errorf("Expected generated dirs to include %q, got %v", want, dirs)
		}
	}
}
