package overlay

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/buildcheck/internal/errdefs"
	"git.home.luguber.info/inful/buildcheck/internal/manifest"
)

func testManifest(t *testing.T, raw string) *manifest.Manifest {
	t.Helper()
	m, err := manifest.Parse([]byte(raw))
	require.NoError(t, err)
	return m
}

func TestSynthesizeWritesPortFragment(t *testing.T) {
	m := testManifest(t, `{
		"name": "widget",
		"version": "v1.2.3",
		"description": "a widget",
		"homepage": "https://example.com/widget",
		"dependencies": ["fmt", "vcpkg-cmake", {"name": "boost-asio", "features": ["ssl"]}]
	}`)

	src := t.TempDir()
	overlayRoot := t.TempDir()

	entry, err := New(src, m).Synthesize(overlayRoot)
	require.NoError(t, err)

	assert.Equal(t, "widget", entry.Name)
	assert.Equal(t, filepath.Join(overlayRoot, "ports"), entry.PortsDir)
	assert.Equal(t, filepath.Join(overlayRoot, "ports", "widget"), entry.PortDir)

	portfile, err := os.ReadFile(entry.PortfilePath)
	require.NoError(t, err)
	absSrc, err := filepath.Abs(src)
	require.NoError(t, err)
	assert.Contains(t, string(portfile), absSrc, "portfile must point at the local source tree")
	assert.Contains(t, string(portfile), "-DBUILD_TESTING=OFF")
	assert.Contains(t, string(portfile), "CONFIG_PATH lib/cmake/widget")
	assert.NotContains(t, string(portfile), "vcpkg_from_github", "no network fetch in overlay builds")

	data, err := os.ReadFile(entry.ManifestPath)
	require.NoError(t, err)
	var port struct {
		Name         string `json:"name"`
		Version      string `json:"version"`
		Description  string `json:"description"`
		Homepage     string `json:"homepage"`
		Dependencies []any  `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(data, &port))

	assert.Equal(t, "widget", port.Name)
	assert.Equal(t, "1.2.3", port.Version, "leading v must be stripped")
	assert.Equal(t, "a widget", port.Description)
	assert.Equal(t, "https://example.com/widget", port.Homepage)

	// Two injected helper tools, the user's fmt, the object-form boost-asio;
	// the plain-string vcpkg-cmake duplicate is dropped.
	require.Len(t, port.Dependencies, 4)
	first := port.Dependencies[0].(map[string]any)
	assert.Equal(t, "vcpkg-cmake", first["name"])
	assert.Equal(t, true, first["host"])
	assert.Equal(t, "fmt", port.Dependencies[2])
}

func TestSynthesizeDefaultsDescription(t *testing.T) {
	m := testManifest(t, `{"name": "widget", "version": "2.0.0"}`)

	entry, err := New(t.TempDir(), m).Synthesize(t.TempDir())
	require.NoError(t, err)

	data, err := os.ReadFile(entry.ManifestPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"widget library"`)
	assert.NotContains(t, string(data), `"homepage"`)
}

func TestSynthesizeIsIdempotent(t *testing.T) {
	m := testManifest(t, `{"name": "widget", "version": "1.0.0", "dependencies": ["fmt"]}`)
	src := t.TempDir()
	overlayRoot := t.TempDir()
	s := New(src, m)

	entry, err := s.Synthesize(overlayRoot)
	require.NoError(t, err)
	firstPortfile, err := os.ReadFile(entry.PortfilePath)
	require.NoError(t, err)
	firstManifest, err := os.ReadFile(entry.ManifestPath)
	require.NoError(t, err)

	// A stray file from a previous run must not survive re-synthesis.
	stray := filepath.Join(entry.PortDir, "leftover.txt")
	require.NoError(t, os.WriteFile(stray, []byte("old"), 0o644))

	entry, err = s.Synthesize(overlayRoot)
	require.NoError(t, err)

	secondPortfile, err := os.ReadFile(entry.PortfilePath)
	require.NoError(t, err)
	secondManifest, err := os.ReadFile(entry.ManifestPath)
	require.NoError(t, err)

	assert.Equal(t, firstPortfile, secondPortfile)
	assert.Equal(t, firstManifest, secondManifest)
	_, err = os.Stat(stray)
	assert.True(t, os.IsNotExist(err), "stale fragment content must be replaced, not accumulated")
}

func TestSynthesizeRejectsInvalidManifest(t *testing.T) {
	m := testManifest(t, `{"version": "1.0.0"}`) // missing name

	_, err := New(t.TempDir(), m).Synthesize(t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errdefs.ErrManifestInvalid))
}

func TestSynthesizeReportsWriteFailure(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}
	m := testManifest(t, `{"name": "widget", "version": "1.0.0"}`)

	overlayRoot := filepath.Join(t.TempDir(), "ro")
	require.NoError(t, os.MkdirAll(overlayRoot, 0o555))
	t.Cleanup(func() { _ = os.Chmod(overlayRoot, 0o755) })

	_, err := New(t.TempDir(), m).Synthesize(overlayRoot)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errdefs.ErrOverlayWrite))
}
