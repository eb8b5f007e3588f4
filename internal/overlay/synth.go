// Package overlay synthesizes a throwaway vcpkg overlay port that builds the
// in-tree source as if it were a published dependency.
package overlay

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/buildcheck/internal/errdefs"
	"git.home.luguber.info/inful/buildcheck/internal/logfields"
	"git.home.luguber.info/inful/buildcheck/internal/manifest"
)

// Entry describes a synthesized overlay fragment on disk.
type Entry struct {
	Name         string // package name the fragment is namespaced under
	PortsDir     string // directory to pass as the overlay search path
	PortDir      string // PortsDir/<name>
	ManifestPath string // PortDir/vcpkg.json
	PortfilePath string // PortDir/portfile.cmake
}

// Synthesizer writes overlay fragments for one source tree.
type Synthesizer struct {
	sourceRoot string
	manifest   *manifest.Manifest
}

// New creates a synthesizer for the project rooted at sourceRoot, described by m.
func New(sourceRoot string, m *manifest.Manifest) *Synthesizer {
	return &Synthesizer{sourceRoot: sourceRoot, manifest: m}
}

// Synthesize writes the overlay fragment under overlayRoot/ports/<name>/ and
// returns its location. The fragment points the port build at the local source
// tree directly (no fetch, no checksum) with nested test execution disabled.
//
// Re-invocation with identical inputs produces byte-identical files; the
// previous fragment is replaced wholesale so nothing accumulates. Any write
// failure is fatal for the caller: the fragment is a precondition for every
// downstream-consume stage, not a per-cell concern.
func (s *Synthesizer) Synthesize(overlayRoot string) (*Entry, error) {
	if err := s.manifest.Validate(); err != nil {
		return nil, err
	}

	absSource, err := filepath.Abs(s.sourceRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve source root: %w", err)
	}

	name := s.manifest.Name
	portsDir := filepath.Join(overlayRoot, "ports")
	portDir := filepath.Join(portsDir, name)

	if err := os.RemoveAll(portDir); err != nil {
		return nil, errdefs.OverlayWriteFailed(portDir, err)
	}
	if err := os.MkdirAll(portDir, 0o750); err != nil {
		return nil, errdefs.OverlayWriteFailed(portDir, err)
	}

	entry := &Entry{
		Name:         name,
		PortsDir:     portsDir,
		PortDir:      portDir,
		ManifestPath: filepath.Join(portDir, "vcpkg.json"),
		PortfilePath: filepath.Join(portDir, "portfile.cmake"),
	}

	if err := writeFile(entry.PortfilePath, s.portfileContent(absSource, name)); err != nil {
		return nil, err
	}

	portManifest, err := s.portManifestContent()
	if err != nil {
		return nil, err
	}
	if err := writeFile(entry.ManifestPath, portManifest); err != nil {
		return nil, err
	}

	slog.Info("Synthesized overlay port",
		logfields.Component("overlay"),
		slog.String("package", name),
		logfields.Path(portDir))
	return entry, nil
}

// portfileContent renders build instructions that consume the local working
// tree. BUILD_TESTING stays off so the port build cannot recurse into the
// matrix that invoked it.
func (s *Synthesizer) portfileContent(absSource, name string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "# Build directly from the local working tree; no fetch, no checksum.\n")
	fmt.Fprintf(&b, "set(SOURCE_PATH %q)\n\n", absSource)
	b.WriteString("vcpkg_cmake_configure(\n")
	b.WriteString("    SOURCE_PATH \"${SOURCE_PATH}\"\n")
	b.WriteString("    OPTIONS\n")
	b.WriteString("        -DBUILD_TESTING=OFF\n")
	b.WriteString(")\n\n")
	b.WriteString("vcpkg_cmake_install()\n\n")
	b.WriteString("# Fix cmake config path\n")
	b.WriteString("vcpkg_cmake_config_fixup(\n")
	fmt.Fprintf(&b, "    PACKAGE_NAME %s\n", name)
	fmt.Fprintf(&b, "    CONFIG_PATH lib/cmake/%s\n", name)
	b.WriteString(")\n\n")
	b.WriteString("# Remove debug includes\n")
	b.WriteString("file(REMOVE_RECURSE \"${CURRENT_PACKAGES_DIR}/debug/include\")\n\n")
	b.WriteString("# Handle copyright - only if LICENSE file exists\n")
	b.WriteString("if(EXISTS \"${SOURCE_PATH}/LICENSE\")\n")
	b.WriteString("    vcpkg_install_copyright(FILE_LIST \"${SOURCE_PATH}/LICENSE\")\n")
	b.WriteString("endif()\n")
	return []byte(b.String())
}

// portManifestContent builds the port's vcpkg.json: the source manifest's
// identity plus the two cmake helper tools the portfile requires. Plain-string
// vcpkg-cmake* entries from the source manifest are dropped to avoid
// duplicating the injected helpers.
func (s *Synthesizer) portManifestContent() ([]byte, error) {
	m := s.manifest

	desc := m.Description
	if desc == "" {
		desc = fmt.Sprintf("%s library", m.Name)
	}

	deps := []manifest.Dependency{
		{Name: "vcpkg-cmake", Host: true},
		{Name: "vcpkg-cmake-config", Host: true},
	}
	for _, d := range m.Dependencies {
		if d.IsPlain() && strings.HasPrefix(d.Name, "vcpkg-cmake") {
			continue
		}
		deps = append(deps, d)
	}

	port := struct {
		Name         string                `json:"name"`
		Version      string                `json:"version"`
		Description  string                `json:"description"`
		Homepage     string                `json:"homepage,omitempty"`
		Dependencies []manifest.Dependency `json:"dependencies"`
	}{
		Name:         m.Name,
		Version:      strings.TrimPrefix(m.Version(), "v"),
		Description:  desc,
		Homepage:     m.Homepage,
		Dependencies: deps,
	}

	data, err := json.MarshalIndent(&port, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode port manifest: %w", err)
	}
	return append(data, '\n'), nil
}

func writeFile(path string, content []byte) error {
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return errdefs.OverlayWriteFailed(path, err)
	}
	return nil
}
