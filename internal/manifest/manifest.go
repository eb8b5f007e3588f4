// Package manifest models the vcpkg.json dependency manifest consumed by the
// overlay synthesizer and the baseline validator.
package manifest

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"

	"git.home.luguber.info/inful/buildcheck/internal/errdefs"
)

// FileName is the canonical manifest file name at the repository root.
const FileName = "vcpkg.json"

// Dependency is a single manifest dependency. vcpkg allows either a bare
// string ("fmt") or an object form with extra attributes.
type Dependency struct {
	Name            string   `json:"name"`
	Host            bool     `json:"host,omitempty"`
	Features        []string `json:"features,omitempty"`
	DefaultFeatures *bool    `json:"default-features,omitempty"`
}

// UnmarshalJSON accepts both the bare-string and the object dependency forms.
func (d *Dependency) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		d.Name = name
		return nil
	}

	type alias Dependency
	var obj alias
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("dependency must be a string or an object: %w", err)
	}
	*d = Dependency(obj)
	return nil
}

// IsPlain reports whether the dependency carries no object-form attributes
// and round-trips as a bare string.
func (d Dependency) IsPlain() bool {
	return !d.Host && len(d.Features) == 0 && d.DefaultFeatures == nil
}

// MarshalJSON emits the bare-string form when no object attributes are set,
// keeping synthesized manifests as close to hand-written ones as possible.
func (d Dependency) MarshalJSON() ([]byte, error) {
	if d.IsPlain() {
		return json.Marshal(d.Name)
	}
	type alias Dependency
	return json.Marshal(alias(d))
}

// Manifest is the parsed vcpkg.json. Exactly one of the version fields is
// expected to be populated; Version() applies the documented fallback order.
type Manifest struct {
	Name            string       `json:"name"`
	VersionField    string       `json:"version,omitempty"`
	VersionString   string       `json:"version-string,omitempty"`
	VersionSemver   string       `json:"version-semver,omitempty"`
	VersionDate     string       `json:"version-date,omitempty"`
	Description     string       `json:"description,omitempty"`
	Homepage        string       `json:"homepage,omitempty"`
	Dependencies    []Dependency `json:"dependencies,omitempty"`
	BuiltinBaseline string       `json:"builtin-baseline,omitempty"`

	path string // source file, retained for diagnostics
	raw  []byte // original bytes, used for content hashing
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, errdefs.ManifestInvalid(path, err.Error())
	}
	m.path = path
	return m, nil
}

// Parse decodes manifest bytes without touching the filesystem.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest json: %w", err)
	}
	m.raw = data
	return &m, nil
}

// Find returns the manifest path under root, or an empty string when the
// repository does not declare one. Absence is not an error here; callers
// decide policy (the baseline guard treats it as "skip, allow").
func Find(root string) string {
	p := filepath.Join(root, FileName)
	if st, err := os.Stat(p); err == nil && !st.IsDir() {
		return p
	}
	return ""
}

// Path returns the file the manifest was loaded from (empty for Parse).
func (m *Manifest) Path() string { return m.path }

// Version resolves the package version using the field fallback order
// version, version-string, version-semver, version-date. Empty when none set.
func (m *Manifest) Version() string {
	for _, v := range []string{m.VersionField, m.VersionString, m.VersionSemver, m.VersionDate} {
		if v != "" {
			return v
		}
	}
	return ""
}

// Validate checks the invariants required by the overlay synthesizer:
// non-empty name, a resolvable version, and a parseable version-semver when
// that field is the one in use.
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return errdefs.ManifestInvalid(m.path, "manifest 'name' field is missing or empty")
	}
	if m.Version() == "" {
		return errdefs.ManifestInvalid(m.path, "manifest has no version field (version, version-string, version-semver, version-date)")
	}
	if m.VersionSemver != "" {
		if _, err := semver.NewVersion(m.VersionSemver); err != nil {
			return errdefs.ManifestInvalid(m.path, fmt.Sprintf("version-semver %q is not valid semver: %v", m.VersionSemver, err))
		}
	}
	return nil
}

// Hash computes a deterministic content hash of the manifest bytes. Used to
// detect manifest changes between runs without re-parsing.
func (m *Manifest) Hash() string {
	sum := sha256.Sum256(m.raw)
	return fmt.Sprintf("%x", sum)
}
