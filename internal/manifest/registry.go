package manifest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/buildcheck/internal/errdefs"
	"git.home.luguber.info/inful/buildcheck/internal/logfields"
)

// ConfigFileName is the canonical registry configuration file next to the
// manifest.
const ConfigFileName = "vcpkg-configuration.json"

// Registry is one entry of the registries array in vcpkg-configuration.json.
type Registry struct {
	Kind       string   `json:"kind"`
	Repository string   `json:"repository"`
	Baseline   string   `json:"baseline"`
	Reference  string   `json:"reference,omitempty"`
	Packages   []string `json:"packages,omitempty"`
}

// Configuration models vcpkg-configuration.json. Document keys other than
// registries are carried through a round trip untouched, so merging never
// destroys settings it does not understand.
type Configuration struct {
	Registries []Registry

	extra map[string]json.RawMessage
}

// ParseConfiguration decodes vcpkg-configuration.json bytes.
func ParseConfiguration(data []byte) (*Configuration, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode registry configuration: %w", err)
	}

	cfg := &Configuration{extra: doc}
	if raw, ok := doc["registries"]; ok {
		if err := json.Unmarshal(raw, &cfg.Registries); err != nil {
			return nil, fmt.Errorf("decode registries array: %w", err)
		}
		delete(doc, "registries")
	}
	return cfg, nil
}

// MergeRegistry appends a git registry entry pinned at baseline and scoped to
// the given packages.
func (c *Configuration) MergeRegistry(repoURL, baseline string, packages []string) Registry {
	entry := Registry{
		Kind:       "git",
		Repository: repoURL,
		Baseline:   baseline,
		Packages:   append([]string(nil), packages...),
	}
	c.Registries = append(c.Registries, entry)
	return entry
}

// Encode renders the document with two-space indentation and a trailing
// newline.
func (c *Configuration) Encode() ([]byte, error) {
	doc := make(map[string]json.RawMessage, len(c.extra)+1)
	for k, v := range c.extra {
		doc[k] = v
	}
	if c.Registries != nil {
		raw, err := json.Marshal(c.Registries)
		if err != nil {
			return nil, fmt.Errorf("encode registries: %w", err)
		}
		doc["registries"] = raw
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode registry configuration: %w", err)
	}
	return append(data, '\n'), nil
}

// MergeRegistryFile loads the configuration at path, appends a registry
// entry, and atomically writes the document back. The file must already
// exist: publishing merges into a reviewed configuration, it never invents
// one.
func MergeRegistryFile(path, repoURL, baseline string, packages []string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errdefs.New(errdefs.CategoryManifest, errdefs.SeverityFatal,
				fmt.Sprintf("%s not found; registry merging requires an existing configuration", path))
		}
		return fmt.Errorf("read registry configuration: %w", err)
	}

	cfg, err := ParseConfiguration(data)
	if err != nil {
		return errdefs.ManifestInvalid(path, err.Error())
	}

	entry := cfg.MergeRegistry(repoURL, baseline, packages)
	out, err := cfg.Encode()
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return fmt.Errorf("write registry configuration: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace registry configuration: %w", err)
	}

	slog.Info("Merged registry entry",
		logfields.Path(path),
		slog.String("repository", entry.Repository),
		slog.String("baseline", entry.Baseline),
		slog.Int("registries", len(cfg.Registries)))
	return nil
}
