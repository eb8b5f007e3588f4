package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/buildcheck/internal/errdefs"
)

const registryFixture = `{
  "default-registry": {
    "kind": "git",
    "repository": "https://github.com/microsoft/vcpkg",
    "baseline": "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
  },
  "overlay-ports": ["./ports"],
  "registries": [
    {
      "kind": "git",
      "repository": "https://example.com/first.git",
      "baseline": "1111111111111111111111111111111111111111",
      "packages": ["first"]
    }
  ]
}`

func TestParseConfigurationSplitsRegistries(t *testing.T) {
	cfg, err := ParseConfiguration([]byte(registryFixture))
	require.NoError(t, err)

	require.Len(t, cfg.Registries, 1)
	assert.Equal(t, "https://example.com/first.git", cfg.Registries[0].Repository)
	assert.Equal(t, []string{"first"}, cfg.Registries[0].Packages)
}

func TestParseConfigurationRejectsMalformedDocument(t *testing.T) {
	_, err := ParseConfiguration([]byte(`{"registries": "nope"`))
	require.Error(t, err)
}

func TestMergeRegistryAppendsGitEntry(t *testing.T) {
	cfg, err := ParseConfiguration([]byte(registryFixture))
	require.NoError(t, err)

	entry := cfg.MergeRegistry("https://example.com/widget.git",
		"2222222222222222222222222222222222222222", []string{"widget"})

	assert.Equal(t, "git", entry.Kind)
	require.Len(t, cfg.Registries, 2)
	assert.Equal(t, "https://example.com/widget.git", cfg.Registries[1].Repository)
	assert.Equal(t, "2222222222222222222222222222222222222222", cfg.Registries[1].Baseline)
	assert.Equal(t, []string{"widget"}, cfg.Registries[1].Packages)
}

func TestMergeRegistryIntoEmptyDocument(t *testing.T) {
	cfg, err := ParseConfiguration([]byte(`{}`))
	require.NoError(t, err)

	cfg.MergeRegistry("https://example.com/widget.git", "abc", []string{"widget"})
	require.Len(t, cfg.Registries, 1)
}

func TestEncodePreservesUnknownKeys(t *testing.T) {
	cfg, err := ParseConfiguration([]byte(registryFixture))
	require.NoError(t, err)
	cfg.MergeRegistry("https://example.com/widget.git", "feed", []string{"widget"})

	out, err := cfg.Encode()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(out), "\n"), "document should end with a newline")
	assert.Contains(t, string(out), `  "registries"`, "document should use two-space indentation")

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Contains(t, doc, "default-registry")
	assert.Contains(t, doc, "overlay-ports")

	var regs []Registry
	require.NoError(t, json.Unmarshal(doc["registries"], &regs))
	require.Len(t, regs, 2)
	assert.Equal(t, "https://example.com/first.git", regs[0].Repository)
	assert.Equal(t, "https://example.com/widget.git", regs[1].Repository)
}

func TestMergeRegistryFileRewritesInPlace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(registryFixture), 0o644))

	err := MergeRegistryFile(path, "https://example.com/widget.git",
		"2222222222222222222222222222222222222222", []string{"widget"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	cfg, err := ParseConfiguration(data)
	require.NoError(t, err)
	require.Len(t, cfg.Registries, 2)
	assert.Equal(t, "widget", cfg.Registries[1].Packages[0])

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should be gone after the rename")
}

func TestMergeRegistryFileRequiresExistingConfiguration(t *testing.T) {
	path := filepath.Join(t.TempDir(), ConfigFileName)

	err := MergeRegistryFile(path, "https://example.com/widget.git", "abc", []string{"widget"})
	require.Error(t, err)
	assert.True(t, errdefs.IsCategory(err, errdefs.CategoryManifest))
	assert.True(t, errdefs.IsFatal(err))
}
