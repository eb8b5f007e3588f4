package commands

import (
	"fmt"

	"git.home.luguber.info/inful/buildcheck/internal/manifest"
)

// MergeRegistryCmd implements the 'merge-registry' command the publish
// workflow runs after pushing a new port revision.
type MergeRegistryCmd struct {
	Repository string `required:"" help:"Registry repository URL to append"`
	Baseline   string `required:"" env:"COMMIT_HASH" help:"Registry baseline commit"`
	Package    string `required:"" env:"VCPKG_PACKAGE_NAME" help:"Package the registry entry provides"`
	Path       string `default:"vcpkg-configuration.json" help:"Configuration document to update"`
}

func (m *MergeRegistryCmd) Run(_ *Global, _ *CLI) error {
	if err := manifest.MergeRegistryFile(m.Path, m.Repository, m.Baseline, []string{m.Package}); err != nil {
		return err
	}
	fmt.Printf("Merged registry %s (baseline %s) into %s\n", m.Repository, m.Baseline, m.Path)
	return nil
}
