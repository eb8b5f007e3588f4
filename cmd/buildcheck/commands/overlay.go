package commands

import (
	"fmt"

	"git.home.luguber.info/inful/buildcheck/internal/manifest"
	"git.home.luguber.info/inful/buildcheck/internal/overlay"
	"git.home.luguber.info/inful/buildcheck/internal/workspace"
)

// OverlayCmd implements the 'overlay' command.
type OverlayCmd struct{}

func (o *OverlayCmd) Run(_ *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}

	manifestPath := manifest.Find(cfg.Package.Dir)
	if manifestPath == "" {
		return fmt.Errorf("no %s found under %s", manifest.FileName, cfg.Package.Dir)
	}
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return err
	}

	layout := workspace.NewLayout(cfg.Workspace.Root)
	if err := layout.Ensure(); err != nil {
		return err
	}
	entry, err := overlay.New(cfg.Package.Dir, m).Synthesize(layout.OverlayDir())
	if err != nil {
		return err
	}

	fmt.Println(entry.PortsDir)
	return nil
}
