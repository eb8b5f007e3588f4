package commands

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/buildcheck/internal/preset"
)

// PresetsCmd implements the 'presets' command: it pins the ambient compiler
// pair into the presets document so CI agents with different default
// toolchains configure identically.
type PresetsCmd struct {
	Path string `arg:"" optional:"" default:"CMakePresets.json" help:"CMake presets document to update"`
}

func (p *PresetsCmd) Run(_ *Global, _ *CLI) error {
	res, err := preset.InjectCompilers(p.Path, preset.AmbientFromEnv())
	if err != nil {
		return err
	}

	if len(res.Updated) == 0 {
		fmt.Println("No presets updated")
		return nil
	}
	fmt.Printf("Updated %d preset(s): %s\n", len(res.Updated), strings.Join(res.Updated, ", "))
	if len(res.Untouched) > 0 {
		fmt.Printf("Left %d compiler-specific preset(s) untouched\n", len(res.Untouched))
	}
	return nil
}
