package main

import (
	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/buildcheck/cmd/buildcheck/commands"
	"git.home.luguber.info/inful/buildcheck/internal/version"
)

func main() {
	var cli commands.CLI
	ctx := kong.Parse(&cli,
		kong.Name("buildcheck"),
		kong.Description("Matrix build validation for vcpkg-managed C++ packages."),
		kong.UsageOnError(),
		kong.Vars{"version": version.Version},
	)
	err := ctx.Run(&commands.Global{})
	ctx.FatalIfErrorf(err)
}
