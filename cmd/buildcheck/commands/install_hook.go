package commands

import (
	"fmt"

	"git.home.luguber.info/inful/buildcheck/internal/baseline"
	"git.home.luguber.info/inful/buildcheck/internal/gitrepo"
	"git.home.luguber.info/inful/buildcheck/internal/hooks"
)

// InstallHookCmd implements the 'install-hook' command.
type InstallHookCmd struct {
	Force bool `help:"Overwrite existing hook without backup"`
}

// Run executes the install-hook command.
//
//nolint:forbidigo // fmt is used for user-facing messages
func (cmd *InstallHookCmd) Run(_ *Global, _ *CLI) error {
	info, err := gitrepo.Discover(".")
	if err != nil {
		return fmt.Errorf("not in a Git repository: %w", err)
	}

	res, err := hooks.Install(info.HooksDir(), cmd.Force)
	if err != nil {
		return err
	}

	if res.BackupPath != "" {
		fmt.Printf("📦 Backed up existing hook to: %s\n", res.BackupPath)
	}
	fmt.Printf("✅ %s hook installed at %s\n", hooks.HookName, res.Path)
	fmt.Println()
	fmt.Println("The hook will:")
	fmt.Println("  • Run automatically on 'git push'")
	fmt.Println("  • Verify the pinned dependency baseline is fresh and resolvable")
	fmt.Println("  • Block the push when the baseline is stale")
	fmt.Println()
	fmt.Println("To uninstall:")
	fmt.Printf("  rm %s\n", res.Path)
	fmt.Println()
	fmt.Println("To bypass the hook (the bypass is logged):")
	fmt.Printf("  %s=1 git push\n", baseline.SkipEnvVar)

	return nil
}
