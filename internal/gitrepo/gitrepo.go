// Package gitrepo resolves enclosing-repository metadata for run records and
// hook installation.
package gitrepo

import (
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5"
)

// Info describes the repository a run operates on.
type Info struct {
	Root   string // worktree root
	Commit string // HEAD commit hash; empty when the repository has no commits
	Branch string // short branch name; empty when HEAD is detached
}

// Discover locates the enclosing repository starting at dir, walking upward
// the way the git CLI does.
func Discover(dir string) (*Info, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository at %s: %w", dir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("resolve worktree: %w", err)
	}

	info := &Info{Root: wt.Filesystem.Root()}
	if ref, err := repo.Head(); err == nil {
		info.Commit = ref.Hash().String()
		if ref.Name().IsBranch() {
			info.Branch = ref.Name().Short()
		}
	}
	return info, nil
}

// ShortCommit returns the abbreviated HEAD hash for log and report labels.
func (i *Info) ShortCommit() string {
	if len(i.Commit) < 8 {
		return i.Commit
	}
	return i.Commit[:8]
}

// HooksDir returns the repository's hook directory.
func (i *Info) HooksDir() string {
	return filepath.Join(i.Root, ".git", "hooks")
}
