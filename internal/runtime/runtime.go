// Package runtime is the composition root for the transaction engine: it
// opens the repository, loads repo-level configuration, resolves (or
// initializes) a branch's Stack, and hands back a ready-to-use
// TransactionBuilder wired with a colored UI.
package runtime

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aelgogary/stgit/internal/config"
	"github.com/aelgogary/stgit/internal/output"
	"github.com/aelgogary/stgit/internal/stack"
	"github.com/aelgogary/stgit/internal/stupid"
)

// Runtime bundles the capability layer, repo config, and output sink that
// every command against a given repository shares.
type Runtime struct {
	Ctx    stupid.Context
	Config *config.RepoConfig
	UI     stack.UI

	gitDir string
}

// Open opens the repository rooted at workingDir (or its ancestors, per
// go-git's DetectDotGit), loads the repo-level config, and builds a
// colored UI writing to stdout unless the config disables color. The
// config is read from workingDir/.git only: when the repository was found
// at an ancestor of workingDir, its config file is not read and defaults
// apply.
func Open(workingDir string) (*Runtime, error) {
	ctx, err := stupid.NewGitContext(workingDir)
	if err != nil {
		return nil, err
	}
	gitDir := filepath.Join(workingDir, ".git")

	cfg, err := config.Load(gitDir)
	if err != nil {
		return nil, fmt.Errorf("loading repo config: %w", err)
	}

	ui := output.NewTransactionUI(os.Stdout, cfg.WantsColor())

	return &Runtime{Ctx: ctx, Config: cfg, UI: ui, gitDir: gitDir}, nil
}

// LoadStack resolves the stack state for branchName, reading it from its
// state ref if one exists, or initializing a fresh Stack rooted at the
// branch's current head if this is the first time the branch is managed.
func (r *Runtime) LoadStack(branchName string) (*stack.Stack, error) {
	stub := stack.InitStack(branchName, "")
	stateCommit, err := r.Ctx.FindReference(stub.StackRefname())
	if err != nil {
		head, headErr := r.Ctx.FindReference("refs/heads/" + branchName)
		if headErr != nil {
			return nil, fmt.Errorf("resolving branch %s: %w", branchName, headErr)
		}
		return stack.InitStack(branchName, head), nil
	}
	return stack.ReadStack(r.Ctx, branchName, stateCommit)
}

// Builder constructs a TransactionBuilder over s using this runtime's
// capability layer, UI, and default options overridden by repo config.
func (r *Runtime) Builder(s *stack.Stack) *stack.TransactionBuilder {
	opts := stack.DefaultOptions()
	opts.UseMergetool = r.Config.WantsMergetool()
	return stack.NewTransactionBuilder(s, r.Ctx, r.UI).WithOptions(opts)
}
