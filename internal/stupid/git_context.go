package stupid

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// GitContext is the production Context: commit, ref and config reads and
// ref updates go through go-git directly; index and worktree operations
// (read-tree, update-index, status, tree-diff application, three-way
// merge, mergetool), note copying, commit synthesis and the state-commit
// reads/writes shell out to the git binary via CommandRunner.
type GitContext struct {
	repo       *gogit.Repository
	workingDir string
	gitDir     string
	runner     *CommandRunner
}

// NewGitContext opens the repository rooted at workingDir.
func NewGitContext(workingDir string) (*GitContext, error) {
	repo, err := gogit.PlainOpenWithOptions(workingDir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w", workingDir, err)
	}
	gitDir := filepath.Join(workingDir, ".git")
	if wt, err := repo.Worktree(); err == nil {
		gitDir = filepath.Join(wt.Filesystem.Root(), ".git")
	}
	return &GitContext{
		repo:       repo,
		workingDir: workingDir,
		gitDir:     gitDir,
		runner:     NewCommandRunner(workingDir),
	}, nil
}

func (g *GitContext) FindCommit(id OID) (Commit, error) {
	hash := plumbing.NewHash(id.String())
	commit, err := g.repo.CommitObject(hash)
	if err != nil {
		return Commit{}, fmt.Errorf("finding commit %s: %w", id, err)
	}
	return commitFromObject(commit), nil
}

func commitFromObject(commit *object.Commit) Commit {
	parents := make([]OID, 0, len(commit.ParentHashes))
	for _, p := range commit.ParentHashes {
		parents = append(parents, OID(p.String()))
	}
	return Commit{
		ID:           OID(commit.Hash.String()),
		TreeID:       OID(commit.TreeHash.String()),
		ParentIDs:    parents,
		Message:      commit.Message,
		AuthorRaw:    rawSignature(commit.Author),
		CommitterRaw: rawSignature(commit.Committer),
		Encoding:     commitEncoding(commit),
	}
}

func (g *GitContext) FindReference(name string) (OID, error) {
	ref, err := g.repo.Reference(plumbing.ReferenceName(name), true)
	if err != nil {
		return "", fmt.Errorf("resolving reference %s: %w", name, err)
	}
	return OID(ref.Hash().String()), nil
}

func (g *GitContext) RefTransaction() RefTransaction {
	return newCASRefTransaction(g.repo.Storer)
}

func (g *GitContext) ReadTreeCheckout(from, to OID) error {
	if _, err := g.runner.Run(context.Background(), "read-tree", "-u", "-m", from.String(), to.String()); err != nil {
		return fmt.Errorf("checking out %s over %s: %w", to, from, err)
	}
	return nil
}

func (g *GitContext) ReadTreeCheckoutHard(to OID) error {
	if _, err := g.runner.Run(context.Background(), "read-tree", "-u", "--reset", to.String()); err != nil {
		return fmt.Errorf("hard checkout of %s: %w", to, err)
	}
	return nil
}

func (g *GitContext) UpdateIndexRefresh() error {
	// A non-zero exit here just means some paths need refreshing in the
	// worktree (normal after a checkout); it isn't a hard failure.
	_, _ = g.runner.Run(context.Background(), "update-index", "-q", "--unmerged", "--refresh")
	return nil
}

func (g *GitContext) Statuses(pathspec []string) (StatusResult, error) {
	args := []string{"status", "--porcelain=v1"}
	if len(pathspec) > 0 {
		args = append(args, "--")
		args = append(args, pathspec...)
	}
	out, err := g.runner.Run(context.Background(), args...)
	if err != nil {
		return StatusResult{}, fmt.Errorf("reading status: %w", err)
	}
	var result StatusResult
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		if len(line) < 3 {
			continue
		}
		x, y := line[0], line[1]
		if x == 'U' || y == 'U' || (x == 'A' && y == 'A') || (x == 'D' && y == 'D') {
			result.Conflicts = append(result.Conflicts, strings.TrimSpace(line[3:]))
		}
	}
	return result, nil
}

func (g *GitContext) MergeRecursiveOrMergetool(base, ours, theirs OID, useMergetool bool) (bool, error) {
	if _, err := g.runner.Run(context.Background(), "merge-recursive", base.String(), "--", ours.String(), theirs.String()); err == nil {
		return true, nil
	}
	status, err := g.Statuses(nil)
	if err != nil {
		return false, err
	}
	if len(status.Conflicts) == 0 {
		return true, nil
	}
	if !useMergetool {
		return false, nil
	}
	if _, err := g.runner.Run(context.Background(), "mergetool"); err != nil {
		return false, nil
	}
	status, err = g.Statuses(nil)
	if err != nil {
		return false, err
	}
	return len(status.Conflicts) == 0, nil
}

func (g *GitContext) NotesCopy(from, to OID) error {
	if _, err := g.runner.Run(context.Background(), "notes", "copy", from.String(), to.String()); err != nil {
		// Absence of any notes on `from` is the common case, not a failure.
		return nil
	}
	return nil
}

func (g *GitContext) WithTempIndex(body func(Index) error) error {
	idx, cleanup, err := newTempIndex(g.workingDir, g.gitDir)
	if err != nil {
		return err
	}
	defer cleanup()
	return body(idx)
}

func (g *GitContext) PrimaryIndex() Index {
	return newPrimaryIndex(g.workingDir)
}

func (g *GitContext) CommitEx(author, committer, message string, tree OID, parents []OID) (OID, error) {
	args := []string{"commit-tree", tree.String()}
	for _, p := range parents {
		args = append(args, "-p", p.String())
	}
	env := make([]string, 0, 6)
	for _, who := range [][2]string{{"AUTHOR", author}, {"COMMITTER", committer}} {
		lt, gt := strings.LastIndex(who[1], "<"), strings.LastIndex(who[1], ">")
		if lt < 0 || gt < lt {
			return "", fmt.Errorf("malformed %s signature %q", strings.ToLower(who[0]), who[1])
		}
		env = append(env, "GIT_"+who[0]+"_NAME="+strings.TrimSpace(who[1][:lt]),
			"GIT_"+who[0]+"_EMAIL="+who[1][lt+1:gt],
			"GIT_"+who[0]+"_DATE="+strings.TrimSpace(who[1][gt+1:]))
	}
	runner := g.runner.WithEnv(env...)
	out, err := runner.RunWithInput(context.Background(), message, args...)
	if err != nil {
		return "", fmt.Errorf("synthesizing commit onto tree %s: %w", tree, err)
	}
	return OID(out), nil
}

func (g *GitContext) Config() (Config, error) {
	cfg, err := g.repo.Config()
	if err != nil {
		return nil, fmt.Errorf("reading repository config: %w", err)
	}
	m := make(map[string]string)
	if cfg.User.Name != "" {
		m["user.name"] = cfg.User.Name
	}
	if cfg.User.Email != "" {
		m["user.email"] = cfg.User.Email
	}
	for _, section := range cfg.Raw.Sections {
		for _, opt := range section.Options {
			key := strings.ToLower(section.Name) + "." + strings.ToLower(opt.Key)
			m[key] = opt.Value
		}
		for _, sub := range section.Subsections {
			for _, opt := range sub.Options {
				key := strings.ToLower(section.Name) + "." + sub.Name + "." + strings.ToLower(opt.Key)
				m[key] = opt.Value
			}
		}
	}
	return NewMapConfig(m), nil
}

const stateBlobPath = "state.json"

// WriteStateCommit stores payload as the sole blob of a one-entry tree
// ("state.json"), then wraps it in a commit with the given parents.
func (g *GitContext) WriteStateCommit(payload []byte, parents []OID) (OID, error) {
	blobSHA, err := g.runner.RunWithInput(context.Background(), string(payload), "hash-object", "-w", "--stdin")
	if err != nil {
		return "", fmt.Errorf("writing state blob: %w", err)
	}
	treeLine := fmt.Sprintf("100644 blob %s\t%s", blobSHA, stateBlobPath)
	treeSHA, err := g.runner.RunWithInput(context.Background(), treeLine+"\n", "mktree")
	if err != nil {
		return "", fmt.Errorf("writing state tree: %w", err)
	}
	args := []string{"commit-tree", treeSHA}
	for _, p := range parents {
		args = append(args, "-p", p.String())
	}
	commitSHA, err := g.runner.RunWithInput(context.Background(), "stack state\n", args...)
	if err != nil {
		return "", fmt.Errorf("writing state commit: %w", err)
	}
	return OID(commitSHA), nil
}

// ReadStateCommit retrieves the payload a prior WriteStateCommit stored.
func (g *GitContext) ReadStateCommit(id OID) ([]byte, error) {
	out, err := g.runner.Run(context.Background(), "show", id.String()+":"+stateBlobPath)
	if err != nil {
		return nil, fmt.Errorf("reading state commit %s: %w", id, err)
	}
	return []byte(out), nil
}

func rawSignature(sig object.Signature) string {
	_, offset := sig.When.Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	hh := offset / 3600
	mm := (offset % 3600) / 60
	return fmt.Sprintf("%s <%s> %d %s%02d%02d", sig.Name, sig.Email, sig.When.Unix(), sign, hh, mm)
}

func commitEncoding(commit *object.Commit) string {
	return string(commit.Encoding)
}
