package stupid

import (
	"context"
	"fmt"
	"os"
)

// tempIndex is an Index backed by a scratch file pointed to via
// GIT_INDEX_FILE, so every operation on it runs against a real git index
// without disturbing the primary one.
type tempIndex struct {
	runner *CommandRunner
	path   string
}

// newTempIndex allocates a scratch index file under dir. The file itself is
// removed immediately; git (re)creates it lazily on first write, the same
// way a freshly `git read-tree`'d temporary index behaves.
func newTempIndex(workingDir, gitDir string) (*tempIndex, func(), error) {
	f, err := os.CreateTemp(gitDir, "stg-tmp-index-")
	if err != nil {
		return nil, nil, fmt.Errorf("allocating temp index: %w", err)
	}
	path := f.Name()
	_ = f.Close()
	if err := os.Remove(path); err != nil {
		return nil, nil, fmt.Errorf("clearing temp index scratch file: %w", err)
	}

	runner := NewCommandRunner(workingDir).WithEnv("GIT_INDEX_FILE=" + path)
	cleanup := func() { _ = os.Remove(path) }
	return &tempIndex{runner: runner, path: path}, cleanup, nil
}

func (t *tempIndex) ReadTree(tree OID) error {
	_, err := t.runner.Run(context.Background(), "read-tree", tree.String())
	if err != nil {
		return fmt.Errorf("reading tree %s into temp index: %w", tree, err)
	}
	return nil
}

func (t *tempIndex) ApplyTreeDiffToIndex(from, to OID) (bool, error) {
	if from == to {
		return true, nil
	}
	diff, err := t.runner.Run(context.Background(), "diff", "--no-color", "--full-index", "--binary", from.String(), to.String())
	if err != nil {
		return false, fmt.Errorf("diffing %s..%s: %w", from, to, err)
	}
	if diff == "" {
		return true, nil
	}
	if _, err := t.runner.RunWithInput(context.Background(), diff+"\n", "apply", "--cached", "--whitespace=nowarn"); err != nil {
		// A non-zero exit from `git apply` means the diff did not apply
		// cleanly onto the index's current contents; that is a normal,
		// expected outcome here, not a hard failure.
		return false, nil
	}
	return true, nil
}

func (t *tempIndex) WriteTree() (OID, error) {
	out, err := t.runner.Run(context.Background(), "write-tree")
	if err != nil {
		return "", fmt.Errorf("writing temp index tree: %w", err)
	}
	return OID(out), nil
}

// newPrimaryIndex returns the same Index surface over the repository's
// real index (no GIT_INDEX_FILE override); GitContext.PrimaryIndex hands it
// to callers, e.g. to write the tree a worktree merge left in the index.
func newPrimaryIndex(workingDir string) *tempIndex {
	return &tempIndex{runner: NewCommandRunner(workingDir)}
}
