// Package testhelpers provides an in-memory fake of stupid.Context, plus a
// handful of small builders, so internal/stack's tests can exercise the
// transaction engine's logic without touching a real Git repository.
package testhelpers

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/aelgogary/stgit/internal/stupid"
)

// fakeTree is a flat map of path -> blob content, good enough to model
// three-way tree merges without a real object store.
type fakeTree map[string]string

func (t fakeTree) clone() fakeTree {
	out := make(fakeTree, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// FakeContext is a deterministic, hash-addressed in-memory capability
// layer. Every commit/tree is content-addressed by a SHA-1 of its logical
// contents, so equal inputs always produce equal ids, matching a real
// object store's behavior closely enough for the engine's own tests.
type FakeContext struct {
	commits map[stupid.OID]stupid.Commit
	trees   map[stupid.OID]fakeTree
	refs    map[string]stupid.OID
	config  stupid.Config

	// primaryTree models the real worktree/index's current contents, as
	// opposed to a temp index acquired via WithTempIndex. ReadTreeCheckout
	// lands it at a given tree; MergeRecursiveOrMergetool mutates it in
	// place, same as the real `git merge-recursive` mutates the real index.
	primaryTree fakeTree

	// Conflicted, when set, names a path that ApplyTreeDiffToIndex and
	// MergeRecursiveOrMergetool will report as unresolvable, simulating a
	// real merge conflict.
	Conflicted string
}

// NewFakeContext builds an empty fake, seeded with the given config map
// (may be nil).
func NewFakeContext(cfg map[string]string) *FakeContext {
	if cfg == nil {
		cfg = map[string]string{"user.name": "Test User", "user.email": "test@example.com"}
	}
	return &FakeContext{
		commits: make(map[stupid.OID]stupid.Commit),
		trees:   make(map[stupid.OID]fakeTree),
		refs:    make(map[string]stupid.OID),
		config:  stupid.NewMapConfig(cfg),
	}
}

func hashOf(parts ...string) stupid.OID {
	h := sha1.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return stupid.OID(hex.EncodeToString(h.Sum(nil)))
}

// SeedTree registers a tree literal (path -> content) and returns its id.
func (f *FakeContext) SeedTree(files map[string]string) stupid.OID {
	t := fakeTree(files).clone()
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := []string{"tree"}
	for _, k := range keys {
		parts = append(parts, k, t[k])
	}
	id := hashOf(parts...)
	f.trees[id] = t
	return id
}

// SeedCommit registers a commit pointing at treeID with the given parents,
// author/committer strings, and message, returning its id.
func (f *FakeContext) SeedCommit(treeID stupid.OID, parents []stupid.OID, author, committer, message string) stupid.OID {
	parts := append([]string{"commit", treeID.String(), author, committer, message}, oidStrings(parents)...)
	id := hashOf(parts...)
	f.commits[id] = stupid.Commit{
		ID:           id,
		TreeID:       treeID,
		ParentIDs:    append([]stupid.OID{}, parents...),
		Message:      message,
		AuthorRaw:    author,
		CommitterRaw: committer,
		Encoding:     "",
	}
	return id
}

// SeedRef sets name to point directly at oid, bypassing RefTransaction.
func (f *FakeContext) SeedRef(name string, oid stupid.OID) {
	f.refs[name] = oid
}

// MustTree returns the tree id of the given commit, for test assertions.
func (f *FakeContext) MustTree(commit stupid.OID) stupid.OID {
	return f.commits[commit].TreeID
}

// MustTreeContents returns a plain copy of a seeded tree's path->content
// map, for test assertions.
func (f *FakeContext) MustTreeContents(tree stupid.OID) map[string]string {
	out := make(map[string]string, len(f.trees[tree]))
	for k, v := range f.trees[tree] {
		out[k] = v
	}
	return out
}

func oidStrings(oids []stupid.OID) []string {
	out := make([]string, len(oids))
	for i, o := range oids {
		out[i] = o.String()
	}
	return out
}

func (f *FakeContext) FindCommit(id stupid.OID) (stupid.Commit, error) {
	c, ok := f.commits[id]
	if !ok {
		return stupid.Commit{}, fmt.Errorf("fake: no such commit %s", id)
	}
	return c, nil
}

func (f *FakeContext) FindReference(name string) (stupid.OID, error) {
	oid, ok := f.refs[name]
	if !ok {
		return "", fmt.Errorf("fake: no such reference %s", name)
	}
	return oid, nil
}

func (f *FakeContext) RefTransaction() stupid.RefTransaction {
	return &fakeRefTransaction{f: f, pending: make(map[string]*stupid.OID)}
}

func (f *FakeContext) ReadTreeCheckout(from, to stupid.OID) error {
	t, ok := f.trees[to]
	if !ok {
		return fmt.Errorf("fake: no such tree %s", to)
	}
	f.primaryTree = t.clone()
	return nil
}

func (f *FakeContext) ReadTreeCheckoutHard(to stupid.OID) error {
	return f.ReadTreeCheckout("", to)
}

func (f *FakeContext) UpdateIndexRefresh() error {
	return nil
}

func (f *FakeContext) Statuses(pathspec []string) (stupid.StatusResult, error) {
	if f.Conflicted != "" {
		return stupid.StatusResult{Conflicts: []string{f.Conflicted}}, nil
	}
	return stupid.StatusResult{}, nil
}

// MergeRecursiveOrMergetool simulates merge-recursive by applying the
// base->theirs diff onto f.primaryTree in place, same as a real merge
// applies theirs' changes on top of the checked-out ours tree. Any path
// named by f.Conflicted is left unresolved and reported as a conflict.
func (f *FakeContext) MergeRecursiveOrMergetool(base, ours, theirs stupid.OID, useMergetool bool) (bool, error) {
	fromTree := f.trees[base]
	toTree := f.trees[theirs]
	if f.primaryTree == nil {
		f.primaryTree = fakeTree{}
	}
	clean := true
	for path, content := range toTree {
		if fromTree[path] != content {
			if f.Conflicted != "" && f.Conflicted == path {
				clean = false
				continue
			}
			f.primaryTree[path] = content
		}
	}
	for path := range fromTree {
		if _, stillThere := toTree[path]; !stillThere {
			if f.Conflicted != "" && f.Conflicted == path {
				clean = false
				continue
			}
			delete(f.primaryTree, path)
		}
	}
	return clean, nil
}

// PrimaryIndex returns an Index bound to the fake's primaryTree, modeling
// the real worktree/index a prior MergeRecursiveOrMergetool call just left
// its result in.
func (f *FakeContext) PrimaryIndex() stupid.Index {
	return &fakeIndex{f: f, tree: f.primaryTree}
}

func (f *FakeContext) NotesCopy(from, to stupid.OID) error {
	return nil
}

// fakeIndex models an index as a tree snapshot; paths that
// ApplyTreeDiffToIndex reports as conflicted are left unchanged in it.
type fakeIndex struct {
	f    *FakeContext
	tree fakeTree
}

func (f *FakeContext) WithTempIndex(body func(stupid.Index) error) error {
	idx := &fakeIndex{f: f, tree: fakeTree{}}
	return body(idx)
}

func (idx *fakeIndex) ReadTree(tree stupid.OID) error {
	t, ok := idx.f.trees[tree]
	if !ok {
		return fmt.Errorf("fake: no such tree %s", tree)
	}
	idx.tree = t.clone()
	return nil
}

// ApplyTreeDiffToIndex applies the set-difference of to's paths relative to
// from onto the index, overwriting/removing as needed. Returns false (a
// conflict) if FakeContext.Conflicted names a path touched by this diff.
func (idx *fakeIndex) ApplyTreeDiffToIndex(from, to stupid.OID) (bool, error) {
	fromTree := idx.f.trees[from]
	toTree := idx.f.trees[to]
	clean := true
	for path, content := range toTree {
		if fromTree[path] != content {
			if idx.f.Conflicted != "" && idx.f.Conflicted == path {
				clean = false
				continue
			}
			idx.tree[path] = content
		}
	}
	for path := range fromTree {
		if _, stillThere := toTree[path]; !stillThere {
			if idx.f.Conflicted != "" && idx.f.Conflicted == path {
				clean = false
				continue
			}
			delete(idx.tree, path)
		}
	}
	return clean, nil
}

func (idx *fakeIndex) WriteTree() (stupid.OID, error) {
	return idx.f.SeedTree(idx.tree), nil
}

func (f *FakeContext) CommitEx(author, committer, message string, tree stupid.OID, parents []stupid.OID) (stupid.OID, error) {
	return f.SeedCommit(tree, parents, author, committer, message), nil
}

func (f *FakeContext) Config() (stupid.Config, error) {
	return f.config, nil
}

func (f *FakeContext) WriteStateCommit(payload []byte, parents []stupid.OID) (stupid.OID, error) {
	treeID := f.SeedTree(map[string]string{"state.json": string(payload)})
	return f.SeedCommit(treeID, parents, "stack", "stack", "stack state"), nil
}

func (f *FakeContext) ReadStateCommit(id stupid.OID) ([]byte, error) {
	c, ok := f.commits[id]
	if !ok {
		return nil, fmt.Errorf("fake: no such state commit %s", id)
	}
	t, ok := f.trees[c.TreeID]
	if !ok {
		return nil, fmt.Errorf("fake: no such state tree for commit %s", id)
	}
	content, ok := t["state.json"]
	if !ok {
		return nil, fmt.Errorf("fake: state commit %s has no state.json", id)
	}
	return []byte(content), nil
}

var _ stupid.Context = (*FakeContext)(nil)

// fakeRefTransaction is the in-memory analogue of the CAS-based real
// transaction: it stages updates and only writes them into the shared refs
// map on Commit.
type fakeRefTransaction struct {
	f       *FakeContext
	locked  []string
	pending map[string]*stupid.OID // nil value means "remove"
}

func (tx *fakeRefTransaction) LockRef(name string) error {
	tx.locked = append(tx.locked, name)
	return nil
}

func (tx *fakeRefTransaction) SetTarget(name string, oid stupid.OID, reflogMsg string) error {
	v := oid
	tx.pending[name] = &v
	return nil
}

func (tx *fakeRefTransaction) Remove(name string) error {
	tx.pending[name] = nil
	return nil
}

func (tx *fakeRefTransaction) Commit() error {
	for name, v := range tx.pending {
		if v == nil {
			delete(tx.f.refs, name)
			continue
		}
		tx.f.refs[name] = *v
	}
	return nil
}

// SplitLines is a small helper for golden-output tests, to compare
// progress lines independent of trailing whitespace.
func SplitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		out = append(out, strings.TrimRight(line, " \t"))
	}
	return out
}
