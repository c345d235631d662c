package stupid

// Index is a scoped view over a Git index (the primary one, or a temporary
// one acquired via Context.WithTempIndex). It is intentionally narrow: the
// transaction engine only ever reads a tree into it, applies a tree-diff to
// it, or writes it back out as a tree.
type Index interface {
	// ReadTree loads tree into the index, replacing its current contents.
	ReadTree(tree OID) error

	// ApplyTreeDiffToIndex applies the diff between from and to onto the
	// index's current contents. Returns true if it applied cleanly.
	ApplyTreeDiffToIndex(from, to OID) (bool, error)

	// WriteTree writes the index's current contents out as a tree object.
	WriteTree() (OID, error)
}

// RefTransaction batches reference updates so they land atomically: either
// every locked ref moves, or none does. Lock order is caller-determined;
// Commit fails closed if any underlying compare-and-swap has raced.
type RefTransaction interface {
	// LockRef locks name for exclusive update within this transaction.
	LockRef(name string) error

	// SetTarget schedules name to point at oid once committed, recording
	// reflogMsg as the reflog entry.
	SetTarget(name string, oid OID, reflogMsg string) error

	// Remove schedules name for deletion once committed.
	Remove(name string) error

	// Commit applies every scheduled update atomically.
	Commit() error
}

// Context is the full external capability surface the transaction core
// consumes. See internal/stupid/git_context.go for the go-git/shell-backed
// production implementation and testhelpers.FakeContext for the in-memory
// fake used by the engine's own tests.
type Context interface {
	// FindCommit looks up a commit by id.
	FindCommit(id OID) (Commit, error)

	// FindReference resolves a ref name to the commit it points at.
	FindReference(name string) (OID, error)

	// RefTransaction begins a new atomic multi-ref update.
	RefTransaction() RefTransaction

	// ReadTreeCheckout moves the worktree/primary index from the tree
	// currently believed at `from` to `to`.
	ReadTreeCheckout(from, to OID) error

	// ReadTreeCheckoutHard discards any worktree/index state and forces a
	// checkout of `to`.
	ReadTreeCheckoutHard(to OID) error

	// UpdateIndexRefresh refreshes the primary index's stat cache.
	UpdateIndexRefresh() error

	// Statuses enumerates worktree/index status, optionally restricted to
	// pathspec (nil means the whole tree).
	Statuses(pathspec []string) (StatusResult, error)

	// MergeRecursiveOrMergetool performs a three-way merge of ours/theirs
	// against base directly in the worktree/index. Returns true if the
	// merge completed with no conflicts. If useMergetool is set and the
	// merge leaves conflicts, a configured mergetool is invoked before
	// giving up.
	MergeRecursiveOrMergetool(base, ours, theirs OID, useMergetool bool) (bool, error)

	// NotesCopy copies any notes attached to `from` onto `to`. Best effort:
	// implementations should not fail the caller when `from` simply has no
	// notes to copy.
	NotesCopy(from, to OID) error

	// WithTempIndex acquires a temporary index for the duration of body,
	// guaranteed to be released on every exit path (including panics).
	WithTempIndex(body func(Index) error) error

	// PrimaryIndex returns an Index bound to the repository's real index
	// (no GIT_INDEX_FILE override), so callers that just drove a worktree
	// merge via MergeRecursiveOrMergetool can read back what it actually
	// left behind.
	PrimaryIndex() Index

	// CommitEx synthesizes a new commit object.
	CommitEx(author, committer string, message string, tree OID, parents []OID) (OID, error)

	// Config exposes repository configuration.
	Config() (Config, error)

	// WriteStateCommit persists payload (an opaque, serialized stack
	// state) as the sole blob of a fresh commit with the given parents,
	// returning the new commit's id. The core never inspects payload's
	// encoding; that is entirely the persistence layer's concern.
	WriteStateCommit(payload []byte, parents []OID) (OID, error)

	// ReadStateCommit retrieves the payload previously written by
	// WriteStateCommit for the given state commit id.
	ReadStateCommit(id OID) ([]byte, error)
}
