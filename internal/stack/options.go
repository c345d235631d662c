package stack

import "github.com/aelgogary/stgit/internal/signature"

// ConflictMode governs how the checkout routine reacts to a worktree/index
// that already differs from the tree it's about to check out.
type ConflictMode int

const (
	// ConflictModeDisallow fails the checkout if any conflicting path is
	// found between the current worktree and the target tree.
	ConflictModeDisallow ConflictMode = iota
	// ConflictModeAllow accepts the current worktree/index state
	// unconditionally when it already matches the target tree.
	ConflictModeAllow
	// ConflictModeAllowIfSameTop behaves like Allow only when the
	// transaction's top patch is still the stack's current top; otherwise
	// it falls back to Disallow's conflict check.
	ConflictModeAllowIfSameTop
)

// TransactionOptions controls ExecuteContext's commit-time behavior.
type TransactionOptions struct {
	// SetHead moves the branch ref to the transaction's head at execute
	// time. If false, execute() computes and persists patch refs and
	// stack state but leaves the branch ref untouched.
	SetHead bool
	// UseIndexAndWorktree enables checkout of the worktree/primary index
	// to the transaction's final tree. If false, execute() never touches
	// either.
	UseIndexAndWorktree bool
	// ConflictMode is consulted by the checkout routine.
	ConflictMode ConflictMode
	// DiscardChanges forces a hard checkout, discarding any worktree
	// changes outright instead of attempting a clean incremental one.
	DiscardChanges bool
	// AllowBadHead skips the pre-checkout assertion that the branch head
	// still equals the stack's believed top.
	AllowBadHead bool
	// UseMergetool lets push_patch fall back to a configured mergetool
	// when a recursive merge leaves conflicts.
	UseMergetool bool
	// SignatureOptions carries explicit author/committer date overrides
	// applied to every commit the transaction synthesizes.
	SignatureOptions signature.Options
}

// DefaultOptions returns the conservative default: move the branch, touch
// the worktree, and fail rather than silently accept a dirty tree.
func DefaultOptions() TransactionOptions {
	return TransactionOptions{
		SetHead:             true,
		UseIndexAndWorktree: true,
		ConflictMode:        ConflictModeDisallow,
	}
}
