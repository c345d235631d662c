// Package stack implements the stack transaction engine: the in-memory
// mutable model of a branch's applied/unapplied/hidden patches, the
// mutation vocabulary operating over it, and the finalizer that commits a
// transaction's result as a single atomic multi-ref update.
//
// Stack (the persistent read-model) and StackTransaction (the in-flight
// mutable engine) live in one package rather than two: the transaction
// is seeded from a *Stack (NewTransactionBuilder takes one) and Execute
// builds a new *Stack as its result, so both halves share Stack's
// unexported fields and constructors in one package.
package stack

import (
	"github.com/aelgogary/stgit/internal/patchname"
	"github.com/aelgogary/stgit/internal/stupid"
)

// PatchState is a patch's identity: the commit currently backing it. A
// patch IS its commit; any notes attached to that commit travel with it.
type PatchState struct {
	Commit stupid.OID
}

// PushStatus describes how a patch's commit was produced by a push.
type PushStatus int

const (
	// StatusUnmodified means the push needed no worktree merge: the patch's
	// commit was reused verbatim, or (merge push) a new commit was written
	// from a clean temp-index merge onto the new parent.
	StatusUnmodified PushStatus = iota
	// StatusModified means a new commit was synthesized for the patch:
	// a tree-push onto a changed parent keeping the patch's tree, or a
	// merge push whose tree came from a clean worktree merge.
	StatusModified
	// StatusEmpty means the patch contributes no change: for a merge push
	// its resulting tree equals its new parent's tree; for a tree-push its
	// tree equals its original parent's tree.
	StatusEmpty
	// StatusConflict means a three-way merge left conflict markers in the
	// worktree/index; the produced commit records the new parent's tree
	// ("ours"), not the conflicted worktree contents.
	StatusConflict
	// StatusAlreadyMerged means the patch's diff was found already present
	// in the branch head and was pushed with an empty diff.
	StatusAlreadyMerged
	// StatusNew means the patch was introduced fresh (new_applied).
	StatusNew
)

func (s PushStatus) String() string {
	switch s {
	case StatusUnmodified:
		return "unmodified"
	case StatusModified:
		return "modified"
	case StatusEmpty:
		return "empty"
	case StatusConflict:
		return "conflict"
	case StatusAlreadyMerged:
		return "already merged"
	case StatusNew:
		return "new"
	default:
		return "unknown"
	}
}

// StateAccess is the read-only accessor contract shared by Stack and
// StackTransaction: current list contents, patch lookup, and the derived
// base/top/head positions. It lets code that only needs to read stack
// shape stay agnostic to whether it's looking at durable state or an
// in-flight transaction.
type StateAccess interface {
	Applied() []patchname.Name
	Unapplied() []patchname.Name
	Hidden() []patchname.Name
	Patch(name patchname.Name) (PatchState, bool)
	Base() stupid.OID
	// Top is the last applied patch's commit, or Base() if applied is empty.
	Top() stupid.OID
	// Head is the commit the branch is (or will be) pointed at.
	Head() stupid.OID
}

// top derives the Top() value from an applied list and a base, shared by
// Stack and StackTransaction so the rule lives in exactly one place.
func top(applied []patchname.Name, patches map[patchname.Name]PatchState, base stupid.OID) stupid.OID {
	if len(applied) == 0 {
		return base
	}
	return patches[applied[len(applied)-1]].Commit
}
