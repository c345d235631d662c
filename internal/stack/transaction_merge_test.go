package stack_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aelgogary/stgit/internal/patchname"
	"github.com/aelgogary/stgit/internal/stack"
	"github.com/aelgogary/stgit/internal/stackerrors"
	"github.com/aelgogary/stgit/internal/stupid"
	"github.com/aelgogary/stgit/testhelpers"
)

// TestPushTrivialFastForward covers scenario 1: a patch whose old parent's
// tree equals the new parent's tree pushes unmodified, keeping its own
// commit identity.
func TestPushTrivialFastForward(t *testing.T) {
	ctx := testhelpers.NewFakeContext(nil)

	baseTree := ctx.SeedTree(map[string]string{"base.txt": "base"})
	baseCommit := ctx.SeedCommit(baseTree, nil, author, author, "base")

	pTree := ctx.SeedTree(map[string]string{"base.txt": "base", "p.txt": "p"})
	patchCommit := ctx.SeedCommit(pTree, []stupid.OID{baseCommit}, author, author, "P")

	s := stack.NewStack("master", baseCommit, baseCommit,
		nil, []patchname.Name{"P"}, nil,
		map[patchname.Name]stack.PatchState{"P": {Commit: patchCommit}}, "")
	ctx.SeedRef("refs/heads/master", baseCommit)

	builder := stack.NewTransactionBuilder(s, ctx, stack.NopUI{})
	ec, err := builder.Transact(func(tx *stack.StackTransaction) error {
		return tx.PushPatches([]patchname.Name{"P"}, false)
	})
	require.NoError(t, err)

	newStack, err := ec.Execute("push P")
	require.NoError(t, err)

	require.Equal(t, []patchname.Name{"P"}, newStack.Applied())
	ps, ok := newStack.Patch("P")
	require.True(t, ok)
	require.Equal(t, patchCommit, ps.Commit, "fast-forward push must keep the patch's original commit id")
	require.Equal(t, patchCommit, newStack.Top())
}

// TestPushEmptyPatch covers scenario 2: a patch whose tree equals its own
// parent's tree (no actual content change) pushes with an empty diff; since
// its resulting tree also equals the new parent's tree, the status upgrades
// to Empty and it contributes nothing further.
func TestPushEmptyPatch(t *testing.T) {
	ctx := testhelpers.NewFakeContext(nil)

	baseTree := ctx.SeedTree(map[string]string{"base.txt": "base"})
	baseCommit := ctx.SeedCommit(baseTree, nil, author, author, "base")

	// P's tree is identical to its parent's: an empty patch.
	patchCommit := ctx.SeedCommit(baseTree, []stupid.OID{baseCommit}, author, author, "P (empty)")

	s := stack.NewStack("master", baseCommit, baseCommit,
		nil, []patchname.Name{"P"}, nil,
		map[patchname.Name]stack.PatchState{"P": {Commit: patchCommit}}, "")
	ctx.SeedRef("refs/heads/master", baseCommit)

	builder := stack.NewTransactionBuilder(s, ctx, stack.NopUI{})
	ec, err := builder.Transact(func(tx *stack.StackTransaction) error {
		return tx.PushPatches([]patchname.Name{"P"}, false)
	})
	require.NoError(t, err)

	newStack, err := ec.Execute("push empty P")
	require.NoError(t, err)

	require.Equal(t, []patchname.Name{"P"}, newStack.Applied())
	ps, ok := newStack.Patch("P")
	require.True(t, ok)
	require.Equal(t, baseTree, ctx.MustTree(ps.Commit), "an empty patch's resulting tree must equal its parent's")
}

// TestPushCleanThreeWayMerge covers scenario 3: applied=[A], unapplied=[P]
// with P parented off base (not A); P's diff applies cleanly against A's
// tree in the temp index, so it never has to touch the worktree.
func TestPushCleanThreeWayMerge(t *testing.T) {
	ctx := testhelpers.NewFakeContext(nil)

	baseTree := ctx.SeedTree(map[string]string{"base.txt": "base"})
	baseCommit := ctx.SeedCommit(baseTree, nil, author, author, "base")

	treeA := ctx.SeedTree(map[string]string{"base.txt": "base", "a.txt": "a"})
	commitA := ctx.SeedCommit(treeA, []stupid.OID{baseCommit}, author, author, "A")

	treeP := ctx.SeedTree(map[string]string{"base.txt": "base", "p.txt": "p"})
	commitP := ctx.SeedCommit(treeP, []stupid.OID{baseCommit}, author, author, "P")

	s := stack.NewStack("master", commitA, baseCommit,
		[]patchname.Name{"A"}, []patchname.Name{"P"}, nil,
		map[patchname.Name]stack.PatchState{"A": {Commit: commitA}, "P": {Commit: commitP}}, "")
	ctx.SeedRef("refs/heads/master", commitA)

	builder := stack.NewTransactionBuilder(s, ctx, stack.NopUI{})
	var treeBeforePush stupid.OID
	ec, err := builder.Transact(func(tx *stack.StackTransaction) error {
		treeBeforePush = tx.CurrentTreeID()
		return tx.PushPatches([]patchname.Name{"P"}, false)
	})
	require.NoError(t, err)

	newStack, err := ec.Execute("merge P onto A")
	require.NoError(t, err)

	require.Equal(t, []patchname.Name{"A", "P"}, newStack.Applied())
	ps, ok := newStack.Patch("P")
	require.True(t, ok)
	require.NotEqual(t, commitP, ps.Commit, "a re-parented patch must get a new commit id")

	newPCommit, err := ctx.FindCommit(ps.Commit)
	require.NoError(t, err)
	parent, hasParent := newPCommit.Parent(0)
	require.True(t, hasParent)
	require.Equal(t, commitA, parent, "the merged patch's new parent must be A's commit")
	require.Equal(t, map[string]string{"base.txt": "base", "a.txt": "a", "p.txt": "p"}, ctx.MustTreeContents(newPCommit.TreeID))

	require.Equal(t, treeA, treeBeforePush, "current_tree_id should have started at A's tree")
}

// TestPushConflictingThreeWayMergeHalts covers scenario 4: the merge
// conflicts, and use_index_and_worktree is enabled, so the transaction halts
// with conflicts=true, current_tree_id advances to the new parent's tree,
// and execute() still persists the partial state with the conflicted commit
// as the new head, annotating the reflog with "(CONFLICT)".
func TestPushConflictingThreeWayMergeHalts(t *testing.T) {
	ctx := testhelpers.NewFakeContext(nil)
	ctx.Conflicted = "conflict.txt"

	baseTree := ctx.SeedTree(map[string]string{"base.txt": "base"})
	baseCommit := ctx.SeedCommit(baseTree, nil, author, author, "base")

	treeA := ctx.SeedTree(map[string]string{"base.txt": "base", "conflict.txt": "A-version"})
	commitA := ctx.SeedCommit(treeA, []stupid.OID{baseCommit}, author, author, "A")

	treeP := ctx.SeedTree(map[string]string{"base.txt": "base", "conflict.txt": "P-version"})
	commitP := ctx.SeedCommit(treeP, []stupid.OID{baseCommit}, author, author, "P")

	s := stack.NewStack("master", commitA, baseCommit,
		[]patchname.Name{"A"}, []patchname.Name{"P"}, nil,
		map[patchname.Name]stack.PatchState{"A": {Commit: commitA}, "P": {Commit: commitP}}, "")
	ctx.SeedRef("refs/heads/master", commitA)

	builder := stack.NewTransactionBuilder(s, ctx, stack.NopUI{})
	ec, err := builder.Transact(func(tx *stack.StackTransaction) error {
		return tx.PushPatches([]patchname.Name{"P"}, false)
	})
	require.NoError(t, err, "Transact itself never surfaces the body's error")

	newStack, err := ec.Execute("push P (conflict)")
	require.Error(t, err)
	halt, ok := stackerrors.AsHalt(err)
	require.True(t, ok, "a conflicting push must halt, not hard-fail")
	require.True(t, halt.Conflicts)

	// The partial state is still persisted: P is applied with a new,
	// conflicted commit, and the branch head points at that commit.
	require.Equal(t, []patchname.Name{"A", "P"}, newStack.Applied())
	ps, ok := newStack.Patch("P")
	require.True(t, ok)
	require.Equal(t, newStack.Head(), ps.Commit, "the conflicted commit becomes the transaction head")
	require.NotEqual(t, commitP, ps.Commit)
}

// TestCommitThenUncommitRoundTrips exercises commit_patches followed by
// uncommit_patches: committing the bottom patch folds it into history below
// a new base, and uncommitting it again reinstates it as an applied patch at
// the bottom, restoring the original base.
func TestCommitThenUncommitRoundTrips(t *testing.T) {
	ctx, s := buildThreePatchStack(t)
	originalBase := s.Base()
	aState, _ := s.Patch("A")

	builder := stack.NewTransactionBuilder(s, ctx, stack.NopUI{})
	ec, err := builder.Transact(func(tx *stack.StackTransaction) error {
		return tx.CommitPatches([]patchname.Name{"A"})
	})
	require.NoError(t, err)

	afterCommit, err := ec.Execute("commit A")
	require.NoError(t, err)

	require.Equal(t, []patchname.Name{"B", "C"}, afterCommit.Applied())
	require.Equal(t, aState.Commit, afterCommit.Base(), "the new base must be the committed patch's own commit")
	_, stillThere := afterCommit.Patch("A")
	require.False(t, stillThere, "a committed patch is no longer a managed patch")

	builder2 := stack.NewTransactionBuilder(afterCommit, ctx, stack.NopUI{})
	ec2, err := builder2.Transact(func(tx *stack.StackTransaction) error {
		return tx.UncommitPatches([]stack.UncommitPair{{Name: "A", Commit: aState.Commit}})
	})
	require.NoError(t, err)

	afterUncommit, err := ec2.Execute("uncommit A")
	require.NoError(t, err)

	require.Equal(t, []patchname.Name{"A", "B", "C"}, afterUncommit.Applied())
	require.Equal(t, originalBase, afterUncommit.Base())
	restoredA, ok := afterUncommit.Patch("A")
	require.True(t, ok)
	require.Equal(t, aState.Commit, restoredA.Commit)
}

// TestResetToStatePartiallyReplacesOnlyNamedPatches covers scenario 6: of
// applied=[A,B,C], resetting partially with names={B} against a captured
// state where B has a different commit (B') leaves A and C exactly where
// they are and swaps in B'.
func TestResetToStatePartiallyReplacesOnlyNamedPatches(t *testing.T) {
	ctx, s := buildThreePatchStack(t)
	aState, _ := s.Patch("A")
	cState, _ := s.Patch("C")

	// A captured prior state where B has been replaced by B'.
	bPrimeTree := ctx.SeedTree(map[string]string{"base.txt": "base", "a.txt": "a", "b.txt": "b-prime"})
	bPrime := ctx.SeedCommit(bPrimeTree, []stupid.OID{aState.Commit}, author, author, "B'")
	priorPatches := map[patchname.Name]stack.PatchState{
		"A": aState,
		"B": {Commit: bPrime},
		"C": cState,
	}
	priorState := stack.NewStack("master", cState.Commit, s.Base(),
		[]patchname.Name{"A", "B", "C"}, nil, nil, priorPatches, "")

	builder := stack.NewTransactionBuilder(s, ctx, stack.NopUI{})
	ec, err := builder.Transact(func(tx *stack.StackTransaction) error {
		names := patchname.NewSet(patchname.Name("B"))
		return tx.ResetToStatePartially(priorState, names)
	})
	require.NoError(t, err)

	newStack, err := ec.Execute("reset B to B'")
	require.NoError(t, err)

	require.Equal(t, []patchname.Name{"A", "B", "C"}, newStack.Applied())
	newA, _ := newStack.Patch("A")
	newB, _ := newStack.Patch("B")
	newC, _ := newStack.Patch("C")
	require.Equal(t, aState.Commit, newA.Commit, "A must be untouched by a reset that only names B")
	require.Equal(t, bPrime, newB.Commit, "B must be replaced by B' from the target state")
	// C sat above the affected patch, so it was incidentally displaced and
	// re-pushed on top of B'; since B' changed parent, C is re-synthesized
	// onto a new commit (tree-push, not a no-op) -- its commit identity can
	// change even though it keeps contributing the same content.
	require.Equal(t, ctx.MustTree(cState.Commit), ctx.MustTree(newC.Commit), "C must keep contributing the same tree content")
}
