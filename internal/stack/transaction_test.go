package stack_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aelgogary/stgit/internal/patchname"
	"github.com/aelgogary/stgit/internal/stack"
	"github.com/aelgogary/stgit/internal/stupid"
	"github.com/aelgogary/stgit/testhelpers"
)

const author = "A U Thor <a@example.com> 1700000000 +0000"

// buildThreePatchStack seeds a base commit and three applied patches A, B,
// C, each touching its own file, and returns the fake context plus the
// resulting Stack.
func buildThreePatchStack(t *testing.T) (*testhelpers.FakeContext, *stack.Stack) {
	t.Helper()
	ctx := testhelpers.NewFakeContext(nil)

	baseTree := ctx.SeedTree(map[string]string{"base.txt": "base"})
	baseCommit := ctx.SeedCommit(baseTree, nil, author, author, "base")

	treeA := ctx.SeedTree(map[string]string{"base.txt": "base", "a.txt": "a"})
	commitA := ctx.SeedCommit(treeA, []stupid.OID{baseCommit}, author, author, "A")

	treeB := ctx.SeedTree(map[string]string{"base.txt": "base", "a.txt": "a", "b.txt": "b"})
	commitB := ctx.SeedCommit(treeB, []stupid.OID{commitA}, author, author, "B")

	treeC := ctx.SeedTree(map[string]string{"base.txt": "base", "a.txt": "a", "b.txt": "b", "c.txt": "c"})
	commitC := ctx.SeedCommit(treeC, []stupid.OID{commitB}, author, author, "C")

	patches := map[patchname.Name]stack.PatchState{
		"A": {Commit: commitA},
		"B": {Commit: commitB},
		"C": {Commit: commitC},
	}
	s := stack.NewStack("master", commitC, baseCommit,
		[]patchname.Name{"A", "B", "C"}, nil, nil, patches, "")
	ctx.SeedRef("refs/heads/master", commitC)
	return ctx, s
}

func TestPopPatchesMovesPoppedToUnapplied(t *testing.T) {
	ctx, s := buildThreePatchStack(t)
	builder := stack.NewTransactionBuilder(s, ctx, stack.NopUI{})
	ec, err := builder.Transact(func(tx *stack.StackTransaction) error {
		tx.PopPatches(func(n patchname.Name) bool { return n == "B" })
		return nil
	})
	require.NoError(t, err)

	newStack, err := ec.Execute("pop B")
	require.NoError(t, err)

	require.Equal(t, []patchname.Name{"A"}, newStack.Applied())
	require.ElementsMatch(t, []patchname.Name{"B", "C"}, newStack.Unapplied())
	require.Empty(t, newStack.Hidden())
}

func TestPopThenPushRestoresOriginalMembership(t *testing.T) {
	ctx, s := buildThreePatchStack(t)
	builder := stack.NewTransactionBuilder(s, ctx, stack.NopUI{})
	ec, err := builder.Transact(func(tx *stack.StackTransaction) error {
		popped := tx.PopPatches(func(n patchname.Name) bool { return n == "B" })
		names := append(append([]patchname.Name{}, popped...), "B")
		return tx.PushPatches(names, false)
	})
	require.NoError(t, err)

	newStack, err := ec.Execute("pop and repush")
	require.NoError(t, err)

	require.Equal(t, []patchname.Name{"A", "C", "B"}, newStack.Applied())
	require.Empty(t, newStack.Unapplied())
	require.Empty(t, newStack.Hidden())
}

func TestPopOnAlwaysFalsePredicateIsNoOp(t *testing.T) {
	ctx, s := buildThreePatchStack(t)
	builder := stack.NewTransactionBuilder(s, ctx, stack.NopUI{})
	ec, err := builder.Transact(func(tx *stack.StackTransaction) error {
		popped := tx.PopPatches(func(patchname.Name) bool { return false })
		require.Empty(t, popped)
		return nil
	})
	require.NoError(t, err)

	newStack, err := ec.Execute("no-op pop")
	require.NoError(t, err)
	require.Equal(t, s.Applied(), newStack.Applied())
	require.Equal(t, s.Unapplied(), newStack.Unapplied())
}

func TestDeleteOnAlwaysFalsePredicateIsNoOp(t *testing.T) {
	ctx, s := buildThreePatchStack(t)
	builder := stack.NewTransactionBuilder(s, ctx, stack.NopUI{})
	ec, err := builder.Transact(func(tx *stack.StackTransaction) error {
		tx.DeletePatches(func(patchname.Name) bool { return false })
		return nil
	})
	require.NoError(t, err)

	newStack, err := ec.Execute("no-op delete")
	require.NoError(t, err)
	require.Equal(t, s.Applied(), newStack.Applied())
}

func TestRenameSameNameIsNoOp(t *testing.T) {
	ctx, s := buildThreePatchStack(t)
	builder := stack.NewTransactionBuilder(s, ctx, stack.NopUI{})
	ec, err := builder.Transact(func(tx *stack.StackTransaction) error {
		return tx.RenamePatch("B", "B")
	})
	require.NoError(t, err)

	newStack, err := ec.Execute("rename no-op")
	require.NoError(t, err)
	require.Equal(t, []patchname.Name{"A", "B", "C"}, newStack.Applied())
}

func TestRenameRoundTrip(t *testing.T) {
	ctx, s := buildThreePatchStack(t)
	builder := stack.NewTransactionBuilder(s, ctx, stack.NopUI{})
	ec, err := builder.Transact(func(tx *stack.StackTransaction) error {
		if err := tx.RenamePatch("B", "B2"); err != nil {
			return err
		}
		return tx.RenamePatch("B2", "B")
	})
	require.NoError(t, err)

	newStack, err := ec.Execute("rename round trip")
	require.NoError(t, err)
	require.Equal(t, []patchname.Name{"A", "B", "C"}, newStack.Applied())
	ps, ok := newStack.Patch("B")
	require.True(t, ok)
	origB, _ := s.Patch("B")
	require.Equal(t, origB.Commit, ps.Commit)
}

func TestRenameCollisionFails(t *testing.T) {
	ctx, s := buildThreePatchStack(t)
	builder := stack.NewTransactionBuilder(s, ctx, stack.NopUI{})
	ec, err := builder.Transact(func(tx *stack.StackTransaction) error {
		return tx.RenamePatch("B", "A")
	})
	require.NoError(t, err) // Transact itself never errors; the body's error is captured.

	_, err = ec.Execute("rename collision")
	require.Error(t, err)
}

func TestReorderNoOpPreservesIdentity(t *testing.T) {
	ctx, s := buildThreePatchStack(t)
	builder := stack.NewTransactionBuilder(s, ctx, stack.NopUI{})
	ec, err := builder.Transact(func(tx *stack.StackTransaction) error {
		return tx.ReorderPatches([]patchname.Name{"A", "B", "C"}, nil, nil)
	})
	require.NoError(t, err)

	newStack, err := ec.Execute("reorder no-op")
	require.NoError(t, err)
	require.Equal(t, s.Applied(), newStack.Applied())
	for _, n := range []patchname.Name{"A", "B", "C"} {
		oldPs, _ := s.Patch(n)
		newPs, _ := newStack.Patch(n)
		require.Equal(t, oldPs.Commit, newPs.Commit, "patch %s should keep its commit identity", n)
	}
}

func TestHideThenUnhide(t *testing.T) {
	ctx, s := buildThreePatchStack(t)
	builder := stack.NewTransactionBuilder(s, ctx, stack.NopUI{})
	ec, err := builder.Transact(func(tx *stack.StackTransaction) error {
		tx.PopPatches(func(n patchname.Name) bool { return n == "C" })
		if err := tx.HidePatches([]patchname.Name{"C"}); err != nil {
			return err
		}
		return tx.UnhidePatches([]patchname.Name{"C"})
	})
	require.NoError(t, err)

	newStack, err := ec.Execute("hide/unhide")
	require.NoError(t, err)
	require.Empty(t, newStack.Hidden())
	require.Contains(t, newStack.Unapplied(), patchname.Name("C"))
}

func TestListsStayDisjoint(t *testing.T) {
	ctx, s := buildThreePatchStack(t)
	builder := stack.NewTransactionBuilder(s, ctx, stack.NopUI{})
	ec, err := builder.Transact(func(tx *stack.StackTransaction) error {
		tx.PopPatches(func(n patchname.Name) bool { return n == "B" })
		return tx.HidePatches([]patchname.Name{"C"})
	})
	require.NoError(t, err)

	newStack, err := ec.Execute("disjoint check")
	require.NoError(t, err)

	seen := make(map[patchname.Name]bool)
	for _, list := range [][]patchname.Name{newStack.Applied(), newStack.Unapplied(), newStack.Hidden()} {
		for _, n := range list {
			require.False(t, seen[n], "patch %s appeared in more than one list", n)
			seen[n] = true
		}
	}
}
