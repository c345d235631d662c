package stack_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aelgogary/stgit/internal/patchname"
	"github.com/aelgogary/stgit/internal/stack"
	"github.com/aelgogary/stgit/internal/stupid"
)

func TestInitStackHasEmptyLists(t *testing.T) {
	s := stack.InitStack("master", stupid.OID("deadbeef"))
	require.Empty(t, s.Applied())
	require.Empty(t, s.Unapplied())
	require.Empty(t, s.Hidden())
	require.Equal(t, stupid.OID("deadbeef"), s.Base())
	require.Equal(t, stupid.OID("deadbeef"), s.Head())
	require.True(t, s.PrevState.IsZero())
}

func TestWriteThenReadStackRoundTrips(t *testing.T) {
	ctx, s := buildThreePatchStack(t)

	// A transaction that never touches the worktree still writes its state.
	builder := stack.NewTransactionBuilder(s, ctx, stack.NopUI{}).UseIndexAndWorktree(false)
	ec, err := builder.Transact(func(tx *stack.StackTransaction) error {
		return tx.HidePatches([]patchname.Name{"C"})
	})
	require.NoError(t, err)

	newStack, err := ec.Execute("hide C")
	require.NoError(t, err)
	require.False(t, newStack.PrevState.IsZero())

	reread, err := stack.ReadStack(ctx, "master", newStack.PrevState)
	require.NoError(t, err)

	require.Equal(t, newStack.Applied(), reread.Applied())
	require.Equal(t, newStack.Unapplied(), reread.Unapplied())
	require.Equal(t, newStack.Hidden(), reread.Hidden())
	require.Equal(t, newStack.Base(), reread.Base())
	require.Equal(t, newStack.Head(), reread.Head())
	for _, n := range []patchname.Name{"A", "B", "C"} {
		want, ok := newStack.Patch(n)
		require.True(t, ok)
		got, ok := reread.Patch(n)
		require.True(t, ok)
		require.Equal(t, want.Commit, got.Commit)
	}
}

func TestPatchRefnameAndStackRefnameAreBranchScoped(t *testing.T) {
	_, s := buildThreePatchStack(t)
	require.Equal(t, "refs/stacks/master", s.StackRefname())
	require.Equal(t, "refs/patches/master/A", s.PatchRefname("A"))
}
