package stack

import (
	"fmt"

	"github.com/aelgogary/stgit/internal/patchname"
	"github.com/aelgogary/stgit/internal/stackerrors"
	"github.com/aelgogary/stgit/internal/stupid"
)

// ExecuteContext is the finalizer: it consumes the StackTransaction,
// performs index/worktree checkout, writes patch refs, writes the
// stack-state ref, and commits the whole bundle as one atomic multi-ref
// update, or rolls back cleanly. Constructed only by
// TransactionBuilder.Transact.
type ExecuteContext struct {
	transaction *StackTransaction
}

func (t *StackTransaction) assertConsistency() error {
	inAnyList := func(name patchname.Name) bool {
		return containsName(t.applied, name) || containsName(t.unapplied, name) || containsName(t.hidden, name)
	}
	for name, u := range t.updatedPatches {
		if u.tombstone {
			if inAnyList(name) {
				return fmt.Errorf("consistency: tombstoned patch %s still present in a list", name)
			}
			if _, ok := t.stack.Patch(name); !ok {
				return fmt.Errorf("consistency: tombstoned patch %s was never part of the stack", name)
			}
		} else {
			if !inAnyList(name) {
				return fmt.Errorf("consistency: updated patch %s is not present in any list", name)
			}
		}
	}
	return nil
}

// Execute finalizes the transaction: consistency audit, error gating,
// external-modification accounting, checkout, branch ref update, and the
// atomic multi-ref commit of every patch ref plus the stack-state ref. A
// TransactionHalt of either kind does not stop it: the state the body
// reached is persisted and the halt is returned with the new Stack. After
// a conflicting push that state has the conflicted commit as the new
// branch head (see DESIGN.md).
func (ec *ExecuteContext) Execute(reflogMsg string) (*Stack, error) {
	t := ec.transaction

	if err := t.assertConsistency(); err != nil {
		return nil, err
	}

	conflicts := false
	if t.err != nil {
		halt, ok := stackerrors.AsHalt(t.err)
		if !ok {
			return nil, t.err
		}
		conflicts = halt.Conflicts
	}

	// External-mod log: on a head/top mismatch the moved branch head is
	// recorded on the in-memory working stack only. This runs after the
	// error gating above, so a non-halt error has already returned and
	// is never accompanied by this log (see DESIGN.md).
	workingStack := t.stack
	if workingStack.CheckHeadTopMismatch() {
		actualHead, err := t.ctx.FindReference("refs/heads/" + workingStack.BranchName)
		if err == nil {
			workingStack = workingStack.LogExternalMods(actualHead)
		}
	}

	if t.options.SetHead && t.options.UseIndexAndWorktree {
		if err := ec.checkout(workingStack); err != nil {
			if rollbackErr := t.ctx.ReadTreeCheckoutHard(workingStack.Head()); rollbackErr != nil {
				return nil, fmt.Errorf("%w (rollback also failed: %v, all changes rolled back)", err, rollbackErr)
			}
			return nil, fmt.Errorf("%w (all changes rolled back)", err)
		}
	}

	newHead := t.Head()
	msg := reflogMsg
	if conflicts {
		msg += " (CONFLICT)"
	}

	branchRef := "refs/heads/" + workingStack.BranchName
	refTx := t.ctx.RefTransaction()
	if t.options.SetHead {
		if err := refTx.LockRef(branchRef); err != nil {
			return nil, err
		}
		if err := refTx.SetTarget(branchRef, newHead, msg); err != nil {
			return nil, err
		}
	}

	if err := refTx.LockRef(workingStack.StackRefname()); err != nil {
		return nil, err
	}
	for name := range t.updatedPatches {
		if err := refTx.LockRef(workingStack.PatchRefname(name)); err != nil {
			return nil, err
		}
	}
	for name, u := range t.updatedPatches {
		refname := workingStack.PatchRefname(name)
		if u.tombstone {
			if err := refTx.Remove(refname); err != nil {
				return nil, err
			}
		} else {
			if err := refTx.SetTarget(refname, u.state.Commit, msg); err != nil {
				return nil, err
			}
		}
	}

	newStack := NewStack(workingStack.BranchName, newHead, t.Base(), t.applied, t.unapplied, t.hidden, mergedPatchMap(workingStack, t.updatedPatches), workingStack.PrevState)
	stateCommit, err := writeState(t.ctx, newStack, workingStack.PrevState)
	if err != nil {
		return nil, err
	}
	if err := refTx.SetTarget(workingStack.StackRefname(), stateCommit, msg); err != nil {
		return nil, err
	}
	newStack.PrevState = stateCommit

	if err := refTx.Commit(); err != nil {
		return nil, fmt.Errorf("committing ref transaction: %w", err)
	}

	if !t.printedTop {
		var topName patchname.Name
		if len(t.applied) > 0 {
			topName = t.applied[len(t.applied)-1]
		}
		t.ui.PrintPushed(topName, StatusUnmodified, true)
	}

	if t.err != nil {
		return newStack, t.err
	}
	return newStack, nil
}

func mergedPatchMap(stack *Stack, updates map[patchname.Name]patchUpdate) map[patchname.Name]PatchState {
	out := make(map[patchname.Name]PatchState)
	for name, u := range updates {
		if !u.tombstone {
			out[name] = u.state
		}
	}
	for _, name := range append(append(append([]patchname.Name{}, stack.Applied()...), stack.Unapplied()...), stack.Hidden()...) {
		if _, already := out[name]; already {
			continue
		}
		if u, tombstoned := updates[name]; tombstoned && u.tombstone {
			continue
		}
		if ps, ok := stack.Patch(name); ok {
			out[name] = ps
		}
	}
	return out
}

// checkout implements the §4.6 checkout routine.
func (ec *ExecuteContext) checkout(workingStack *Stack) error {
	t := ec.transaction
	opts := t.options

	if !opts.AllowBadHead {
		if workingStack.Head() != workingStack.Top() {
			return stackerrors.ErrNotHeadTop
		}
	}

	targetTree, err := ec.treeOf(t.Head())
	if err != nil {
		return err
	}

	if t.currentTreeID == targetTree && !opts.DiscardChanges {
		switch opts.ConflictMode {
		case ConflictModeAllow:
			return nil
		case ConflictModeAllowIfSameTop:
			topName := patchname.Name("")
			if len(t.applied) > 0 {
				topName = t.applied[len(t.applied)-1]
			}
			stackTop := patchname.Name("")
			if applied := workingStack.Applied(); len(applied) > 0 {
				stackTop = applied[len(applied)-1]
			}
			if topName == "" || topName != stackTop {
				return ec.checkConflictFree()
			}
			return nil
		default:
			return ec.checkConflictFree()
		}
	}

	if opts.DiscardChanges {
		return t.ctx.ReadTreeCheckoutHard(targetTree)
	}

	if err := t.ctx.UpdateIndexRefresh(); err != nil {
		return err
	}
	if err := t.ctx.ReadTreeCheckout(t.currentTreeID, targetTree); err != nil {
		return stackerrors.NewCheckoutConflictsError(err.Error())
	}
	t.currentTreeID = targetTree
	return nil
}

func (ec *ExecuteContext) checkConflictFree() error {
	status, err := ec.transaction.ctx.Statuses(nil)
	if err != nil {
		return err
	}
	return status.CheckConflicts()
}

func (ec *ExecuteContext) treeOf(commit stupid.OID) (stupid.OID, error) {
	c, err := ec.transaction.ctx.FindCommit(commit)
	if err != nil {
		return "", err
	}
	return c.TreeID, nil
}
