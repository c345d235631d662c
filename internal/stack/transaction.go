package stack

import (
	"fmt"

	"github.com/aelgogary/stgit/internal/patchname"
	"github.com/aelgogary/stgit/internal/signature"
	"github.com/aelgogary/stgit/internal/stackerrors"
	"github.com/aelgogary/stgit/internal/stupid"
)

// patchUpdate records a pending change to a single patch: either a new,
// live PatchState, or a tombstone (deletion). Absence of an entry in
// StackTransaction.updatedPatches means "unchanged from the original
// stack".
type patchUpdate struct {
	tombstone bool
	state     PatchState
}

// StackTransaction is the mutable, in-memory engine a transaction body
// operates on: working copies of the three patch lists, a diff set of
// patch updates against the original stack, and the single error slot
// that implements halt semantics. It exists from TransactionBuilder.Transact
// through ExecuteContext.Execute (or until it is simply discarded, in which
// case nothing it did is ever persisted).
type StackTransaction struct {
	stack   *Stack
	ctx     stupid.Context
	ui      UI
	options TransactionOptions

	applied   []patchname.Name
	unapplied []patchname.Name
	hidden    []patchname.Name

	updatedPatches map[patchname.Name]patchUpdate
	updatedHead    *stupid.OID
	updatedBase    *stupid.OID

	// currentTreeID is the tree the worktree/index is believed to hold at
	// this moment; updated on every checkout performed mid-transaction.
	currentTreeID stupid.OID

	err         error
	printedTop  bool
}

var _ StateAccess = (*StackTransaction)(nil)

func (t *StackTransaction) Applied() []patchname.Name   { return append([]patchname.Name{}, t.applied...) }
func (t *StackTransaction) Unapplied() []patchname.Name { return append([]patchname.Name{}, t.unapplied...) }
func (t *StackTransaction) Hidden() []patchname.Name    { return append([]patchname.Name{}, t.hidden...) }

func (t *StackTransaction) Patch(name patchname.Name) (PatchState, bool) {
	if u, ok := t.updatedPatches[name]; ok {
		if u.tombstone {
			return PatchState{}, false
		}
		return u.state, true
	}
	return t.stack.Patch(name)
}

func (t *StackTransaction) Base() stupid.OID {
	if t.updatedBase != nil {
		return *t.updatedBase
	}
	return t.stack.Base()
}

func (t *StackTransaction) Top() stupid.OID {
	if len(t.applied) == 0 {
		return t.Base()
	}
	last := t.applied[len(t.applied)-1]
	ps, _ := t.Patch(last)
	return ps.Commit
}

func (t *StackTransaction) Head() stupid.OID {
	if t.updatedHead != nil {
		return *t.updatedHead
	}
	return t.Top()
}

// CurrentTreeID is the tree the engine currently believes the
// worktree/primary index holds.
func (t *StackTransaction) CurrentTreeID() stupid.OID { return t.currentTreeID }

func (t *StackTransaction) setPatch(name patchname.Name, state PatchState) {
	if t.updatedPatches == nil {
		t.updatedPatches = make(map[patchname.Name]patchUpdate)
	}
	t.updatedPatches[name] = patchUpdate{state: state}
}

func (t *StackTransaction) tombstone(name patchname.Name) {
	if t.updatedPatches == nil {
		t.updatedPatches = make(map[patchname.Name]patchUpdate)
	}
	t.updatedPatches[name] = patchUpdate{tombstone: true}
}

// printPushed reports a pushed event and remembers whether the final
// top-of-stack announcement in Execute's step 8 is now redundant.
func (t *StackTransaction) printPushed(name patchname.Name, status PushStatus, isLast bool) {
	t.ui.PrintPushed(name, status, isLast)
	if isLast {
		t.printedTop = true
	}
}

func (t *StackTransaction) setHead(head stupid.OID) { t.updatedHead = &head }
func (t *StackTransaction) setBase(base stupid.OID) { t.updatedBase = &base }

// halt stores err as the transaction's captured error, used by Execute to
// decide whether to persist or roll back. Only the first captured error is
// kept; subsequent calls are no-ops, mirroring "single captured error slot".
func (t *StackTransaction) halt(err error) error {
	if t.err == nil {
		t.err = err
	}
	return err
}

func removeName(list []patchname.Name, name patchname.Name) ([]patchname.Name, bool) {
	for i, n := range list {
		if n == name {
			out := append([]patchname.Name{}, list[:i]...)
			out = append(out, list[i+1:]...)
			return out, true
		}
	}
	return list, false
}

func insertAt(list []patchname.Name, pos int, name patchname.Name) []patchname.Name {
	if pos < 0 || pos > len(list) {
		pos = len(list)
	}
	out := make([]patchname.Name, 0, len(list)+1)
	out = append(out, list[:pos]...)
	out = append(out, name)
	out = append(out, list[pos:]...)
	return out
}

func containsName(list []patchname.Name, name patchname.Name) bool {
	for _, n := range list {
		if n == name {
			return true
		}
	}
	return false
}

func indexOf(list []patchname.Name, name patchname.Name) int {
	for i, n := range list {
		if n == name {
			return i
		}
	}
	return -1
}

// UpdatePatch replaces name's PatchState with one backed by newCommit. The
// old commit's notes are copied onto the new one, best effort. Does not
// reorder any list.
func (t *StackTransaction) UpdatePatch(name patchname.Name, newCommit stupid.OID) error {
	old, ok := t.Patch(name)
	if !ok {
		return stackerrors.NewPatchNotFoundError(name.String())
	}
	t.setPatch(name, PatchState{Commit: newCommit})
	_ = t.ctx.NotesCopy(old.Commit, newCommit)
	t.ui.PrintUpdated(name)
	return nil
}

// NewApplied appends name to applied with a fresh PatchState backed by
// commitID. commitID's first parent must equal Top().
func (t *StackTransaction) NewApplied(name patchname.Name, commitID stupid.OID) error {
	commit, err := t.ctx.FindCommit(commitID)
	if err != nil {
		return err
	}
	parent, _ := commit.Parent(0)
	if parent != t.Top() {
		return fmt.Errorf("new patch %s's parent %s does not match top %s", name, parent, t.Top())
	}
	t.applied = append(t.applied, name)
	t.setPatch(name, PatchState{Commit: commitID})
	t.printPushed(name, StatusNew, true)
	return nil
}

// NewUnapplied inserts name into unapplied at insertPos with a fresh
// PatchState backed by commitID.
func (t *StackTransaction) NewUnapplied(name patchname.Name, commitID stupid.OID, insertPos int) error {
	t.unapplied = insertAt(t.unapplied, insertPos, name)
	t.setPatch(name, PatchState{Commit: commitID})
	t.ui.PrintPopped([]patchname.Name{name})
	return nil
}

// PushTree moves name from unapplied or hidden into applied, preserving
// its existing tree rather than re-merging it against the new top.
func (t *StackTransaction) PushTree(name patchname.Name, isLast bool) error {
	if u, ok := removeName(t.unapplied, name); ok {
		t.unapplied = u
	} else if h, ok := removeName(t.hidden, name); ok {
		t.hidden = h
	} else {
		return stackerrors.NewPatchNotFoundError(name.String())
	}

	old, ok := t.Patch(name)
	if !ok {
		return stackerrors.NewPatchNotFoundError(name.String())
	}
	commit, err := t.ctx.FindCommit(old.Commit)
	if err != nil {
		return err
	}
	newTop := t.Top()

	oldParentID, _ := commit.Parent(0)
	oldParentCommit, err := t.ctx.FindCommit(oldParentID)
	if err != nil {
		return err
	}
	isEmpty := oldParentCommit.TreeID == commit.TreeID

	var newCommitID stupid.OID
	status := StatusUnmodified
	if oldParentID == newTop {
		newCommitID = old.Commit
	} else {
		status = StatusModified
		author, err := commit.AuthorStrict()
		if err != nil {
			return err
		}
		author = t.options.SignatureOptions.Apply(author, false)
		cfg, err := t.ctx.Config()
		if err != nil {
			return err
		}
		committer, err := signature.DefaultCommitter(cfg)
		if err != nil {
			return err
		}
		committer = t.options.SignatureOptions.Apply(committer, true)
		newCommitID, err = t.ctx.CommitEx(author.String(), committer.String(), commit.Message, commit.TreeID, []stupid.OID{newTop})
		if err != nil {
			return err
		}
		_ = t.ctx.NotesCopy(old.Commit, newCommitID)
	}
	if isEmpty {
		status = StatusEmpty
	}

	t.applied = append(t.applied, name)
	t.setPatch(name, PatchState{Commit: newCommitID})
	t.printPushed(name, status, isLast)
	return nil
}

// ReorderPatches replaces the applied/unapplied/hidden lists. For applied,
// only the tail past the longest common prefix with the current applied
// list is actually popped and re-pushed (tree-push, keeping each patch's
// tree; a patch whose parent changes gets a new commit);
// unapplied and hidden are simply replaced wholesale. newApplied/
// newUnapplied/newHidden being nil means "leave this list alone".
func (t *StackTransaction) ReorderPatches(newApplied, newUnapplied, newHidden []patchname.Name) error {
	if newApplied != nil {
		prefix := 0
		for prefix < len(t.applied) && prefix < len(newApplied) && t.applied[prefix] == newApplied[prefix] {
			prefix++
		}
		tail := append([]patchname.Name{}, t.applied[prefix:]...)
		for i := len(tail) - 1; i >= 0; i-- {
			if err := t.popOne(tail[i]); err != nil {
				return err
			}
		}
		toPush := newApplied[prefix:]
		for i, name := range toPush {
			if err := t.PushTree(name, i == len(toPush)-1); err != nil {
				return err
			}
		}
	}
	if newUnapplied != nil {
		t.unapplied = append([]patchname.Name{}, newUnapplied...)
	}
	if newHidden != nil {
		t.hidden = append([]patchname.Name{}, newHidden...)
	}
	return nil
}

// popOne removes name from the end of applied and inserts it at the front
// of unapplied, used internally by ReorderPatches to unwind the tail.
func (t *StackTransaction) popOne(name patchname.Name) error {
	applied, ok := removeName(t.applied, name)
	if !ok {
		return stackerrors.NewPatchNotFoundError(name.String())
	}
	t.applied = applied
	t.unapplied = insertAt(t.unapplied, 0, name)
	return nil
}

// RepairAppliedness replaces all three lists outright. The union of the
// three must be a permutation of the current union; callers asserting
// otherwise are signaling a programmer bug.
func (t *StackTransaction) RepairAppliedness(applied, unapplied, hidden []patchname.Name) error {
	if err := t.assertPermutation(applied, unapplied, hidden); err != nil {
		return err
	}
	t.applied = append([]patchname.Name{}, applied...)
	t.unapplied = append([]patchname.Name{}, unapplied...)
	t.hidden = append([]patchname.Name{}, hidden...)
	return nil
}

func (t *StackTransaction) assertPermutation(applied, unapplied, hidden []patchname.Name) error {
	current := make(map[patchname.Name]struct{})
	for _, n := range t.applied {
		current[n] = struct{}{}
	}
	for _, n := range t.unapplied {
		current[n] = struct{}{}
	}
	for _, n := range t.hidden {
		current[n] = struct{}{}
	}
	proposed := make(map[patchname.Name]struct{})
	for _, n := range applied {
		proposed[n] = struct{}{}
	}
	for _, n := range unapplied {
		proposed[n] = struct{}{}
	}
	for _, n := range hidden {
		proposed[n] = struct{}{}
	}
	if len(current) != len(proposed) {
		return fmt.Errorf("repair/reset: %w", stackerrors.ErrRepairNotPermutation)
	}
	for n := range proposed {
		if _, ok := current[n]; !ok {
			return fmt.Errorf("repair/reset: %s is not a member of the current stack: %w", n, stackerrors.ErrRepairNotPermutation)
		}
	}
	return nil
}

// HidePatches moves the named patches from applied/unapplied into hidden.
func (t *StackTransaction) HidePatches(names []patchname.Name) error {
	for _, name := range names {
		if applied, ok := removeName(t.applied, name); ok {
			t.applied = applied
		} else if unapplied, ok := removeName(t.unapplied, name); ok {
			t.unapplied = unapplied
		} else {
			return stackerrors.NewPatchNotFoundError(name.String())
		}
		t.hidden = append(t.hidden, name)
	}
	t.ui.PrintHidden(names)
	return nil
}

// UnhidePatches moves the named patches from hidden back into unapplied.
func (t *StackTransaction) UnhidePatches(names []patchname.Name) error {
	for _, name := range names {
		hidden, ok := removeName(t.hidden, name)
		if !ok {
			return stackerrors.NewPatchNotFoundError(name.String())
		}
		t.hidden = hidden
		t.unapplied = append(t.unapplied, name)
	}
	t.ui.PrintUnhidden(names)
	return nil
}

// RenamePatch renames old to new. A no-op if new == old; an error if new
// collides with a live patch or old does not exist.
func (t *StackTransaction) RenamePatch(old, new patchname.Name) error {
	if old == new {
		return nil
	}
	state, ok := t.Patch(old)
	if !ok {
		return stackerrors.NewPatchNotFoundError(old.String())
	}
	if _, ok := t.Patch(new); ok {
		return stackerrors.NewPatchCollisionError(new.String())
	}
	renamed := false
	if i := indexOf(t.applied, old); i >= 0 {
		t.applied[i] = new
		renamed = true
	} else if i := indexOf(t.unapplied, old); i >= 0 {
		t.unapplied[i] = new
		renamed = true
	} else if i := indexOf(t.hidden, old); i >= 0 {
		t.hidden[i] = new
		renamed = true
	}
	if !renamed {
		return stackerrors.NewPatchNotFoundError(old.String())
	}
	if _, inStack := t.stack.Patch(old); inStack {
		t.tombstone(old)
	} else {
		delete(t.updatedPatches, old)
	}
	t.setPatch(new, state)
	t.ui.PrintRenamed(old, new)
	return nil
}
