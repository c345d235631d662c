package stack

import (
	"errors"

	"github.com/aelgogary/stgit/internal/patchname"
	"github.com/aelgogary/stgit/internal/stupid"
)

var errCommitPatchesOrder = errors.New("commit_patches: names are not a prefix of the current applied list")

// splitApplied partitions the current applied list at the first patch
// satisfying predicate: everything at or above that point is removed from
// applied and returned (in original applied order, bottom-most first);
// everything below stays.
// Patches above the first match that do not themselves match are
// "incidental" pops; patches that do match are "requested" pops.
func (t *StackTransaction) splitApplied(predicate func(patchname.Name) bool) (requested, incidental []patchname.Name) {
	cut := len(t.applied)
	for i, name := range t.applied {
		if predicate(name) {
			cut = i
			break
		}
	}
	if cut == len(t.applied) {
		return nil, nil
	}
	popped := t.applied[cut:]
	t.applied = append([]patchname.Name{}, t.applied[:cut]...)

	for _, name := range popped {
		if predicate(name) {
			requested = append(requested, name)
		} else {
			incidental = append(incidental, name)
		}
	}
	return requested, incidental
}

// PopPatches removes from applied everything at or above the first patch
// satisfying predicate. The resulting unapplied list is: incidental pops
// (original order) ++ requested pops (original order) ++ former unapplied.
// Returns the incidentally-popped patches.
func (t *StackTransaction) PopPatches(predicate func(patchname.Name) bool) []patchname.Name {
	requested, incidental := t.splitApplied(predicate)
	if len(requested) == 0 && len(incidental) == 0 {
		return nil
	}
	popped := append(append([]patchname.Name{}, incidental...), requested...)
	t.unapplied = append(popped, t.unapplied...)
	if len(popped) > 0 {
		t.ui.PrintPopped(popped)
	}
	return incidental
}

// DeletePatches removes every patch satisfying predicate from applied,
// unapplied, and hidden, tombstoning them. Patches above a deleted one in
// applied that do not themselves match are incidentally popped into
// unapplied, same as PopPatches. The entire applied-split slice (both
// incidental pops and to-be-deleted patches) is announced as one popped
// event up front; PrintDeleted is then flushed once per maximal
// contiguous run of matching names as the combined applied/unapplied/
// hidden sequence is walked in order.
func (t *StackTransaction) DeletePatches(predicate func(patchname.Name) bool) []patchname.Name {
	cut := len(t.applied)
	for i, name := range t.applied {
		if predicate(name) {
			cut = i
			break
		}
	}
	allPopped := append([]patchname.Name{}, t.applied[cut:]...)
	t.applied = append([]patchname.Name{}, t.applied[:cut]...)

	var incidental []patchname.Name
	for _, name := range allPopped {
		if !predicate(name) {
			incidental = append(incidental, name)
		}
	}
	t.unapplied = append(append([]patchname.Name{}, incidental...), t.unapplied...)

	t.ui.PrintPopped(allPopped)

	var deletedGroup []patchname.Name
	flush := func() {
		if len(deletedGroup) > 0 {
			t.ui.PrintDeleted(deletedGroup)
			deletedGroup = nil
		}
	}

	for _, name := range allPopped {
		if predicate(name) {
			deletedGroup = append(deletedGroup, name)
			t.tombstone(name)
		} else {
			flush()
		}
	}

	oldUnapplied := t.unapplied
	t.unapplied = nil
	for _, name := range oldUnapplied {
		if predicate(name) {
			deletedGroup = append(deletedGroup, name)
			t.tombstone(name)
		} else {
			flush()
			t.unapplied = append(t.unapplied, name)
		}
	}

	var hiddenSurvivors []patchname.Name
	for _, name := range t.hidden {
		if predicate(name) {
			deletedGroup = append(deletedGroup, name)
			t.tombstone(name)
		} else {
			hiddenSurvivors = append(hiddenSurvivors, name)
			flush()
		}
	}
	t.hidden = hiddenSurvivors

	flush()
	return incidental
}

// CommitPatches makes the first toCommit applied patches (bottom-up) cease
// to be managed patches: they become immutable history below a new base.
// Applied patches above the committed group are popped and re-pushed
// around the operation. The new base is the last committed patch's
// commit; the committed patches themselves are tombstoned.
func (t *StackTransaction) CommitPatches(toCommit []patchname.Name) error {
	if len(toCommit) == 0 {
		return nil
	}
	prefix := 0
	for prefix < len(toCommit) && prefix < len(t.applied) && t.applied[prefix] == toCommit[prefix] {
		prefix++
	}
	if prefix != len(toCommit) {
		return commitPatchesOrderErr()
	}

	aboveCount := len(t.applied) - prefix
	above := append([]patchname.Name{}, t.applied[prefix:]...)

	lastCommitted := toCommit[len(toCommit)-1]
	committedState, ok := t.Patch(lastCommitted)
	if !ok {
		return commitPatchesOrderErr()
	}

	t.applied = append([]patchname.Name{}, t.applied[:prefix]...)
	// Park the patches above the committed group in unapplied so PushTree
	// (which only moves a patch out of unapplied or hidden) can pick them
	// back up below.
	t.unapplied = append(append([]patchname.Name{}, above...), t.unapplied...)
	for _, name := range toCommit {
		t.tombstone(name)
	}
	t.setBase(committedState.Commit)

	for i, name := range above {
		if err := t.PushTree(name, i == aboveCount-1); err != nil {
			return err
		}
	}
	t.ui.PrintCommitted(toCommit)
	return nil
}

func commitPatchesOrderErr() error {
	return errCommitPatchesOrder
}

// UncommitPair is one (patchname, commit) entry for UncommitPatches.
type UncommitPair struct {
	Name   patchname.Name
	Commit stupid.OID
}

// UncommitPatches introduces pairs as new applied patches prepended below
// the current applied list, in the given ancestor-first order (root first,
// current base last). The transaction's base moves earlier implicitly,
// through the new bottom patch's recorded parent commit.
func (t *StackTransaction) UncommitPatches(pairs []UncommitPair) error {
	if len(pairs) == 0 {
		return nil
	}
	names := make([]patchname.Name, 0, len(pairs))
	for _, p := range pairs {
		t.setPatch(p.Name, PatchState{Commit: p.Commit})
		names = append(names, p.Name)
	}
	t.applied = append(append([]patchname.Name{}, names...), t.applied...)

	first, err := t.ctx.FindCommit(pairs[0].Commit)
	if err != nil {
		return err
	}
	parent, _ := first.Parent(0)
	t.setBase(parent)
	return nil
}
