package stack

import "github.com/aelgogary/stgit/internal/patchname"

// ResetToState forces the transaction toward a previously captured
// StackState wholesale: every currently-known patch is tombstoned, the
// target's patches are re-installed, and head/base are set from it.
func (t *StackTransaction) ResetToState(state StateAccess) error {
	for _, n := range t.applied {
		t.tombstone(n)
	}
	for _, n := range t.unapplied {
		t.tombstone(n)
	}
	for _, n := range t.hidden {
		t.tombstone(n)
	}

	t.applied = append([]patchname.Name{}, state.Applied()...)
	t.unapplied = append([]patchname.Name{}, state.Unapplied()...)
	t.hidden = append([]patchname.Name{}, state.Hidden()...)

	for _, n := range allNames(state) {
		ps, ok := state.Patch(n)
		if !ok {
			continue
		}
		t.setPatch(n, ps)
	}
	t.setHead(state.Head())
	t.setBase(state.Base())
	return nil
}

func allNames(state StateAccess) []patchname.Name {
	out := append([]patchname.Name{}, state.Applied()...)
	out = append(out, state.Unapplied()...)
	out = append(out, state.Hidden()...)
	return out
}

// ResetToStatePartially restricts ResetToState's effect to the given name
// set: patches outside it are left exactly where they are, except for
// applied patches that sit above an affected one, which are incidentally
// popped and re-pushed on top once the affected range has been resolved
// (mirroring PopPatches/PushTree's own split).
func (t *StackTransaction) ResetToStatePartially(state StateAccess, names patchname.Set) error {
	requested, incidental := t.splitApplied(func(n patchname.Name) bool { return names.Contains(n) })
	// Park incidentally-displaced survivors in unapplied so PushTree can
	// pick them back up once the affected range below them is resolved.
	t.unapplied = append(append([]patchname.Name{}, incidental...), t.unapplied...)

	// Remove affected members from unapplied/hidden too; they'll either be
	// deleted or reinstalled below.
	var survivingUnapplied []patchname.Name
	for _, n := range t.unapplied {
		if !names.Contains(n) {
			survivingUnapplied = append(survivingUnapplied, n)
		} else {
			requested = append(requested, n)
		}
	}
	t.unapplied = survivingUnapplied

	var survivingHidden []patchname.Name
	for _, n := range t.hidden {
		if !names.Contains(n) {
			survivingHidden = append(survivingHidden, n)
		} else {
			requested = append(requested, n)
		}
	}
	t.hidden = survivingHidden

	targetUnion := make(map[patchname.Name]struct{})
	for _, n := range allNames(state) {
		targetUnion[n] = struct{}{}
	}

	// delete: requested members absent from the target entirely.
	for _, n := range requested {
		if _, wanted := targetUnion[n]; !wanted {
			t.tombstone(n)
		}
	}

	// re-install: requested members present in the target, in target order
	// per target list, appended to the corresponding current list.
	for _, n := range state.Applied() {
		if !names.Contains(n) {
			continue
		}
		ps, _ := state.Patch(n)
		t.setPatch(n, ps)
		t.applied = append(t.applied, n)
	}
	for _, n := range state.Unapplied() {
		if !names.Contains(n) {
			continue
		}
		ps, _ := state.Patch(n)
		t.setPatch(n, ps)
		t.unapplied = append(t.unapplied, n)
	}
	for _, n := range state.Hidden() {
		if !names.Contains(n) {
			continue
		}
		ps, _ := state.Patch(n)
		t.setPatch(n, ps)
		t.hidden = append(t.hidden, n)
	}

	// re-push: the previously-applied survivors that were only
	// incidentally displaced (not named) go back on top, in their
	// original relative order.
	for i, n := range incidental {
		if err := t.PushTree(n, i == len(incidental)-1); err != nil {
			return err
		}
	}
	return nil
}
