package stack

import (
	"encoding/json"
	"fmt"

	"github.com/aelgogary/stgit/internal/patchname"
	"github.com/aelgogary/stgit/internal/stupid"
)

// serializedState is the on-disk JSON shape of a stack-state commit's
// payload: {prev, head, base, applied, unapplied, hidden, patches}.
type serializedState struct {
	Prev      stupid.OID                     `json:"prev,omitempty"`
	Head      stupid.OID                     `json:"head"`
	Base      stupid.OID                     `json:"base"`
	Applied   []patchname.Name                `json:"applied"`
	Unapplied []patchname.Name                `json:"unapplied"`
	Hidden    []patchname.Name                `json:"hidden"`
	Patches   map[patchname.Name]stupid.OID   `json:"patches"`
}

// ReadStack reconstructs a Stack from its state commit, via ctx's
// persistence capability.
func ReadStack(ctx stupid.Context, branchName string, stateCommit stupid.OID) (*Stack, error) {
	raw, err := ctx.ReadStateCommit(stateCommit)
	if err != nil {
		return nil, fmt.Errorf("reading stack state for %s: %w", branchName, err)
	}
	var s serializedState
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decoding stack state for %s: %w", branchName, err)
	}
	patches := make(map[patchname.Name]PatchState, len(s.Patches))
	for name, commit := range s.Patches {
		patches[name] = PatchState{Commit: commit}
	}
	return NewStack(branchName, s.Head, s.Base, s.Applied, s.Unapplied, s.Hidden, patches, stateCommit), nil
}

// InitStack builds a brand-new Stack with no state-commit history yet
// (PrevState is the zero OID), base and head both at baseCommit, and every
// list empty. Used when a branch first starts being managed.
func InitStack(branchName string, baseCommit stupid.OID) *Stack {
	return NewStack(branchName, baseCommit, baseCommit, nil, nil, nil, map[patchname.Name]PatchState{}, "")
}

// writeState serializes state as a new stack-state commit whose parent is
// prev (the zero OID for a brand-new stack), returning the new commit id.
func writeState(ctx stupid.Context, state StateAccess, prev stupid.OID) (stupid.OID, error) {
	patches := make(map[patchname.Name]stupid.OID)
	for _, n := range allNames(state) {
		if ps, ok := state.Patch(n); ok {
			patches[n] = ps.Commit
		}
	}
	payload := serializedState{
		Prev:      prev,
		Head:      state.Head(),
		Base:      state.Base(),
		Applied:   state.Applied(),
		Unapplied: state.Unapplied(),
		Hidden:    state.Hidden(),
		Patches:   patches,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding stack state: %w", err)
	}
	var parents []stupid.OID
	if !prev.IsZero() {
		parents = []stupid.OID{prev}
	}
	return ctx.WriteStateCommit(raw, parents)
}
