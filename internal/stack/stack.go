package stack

import (
	"fmt"

	"github.com/aelgogary/stgit/internal/patchname"
	"github.com/aelgogary/stgit/internal/stupid"
)

const (
	patchRefPrefix  = "refs/patches/"
	stateRefPrefix  = "refs/stacks/"
)

// Stack is the durable, persistent record of a branch's patch stack: the
// branch name and head, the base commit, the three ordered patch lists,
// the patch-state map, and a pointer to the previous state commit (the
// stack's own history). It is immutable from any in-flight transaction's
// perspective until that transaction's ExecuteContext consumes it.
type Stack struct {
	BranchName string
	head       stupid.OID
	base       stupid.OID
	applied    []patchname.Name
	unapplied  []patchname.Name
	hidden     []patchname.Name
	patches    map[patchname.Name]PatchState
	// PrevState is this stack's current state commit: the value the next
	// transaction to run against this stack will write as its new state
	// commit's parent, forming a history chain. Zero for a freshly
	// initialized stack that has never been persisted.
	PrevState stupid.OID
}

// NewStack constructs a Stack from its persisted components. Callers are
// trusted to pass lists respecting the core's invariants (pairwise
// disjoint membership, parent-chain integrity); decoding code
// (persistence.go) and ExecuteContext.Execute are the callers outside
// tests.
func NewStack(branchName string, head, base stupid.OID, applied, unapplied, hidden []patchname.Name, patches map[patchname.Name]PatchState, prevState stupid.OID) *Stack {
	return &Stack{
		BranchName: branchName,
		head:       head,
		base:       base,
		applied:    append([]patchname.Name{}, applied...),
		unapplied:  append([]patchname.Name{}, unapplied...),
		hidden:     append([]patchname.Name{}, hidden...),
		patches:    patches,
		PrevState:  prevState,
	}
}

func (s *Stack) Applied() []patchname.Name   { return append([]patchname.Name{}, s.applied...) }
func (s *Stack) Unapplied() []patchname.Name { return append([]patchname.Name{}, s.unapplied...) }
func (s *Stack) Hidden() []patchname.Name    { return append([]patchname.Name{}, s.hidden...) }

func (s *Stack) Patch(name patchname.Name) (PatchState, bool) {
	p, ok := s.patches[name]
	return p, ok
}

func (s *Stack) Base() stupid.OID { return s.base }

func (s *Stack) Top() stupid.OID { return top(s.applied, s.patches, s.base) }

func (s *Stack) Head() stupid.OID { return s.head }

// StackRefname is the reference the stack's state commit is stored under.
func (s *Stack) StackRefname() string {
	return stateRefPrefix + s.BranchName
}

// PatchRefname is the reference a given patch's commit is stored under.
func (s *Stack) PatchRefname(name patchname.Name) string {
	return patchRefPrefix + s.BranchName + "/" + name.String()
}

// Collides reports whether name is already present in any of the three
// lists.
func (s *Stack) Collides(name patchname.Name) bool {
	for _, n := range s.applied {
		if n == name {
			return true
		}
	}
	for _, n := range s.unapplied {
		if n == name {
			return true
		}
	}
	for _, n := range s.hidden {
		if n == name {
			return true
		}
	}
	return false
}

// CheckHeadTopMismatch reports whether the branch head no longer matches
// what the stack believes its top patch to be -- i.e. some other process
// has added commits on top of the stack since it was last read.
func (s *Stack) CheckHeadTopMismatch() bool {
	return s.head != s.Top()
}

// LogExternalMods accounts for a branch head that has moved since the
// stack was read (CheckHeadTopMismatch() is true): it records the new head
// as the stack's head while leaving the patch lists untouched, since the
// external commits sit above the stack's own top and are not themselves
// managed patches. The returned Stack is a new value; the receiver is left
// unmodified.
func (s *Stack) LogExternalMods(newHead stupid.OID) *Stack {
	clone := *s
	clone.head = newHead
	clone.applied = append([]patchname.Name{}, s.applied...)
	clone.unapplied = append([]patchname.Name{}, s.unapplied...)
	clone.hidden = append([]patchname.Name{}, s.hidden...)
	return &clone
}

// WithHead returns a copy of the stack with its head commit replaced.
func (s *Stack) WithHead(head stupid.OID) *Stack {
	clone := *s
	clone.head = head
	return &clone
}

func (s *Stack) String() string {
	return fmt.Sprintf("Stack{branch=%s applied=%v unapplied=%v hidden=%v}", s.BranchName, s.applied, s.unapplied, s.hidden)
}
