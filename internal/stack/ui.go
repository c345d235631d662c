package stack

import "github.com/aelgogary/stgit/internal/patchname"

// UI is a pure side-effect sink: every mutation method that changes patch
// state reports through it. It never influences control flow -- a UI whose
// methods do nothing is a perfectly valid implementation used by tests.
type UI interface {
	PrintPushed(name patchname.Name, status PushStatus, isLast bool)
	PrintPopped(names []patchname.Name)
	PrintUpdated(name patchname.Name)
	PrintDeleted(names []patchname.Name)
	PrintRenamed(old, new patchname.Name)
	PrintMerged(names []patchname.Name)
	PrintHidden(names []patchname.Name)
	PrintUnhidden(names []patchname.Name)
	PrintCommitted(names []patchname.Name)
}

// NopUI discards every event; useful for tests and for callers that don't
// want progress output.
type NopUI struct{}

func (NopUI) PrintPushed(patchname.Name, PushStatus, bool) {}
func (NopUI) PrintPopped([]patchname.Name)                 {}
func (NopUI) PrintUpdated(patchname.Name)                  {}
func (NopUI) PrintDeleted([]patchname.Name)                {}
func (NopUI) PrintRenamed(_, _ patchname.Name)             {}
func (NopUI) PrintMerged([]patchname.Name)                 {}
func (NopUI) PrintHidden([]patchname.Name)                 {}
func (NopUI) PrintUnhidden([]patchname.Name)               {}
func (NopUI) PrintCommitted([]patchname.Name)              {}
