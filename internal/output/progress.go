// Package output implements the transaction engine's progress sink:
// colored, human-readable lines for every mutation event a stack
// transaction reports, written to a caller-supplied stream.
package output

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/aelgogary/stgit/internal/patchname"
	"github.com/aelgogary/stgit/internal/stack"
)

var (
	styleNew           = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	styleModified      = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	styleUnmodified    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleEmpty         = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	styleConflict      = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	styleAlreadyMerged = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	stylePatchName     = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	styleDim           = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func statusStyle(s stack.PushStatus) lipgloss.Style {
	switch s {
	case stack.StatusNew:
		return styleNew
	case stack.StatusModified:
		return styleModified
	case stack.StatusEmpty:
		return styleEmpty
	case stack.StatusConflict:
		return styleConflict
	case stack.StatusAlreadyMerged:
		return styleAlreadyMerged
	default:
		return styleUnmodified
	}
}

// TransactionUI writes colored progress lines to w. A nil or disabled
// color mode degrades to plain text (lipgloss no-ops without a TTY, but
// UseColor lets callers force it off regardless of terminal detection).
type TransactionUI struct {
	w        io.Writer
	useColor bool
}

// NewTransactionUI builds a UI writing to w. useColor=false forces plain
// text; with useColor=true, lipgloss's own terminal detection decides
// whether styling is emitted.
func NewTransactionUI(w io.Writer, useColor bool) *TransactionUI {
	return &TransactionUI{w: w, useColor: useColor}
}

func (u *TransactionUI) render(style lipgloss.Style, text string) string {
	if !u.useColor {
		return text
	}
	return style.Render(text)
}

func (u *TransactionUI) line(format string, args ...interface{}) {
	fmt.Fprintf(u.w, format+"\n", args...)
}

func (u *TransactionUI) PrintPushed(name patchname.Name, status stack.PushStatus, isLast bool) {
	if name == "" {
		return
	}
	verb := "push"
	if isLast {
		verb = "top"
	}
	u.line("%s %s %s (%s)", u.render(styleDim, verb), u.render(stylePatchName, name.String()), u.render(styleDim, "->"), u.render(statusStyle(status), status.String()))
}

func (u *TransactionUI) PrintPopped(names []patchname.Name) {
	for _, n := range names {
		u.line("%s %s", u.render(styleDim, "pop"), u.render(stylePatchName, n.String()))
	}
}

func (u *TransactionUI) PrintUpdated(name patchname.Name) {
	u.line("%s %s", u.render(styleDim, "update"), u.render(stylePatchName, name.String()))
}

func (u *TransactionUI) PrintDeleted(names []patchname.Name) {
	for _, n := range names {
		u.line("%s %s", u.render(styleConflict, "delete"), u.render(stylePatchName, n.String()))
	}
}

func (u *TransactionUI) PrintRenamed(old, new patchname.Name) {
	u.line("%s %s -> %s", u.render(styleDim, "rename"), u.render(stylePatchName, old.String()), u.render(stylePatchName, new.String()))
}

func (u *TransactionUI) PrintMerged(names []patchname.Name) {
	for _, n := range names {
		u.line("%s %s", u.render(styleAlreadyMerged, "merged"), u.render(stylePatchName, n.String()))
	}
}

func (u *TransactionUI) PrintHidden(names []patchname.Name) {
	for _, n := range names {
		u.line("%s %s", u.render(styleDim, "hide"), u.render(stylePatchName, n.String()))
	}
}

func (u *TransactionUI) PrintUnhidden(names []patchname.Name) {
	for _, n := range names {
		u.line("%s %s", u.render(styleDim, "unhide"), u.render(stylePatchName, n.String()))
	}
}

func (u *TransactionUI) PrintCommitted(names []patchname.Name) {
	for _, n := range names {
		u.line("%s %s", u.render(styleNew, "commit"), u.render(stylePatchName, n.String()))
	}
}

var _ stack.UI = (*TransactionUI)(nil)
