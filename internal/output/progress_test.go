package output_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aelgogary/stgit/internal/output"
	"github.com/aelgogary/stgit/internal/patchname"
	"github.com/aelgogary/stgit/internal/stack"
)

func TestPrintPushedPlainNoColor(t *testing.T) {
	var buf bytes.Buffer
	ui := output.NewTransactionUI(&buf, false)

	ui.PrintPushed(patchname.New("feature"), stack.StatusModified, false)
	require.Equal(t, "push feature -> (modified)\n", buf.String())
}

func TestPrintPushedLastPatchUsesTopVerb(t *testing.T) {
	var buf bytes.Buffer
	ui := output.NewTransactionUI(&buf, false)

	ui.PrintPushed(patchname.New("feature"), stack.StatusNew, true)
	require.Equal(t, "top feature -> (new)\n", buf.String())
}

func TestPrintPushedEmptyNameIsSilent(t *testing.T) {
	var buf bytes.Buffer
	ui := output.NewTransactionUI(&buf, false)

	ui.PrintPushed(patchname.Name(""), stack.StatusUnmodified, true)
	require.Empty(t, buf.String())
}

func TestPrintRenamedPlain(t *testing.T) {
	var buf bytes.Buffer
	ui := output.NewTransactionUI(&buf, false)

	ui.PrintRenamed(patchname.New("old"), patchname.New("new"))
	require.Equal(t, "rename old -> new\n", buf.String())
}

func TestPrintPoppedMultiple(t *testing.T) {
	var buf bytes.Buffer
	ui := output.NewTransactionUI(&buf, false)

	ui.PrintPopped([]patchname.Name{"a", "b"})
	require.Equal(t, "pop a\npop b\n", buf.String())
}

func TestColorModeStillProducesParsableText(t *testing.T) {
	var buf bytes.Buffer
	ui := output.NewTransactionUI(&buf, true)

	ui.PrintCommitted([]patchname.Name{"a"})
	require.Contains(t, buf.String(), "a")
}
