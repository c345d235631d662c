package stack

import "github.com/aelgogary/stgit/internal/stupid"

// TransactionBuilder constructs a fresh StackTransaction seeded from a
// Stack, collects transaction-wide options, drives a caller-supplied body
// against the transaction, and hands back an ExecuteContext ready to
// finalize (or discard) the result.
type TransactionBuilder struct {
	stack   *Stack
	ctx     stupid.Context
	ui      UI
	options TransactionOptions
}

// NewTransactionBuilder begins building a transaction over stack, using
// ctx as the capability layer. ui defaults to NopUI if nil.
func NewTransactionBuilder(stack *Stack, ctx stupid.Context, ui UI) *TransactionBuilder {
	if ui == nil {
		ui = NopUI{}
	}
	return &TransactionBuilder{stack: stack, ctx: ctx, ui: ui, options: DefaultOptions()}
}

func (b *TransactionBuilder) WithOptions(opts TransactionOptions) *TransactionBuilder {
	b.options = opts
	return b
}

func (b *TransactionBuilder) SetHead(v bool) *TransactionBuilder {
	b.options.SetHead = v
	return b
}

func (b *TransactionBuilder) UseIndexAndWorktree(v bool) *TransactionBuilder {
	b.options.UseIndexAndWorktree = v
	return b
}

func (b *TransactionBuilder) ConflictMode(m ConflictMode) *TransactionBuilder {
	b.options.ConflictMode = m
	return b
}

func (b *TransactionBuilder) DiscardChanges(v bool) *TransactionBuilder {
	b.options.DiscardChanges = v
	return b
}

func (b *TransactionBuilder) AllowBadHead(v bool) *TransactionBuilder {
	b.options.AllowBadHead = v
	return b
}

func (b *TransactionBuilder) UseMergetool(v bool) *TransactionBuilder {
	b.options.UseMergetool = v
	return b
}

// Transact constructs the StackTransaction (applied/unapplied/hidden
// copied from the stack, current_tree_id seeded from the stack head's
// tree, no updates pending), runs body against it, captures any error body
// returns into the transaction's single error slot, and returns an
// ExecuteContext wrapping the result. body's error is not re-raised here;
// ExecuteContext.Execute inspects it.
func (b *TransactionBuilder) Transact(body func(*StackTransaction) error) (*ExecuteContext, error) {
	headCommit, err := b.ctx.FindCommit(b.stack.Head())
	if err != nil {
		return nil, err
	}
	t := &StackTransaction{
		stack:         b.stack,
		ctx:           b.ctx,
		ui:            b.ui,
		options:       b.options,
		applied:       b.stack.Applied(),
		unapplied:     b.stack.Unapplied(),
		hidden:        b.stack.Hidden(),
		currentTreeID: headCommit.TreeID,
	}
	if err := body(t); err != nil {
		t.halt(err)
	}
	return &ExecuteContext{transaction: t}, nil
}
