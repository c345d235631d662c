// Package stackerrors provides sentinel errors and structured error types
// for the stack transaction engine. Use errors.Is()/errors.As() to check
// for specific conditions.
package stackerrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions raised by the transaction engine
// and the stack it operates on.
var (
	// ErrPatchNotFound indicates a referenced patch does not exist in the stack.
	ErrPatchNotFound = errors.New("patch does not exist")

	// ErrPatchCollision indicates a new patch name collides with an existing one.
	ErrPatchCollision = errors.New("patch already exists")

	// ErrRepairNotPermutation indicates repair_appliedness was given lists
	// that are not a permutation of the current applied/unapplied/hidden union.
	ErrRepairNotPermutation = errors.New("appliedness lists are not a permutation of existing patches")

	// ErrNotHeadTop indicates the branch head does not match the stack's
	// believed top, and the operation requires them to match.
	ErrNotHeadTop = errors.New("branch head does not match stack top")

	// ErrUnsupportedEncoding indicates a commit declares an author/committer
	// encoding this module does not know how to decode.
	ErrUnsupportedEncoding = errors.New("unsupported commit encoding")

	// ErrHalt is a coarse sentinel usable with errors.Is to detect any
	// TransactionHalt, regardless of its Conflicts value.
	ErrHalt = errors.New("transaction halted")
)

// PatchNotFoundError names the specific patch that was missing.
type PatchNotFoundError struct {
	Name string
}

func (e *PatchNotFoundError) Error() string {
	return fmt.Sprintf("patch `%s` does not exist", e.Name)
}

// Is returns true if the target is ErrPatchNotFound.
func (e *PatchNotFoundError) Is(target error) bool {
	return target == ErrPatchNotFound
}

// NewPatchNotFoundError creates a new PatchNotFoundError.
func NewPatchNotFoundError(name string) *PatchNotFoundError {
	return &PatchNotFoundError{Name: name}
}

// PatchCollisionError names the patch that already exists.
type PatchCollisionError struct {
	Name string
}

func (e *PatchCollisionError) Error() string {
	return fmt.Sprintf("patch `%s` already exists", e.Name)
}

// Is returns true if the target is ErrPatchCollision.
func (e *PatchCollisionError) Is(target error) bool {
	return target == ErrPatchCollision
}

// NewPatchCollisionError creates a new PatchCollisionError.
func NewPatchCollisionError(name string) *PatchCollisionError {
	return &PatchCollisionError{Name: name}
}

// TransactionHalt is the expected control-flow exit used to stop a
// transaction body mid-sequence. Conflicts=true means merge conflicts were
// deliberately left in the worktree/index for the user to resolve;
// Conflicts=false means a recoverable refusal (dirty index, apply failure).
// For either value execute() persists the state the transaction reached
// and returns the halt to the caller.
type TransactionHalt struct {
	Msg       string
	Conflicts bool
}

func (e *TransactionHalt) Error() string {
	return e.Msg
}

// Is returns true if the target is ErrHalt, so callers can detect any halt
// without caring about the Conflicts flag.
func (e *TransactionHalt) Is(target error) bool {
	return target == ErrHalt
}

// NewHalt creates a TransactionHalt with Conflicts=false (a hard but
// recoverable refusal).
func NewHalt(msg string) *TransactionHalt {
	return &TransactionHalt{Msg: msg}
}

// NewConflictHalt creates a TransactionHalt with Conflicts=true (merge
// conflicts deliberately preserved in the worktree/index).
func NewConflictHalt(msg string) *TransactionHalt {
	return &TransactionHalt{Msg: msg, Conflicts: true}
}

// AsHalt extracts a *TransactionHalt from err, if any, mirroring the
// downcast the original implementation performs at execute() time.
func AsHalt(err error) (*TransactionHalt, bool) {
	var halt *TransactionHalt
	if errors.As(err, &halt) {
		return halt, true
	}
	return nil, false
}

// CheckoutConflictsError is raised by the checkout routine when a
// read-tree-checkout fails because the worktree/index could not be
// safely moved to the target tree.
type CheckoutConflictsError struct {
	Detail string
}

func (e *CheckoutConflictsError) Error() string {
	return fmt.Sprintf("checkout conflicts: %s", e.Detail)
}

// NewCheckoutConflictsError creates a new CheckoutConflictsError.
func NewCheckoutConflictsError(detail string) *CheckoutConflictsError {
	return &CheckoutConflictsError{Detail: detail}
}
