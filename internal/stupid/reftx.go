package stupid

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// casRefTransaction is an atomic-or-rollback RefTransaction built on top of
// go-git's storer.ReferenceStorer, which only exposes a single-ref
// compare-and-swap primitive (CheckAndSetReference) rather than a native
// multi-ref transaction. This type layers a batch on top of that: it
// records the old value of every ref it touches when it locks it, applies
// every scheduled update via CAS in lock order at Commit time, and rolls
// back every update that already landed if a later one loses its race.
type casRefTransaction struct {
	store   storer.ReferenceStorer
	order   []string
	old     map[string]*plumbing.Reference
	pending map[string]pendingUpdate
}

type pendingUpdate struct {
	remove bool
	target OID
}

func newCASRefTransaction(store storer.ReferenceStorer) *casRefTransaction {
	return &casRefTransaction{
		store:   store,
		old:     make(map[string]*plumbing.Reference),
		pending: make(map[string]pendingUpdate),
	}
}

func (t *casRefTransaction) LockRef(name string) error {
	if _, already := t.old[name]; already {
		return nil
	}
	old, err := t.store.Reference(plumbing.ReferenceName(name))
	if err != nil && err != plumbing.ErrReferenceNotFound {
		return fmt.Errorf("locking ref %s: %w", name, err)
	}
	if err == plumbing.ErrReferenceNotFound {
		old = nil
	}
	t.old[name] = old
	t.order = append(t.order, name)
	return nil
}

func (t *casRefTransaction) SetTarget(name string, oid OID, reflogMsg string) error {
	if _, locked := t.old[name]; !locked {
		if err := t.LockRef(name); err != nil {
			return err
		}
	}
	t.pending[name] = pendingUpdate{target: oid}
	return nil
}

func (t *casRefTransaction) Remove(name string) error {
	if _, locked := t.old[name]; !locked {
		if err := t.LockRef(name); err != nil {
			return err
		}
	}
	t.pending[name] = pendingUpdate{remove: true}
	return nil
}

// Commit applies every scheduled update in lock order: sets via
// compare-and-swap against the value observed at lock time, removals
// directly. If any step fails (for a CAS: another writer raced us), every
// update already applied is restored to its recorded original value by a
// plain set or removal (see rollback), and Commit returns the error.
func (t *casRefTransaction) Commit() error {
	applied := make([]string, 0, len(t.order))
	for _, name := range t.order {
		update, scheduled := t.pending[name]
		if !scheduled {
			continue
		}
		old := t.old[name]
		if update.remove {
			if old == nil {
				continue
			}
			if err := t.store.RemoveReference(plumbing.ReferenceName(name)); err != nil {
				t.rollback(applied)
				return fmt.Errorf("removing ref %s: %w", name, err)
			}
			applied = append(applied, name)
			continue
		}
		newRef := plumbing.NewHashReference(plumbing.ReferenceName(name), plumbing.NewHash(update.target.String()))
		if err := t.store.CheckAndSetReference(newRef, old); err != nil {
			t.rollback(applied)
			return fmt.Errorf("updating ref %s: %w", name, err)
		}
		applied = append(applied, name)
	}
	return nil
}

// rollback restores every ref named in applied back to its pre-transaction
// value, in reverse order. Best effort: a failure here means the repository
// was mutated concurrently by something outside this transaction, which is
// already the underlying error being reported to the caller.
func (t *casRefTransaction) rollback(applied []string) {
	for i := len(applied) - 1; i >= 0; i-- {
		name := applied[i]
		old := t.old[name]
		if old == nil {
			_ = t.store.RemoveReference(plumbing.ReferenceName(name))
			continue
		}
		_ = t.store.SetReference(old)
	}
}
