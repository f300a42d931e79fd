// Package txn implements the transaction layer: begin/read/write/commit/
// abort over a database's named root objects, plus the literal pool's
// get_literal surface. A transaction is either top-level (its enclosing
// field is nil, and commit swings the object space's storage pointer) or
// nested (commit merges its staged data into the enclosing transaction
// instead of touching storage).
package txn

import (
	"github.com/cuemby/protobase/atom"
	"github.com/cuemby/protobase/collection/ordered"
	"github.com/cuemby/protobase/internal/metrics"
	"github.com/cuemby/protobase/internal/obslog"
	"github.com/cuemby/protobase/internal/protoerr"
	"github.com/cuemby/protobase/objectspace"
)

type state int

const (
	stateRunning state = iota
	stateCommitted
	stateAborted
)

// Transaction is one begin/.../commit-or-abort lifecycle over a single
// database's named root objects.
type Transaction struct {
	space     *objectspace.ObjectSpace
	enclosing *Transaction
	database  string

	baseRoot    *ordered.Dict // this database's root dict, snapshotted at Begin
	stagedRoots *ordered.Dict // name -> atom.Value, written by this transaction

	literalRoot    *ordered.Dict // space-wide literal text -> saved Literal, snapshotted at Begin
	stagedLiterals *ordered.Dict // text -> saved Literal, interned by this transaction

	state state
}

// Begin snapshots database's current root dict (and the space's current
// literal root) into a new top-level transaction. Beginning against an
// unknown database is a ValidationError. Begin never takes the space lock:
// concurrent read-only transactions proceed without mutual exclusion.
func Begin(space *objectspace.ObjectSpace, database string) (*Transaction, error) {
	ro, err := space.CurrentRootObject()
	if err != nil {
		return nil, err
	}
	baseRoot, ok, err := space.DatabaseRootDict(ro, database)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, protoerr.ValidationErrorf("unknown database %q", database)
	}
	return &Transaction{
		space:          space,
		database:       database,
		baseRoot:       baseRoot,
		stagedRoots:    ordered.Empty(nil, database, ""),
		literalRoot:    ro.LiteralRoot(),
		stagedLiterals: ordered.Empty(nil, "", ""),
		state:          stateRunning,
	}, nil
}

// BeginNested opens a transaction nested inside t, inheriting t's base root
// merged with its staged writes so far, per the merge rule get_root_object
// already uses (staged wins over base).
func (t *Transaction) BeginNested() (*Transaction, error) {
	if err := t.requireRunning(); err != nil {
		return nil, err
	}
	return &Transaction{
		space:          t.space,
		enclosing:      t,
		database:       t.database,
		baseRoot:       t.baseRoot,
		stagedRoots:    t.stagedRoots,
		literalRoot:    t.literalRoot,
		stagedLiterals: t.stagedLiterals,
		state:          stateRunning,
	}, nil
}

func (t *Transaction) requireRunning() error {
	if t.state != stateRunning {
		return protoerr.ValidationErrorf("transaction is not running")
	}
	return nil
}

// GetRootObject reads the named root object: staged writes from this
// transaction win over the database's base snapshot. A staged tombstone
// (DeleteRootObject) reports not-found, even if the base snapshot still
// holds an entry for name.
func (t *Transaction) GetRootObject(name string) (atom.Value, bool, error) {
	if err := t.requireRunning(); err != nil {
		return atom.Value{}, false, err
	}
	if v, ok, err := t.stagedRoots.Get(atom.Str(name)); err != nil {
		return atom.Value{}, false, err
	} else if ok {
		if v.Kind == atom.KindNil {
			return atom.Value{}, false, nil
		}
		return v, true, nil
	}
	return t.baseRoot.Get(atom.Str(name))
}

// SetRootObject records v (the AsValue() of some already-Saved collection,
// or any other Value wrapping a pointed atom) as staged for name. Per the
// commit discipline, v must already carry an assigned pointer — callers
// Save the collection (or atom) through this transaction's Writer/Pool
// before calling SetRootObject, exactly as atom.Save forces a pointer onto
// every atom it touches.
func (t *Transaction) SetRootObject(name string, v atom.Value) error {
	if err := t.requireRunning(); err != nil {
		return err
	}
	if v.Kind != atom.KindNil {
		if _, ok := v.Pointer(); !ok {
			return protoerr.CorruptionErrorf("root object %q was not saved before being set", name)
		}
	}
	newStaged, err := t.stagedRoots.Set(atom.Str(name), v)
	if err != nil {
		return err
	}
	t.stagedRoots = newStaged
	return nil
}

// Writer is the append-only sink a caller Saves a collection or atom
// through before staging it as a root object with SetRootObject.
func (t *Transaction) Writer() atom.Writer { return t.space.Writer() }

// Pool is the literal-interning pool a caller Saves a collection or atom
// with, so repeated string fields across this transaction's writes share a
// single on-disk literal.
func (t *Transaction) Pool() *atom.Pool { return t.space.Pool() }

// DeleteRootObject stages the removal of a named root object.
func (t *Transaction) DeleteRootObject(name string) error {
	if err := t.requireRunning(); err != nil {
		return err
	}
	newStaged, err := t.stagedRoots.Set(atom.Str(name), atom.Nil())
	if err != nil {
		return err
	}
	t.stagedRoots = newStaged
	return nil
}

// GetLiteral interns s for the duration of the transaction: already-staged
// or already-persisted literals with the same text are reused rather than
// saved again, via the space's shared literal pool (a literal already
// saved by any transaction in this space keeps its pointer).
func (t *Transaction) GetLiteral(s string) (*atom.Literal, error) {
	if err := t.requireRunning(); err != nil {
		return nil, err
	}
	key := atom.Str(s)
	if v, ok, err := t.stagedLiterals.Get(key); err != nil {
		return nil, err
	} else if ok {
		a, err := v.Resolve()
		if err != nil {
			return nil, err
		}
		if lit, ok := a.(*atom.Literal); ok {
			return lit, nil
		}
	}
	if v, ok, err := t.literalRoot.Get(key); err != nil {
		return nil, err
	} else if ok {
		a, err := v.Resolve()
		if err != nil {
			return nil, err
		}
		if lit, ok := a.(*atom.Literal); ok {
			newStaged, err := t.stagedLiterals.Set(key, atom.FromAtom(lit))
			if err != nil {
				return nil, err
			}
			t.stagedLiterals = newStaged
			return lit, nil
		}
	}
	lit := t.space.Pool().Intern(s)
	newStaged, err := t.stagedLiterals.Set(key, atom.FromAtom(lit))
	if err != nil {
		return nil, err
	}
	t.stagedLiterals = newStaged
	return lit, nil
}

// Commit finishes the transaction. A nested transaction merges its staged
// roots and literals into its enclosing transaction without touching
// storage; a top-level transaction acquires the space lock, re-reads the
// current root object, applies its staged entries over that fresh state in
// deterministic (sorted-key) order, and swings the space's storage pointer
// to the new root history head.
func (t *Transaction) Commit() error {
	if err := t.requireRunning(); err != nil {
		return err
	}
	if t.enclosing != nil {
		return t.commitNested()
	}
	return t.commitTopLevel()
}

func (t *Transaction) commitNested() error {
	mergedRoots, err := t.enclosing.stagedRoots.Merge(t.stagedRoots)
	if err != nil {
		return err
	}
	mergedLiterals, err := t.enclosing.stagedLiterals.Merge(t.stagedLiterals)
	if err != nil {
		return err
	}
	t.enclosing.stagedRoots = mergedRoots
	t.enclosing.stagedLiterals = mergedLiterals
	t.state = stateCommitted
	return nil
}

func (t *Transaction) commitTopLevel() error {
	log := obslog.WithDatabase(obslog.Component("txn"), t.database)
	timer := metrics.NewTimer()

	t.space.Lock()
	defer t.space.Unlock()

	ro, err := t.space.CurrentRootObject()
	if err != nil {
		metrics.TransactionsAbortedTotal.Inc()
		return err
	}
	freshRoot, ok, err := t.space.DatabaseRootDict(ro, t.database)
	if err != nil {
		metrics.TransactionsAbortedTotal.Inc()
		return err
	}
	if !ok {
		metrics.TransactionsAbortedTotal.Inc()
		return protoerr.ValidationErrorf("unknown database %q", t.database)
	}

	newRoot := freshRoot
	if err := t.stagedRoots.ForEach(func(k, v atom.Value) error {
		name, err := atom.ResolveString(k)
		if err != nil {
			return err
		}
		if v.Kind == atom.KindNil {
			newRoot, _, err = newRoot.Delete(atom.Str(name))
			return err
		}
		newRoot, err = newRoot.Set(atom.Str(name), v)
		return err
	}); err != nil {
		metrics.TransactionsAbortedTotal.Inc()
		return err
	}

	newLiteralRoot := ro.LiteralRoot()
	if err := t.stagedLiterals.ForEach(func(k, v atom.Value) error {
		var err error
		newLiteralRoot, err = newLiteralRoot.Set(k, v)
		return err
	}); err != nil {
		metrics.TransactionsAbortedTotal.Inc()
		return err
	}

	newObjectRoot, err := ro.ObjectRoot().Set(atom.Str(t.database), objectRootEntry(newRoot))
	if err != nil {
		metrics.TransactionsAbortedTotal.Inc()
		return err
	}
	newRO := ro.WithObjectRoot(newObjectRoot).WithLiteralRoot(newLiteralRoot)

	if _, err := t.space.CommitRootObject(newRO); err != nil {
		metrics.TransactionsAbortedTotal.Inc()
		return err
	}

	t.state = stateCommitted
	metrics.TransactionsCommittedTotal.Inc()
	timer.ObserveDuration(metrics.CommitDuration)
	log.Info().Dur("elapsed", timer.Duration()).Msg("transaction committed")
	return nil
}

func objectRootEntry(d *ordered.Dict) atom.Value {
	if d.Len() == 0 {
		return atom.Nil()
	}
	return d.AsValue()
}

// Abort discards staged data. Disposing of a transaction without calling
// Commit or Abort has the same effect: Begin never acquires the space lock
// and the root pointer only moves on Commit, so records a caller already
// saved for an abandoned transaction stay unreachable and there is nothing
// to clean up beyond this state flip.
func (t *Transaction) Abort() error {
	if err := t.requireRunning(); err != nil {
		return err
	}
	t.state = stateAborted
	metrics.TransactionsAbortedTotal.Inc()
	obslog.WithDatabase(obslog.Component("txn"), t.database).Info().Msg("transaction aborted")
	return nil
}

// Database returns the name of the database this transaction is open
// against.
func (t *Transaction) Database() string { return t.database }
