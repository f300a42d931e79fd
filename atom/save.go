package atom

import (
	"encoding/json"

	"github.com/cuemby/protobase/internal/metrics"
	"github.com/cuemby/protobase/internal/protoerr"
)

// Save persists a, returning its pointer. An atom that already carries a
// pointer is immutable and returned unchanged (spec §4.2: "once a pointer is
// assigned, an atom's bytes never change"), which also makes Save safe to
// call repeatedly on shared substructure without rewriting it.
//
// Fields are encoded depth-first: any field that is itself an atom, or a
// string routed through the literal pool, is saved first via encodeValue,
// which pushes its own bytes and so advances the store's write cursor
// before a's own payload is ever pushed. So a's real offset is only known
// once w.PushBytes returns it — before descending, Save only reserves a
// provisional pointer and assigns it to a so that a re-entrant Save of a,
// reached through a cycle of shared substructure while a is still being
// saved, has a pointer to embed in the back-reference instead of recursing
// forever (spec §9's provisional-pointer rule, spec §3's saving flag). Once
// the real offset comes back from PushBytes, it overwrites the provisional
// one. Every composite atom in this package is tree-shaped, so the
// re-entrant path never actually runs: a genuine reference cycle's
// back-edge would end up carrying a's provisional offset rather than its
// final one, since a's real offset isn't known until after every field
// ahead of it has already been written.
func Save(a Atom, w Writer, pool *Pool) (Pointer, error) {
	if a == nil {
		return Pointer{}, nil
	}
	// Already fully saved, or reserved a provisional pointer and currently
	// being saved (re-entered through a cycle): either way, return what's
	// already assigned instead of re-entering.
	if p := a.Pointer(); !p.IsZero() {
		return p, nil
	}

	a.setSaving(true)
	defer a.setSaving(false)

	provisional := w.NextPointer()
	a.setPointer(provisional)

	fields := a.Fields()
	record := make(map[string]json.RawMessage, len(fields)+1)
	classNameJSON, err := json.Marshal(a.ClassName())
	if err != nil {
		return Pointer{}, protoerr.CorruptionErrorf("marshal className: %v", err)
	}
	record[classNameKey] = classNameJSON

	for _, f := range fields {
		raw, err := encodeValue(f.Value, w, pool)
		if err != nil {
			return Pointer{}, err
		}
		record[f.Name] = raw
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return Pointer{}, protoerr.CorruptionErrorf("marshal atom record: %v", err)
	}
	actual, err := w.PushBytes(payload)
	if err != nil {
		return Pointer{}, err
	}
	a.setPointer(actual)

	metrics.AtomsSavedTotal.Inc()
	return actual, nil
}
