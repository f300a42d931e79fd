package atom

// Field is one named, ordered entry in an atom's serialized field list.
// Fields are emitted in the order Fields() returns them so byte-identical
// atoms produce byte-identical records.
type Field struct {
	Name  string
	Value Value
}

// Atom is anything addressable by Pointer and persisted through the
// generic save/load driver: collection tree nodes, literals, and the root
// objects that anchor a transaction's history.
type Atom interface {
	// ClassName identifies the concrete type in the wire envelope and the
	// Registry.
	ClassName() string
	// Pointer returns the atom's assigned pointer, or the zero Pointer if
	// it has never been saved.
	Pointer() Pointer
	// Fields returns the atom's serializable state, excluding pointer and
	// save/load bookkeeping.
	Fields() []Field
	// LoadFields populates the atom's concrete state from materialized
	// fields read back off disk. Field names the concrete type does not use
	// are ignored; a required field that is absent is reported via
	// protoerr.ErrFieldMissing.
	LoadFields(fields map[string]Value) error

	setPointer(Pointer)
	setSaving(bool)
	isSaving() bool
}

// Base provides the Pointer/setPointer bookkeeping every concrete atom
// embeds so it satisfies Atom's unexported methods without repeating the
// plumbing in each collection package. saving mirrors spec §3's "saving"
// flag: true for the duration of a Save call on this atom, so a re-entrant
// Save reached through a cycle of shared substructure can be recognized
// distinctly from an atom that was already fully saved before this call.
type Base struct {
	ptr    Pointer
	saving bool
}

// Pointer returns the atom's assigned pointer, or the zero Pointer.
func (b *Base) Pointer() Pointer { return b.ptr }

func (b *Base) setPointer(p Pointer) { b.ptr = p }

func (b *Base) setSaving(v bool) { b.saving = v }

func (b *Base) isSaving() bool { return b.saving }

// HasPointer reports whether the atom has already been assigned a pointer,
// meaning its bytes are immutable and Save is a no-op.
func (b *Base) HasPointer() bool { return !b.ptr.IsZero() }
