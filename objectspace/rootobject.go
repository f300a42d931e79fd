package objectspace

import (
	"time"

	"github.com/cuemby/protobase/atom"
	"github.com/cuemby/protobase/collection/ordered"
	"github.com/cuemby/protobase/internal/protoerr"
)

const rootObjectClassName = "protobase.root_object"

// rootObjectAtom is the atom a root-history entry actually persists:
// pointers to the whole space's object-root dict (database name -> that
// database's root dict), its literal-root dict (interned literal text ->
// saved Literal), and the moment it was built, bundled the same way
// collection/set's countedSetRoot bundles four dictionaries into one saved
// record.
type rootObjectAtom struct {
	atom.Base
	objectRoot  atom.Value
	literalRoot atom.Value
	createdAt   atom.Value
}

func init() {
	atom.Register(rootObjectClassName, func() atom.Atom { return &rootObjectAtom{} })
}

func (r *rootObjectAtom) ClassName() string { return rootObjectClassName }

func (r *rootObjectAtom) Fields() []atom.Field {
	return []atom.Field{
		{Name: "object_root", Value: r.objectRoot},
		{Name: "literal_root", Value: r.literalRoot},
		{Name: "created_at", Value: r.createdAt},
	}
}

func (r *rootObjectAtom) LoadFields(fields map[string]atom.Value) error {
	r.objectRoot = fields["object_root"]
	r.literalRoot = fields["literal_root"]
	r.createdAt = fields["created_at"]
	return nil
}

// RootObject is one entry of the root-history list: a snapshot of every
// database's root dict plus the literal pool's persisted state, at the
// moment some commit (or database create/remove/rename) produced it.
type RootObject struct {
	objectRoot  *ordered.Dict
	literalRoot *ordered.Dict
	createdAt   time.Time
	root        *rootObjectAtom // cached atom instance, so Pointer() reflects the last Save
}

// EmptyRootObject is the root object a space that has never committed
// starts from: no databases, no interned literals.
func EmptyRootObject() *RootObject {
	objectRoot := ordered.Empty(nil, "", "")
	literalRoot := ordered.Empty(nil, "", "")
	createdAt := time.Now().UTC()
	return &RootObject{
		objectRoot:  objectRoot,
		literalRoot: literalRoot,
		createdAt:   createdAt,
		root:        newRootObjectAtom(objectRoot, literalRoot, createdAt),
	}
}

func newRootObjectAtom(objectRoot, literalRoot *ordered.Dict, createdAt time.Time) *rootObjectAtom {
	return &rootObjectAtom{
		objectRoot:  objectRoot.AsValue(),
		literalRoot: literalRoot.AsValue(),
		createdAt:   atom.Time(createdAt),
	}
}

// RootObjectFromValue resolves v (a list element of the root-history list)
// into a RootObject.
func RootObjectFromValue(v atom.Value) (*RootObject, error) {
	a, err := v.Resolve()
	if err != nil {
		return nil, err
	}
	root, ok := a.(*rootObjectAtom)
	if !ok {
		return nil, protoerr.CorruptionErrorf("expected root object, got %T", a)
	}
	objectRoot, err := ordered.FromValue(root.objectRoot, nil, "", "")
	if err != nil {
		return nil, err
	}
	literalRoot, err := ordered.FromValue(root.literalRoot, nil, "", "")
	if err != nil {
		return nil, err
	}
	return &RootObject{
		objectRoot:  objectRoot,
		literalRoot: literalRoot,
		createdAt:   root.createdAt.Stamp,
		root:        root,
	}, nil
}

// AsValue wraps this root object for insertion as a root-history list
// element.
func (ro *RootObject) AsValue() atom.Value { return atom.FromAtom(ro.root) }

// Pointer returns this root object's own pointer, or the zero Pointer if it
// has never been saved.
func (ro *RootObject) Pointer() atom.Pointer { return ro.root.Pointer() }

// ObjectRoot is the database-name -> database-root-dict mapping.
func (ro *RootObject) ObjectRoot() *ordered.Dict { return ro.objectRoot }

// LiteralRoot is the interned-text -> saved-Literal mapping.
func (ro *RootObject) LiteralRoot() *ordered.Dict { return ro.literalRoot }

// CreatedAt is the moment this root object was built, usable by history
// queries walking the root-history list.
func (ro *RootObject) CreatedAt() time.Time { return ro.createdAt }

// WithObjectRoot returns a new RootObject carrying a replacement object
// root, the same literal root, and a fresh created_at (it marks the moment
// this replacement was built, for root-history queries).
func (ro *RootObject) WithObjectRoot(d *ordered.Dict) *RootObject {
	createdAt := time.Now().UTC()
	return &RootObject{
		objectRoot:  d,
		literalRoot: ro.literalRoot,
		createdAt:   createdAt,
		root:        newRootObjectAtom(d, ro.literalRoot, createdAt),
	}
}

// WithLiteralRoot returns a new RootObject carrying a replacement literal
// root, the same object root, and a fresh created_at.
func (ro *RootObject) WithLiteralRoot(d *ordered.Dict) *RootObject {
	createdAt := time.Now().UTC()
	return &RootObject{
		objectRoot:  ro.objectRoot,
		literalRoot: d,
		createdAt:   createdAt,
		root:        newRootObjectAtom(ro.objectRoot, d, createdAt),
	}
}

// Save persists the object-root dict, the literal-root dict, and the
// bundling root-object atom itself, onto the same cached atom instance
// Pointer() reads from.
func (ro *RootObject) Save(w atom.Writer, pool *atom.Pool) (atom.Pointer, error) {
	if _, err := ro.objectRoot.Save(w, pool); err != nil {
		return atom.Pointer{}, err
	}
	if _, err := ro.literalRoot.Save(w, pool); err != nil {
		return atom.Pointer{}, err
	}
	ro.root.objectRoot = ro.objectRoot.AsValue()
	ro.root.literalRoot = ro.literalRoot.AsValue()
	ro.root.createdAt = atom.Time(ro.createdAt)
	return atom.Save(ro.root, w, pool)
}
