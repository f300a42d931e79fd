package atom

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cuemby/protobase/internal/protoerr"
)

// Kind tags the variant a Value holds.
type Kind int

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindString
	KindRawString
	KindBytes
	KindTime
	KindDuration
	KindAtom // already-resolved, in-memory atom reference
	KindRef  // not-yet-resolved pointer reference, resolved lazily via Resolve
)

// Value is the tagged union every atom field, list element, and dictionary
// key/value is built from. Numbers carry their canonical decimal text so
// integers round-trip exactly and the ordered dictionary's number group
// never goes through float64 comparison.
type Value struct {
	Kind   Kind
	Bool   bool
	Num    string
	Text   string
	Blob   []byte
	Stamp  time.Time
	Span   time.Duration
	Nested Atom

	refPtr   Pointer
	refClass string
	loader   *Loader
}

// Nil is the empty Value, used for an unset field or an empty child slot.
func Nil() Value { return Value{Kind: KindNil} }

// Bool wraps a boolean field.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Int wraps a signed integer as a canonical-decimal number Value.
func Int(i int64) Value { return Value{Kind: KindNumber, Num: strconv.FormatInt(i, 10)} }

// Float wraps a float64 as a canonical-decimal number Value.
func Float(f float64) Value {
	return Value{Kind: KindNumber, Num: strconv.FormatFloat(f, 'g', -1, 64)}
}

// Dec wraps an arbitrary-precision decimal as a number Value.
func Dec(d decimal.Decimal) Value { return Value{Kind: KindNumber, Num: d.String()} }

// Str wraps a string field. On save it is interned through the literal pool
// and persisted as a pointer reference, never inlined.
func Str(s string) Value { return Value{Kind: KindString, Text: s} }

// RawStr wraps a string persisted inline as a bare JSON string, with no
// literal-pool indirection. Only the literal atom itself uses this; every
// other atom's string fields go through Str.
func RawStr(s string) Value { return Value{Kind: KindRawString, Text: s} }

// Bytes wraps a byte blob, persisted as a base64 JSON string.
func Bytes(b []byte) Value { return Value{Kind: KindBytes, Blob: b} }

// Time wraps a timestamp, persisted as a datetime.datetime envelope.
func Time(t time.Time) Value { return Value{Kind: KindTime, Stamp: t} }

// Dur wraps a duration, persisted as a datetime.timedelta envelope.
func Dur(d time.Duration) Value { return Value{Kind: KindDuration, Span: d} }

// FromAtom wraps an already-built, possibly-unsaved nested atom reference:
// a child collection node, a nested List/Dict/Set value, or any other
// registered atom type.
func FromAtom(a Atom) Value {
	if a == nil {
		return Nil()
	}
	return Value{Kind: KindAtom, Nested: a}
}

// ref builds an unresolved pointer reference, used only by the decoder.
func ref(ptr Pointer, className string, ld *Loader) Value {
	if ptr.IsZero() {
		return Nil()
	}
	return Value{Kind: KindRef, refPtr: ptr, refClass: className, loader: ld}
}

// IsNil reports whether v is the empty Value.
func (v Value) IsNil() bool { return v.Kind == KindNil }

// AsDecimal parses a number Value as an arbitrary-precision decimal. Only
// valid when v.Kind == KindNumber.
func (v Value) AsDecimal() (decimal.Decimal, bool) {
	if v.Kind != KindNumber {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(v.Num)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// AsInt64 truncates a number Value to int64.
func (v Value) AsInt64() (int64, bool) {
	d, ok := v.AsDecimal()
	if !ok {
		return 0, false
	}
	return d.IntPart(), true
}

// ClassName reports the wire className of a nested/ref Value, or "" if v
// does not carry one.
func (v Value) ClassName() string {
	switch v.Kind {
	case KindAtom:
		if v.Nested == nil {
			return ""
		}
		return v.Nested.ClassName()
	case KindRef:
		return v.refClass
	default:
		return ""
	}
}

// Resolve materializes a KindAtom/KindRef Value into its Atom, loading it
// from disk (through the content cache) on first access. Nil for KindNil.
func (v Value) Resolve() (Atom, error) {
	switch v.Kind {
	case KindNil:
		return nil, nil
	case KindAtom:
		return v.Nested, nil
	case KindRef:
		if v.refPtr.IsZero() {
			return nil, nil
		}
		return v.loader.Load(v.refPtr)
	default:
		return nil, protoerr.CorruptionErrorf("value kind %d is not a nested atom reference", v.Kind)
	}
}

// Pointer returns the on-disk pointer a KindAtom or KindRef value resolves
// to, and whether one has been assigned yet. A KindAtom value wrapping a
// freshly built, not-yet-saved atom reports false.
func (v Value) Pointer() (Pointer, bool) {
	switch v.Kind {
	case KindRef:
		return v.refPtr, true
	case KindAtom:
		if v.Nested == nil {
			return Pointer{}, false
		}
		p := v.Nested.Pointer()
		return p, !p.IsZero()
	default:
		return Pointer{}, false
	}
}

// ResolveString extracts a string from a Value produced by Str (in-memory)
// or decoded off disk as a literal reference.
func ResolveString(v Value) (string, error) {
	switch v.Kind {
	case KindString, KindRawString:
		return v.Text, nil
	case KindNil:
		return "", nil
	case KindAtom, KindRef:
		a, err := v.Resolve()
		if err != nil {
			return "", err
		}
		if a == nil {
			return "", nil
		}
		lit, ok := a.(*Literal)
		if !ok {
			return "", protoerr.CorruptionErrorf("expected literal atom for string field, got %s", a.ClassName())
		}
		return lit.Content, nil
	default:
		return "", protoerr.CorruptionErrorf("value kind %d is not a string", v.Kind)
	}
}

// Equal reports structural equality between two Values. Nested atom
// references compare by pointer when both sides have one, else by identity.
// A literal reference decoded off disk equals a string value with the same
// text.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		if v.Kind == KindRef && (o.Kind == KindString || o.Kind == KindRawString) {
			s, err := ResolveString(v)
			return err == nil && s == o.Text
		}
		if o.Kind == KindRef && (v.Kind == KindString || v.Kind == KindRawString) {
			s, err := ResolveString(o)
			return err == nil && s == v.Text
		}
		return false
	}
	switch v.Kind {
	case KindNil:
		return true
	case KindBool:
		return v.Bool == o.Bool
	case KindNumber:
		vd, vok := v.AsDecimal()
		od, ook := o.AsDecimal()
		if vok && ook {
			return vd.Equal(od)
		}
		return v.Num == o.Num
	case KindString, KindRawString:
		return v.Text == o.Text
	case KindBytes:
		return string(v.Blob) == string(o.Blob)
	case KindTime:
		return v.Stamp.Equal(o.Stamp)
	case KindDuration:
		return v.Span == o.Span
	case KindAtom:
		if v.Nested == nil || o.Nested == nil {
			return v.Nested == o.Nested
		}
		vp, op := v.Nested.Pointer(), o.Nested.Pointer()
		if !vp.IsZero() && !op.IsZero() {
			return vp == op
		}
		return v.Nested == o.Nested
	case KindRef:
		return v.refPtr == o.refPtr
	default:
		return false
	}
}
