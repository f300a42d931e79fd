package atom

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/cuemby/protobase/internal/protoerr"
)

const classNameKey = "className"

type refEnvelope struct {
	ClassName     string `json:"className"`
	TransactionID string `json:"transaction_id"`
	Offset        uint64 `json:"offset"`
}

type timeEnvelope struct {
	ClassName string `json:"className"`
	ISO       string `json:"iso"`
}

type durationEnvelope struct {
	ClassName    string `json:"className"`
	Microseconds int64  `json:"microseconds"`
}

const (
	classDatetime  = "datetime.datetime"
	classTimedelta = "datetime.timedelta"
)

// Writer is the append-only sink Save writes atom records to.
type Writer interface {
	NextPointer() Pointer
	PushBytes(payload []byte) (Pointer, error)
}

// encodeValue renders v as the json.RawMessage a field takes in the wire
// record. Saving a nested atom (directly or via the literal pool) may
// recursively append further records to w before this value's envelope can
// be written.
func encodeValue(v Value, w Writer, pool *Pool) (json.RawMessage, error) {
	switch v.Kind {
	case KindNil:
		return json.RawMessage("null"), nil
	case KindBool:
		if v.Bool {
			return json.RawMessage("true"), nil
		}
		return json.RawMessage("false"), nil
	case KindNumber:
		if v.Num == "" {
			return json.RawMessage("0"), nil
		}
		return json.RawMessage(v.Num), nil
	case KindRawString:
		return json.Marshal(v.Text)
	case KindBytes:
		return json.Marshal(base64.StdEncoding.EncodeToString(v.Blob))
	case KindTime:
		return json.Marshal(timeEnvelope{ClassName: classDatetime, ISO: v.Stamp.UTC().Format(time.RFC3339Nano)})
	case KindDuration:
		return json.Marshal(durationEnvelope{ClassName: classTimedelta, Microseconds: v.Span.Microseconds()})
	case KindString:
		lit := pool.Intern(v.Text)
		ptr, err := Save(lit, w, pool)
		if err != nil {
			return nil, err
		}
		return json.Marshal(refEnvelope{ClassName: lit.ClassName(), TransactionID: ptr.StreamID, Offset: ptr.Offset})
	case KindAtom:
		if v.Nested == nil {
			return json.RawMessage("null"), nil
		}
		ptr, err := Save(v.Nested, w, pool)
		if err != nil {
			return nil, err
		}
		return json.Marshal(refEnvelope{ClassName: v.Nested.ClassName(), TransactionID: ptr.StreamID, Offset: ptr.Offset})
	case KindRef:
		if v.refPtr.IsZero() {
			return json.RawMessage("null"), nil
		}
		return json.Marshal(refEnvelope{ClassName: v.refClass, TransactionID: v.refPtr.StreamID, Offset: v.refPtr.Offset})
	default:
		return nil, protoerr.CorruptionErrorf("unknown value kind %d", v.Kind)
	}
}

// decodeValue parses one field's raw JSON into a Value. Nested atom
// references, including literal references for string fields, are left
// unresolved (KindRef); callers resolve them lazily via Value.Resolve or
// ResolveString. An inline JSON string decodes as a raw string; when its
// text is valid base-64, the decoded bytes are also placed in Blob, so a
// field saved from Bytes reads back through Blob.
func decodeValue(raw json.RawMessage, ld *Loader) (Value, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return Nil(), nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, protoerr.CorruptionErrorf("decode string field: %v", err)
		}
		v := RawStr(s)
		if blob, err := base64.StdEncoding.DecodeString(s); err == nil {
			v.Blob = blob
		}
		return v, nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return Value{}, protoerr.CorruptionErrorf("decode bool field: %v", err)
		}
		return Bool(b), nil
	case '{':
		var probe struct {
			ClassName string `json:"className"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			return Value{}, protoerr.CorruptionErrorf("decode envelope: %v", err)
		}
		switch probe.ClassName {
		case classDatetime:
			var env timeEnvelope
			if err := json.Unmarshal(raw, &env); err != nil {
				return Value{}, protoerr.CorruptionErrorf("decode datetime envelope: %v", err)
			}
			t, err := time.Parse(time.RFC3339Nano, env.ISO)
			if err != nil {
				return Value{}, protoerr.CorruptionErrorf("parse datetime %q: %v", env.ISO, err)
			}
			return Time(t), nil
		case classTimedelta:
			var env durationEnvelope
			if err := json.Unmarshal(raw, &env); err != nil {
				return Value{}, protoerr.CorruptionErrorf("decode timedelta envelope: %v", err)
			}
			return Dur(time.Duration(env.Microseconds) * time.Microsecond), nil
		case "":
			return Value{}, protoerr.CorruptionErrorf("envelope missing className")
		default:
			var env refEnvelope
			if err := json.Unmarshal(raw, &env); err != nil {
				return Value{}, protoerr.CorruptionErrorf("decode atom ref: %v", err)
			}
			ptr := Pointer{StreamID: env.TransactionID, Offset: env.Offset}
			return ref(ptr, env.ClassName, ld), nil
		}
	default:
		return Value{Kind: KindNumber, Num: string(raw)}, nil
	}
}

// decodeRecord parses a full on-disk atom record at ptr, constructs the
// concrete atom via the Registry, and populates it via LoadFields.
func decodeRecord(raw []byte, ptr Pointer, ld *Loader) (Atom, error) {
	var fieldsRaw map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fieldsRaw); err != nil {
		return nil, protoerr.CorruptionErrorf("decode atom record at %s: %v", ptr, err)
	}
	classRaw, ok := fieldsRaw[classNameKey]
	if !ok {
		return nil, protoerr.CorruptionErrorf("atom record at %s missing className", ptr)
	}
	var className string
	if err := json.Unmarshal(classRaw, &className); err != nil {
		return nil, protoerr.CorruptionErrorf("atom record at %s has invalid className: %v", ptr, err)
	}
	delete(fieldsRaw, classNameKey)

	ctor, ok := lookup(className)
	if !ok {
		return nil, protoerr.CorruptionErrorf("no registered atom class %q", className)
	}
	a := ctor()
	a.setPointer(ptr)

	fields := make(map[string]Value, len(fieldsRaw))
	for name, raw := range fieldsRaw {
		v, err := decodeValue(raw, ld)
		if err != nil {
			return nil, protoerr.CorruptionErrorf("atom record at %s field %q: %v", ptr, name, err)
		}
		fields[name] = v
	}
	if err := a.LoadFields(fields); err != nil {
		return nil, err
	}
	return a, nil
}
