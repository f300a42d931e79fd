// Package atom implements the atom serialization and lazy-materialization
// protocol: every persisted value is a Pointer-addressed, JSON-encoded block
// that may reference other atoms by pointer, plus the literal pool that
// backs ordinary string fields.
package atom

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/cuemby/protobase/internal/protoerr"
)

// Pointer names the record holding one atom's serialized bytes: a
// (stream_id, offset) pair. StreamID identifies the append-only write
// stream (in practice, one per backing file, recovered from its root slot
// on reopen); Offset is the byte position of
// the record's length prefix within that stream.
type Pointer struct {
	StreamID string
	Offset   uint64
}

// IsZero reports whether p names no record, the sentinel used for "this
// slot holds no atom" (an empty list tail, an unset root, and so on).
func (p Pointer) IsZero() bool { return p.StreamID == "" }

// String renders p in the "<stream_id>,<offset>" text form used by the
// page store's root slot.
func (p Pointer) String() string {
	if p.IsZero() {
		return ""
	}
	return p.StreamID + "," + strconv.FormatUint(p.Offset, 10)
}

// ParsePointer parses the root-slot text format. Empty text (after
// stripping the slot's NUL padding) means "no root yet" and returns the
// zero Pointer with no error.
func ParsePointer(text string) (Pointer, error) {
	text = strings.TrimRight(text, "\x00")
	text = strings.TrimSpace(text)
	if text == "" {
		return Pointer{}, nil
	}
	idx := strings.LastIndexByte(text, ',')
	if idx < 0 {
		return Pointer{}, protoerr.CorruptionErrorf("invalid root pointer text %q", text)
	}
	streamID, offsetText := text[:idx], text[idx+1:]
	offset, err := strconv.ParseUint(offsetText, 10, 64)
	if err != nil {
		return Pointer{}, protoerr.CorruptionErrorf("invalid root pointer offset %q", offsetText)
	}
	if streamID == "" {
		return Pointer{}, protoerr.CorruptionErrorf("invalid root pointer stream id in %q", text)
	}
	return Pointer{StreamID: streamID, Offset: offset}, nil
}

// NewStreamID returns a fresh stream identifier for a newly created store.
func NewStreamID() string {
	return uuid.NewString()
}
