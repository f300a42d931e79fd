package set

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/cuemby/protobase/atom"
	"github.com/cuemby/protobase/internal/protoerr"
)

// stableHash32 computes the 32-bit stable hash a set/counted-set buckets
// elements by: the signed top 4 bytes of sha256(canonicalBytes(v)). A 32-bit
// projection of a 256-bit digest makes collisions expected, not exceptional,
// which is exactly why a bucket holds a chain rather than a single element.
func stableHash32(v atom.Value) (int32, error) {
	data, err := canonicalBytes(v)
	if err != nil {
		return 0, err
	}
	sum := sha256.Sum256(data)
	return int32(binary.BigEndian.Uint32(sum[:4])), nil
}

// canonicalBytes renders v into the byte encoding stableHash32 digests.
func canonicalBytes(v atom.Value) ([]byte, error) {
	switch v.Kind {
	case atom.KindNil:
		return []byte("nil:"), nil
	case atom.KindAtom, atom.KindRef:
		if ptr, ok := v.Pointer(); ok {
			return []byte(fmt.Sprintf("atom:%s,%d", ptr.StreamID, ptr.Offset)), nil
		}
		if v.Kind == atom.KindAtom && v.Nested != nil {
			// No pointer yet: fall back to this process's identity for the
			// in-memory object. Only ever reached for a staged element that
			// has not yet been promoted by Set.Save.
			return []byte(fmt.Sprintf("identity:%p", v.Nested)), nil
		}
		return []byte("nil:"), nil
	case atom.KindString, atom.KindRawString:
		return []byte(v.Text), nil
	case atom.KindBool:
		return []byte(fmt.Sprintf("bool:%t", v.Bool)), nil
	case atom.KindNumber:
		return []byte(fmt.Sprintf("number:%s", v.Num)), nil
	case atom.KindBytes:
		return append([]byte("bytes:"), v.Blob...), nil
	case atom.KindTime:
		return []byte(fmt.Sprintf("time:%s", v.Stamp.Format(time.RFC3339Nano))), nil
	case atom.KindDuration:
		return []byte(fmt.Sprintf("duration:%s", v.Span)), nil
	default:
		return nil, protoerr.CorruptionErrorf("value kind %d cannot be stable-hashed", v.Kind)
	}
}

// isUnpointedAtom reports whether v wraps an in-memory atom that has never
// been saved, the case Set.Add routes to the staged list instead of hashing.
func isUnpointedAtom(v atom.Value) bool {
	if v.Kind != atom.KindAtom || v.Nested == nil {
		return false
	}
	return v.Nested.Pointer().IsZero()
}
