package ordered

import (
	"bytes"
	"strings"

	"github.com/cuemby/protobase/atom"
	"github.com/cuemby/protobase/internal/protoerr"
)

// orderGroup assigns each Value kind a total order across types: nil,
// booleans, numbers (compared as arbitrary-precision decimals), strings,
// byte blobs, timestamps, then durations. Two keys from different groups
// never compare equal even if one coerces to the other numerically.
func orderGroup(v atom.Value) int {
	switch v.Kind {
	case atom.KindNil:
		return 0
	case atom.KindBool:
		return 1
	case atom.KindNumber:
		return 2
	case atom.KindString, atom.KindRawString:
		return 3
	case atom.KindBytes:
		return 4
	case atom.KindTime:
		return 5
	case atom.KindDuration:
		return 6
	default:
		return 7
	}
}

// compareOrderKey implements the dictionary's order_key comparison: a
// strict weak ordering across the cross-type groups above, exact
// within-group comparison for each. A key that references a literal atom
// (a string key decoded off disk) compares as a string with its text.
func compareOrderKey(a, b atom.Value) (int, error) {
	for _, k := range []*atom.Value{&a, &b} {
		if k.Kind != atom.KindRef && k.Kind != atom.KindAtom {
			continue
		}
		n, err := k.Resolve()
		if err != nil {
			return 0, err
		}
		if lit, ok := n.(*atom.Literal); ok {
			*k = atom.RawStr(lit.Content)
		}
	}
	ga, gb := orderGroup(a), orderGroup(b)
	if ga != gb {
		return ga - gb, nil
	}
	switch a.Kind {
	case atom.KindNil:
		return 0, nil
	case atom.KindBool:
		switch {
		case a.Bool == b.Bool:
			return 0, nil
		case !a.Bool:
			return -1, nil
		default:
			return 1, nil
		}
	case atom.KindNumber:
		ad, ok1 := a.AsDecimal()
		bd, ok2 := b.AsDecimal()
		if !ok1 || !ok2 {
			return 0, protoerr.CorruptionErrorf("invalid number key")
		}
		return ad.Cmp(bd), nil
	case atom.KindString, atom.KindRawString:
		return strings.Compare(a.Text, b.Text), nil
	case atom.KindBytes:
		return bytes.Compare(a.Blob, b.Blob), nil
	case atom.KindTime:
		switch {
		case a.Stamp.Before(b.Stamp):
			return -1, nil
		case a.Stamp.After(b.Stamp):
			return 1, nil
		default:
			return 0, nil
		}
	case atom.KindDuration:
		return int(a.Span - b.Span), nil
	default:
		return 0, protoerr.ValidationErrorf("value kind %d cannot be used as a dictionary key", a.Kind)
	}
}
