package set

import "github.com/cuemby/protobase/atom"

type opKind int

const (
	opAdd opKind = iota
	opRemove
)

// operation is one logged add/remove call. ConcurrentUpdate replays a set's
// op log, in order, over a newer base state to rebase an in-flight set of
// changes without re-deriving them from scratch. A tagged-variant struct
// (rather than a literal closure) keeps the log inspectable for tests and
// immune to capturing a stale receiver.
type operation struct {
	kind  opKind
	value atom.Value
}

func appendOp(log []operation, kind opKind, value atom.Value) []operation {
	out := make([]operation, len(log), len(log)+1)
	copy(out, log)
	return append(out, operation{kind: kind, value: value})
}
