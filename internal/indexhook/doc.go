/*
Package indexhook implements the secondary-index notification hooks the
persistent collections call at the transitions the spec documents:

  - list/dictionary insert and remove (add_to_indexes / remove_from_indexes)
  - set/counted-set 0->1 and 1->0 membership-count transitions

The spec explicitly leaves index behavior undesigned ("implementations must
call add_to_indexes/remove_from_indexes at the documented transition points
but may leave the set empty"). protobase implements the hooks as a small
in-memory pub/sub Bus so collections stay index-agnostic: a *Bus field on a
collection may be nil, in which case Fire is a no-op.

BoltIndex is one concrete subscriber, backed by go.etcd.io/bbolt, that turns
the hook stream into a real on-disk membership index. It is entirely optional
and lives outside the collection algorithms themselves.
*/
package indexhook
