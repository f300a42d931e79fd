/*
Package objectspace ties the paged store, the atom loader/cache, the
literal pool, and the root-history list together into the one mutable
current-root pointer an open backing file exposes (C8's storage half).

Everything a database create/remove/rename or a transaction commit does
boils down to the same three steps under the space lock: read the current
root object, build a replacement, and CommitRootObject it — which saves the
replacement, prepends it to the root-history list (collection/list), and
swings the store's root slot to the new history head. Package txn builds the
transaction lifecycle (begin/read/write/commit/abort) on top of this.
*/
package objectspace
