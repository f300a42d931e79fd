/*
Package list implements the persistent list described in spec §4.3 (C4): an
AVL tree balanced by subtree height, whose nodes also record their subtree
size, so GetAt/InsertAt/RemoveAt navigate by rank (the count of nodes in a
subtree) instead of key comparison. Every mutation returns a new *List; unaffected subtrees are
shared structurally with the original, the same techniques a persistent
rope or order-statistics tree uses.

Each tree node is itself an atom (protobase.list_node) with its own pointer,
so large lists are paged onto disk node-by-node rather than as one
monolithic blob: touching index 0 of a million-element list only loads the
O(log n) nodes on the path to it.
*/
package list
