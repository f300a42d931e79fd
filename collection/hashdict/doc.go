/*
Package hashdict implements the persistent dictionary keyed by a stable
int32 hash (C6): an AVL tree ordered by key rather than by insertion position
or rank, with get_first/get_last walking to the leftmost/rightmost node.

Each tree node is its own atom (protobase.hashdict_node) with its own
pointer, paged onto disk node-by-node the same way collection/list pages its
rank tree. collection/set builds its collision-chain storage and counted-set
bookkeeping on top of this dictionary rather than inventing a third tree.
*/
package hashdict
