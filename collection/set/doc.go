/*
Package set implements the persistent, content-addressed set (C7) and its
counted-set sibling: collections keyed by value rather than by position or
rank.

Set buckets members by stable_hash_32 into collision chains (package-local
chainNode atoms, each its own pointer, paged the same way collection/list
and collection/hashdict page their trees). An atom that has never been saved
cannot be hashed stably yet — its pointer is part of the hash input — so it
lives in a staged slice until Save promotes it. Every Add/Remove also
appends to an in-memory operation log; ConcurrentUpdate replays that log
over a newer base Set, the rebase a commit needs when it discovers a
competing transaction advanced the root a set was derived from.

CountedSet tracks occurrence counts rather than membership: four backing
ordered.Dict values (items, counts, and their staged counterparts) bundled
into one countedSetRoot atom, the same AsValue/FromValue composite-atom
pattern a transaction's root object uses to bundle multiple collection
roots into a single saved atom.
*/
package set
