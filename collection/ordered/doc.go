/*
Package ordered implements the persistent ordered dictionary from spec §4.4
(C5). Entries are stored as (key, value) pairs in a collection/list kept
sorted by order_key, a cross-type comparison that groups keys by kind (nil,
bool, number, string, bytes, time, duration) before comparing within a
group, so a dictionary may mix key types without a panic or an arbitrary
tiebreak. find_index binary-searches that sequence; Set and Delete then
InsertAt/RemoveAt at the located position.
*/
package ordered
