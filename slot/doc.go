/*
Package slot implements the two fixed-capacity collections the wallet state
is built from.

Registry is a bounded arena of equal-length items addressed by stable small
integer identifiers (slots). Items keep their slot for their whole lifetime;
removing an item frees its slot for reuse by a later insert. Because the
backing array never grows, a registry always serializes to the same number
of bytes, with free slots zero-filled.

BitSet is a fixed-width bit vector indexed by slot id, used to express
memberships such as "slot X is a config approver" or "slot X is whitelisted
for this account". A bit may only be set for a slot that currently holds a
live registry item; registry removals report the freed slots so that every
dependent bit set can be cleared in the same mutation.
*/
package slot
