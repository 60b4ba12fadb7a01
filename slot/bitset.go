package slot

import (
	"bytes"

	"github.com/custodix/vault/errors"
)

// BitSet is a fixed-width bit vector indexed by slot id. Width is the
// capacity of the registry it refers to; the serialized size never changes.
// Bits are stored least significant first within each byte, so bit i lives
// at raw[i/8]&(1<<(i%8)).
type BitSet struct {
	width int
	raw   []byte
}

// NewBitSet returns an all-zero bit set of the given width. Panics on a
// nonsensical width, which is fine as widths are compile-time constants
// matching registry capacities.
func NewBitSet(width int) *BitSet {
	if width < 1 || width > MaxCapacity {
		panic("bitset width out of range")
	}
	return &BitSet{
		width: width,
		raw:   make([]byte, (width+7)/8),
	}
}

// Width returns the number of addressable bits.
func (b *BitSet) Width() int {
	return b.width
}

// Set marks the given slot as a member. Panics when the id is outside the
// width, as ids are produced by a registry of matching capacity.
func (b *BitSet) Set(id ID) {
	b.assertRange(id)
	b.raw[id/8] |= 1 << (id % 8)
}

// Clear removes the given slot from the membership.
func (b *BitSet) Clear(id ID) {
	b.assertRange(id)
	b.raw[id/8] &^= 1 << (id % 8)
}

// Has returns true if the given slot is a member.
func (b *BitSet) Has(id ID) bool {
	b.assertRange(id)
	return b.raw[id/8]&(1<<(id%8)) != 0
}

// Count returns the number of member slots.
func (b *BitSet) Count() int {
	var n int
	for i := 0; i < b.width; i++ {
		if b.raw[i/8]&(1<<(i%8)) != 0 {
			n++
		}
	}
	return n
}

// Ones returns all member slot ids in ascending order.
func (b *BitSet) Ones() []ID {
	var ids []ID
	for i := 0; i < b.width; i++ {
		if b.raw[i/8]&(1<<(i%8)) != 0 {
			ids = append(ids, ID(i))
		}
	}
	return ids
}

// Equals returns true if both bit sets have the same width and members.
func (b *BitSet) Equals(other *BitSet) bool {
	return b.width == other.width && bytes.Equal(b.raw, other.raw)
}

// Clone returns an independent copy of the bit set.
func (b *BitSet) Clone() *BitSet {
	raw := make([]byte, len(b.raw))
	copy(raw, b.raw)
	return &BitSet{width: b.width, raw: raw}
}

// EncodedLen returns the fixed serialized size in bytes.
func (b *BitSet) EncodedLen() int {
	return len(b.raw)
}

// WriteTo serializes the bit set into dst, which must be exactly EncodedLen
// bytes.
func (b *BitSet) WriteTo(dst []byte) error {
	if len(dst) != len(b.raw) {
		return errors.Wrapf(errors.ErrModel,
			"bitset needs %d bytes, got %d", len(b.raw), len(dst))
	}
	copy(dst, b.raw)
	return nil
}

// ReadFrom restores the bit set from its serialized form.
func (b *BitSet) ReadFrom(src []byte) error {
	if len(src) != len(b.raw) {
		return errors.Wrapf(errors.ErrModel,
			"bitset needs %d bytes, got %d", len(b.raw), len(src))
	}
	copy(b.raw, src)
	return nil
}

func (b *BitSet) assertRange(id ID) {
	if int(id) >= b.width {
		panic("slot id outside of bitset width")
	}
}
