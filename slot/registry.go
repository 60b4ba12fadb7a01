package slot

import (
	"bytes"

	"github.com/custodix/vault/errors"
)

// ID is a stable identifier of a registry slot. It stays valid for as long
// as the slot holds the same item.
type ID uint8

// MaxCapacity bounds every registry so that an ID always fits a single byte
// in serialized form.
const MaxCapacity = 255

// Registry is a fixed-capacity collection of equal-length items. Lookup is
// a linear equality scan; capacities are tens of entries, so O(capacity) is
// cheaper than maintaining any index over fixed-size binary storage.
type Registry struct {
	itemLen int
	slots   [][]byte // nil entry = free slot
}

// NewRegistry returns an empty registry. Panics on a nonsensical capacity or
// item length, which is fine as registries are only declared with constant
// dimensions.
func NewRegistry(capacity, itemLen int) *Registry {
	if capacity < 1 || capacity > MaxCapacity {
		panic("registry capacity out of range")
	}
	if itemLen < 1 {
		panic("registry item length out of range")
	}
	return &Registry{
		itemLen: itemLen,
		slots:   make([][]byte, capacity),
	}
}

// Capacity returns the total number of slots.
func (r *Registry) Capacity() int {
	return len(r.slots)
}

// ItemLen returns the byte length every stored item must have.
func (r *Registry) ItemLen() int {
	return r.itemLen
}

// Live returns the number of occupied slots.
func (r *Registry) Live() int {
	var n int
	for _, s := range r.slots {
		if s != nil {
			n++
		}
	}
	return n
}

// FreeCount returns the number of free slots.
func (r *Registry) FreeCount() int {
	return r.Capacity() - r.Live()
}

// Get returns the item stored in the given slot, or nil if the slot is free
// or out of range.
func (r *Registry) Get(id ID) []byte {
	if int(id) >= len(r.slots) {
		return nil
	}
	return r.slots[id]
}

// InsertMany stores all given items, assigning each one the lowest-numbered
// free slot in input order. If there are fewer free slots than items, it
// fails with ErrCapacity and the registry is left unchanged. Callers locate
// the assigned slots via FindSlot, not via insertion order.
func (r *Registry) InsertMany(items [][]byte) error {
	for _, item := range items {
		if err := r.validItem(item); err != nil {
			return err
		}
	}
	if r.FreeCount() < len(items) {
		return errors.Wrapf(errors.ErrCapacity,
			"%d items, %d free slots", len(items), r.FreeCount())
	}
	next := 0
	for _, item := range items {
		for r.slots[next] != nil {
			next++
		}
		cpy := make([]byte, len(item))
		copy(cpy, item)
		r.slots[next] = cpy
	}
	return nil
}

// RemoveMany clears every slot holding one of the given items and returns
// the freed slot ids, so dependent bit sets can drop their memberships in
// the same mutation. Removing an absent item is a no-op for that item.
func (r *Registry) RemoveMany(items [][]byte) []ID {
	var freed []ID
	for i, s := range r.slots {
		if s == nil {
			continue
		}
		for _, item := range items {
			if bytes.Equal(s, item) {
				r.slots[i] = nil
				freed = append(freed, ID(i))
				break
			}
		}
	}
	return freed
}

// FindSlot returns the slot holding an item equal to the given one.
func (r *Registry) FindSlot(item []byte) (ID, bool) {
	for i, s := range r.slots {
		if s != nil && bytes.Equal(s, item) {
			return ID(i), true
		}
	}
	return 0, false
}

// FindSlots returns the slots of all live items equal to any of the given
// ones. Items that resolve to no slot are silently skipped; callers that
// require full resolution compare the result length with the input length.
func (r *Registry) FindSlots(items [][]byte) []ID {
	var found []ID
	for i, s := range r.slots {
		if s == nil {
			continue
		}
		for _, item := range items {
			if bytes.Equal(s, item) {
				found = append(found, ID(i))
				break
			}
		}
	}
	return found
}

// Clone returns a deep, independent copy of the registry.
func (r *Registry) Clone() *Registry {
	cpy := &Registry{
		itemLen: r.itemLen,
		slots:   make([][]byte, len(r.slots)),
	}
	for i, s := range r.slots {
		if s == nil {
			continue
		}
		item := make([]byte, len(s))
		copy(item, s)
		cpy.slots[i] = item
	}
	return cpy
}

// EncodedLen returns the fixed serialized size: every slot takes itemLen
// bytes, free slots are zero-filled.
func (r *Registry) EncodedLen() int {
	return len(r.slots) * r.itemLen
}

// WriteTo serializes the registry into dst, which must be exactly EncodedLen
// bytes.
func (r *Registry) WriteTo(dst []byte) error {
	if len(dst) != r.EncodedLen() {
		return errors.Wrapf(errors.ErrModel,
			"registry needs %d bytes, got %d", r.EncodedLen(), len(dst))
	}
	for i := range dst {
		dst[i] = 0
	}
	for i, s := range r.slots {
		if s != nil {
			copy(dst[i*r.itemLen:], s)
		}
	}
	return nil
}

// ReadFrom restores the registry from its serialized form. An all-zero chunk
// marks a free slot, which is why all-zero items are rejected on insert.
func (r *Registry) ReadFrom(src []byte) error {
	if len(src) != r.EncodedLen() {
		return errors.Wrapf(errors.ErrModel,
			"registry needs %d bytes, got %d", r.EncodedLen(), len(src))
	}
	for i := range r.slots {
		chunk := src[i*r.itemLen : (i+1)*r.itemLen]
		if isZero(chunk) {
			r.slots[i] = nil
			continue
		}
		item := make([]byte, r.itemLen)
		copy(item, chunk)
		r.slots[i] = item
	}
	return nil
}

func (r *Registry) validItem(item []byte) error {
	if len(item) != r.itemLen {
		return errors.Wrapf(errors.ErrInput,
			"item must be %d bytes, got %d", r.itemLen, len(item))
	}
	if isZero(item) {
		// the zero item is the serialized form of a free slot
		return errors.Wrap(errors.ErrInput, "item must not be all zero")
	}
	return nil
}

func isZero(raw []byte) bool {
	for _, b := range raw {
		if b != 0 {
			return false
		}
	}
	return true
}
