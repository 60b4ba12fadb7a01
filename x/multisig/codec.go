package multisig

import (
	"encoding/binary"

	"github.com/custodix/vault"
	"github.com/custodix/vault/errors"
)

const fingerprintLength = 32

// opSize is the fixed serialized length of an Op. Unused approver slots are
// zero-filled so the length never depends on contents.
const opSize = 2 + // required, approver count
	MaxApprovers*vault.AddressLength + // approver snapshot
	MaxApprovers + // votes
	8 + 8 + // started at, expires at
	fingerprintLength +
	2*vault.AddressLength // initiator, rent return

// Size returns the fixed encoded length of an operation record.
func (o *Op) Size() int { return opSize }

func (o *Op) Marshal() ([]byte, error) {
	raw := make([]byte, opSize)
	raw[0] = o.Required
	raw[1] = byte(len(o.Approvers))
	off := 2
	for _, a := range o.Approvers {
		copy(raw[off:off+vault.AddressLength], a)
		off += vault.AddressLength
	}
	off = 2 + MaxApprovers*vault.AddressLength
	for i, v := range o.Votes {
		raw[off+i] = byte(v)
	}
	off += MaxApprovers
	binary.BigEndian.PutUint64(raw[off:], uint64(o.StartedAt))
	binary.BigEndian.PutUint64(raw[off+8:], uint64(o.ExpiresAt))
	off += 16
	copy(raw[off:off+fingerprintLength], o.Fingerprint)
	off += fingerprintLength
	copy(raw[off:off+vault.AddressLength], o.Initiator)
	off += vault.AddressLength
	copy(raw[off:off+vault.AddressLength], o.RentReturn)
	return raw, nil
}

func (o *Op) Unmarshal(raw []byte) error {
	if len(raw) != opSize {
		return errors.Wrapf(errors.ErrModel,
			"operation must be %d bytes, got %d", opSize, len(raw))
	}
	o.Required = raw[0]
	n := int(raw[1])
	if n > MaxApprovers {
		return errors.Wrapf(errors.ErrModel, "%d approvers stored", n)
	}
	o.Approvers = make([]vault.Address, n)
	off := 2
	for i := 0; i < n; i++ {
		a := make(vault.Address, vault.AddressLength)
		copy(a, raw[off:off+vault.AddressLength])
		o.Approvers[i] = a
		off += vault.AddressLength
	}
	off = 2 + MaxApprovers*vault.AddressLength
	o.Votes = make([]Disposition, n)
	for i := 0; i < n; i++ {
		o.Votes[i] = Disposition(raw[off+i])
	}
	off += MaxApprovers
	o.StartedAt = vault.UnixTime(binary.BigEndian.Uint64(raw[off:]))
	o.ExpiresAt = vault.UnixTime(binary.BigEndian.Uint64(raw[off+8:]))
	off += 16
	o.Fingerprint = make([]byte, fingerprintLength)
	copy(o.Fingerprint, raw[off:off+fingerprintLength])
	off += fingerprintLength
	o.Initiator = make(vault.Address, vault.AddressLength)
	copy(o.Initiator, raw[off:off+vault.AddressLength])
	off += vault.AddressLength
	o.RentReturn = make(vault.Address, vault.AddressLength)
	copy(o.RentReturn, raw[off:off+vault.AddressLength])
	return nil
}
