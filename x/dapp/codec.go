package dapp

import (
	"github.com/custodix/vault"
	"github.com/custodix/vault/errors"
	"github.com/custodix/vault/x/wallet"
)

// stagedSize is the fixed serialized length of a staged transaction. Every
// instruction slot takes a length byte plus a zero-filled payload buffer; a
// zero length byte marks an unfilled slot.
const stagedSize = wallet.HashLength +
	vault.AddressLength +
	1 + // declared count
	MaxInstructions*(1+MaxInstructionLen)

// Size returns the fixed encoded length of a staged transaction record.
func (tx *StagedTx) Size() int { return stagedSize }

func (tx *StagedTx) Marshal() ([]byte, error) {
	raw := make([]byte, stagedSize)
	off := 0
	copy(raw[off:off+wallet.HashLength], tx.GUIDHash)
	off += wallet.HashLength
	copy(raw[off:off+vault.AddressLength], tx.Target)
	off += vault.AddressLength
	raw[off] = byte(len(tx.Instructions))
	off++
	for i, ins := range tx.Instructions {
		slot := raw[off+i*(1+MaxInstructionLen):]
		slot[0] = byte(len(ins))
		copy(slot[1:1+MaxInstructionLen], ins)
	}
	return raw, nil
}

func (tx *StagedTx) Unmarshal(raw []byte) error {
	if len(raw) != stagedSize {
		return errors.Wrapf(errors.ErrModel,
			"staged transaction must be %d bytes, got %d", stagedSize, len(raw))
	}
	off := 0
	tx.GUIDHash = make([]byte, wallet.HashLength)
	copy(tx.GUIDHash, raw[off:off+wallet.HashLength])
	off += wallet.HashLength
	tx.Target = make(vault.Address, vault.AddressLength)
	copy(tx.Target, raw[off:off+vault.AddressLength])
	off += vault.AddressLength
	n := int(raw[off])
	off++
	if n == 0 || n > MaxInstructions {
		return errors.Wrapf(errors.ErrModel, "%d instructions declared", n)
	}
	tx.Instructions = make([][]byte, n)
	for i := 0; i < n; i++ {
		slot := raw[off+i*(1+MaxInstructionLen):]
		l := int(slot[0])
		if l == 0 {
			continue
		}
		ins := make([]byte, l)
		copy(ins, slot[1:1+l])
		tx.Instructions[i] = ins
	}
	return nil
}
