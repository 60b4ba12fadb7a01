package dapp

import (
	"crypto/sha256"

	"github.com/custodix/vault"
	"github.com/custodix/vault/errors"
	"github.com/custodix/vault/orm"
	"github.com/custodix/vault/x/wallet"
)

const (
	// MaxInstructions bounds the declared instruction count of one staged
	// transaction.
	MaxInstructions = 8
	// MaxInstructionLen bounds a single instruction payload so a staged
	// record keeps a fixed byte length.
	MaxInstructionLen = 255
)

// Fingerprint tags keep the placeholder commitment and the structural hash
// in distinct domains.
const (
	tagPlaceholder byte = 0x01
	tagStructural  byte = 0x02
)

// StagedTx accumulates the instruction payloads of one external call. Slots
// are write-once; a nil slot is not yet supplied. Payloads must be
// non-empty, so slot state needs no separate marker.
type StagedTx struct {
	GUIDHash     []byte
	Target       vault.Address
	Instructions [][]byte
}

var _ orm.Model = (*StagedTx)(nil)

// NewStagedTx creates an empty staging record declaring the given
// instruction count.
func NewStagedTx(guidHash []byte, target vault.Address, count uint8) (*StagedTx, error) {
	if count == 0 || count > MaxInstructions {
		return nil, errors.Wrapf(errors.ErrInput,
			"%d instructions declared, 1 to %d allowed", count, MaxInstructions)
	}
	tx := &StagedTx{
		GUIDHash:     append([]byte(nil), guidHash...),
		Target:       target.Clone(),
		Instructions: make([][]byte, count),
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	return tx, nil
}

func (tx *StagedTx) Validate() error {
	if len(tx.GUIDHash) != wallet.HashLength {
		return errors.Wrapf(errors.ErrInput, "guid hash is %d bytes", len(tx.GUIDHash))
	}
	if err := tx.Target.Validate(); err != nil {
		return errors.Wrap(err, "target")
	}
	if n := len(tx.Instructions); n == 0 || n > MaxInstructions {
		return errors.Wrapf(errors.ErrInput, "%d instructions declared", n)
	}
	for i, ins := range tx.Instructions {
		if len(ins) > MaxInstructionLen {
			return errors.Wrapf(errors.ErrInput,
				"instruction %d is %d bytes, at most %d", i, len(ins), MaxInstructionLen)
		}
	}
	return nil
}

// Supply fills the slots starting at the given index. An index at or beyond
// the declared count is a capacity error; an already filled slot is a
// duplicate, never silently overwritten. Ranges may arrive in any order.
func (tx *StagedTx) Supply(start int, payloads [][]byte) error {
	for i, p := range payloads {
		idx := start + i
		if idx >= len(tx.Instructions) {
			return errors.Wrapf(errors.ErrCapacity,
				"index %d beyond %d declared instructions", idx, len(tx.Instructions))
		}
		if tx.Instructions[idx] != nil {
			return errors.Wrapf(errors.ErrDuplicate, "instruction %d already supplied", idx)
		}
		if len(p) == 0 {
			return errors.Wrapf(errors.ErrEmpty, "instruction %d", idx)
		}
		if len(p) > MaxInstructionLen {
			return errors.Wrapf(errors.ErrInput,
				"instruction %d is %d bytes, at most %d", idx, len(p), MaxInstructionLen)
		}
	}
	for i, p := range payloads {
		cpy := make([]byte, len(p))
		copy(cpy, p)
		tx.Instructions[start+i] = cpy
	}
	return nil
}

// Complete returns true once every declared slot is filled.
func (tx *StagedTx) Complete() bool {
	for _, ins := range tx.Instructions {
		if ins == nil {
			return false
		}
	}
	return true
}

// StructuralHash digests the routing metadata and the ordered instruction
// payloads. It depends only on slot contents, never on the order they were
// supplied in, and is only defined for a complete record.
func (tx *StagedTx) StructuralHash() ([]byte, error) {
	if !tx.Complete() {
		return nil, errors.Wrap(errors.ErrNotReady, "instructions missing")
	}
	h := sha256.New()
	h.Write([]byte{tagStructural})
	h.Write(tx.GUIDHash)
	h.Write(tx.Target)
	h.Write([]byte{byte(len(tx.Instructions))})
	for _, ins := range tx.Instructions {
		h.Write([]byte{byte(len(ins))})
		h.Write(ins)
	}
	return h.Sum(nil), nil
}

// placeholder is the commitment a staged transaction is proposed against
// before its instructions are known.
func (tx *StagedTx) placeholder() placeholderParams {
	return placeholderParams{tx: tx}
}

type placeholderParams struct {
	tx *StagedTx
}

func (p placeholderParams) Fingerprint() []byte {
	h := sha256.New()
	h.Write([]byte{tagPlaceholder})
	h.Write(p.tx.GUIDHash)
	h.Write(p.tx.Target)
	h.Write([]byte{byte(len(p.tx.Instructions))})
	return h.Sum(nil)
}

// execParams wraps a structural hash as operation parameters. The hash is
// already a digest, so it serves as the fingerprint directly.
type execParams struct {
	hash []byte
}

func (p execParams) Fingerprint() []byte {
	return p.hash
}
