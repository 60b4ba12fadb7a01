package deposit

import (
	"encoding/binary"
	"math"

	"github.com/custodix/vault"
	"github.com/custodix/vault/errors"
	"github.com/custodix/vault/orm"
)

// Balance is the fixed-size record stored for every funded address.
type Balance struct {
	Amount uint64
}

var _ orm.Model = (*Balance)(nil)

// Size returns the fixed encoded length of a balance cell.
func (b *Balance) Size() int { return 8 }

func (b *Balance) Validate() error {
	return nil
}

func (b *Balance) Marshal() ([]byte, error) {
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, b.Amount)
	return raw, nil
}

func (b *Balance) Unmarshal(raw []byte) error {
	if len(raw) != 8 {
		return errors.Wrapf(errors.ErrModel, "balance must be 8 bytes, got %d", len(raw))
	}
	b.Amount = binary.BigEndian.Uint64(raw)
	return nil
}

// Ledger keeps a single-denomination balance per address. It funds the
// storage deposits attached to multisig operation records and the managed
// balance accounts, and is what the dry-run simulation samples for balance
// deltas.
type Ledger struct {
	bucket orm.Bucket
}

// NewLedger returns a ledger persisting under the default bucket.
func NewLedger() Ledger {
	return Ledger{bucket: orm.NewBucket("ledger")}
}

// Balance returns the amount held by the given address, zero when the
// address has no cell.
func (l Ledger) Balance(db vault.ReadOnlyKVStore, addr vault.Address) (uint64, error) {
	if err := addr.Validate(); err != nil {
		return 0, errors.Wrap(err, "address")
	}
	var b Balance
	switch err := l.bucket.One(db, addr, &b); {
	case err == nil:
		return b.Amount, nil
	case errors.ErrNotFound.Is(err):
		return 0, nil
	default:
		return 0, err
	}
}

// Credit adds the amount to the given address, creating its cell on first
// use.
func (l Ledger) Credit(db vault.KVStore, addr vault.Address, amount uint64) error {
	cur, err := l.Balance(db, addr)
	if err != nil {
		return err
	}
	if cur > math.MaxUint64-amount {
		return errors.Wrapf(errors.ErrOverflow, "credit %d to %s", amount, addr)
	}
	return l.bucket.Save(db, addr, &Balance{Amount: cur + amount})
}

// Debit removes the amount from the given address. The cell is deleted when
// it drains to zero, releasing its storage.
func (l Ledger) Debit(db vault.KVStore, addr vault.Address, amount uint64) error {
	cur, err := l.Balance(db, addr)
	if err != nil {
		return err
	}
	if cur < amount {
		return errors.Wrapf(errors.ErrAmount,
			"debit %d from %s holding %d", amount, addr, cur)
	}
	if cur == amount {
		return l.bucket.Delete(db, addr)
	}
	return l.bucket.Save(db, addr, &Balance{Amount: cur - amount})
}

// Move debits the source and credits the destination atomically with respect
// to the caller's store: the credit cannot overflow after a successful
// debit, so a failed Move leaves both cells untouched.
func (l Ledger) Move(db vault.KVStore, src, dst vault.Address, amount uint64) error {
	if src.Equals(dst) {
		return errors.Wrap(errors.ErrInput, "source and destination are equal")
	}
	dstCur, err := l.Balance(db, dst)
	if err != nil {
		return err
	}
	if dstCur > math.MaxUint64-amount {
		return errors.Wrapf(errors.ErrOverflow, "credit %d to %s", amount, dst)
	}
	if err := l.Debit(db, src, amount); err != nil {
		return err
	}
	return l.Credit(db, dst, amount)
}
