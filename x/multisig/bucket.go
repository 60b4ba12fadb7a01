package multisig

import (
	"github.com/custodix/vault"
	"github.com/custodix/vault/errors"
	"github.com/custodix/vault/orm"
	"github.com/custodix/vault/x/deposit"
)

// OpID identifies an operation record. IDs are issued by a sequence and
// never reused.
type OpID []byte

// OpBucket persists operation records and manages their storage deposits in
// the attached ledger.
type OpBucket struct {
	bucket orm.Bucket
	seq    orm.Sequence
	ledger deposit.Ledger
}

// NewOpBucket returns a bucket using the given ledger for deposits.
func NewOpBucket(ledger deposit.Ledger) OpBucket {
	return OpBucket{
		bucket: orm.NewBucket("msop"),
		seq:    orm.NewSequence("msop", "id"),
		ledger: ledger,
	}
}

// OpAddress derives the ledger cell holding the deposit of the operation
// with the given id.
func OpAddress(id OpID) vault.Address {
	return vault.NewCondition("msop", "deposit", id).Address()
}

// Create proposes a new operation, moving the storage deposit from the
// initiator to the operation's own ledger cell.
func (b OpBucket) Create(
	db vault.KVStore,
	approvers []vault.Address,
	required uint8,
	now vault.UnixTime,
	timeout vault.UnixDuration,
	params Params,
	initiator vault.Address,
	rentReturn vault.Address,
	depositAmount uint64,
) (OpID, *Op, error) {
	op, err := NewOp(approvers, required, now, timeout, params, initiator, rentReturn)
	if err != nil {
		return nil, nil, err
	}
	raw, err := b.seq.NextVal(db)
	if err != nil {
		return nil, nil, errors.Wrap(err, "operation id")
	}
	id := OpID(raw)
	if depositAmount > 0 {
		if err := b.ledger.Move(db, initiator, OpAddress(id), depositAmount); err != nil {
			return nil, nil, errors.Wrap(err, "storage deposit")
		}
	}
	if err := b.bucket.Save(db, id, op); err != nil {
		return nil, nil, err
	}
	return id, op, nil
}

// Get loads the operation with the given id.
func (b OpBucket) Get(db vault.ReadOnlyKVStore, id OpID) (*Op, error) {
	var op Op
	if err := b.bucket.One(db, id, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

// Save persists an updated operation, typically after recording a vote.
func (b OpBucket) Save(db vault.KVStore, id OpID, op *Op) error {
	return b.bucket.Save(db, id, op)
}

// Finalize closes the operation. When the vote came out approved, the gated
// effect is executed first; its failure aborts finalization with no
// reclamation, so the operation can be retried. On every completed path the
// deposit moves to the rent return target and the record is deleted, which
// makes a second finalize fail with not found. A still-open vote fails with
// not ready before anything runs.
func (b OpBucket) Finalize(
	db vault.KVStore,
	id OpID,
	params Params,
	now vault.UnixTime,
	onApproved func(vault.KVStore) error,
) (Disposition, error) {
	op, err := b.Get(db, id)
	if err != nil {
		return DispositionNone, err
	}
	ok, err := op.Approved(params, now)
	if err != nil {
		return DispositionNone, err
	}
	outcome := op.DispositionAt(now)
	if ok && onApproved != nil {
		if err := onApproved(db); err != nil {
			return DispositionNone, errors.Wrap(err, "gated effect")
		}
	}
	opAddr := OpAddress(id)
	bal, err := b.ledger.Balance(db, opAddr)
	if err != nil {
		return DispositionNone, err
	}
	if bal > 0 {
		if err := b.ledger.Move(db, opAddr, op.RentReturn, bal); err != nil {
			return DispositionNone, errors.Wrap(err, "reclaim deposit")
		}
	}
	if err := b.bucket.Delete(db, id); err != nil {
		return DispositionNone, err
	}
	return outcome, nil
}
