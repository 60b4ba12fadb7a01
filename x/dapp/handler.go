package dapp

import (
	"github.com/custodix/vault"
	"github.com/custodix/vault/errors"
	"github.com/custodix/vault/orm"
	"github.com/custodix/vault/x/deposit"
	"github.com/custodix/vault/x/multisig"
	"github.com/custodix/vault/x/wallet"
)

// Invoker executes one external-call instruction under a delegated
// authority. The host environment supplies it; the vault never holds a
// private key for the authority.
type Invoker interface {
	Invoke(db vault.KVStore, authority vault.Address, target vault.Address, payload []byte) error
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(db vault.KVStore, authority vault.Address, target vault.Address, payload []byte) error

func (f InvokerFunc) Invoke(db vault.KVStore, authority, target vault.Address, payload []byte) error {
	return f(db, authority, target, payload)
}

// BalanceDelta reports one address's ledger balance before and after a
// simulated execution.
type BalanceDelta struct {
	Address vault.Address
	Before  uint64
	After   uint64
}

// Handler drives the staged external-call lifecycle. Staging records are
// keyed by their operation id, so record and operation live and die
// together.
type Handler struct {
	wallets wallet.Bucket
	ops     multisig.OpBucket
	staged  orm.Bucket
	ledger  deposit.Ledger
	invoker Invoker
}

func NewHandler(ledger deposit.Ledger, invoker Invoker) Handler {
	return Handler{
		wallets: wallet.NewBucket(),
		ops:     multisig.NewOpBucket(ledger),
		staged:  orm.NewBucket("staged"),
		ledger:  ledger,
		invoker: invoker,
	}
}

// Begin creates the staging record and its multisig operation, proposed
// against a placeholder commitment. The target must be a whitelisted dapp
// book entry and the balance account must have dapps enabled.
func (h Handler) Begin(
	db vault.KVStore,
	initiator vault.Address,
	guidHash []byte,
	target vault.Address,
	count uint8,
	now vault.UnixTime,
	depositAmount uint64,
) (multisig.OpID, error) {
	w, err := h.wallets.Get(db)
	if err != nil {
		return nil, err
	}
	acct, err := w.Account(guidHash)
	if err != nil {
		return nil, err
	}
	if !acct.DAppsEnabled {
		return nil, errors.Wrapf(errors.ErrState, "account %X has dapps disabled", guidHash)
	}
	if _, ok := w.DAppBook.FindSlot(target); !ok {
		return nil, errors.Wrapf(errors.ErrUnauthorized,
			"target %s is not a whitelisted dapp", target)
	}
	if !w.CanInitiate(initiator, acct.Policy) {
		return nil, errors.Wrapf(errors.ErrUnauthorized,
			"%s may not initiate this proposal", initiator)
	}
	tx, err := NewStagedTx(guidHash, target, count)
	if err != nil {
		return nil, err
	}
	id, _, err := h.ops.Create(db, w.PolicyApprovers(acct.Policy), acct.Policy.Required,
		now, acct.Policy.Timeout, tx.placeholder(), initiator, initiator, depositAmount)
	if err != nil {
		return nil, err
	}
	if err := h.staged.Save(db, id, tx); err != nil {
		return nil, err
	}
	return id, nil
}

// Tx loads the staging record of an operation.
func (h Handler) Tx(db vault.ReadOnlyKVStore, id multisig.OpID) (*StagedTx, error) {
	var tx StagedTx
	if err := h.staged.One(db, id, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// Op loads a staged transaction's operation, e.g. to read its fingerprint.
func (h Handler) Op(db vault.ReadOnlyKVStore, id multisig.OpID) (*multisig.Op, error) {
	return h.ops.Get(db, id)
}

// Vote records one approver's disposition on the staged operation. Votes
// open only once the payload is complete, so a disposition always refers to
// the full instruction set.
func (h Handler) Vote(
	db vault.KVStore,
	id multisig.OpID,
	approver vault.Address,
	vote multisig.Disposition,
	fingerprint []byte,
	now vault.UnixTime,
) error {
	tx, err := h.Tx(db, id)
	if err != nil {
		return err
	}
	if !tx.Complete() {
		return errors.Wrap(errors.ErrNotReady, "instructions missing")
	}
	op, err := h.ops.Get(db, id)
	if err != nil {
		return err
	}
	if err := op.RecordDisposition(approver, vote, fingerprint, now); err != nil {
		return err
	}
	return h.ops.Save(db, id, op)
}

// Supply fills instruction slots. Once the record is complete its
// structural hash replaces the placeholder as the operation fingerprint, so
// any vote cast against the placeholder no longer counts as fresh.
func (h Handler) Supply(db vault.KVStore, id multisig.OpID, start int, payloads [][]byte) error {
	tx, err := h.Tx(db, id)
	if err != nil {
		return err
	}
	if err := tx.Supply(start, payloads); err != nil {
		return err
	}
	if err := h.staged.Save(db, id, tx); err != nil {
		return err
	}
	if !tx.Complete() {
		return nil
	}
	hash, err := tx.StructuralHash()
	if err != nil {
		return err
	}
	op, err := h.ops.Get(db, id)
	if err != nil {
		return err
	}
	if err := op.Rebind(hash); err != nil {
		return err
	}
	return h.ops.Save(db, id, op)
}

// Simulate dry-runs the staged calls on a cache wrap and reports the ledger
// balance deltas of the given addresses. All side effects are discarded;
// the staging record and operation are untouched, so the real finalize can
// still run. Approval is not required, this is how reviewers inspect the
// effect before voting.
func (h Handler) Simulate(
	db vault.CacheableKVStore,
	id multisig.OpID,
	watch []vault.Address,
	now vault.UnixTime,
) ([]BalanceDelta, error) {
	tx, err := h.Tx(db, id)
	if err != nil {
		return nil, err
	}
	if !tx.Complete() {
		return nil, errors.Wrap(errors.ErrNotReady, "instructions missing")
	}
	cache := db.CacheWrap()
	defer cache.Discard()

	deltas := make([]BalanceDelta, len(watch))
	for i, a := range watch {
		before, err := h.ledger.Balance(cache, a)
		if err != nil {
			return nil, err
		}
		deltas[i] = BalanceDelta{Address: a.Clone(), Before: before}
	}
	if err := h.execute(cache, tx); err != nil {
		return nil, err
	}
	for i := range deltas {
		after, err := h.ledger.Balance(cache, deltas[i].Address)
		if err != nil {
			return nil, err
		}
		deltas[i].After = after
	}
	return deltas, nil
}

// Finalize executes the approved calls exactly once and removes the
// staging record together with the operation. An incomplete record fails
// before any execution; a failing call aborts finalization entirely so
// nothing is reclaimed and the operation can be retried.
func (h Handler) Finalize(
	db vault.KVStore,
	id multisig.OpID,
	now vault.UnixTime,
) (multisig.Disposition, error) {
	tx, err := h.Tx(db, id)
	if err != nil {
		return multisig.DispositionNone, err
	}
	if !tx.Complete() {
		return multisig.DispositionNone, errors.Wrap(errors.ErrNotReady, "instructions missing")
	}
	hash, err := tx.StructuralHash()
	if err != nil {
		return multisig.DispositionNone, err
	}
	outcome, err := h.ops.Finalize(db, id, execParams{hash: hash}, now, func(db vault.KVStore) error {
		return h.execute(db, tx)
	})
	if err != nil {
		return outcome, err
	}
	if err := h.staged.Delete(db, id); err != nil {
		return outcome, err
	}
	return outcome, nil
}

// execute runs every instruction in declared order under the account's
// derived authority.
func (h Handler) execute(db vault.KVStore, tx *StagedTx) error {
	authority := wallet.AccountAddress(tx.GUIDHash)
	for i, ins := range tx.Instructions {
		if err := h.invoker.Invoke(db, authority, tx.Target, ins); err != nil {
			return errors.Wrapf(err, "instruction %d", i)
		}
	}
	return nil
}
