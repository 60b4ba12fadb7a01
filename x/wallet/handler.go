package wallet

import (
	"github.com/custodix/vault"
	"github.com/custodix/vault/errors"
	"github.com/custodix/vault/x/deposit"
	"github.com/custodix/vault/x/multisig"
)

// Handler exposes the propose/finalize pairs for every wallet operation.
// Proposing snapshots the gating policy's approver set into a multisig
// operation; finalizing applies the change only on an approved outcome and
// always releases the operation's storage deposit.
type Handler struct {
	wallets Bucket
	ops     multisig.OpBucket
	ledger  deposit.Ledger
}

func NewHandler(ledger deposit.Ledger) Handler {
	return Handler{
		wallets: NewBucket(),
		ops:     multisig.NewOpBucket(ledger),
		ledger:  ledger,
	}
}

// Wallet loads the wallet record.
func (h Handler) Wallet(db vault.ReadOnlyKVStore) (*Wallet, error) {
	return h.wallets.Get(db)
}

// Op loads a pending operation, e.g. to read its fingerprint.
func (h Handler) Op(db vault.ReadOnlyKVStore, id multisig.OpID) (*multisig.Op, error) {
	return h.ops.Get(db, id)
}

// InitWallet creates the wallet record directly, without a proposal. It is
// the only operation that does not go through the multisig engine.
func (h Handler) InitWallet(db vault.KVStore, w *Wallet) error {
	return h.wallets.Init(db, w)
}

// Vote records one approver's disposition on a pending operation.
func (h Handler) Vote(
	db vault.KVStore,
	id multisig.OpID,
	approver vault.Address,
	vote multisig.Disposition,
	fingerprint []byte,
	now vault.UnixTime,
) error {
	op, err := h.ops.Get(db, id)
	if err != nil {
		return err
	}
	if err := op.RecordDisposition(approver, vote, fingerprint, now); err != nil {
		return err
	}
	return h.ops.Save(db, id, op)
}

// ProposeConfigPolicyUpdate opens a proposal against the wallet-wide
// policy. The config policy domain is locked until the proposal finalizes.
func (h Handler) ProposeConfigPolicyUpdate(
	db vault.KVStore,
	initiator vault.Address,
	u ConfigPolicyUpdate,
	now vault.UnixTime,
	depositAmount uint64,
) (multisig.OpID, error) {
	w, err := h.wallets.Get(db)
	if err != nil {
		return nil, err
	}
	if err := w.Clone().ApplyConfigPolicyUpdate(u); err != nil {
		return nil, errors.Wrap(err, "update can never apply")
	}
	if !w.CanInitiate(initiator, w.Config) {
		return nil, errors.Wrapf(errors.ErrUnauthorized,
			"%s may not initiate this proposal", initiator)
	}
	if err := w.Config.Lock(); err != nil {
		return nil, err
	}
	id, err := h.propose(db, w, w.Config, u, initiator, now, depositAmount)
	if err != nil {
		return nil, err
	}
	// persist the lock only once the operation exists, a failed proposal
	// must not leave the domain locked with nothing to unlock it
	if err := h.wallets.Save(db, w); err != nil {
		return nil, err
	}
	return id, nil
}

// FinalizeConfigPolicyUpdate closes the proposal and unlocks the config
// policy domain together with it, on every outcome.
func (h Handler) FinalizeConfigPolicyUpdate(
	db vault.KVStore,
	id multisig.OpID,
	u ConfigPolicyUpdate,
	now vault.UnixTime,
) (multisig.Disposition, error) {
	return h.finalizeUpdate(db, id, u, now,
		func(w *Wallet) error { return w.ApplyConfigPolicyUpdate(u) },
		func(w *Wallet) { w.Config.Unlock() },
	)
}

// ProposeSignersUpdate opens a proposal to add or remove signers, gated by
// the wallet config policy.
func (h Handler) ProposeSignersUpdate(
	db vault.KVStore,
	initiator vault.Address,
	u SignersUpdate,
	now vault.UnixTime,
	depositAmount uint64,
) (multisig.OpID, error) {
	w, err := h.wallets.Get(db)
	if err != nil {
		return nil, err
	}
	if err := w.Clone().ApplySignersUpdate(u); err != nil {
		return nil, errors.Wrap(err, "update can never apply")
	}
	return h.propose(db, w, w.Config, u, initiator, now, depositAmount)
}

func (h Handler) FinalizeSignersUpdate(
	db vault.KVStore,
	id multisig.OpID,
	u SignersUpdate,
	now vault.UnixTime,
) (multisig.Disposition, error) {
	return h.finalizeUpdate(db, id, u, now,
		func(w *Wallet) error { return w.ApplySignersUpdate(u) },
		nil,
	)
}

// ProposeAddressBookUpdate opens a proposal to change the whitelisted
// destination book.
func (h Handler) ProposeAddressBookUpdate(
	db vault.KVStore,
	initiator vault.Address,
	u BookUpdate,
	now vault.UnixTime,
	depositAmount uint64,
) (multisig.OpID, error) {
	w, err := h.wallets.Get(db)
	if err != nil {
		return nil, err
	}
	if err := w.Clone().ApplyAddressBookUpdate(u); err != nil {
		return nil, errors.Wrap(err, "update can never apply")
	}
	return h.propose(db, w, w.Config, addressBookUpdate{u}, initiator, now, depositAmount)
}

func (h Handler) FinalizeAddressBookUpdate(
	db vault.KVStore,
	id multisig.OpID,
	u BookUpdate,
	now vault.UnixTime,
) (multisig.Disposition, error) {
	return h.finalizeUpdate(db, id, addressBookUpdate{u}, now,
		func(w *Wallet) error { return w.ApplyAddressBookUpdate(u) },
		nil,
	)
}

// ProposeDAppBookUpdate opens a proposal to change the whitelisted
// external-call target book.
func (h Handler) ProposeDAppBookUpdate(
	db vault.KVStore,
	initiator vault.Address,
	u BookUpdate,
	now vault.UnixTime,
	depositAmount uint64,
) (multisig.OpID, error) {
	w, err := h.wallets.Get(db)
	if err != nil {
		return nil, err
	}
	if err := w.Clone().ApplyDAppBookUpdate(u); err != nil {
		return nil, errors.Wrap(err, "update can never apply")
	}
	return h.propose(db, w, w.Config, dappBookUpdate{u}, initiator, now, depositAmount)
}

func (h Handler) FinalizeDAppBookUpdate(
	db vault.KVStore,
	id multisig.OpID,
	u BookUpdate,
	now vault.UnixTime,
) (multisig.Disposition, error) {
	return h.finalizeUpdate(db, id, dappBookUpdate{u}, now,
		func(w *Wallet) error { return w.ApplyDAppBookUpdate(u) },
		nil,
	)
}

// ProposeCreateAccount opens a proposal to add a balance account, gated by
// the wallet config policy.
func (h Handler) ProposeCreateAccount(
	db vault.KVStore,
	initiator vault.Address,
	u CreateAccountParams,
	now vault.UnixTime,
	depositAmount uint64,
) (multisig.OpID, error) {
	w, err := h.wallets.Get(db)
	if err != nil {
		return nil, err
	}
	if err := w.Clone().AddBalanceAccount(u); err != nil {
		return nil, errors.Wrap(err, "update can never apply")
	}
	return h.propose(db, w, w.Config, u, initiator, now, depositAmount)
}

func (h Handler) FinalizeCreateAccount(
	db vault.KVStore,
	id multisig.OpID,
	u CreateAccountParams,
	now vault.UnixTime,
) (multisig.Disposition, error) {
	return h.finalizeUpdate(db, id, u, now,
		func(w *Wallet) error { return w.AddBalanceAccount(u) },
		nil,
	)
}

// ProposeAccountPolicyUpdate opens a proposal against one balance account's
// transfer policy. Approval comes from the wallet config approvers; the
// account's policy domain is locked until the proposal finalizes.
func (h Handler) ProposeAccountPolicyUpdate(
	db vault.KVStore,
	initiator vault.Address,
	u AccountPolicyUpdate,
	now vault.UnixTime,
	depositAmount uint64,
) (multisig.OpID, error) {
	w, err := h.wallets.Get(db)
	if err != nil {
		return nil, err
	}
	if err := w.Clone().ApplyAccountPolicyUpdate(u); err != nil {
		return nil, errors.Wrap(err, "update can never apply")
	}
	if !w.CanInitiate(initiator, w.Config) {
		return nil, errors.Wrapf(errors.ErrUnauthorized,
			"%s may not initiate this proposal", initiator)
	}
	acct, err := w.Account(u.GUIDHash)
	if err != nil {
		return nil, err
	}
	if err := acct.Policy.Lock(); err != nil {
		return nil, err
	}
	id, err := h.propose(db, w, w.Config, u, initiator, now, depositAmount)
	if err != nil {
		return nil, err
	}
	// persist the lock only once the operation exists, a failed proposal
	// must not leave the domain locked with nothing to unlock it
	if err := h.wallets.Save(db, w); err != nil {
		return nil, err
	}
	return id, nil
}

// FinalizeAccountPolicyUpdate closes the proposal and unlocks the account's
// policy domain together with it, on every outcome.
func (h Handler) FinalizeAccountPolicyUpdate(
	db vault.KVStore,
	id multisig.OpID,
	u AccountPolicyUpdate,
	now vault.UnixTime,
) (multisig.Disposition, error) {
	return h.finalizeUpdate(db, id, u, now,
		func(w *Wallet) error { return w.ApplyAccountPolicyUpdate(u) },
		func(w *Wallet) {
			if acct, err := w.Account(u.GUIDHash); err == nil {
				acct.Policy.Unlock()
			}
		},
	)
}

// ProposeAccountSettingsUpdate opens a proposal to change one balance
// account's whitelist and dapp settings.
func (h Handler) ProposeAccountSettingsUpdate(
	db vault.KVStore,
	initiator vault.Address,
	u AccountSettingsUpdate,
	now vault.UnixTime,
	depositAmount uint64,
) (multisig.OpID, error) {
	w, err := h.wallets.Get(db)
	if err != nil {
		return nil, err
	}
	if err := w.Clone().ApplyAccountSettingsUpdate(u); err != nil {
		return nil, errors.Wrap(err, "update can never apply")
	}
	return h.propose(db, w, w.Config, u, initiator, now, depositAmount)
}

func (h Handler) FinalizeAccountSettingsUpdate(
	db vault.KVStore,
	id multisig.OpID,
	u AccountSettingsUpdate,
	now vault.UnixTime,
) (multisig.Disposition, error) {
	return h.finalizeUpdate(db, id, u, now,
		func(w *Wallet) error { return w.ApplyAccountSettingsUpdate(u) },
		nil,
	)
}

// ProposeTransfer opens a transfer proposal, gated by the account's own
// transfer policy. The whitelist is checked here and again at finalize, as
// it may change while the vote is open.
func (h Handler) ProposeTransfer(
	db vault.KVStore,
	initiator vault.Address,
	u TransferParams,
	now vault.UnixTime,
	depositAmount uint64,
) (multisig.OpID, error) {
	w, err := h.wallets.Get(db)
	if err != nil {
		return nil, err
	}
	if err := w.AuthorizeTransfer(u); err != nil {
		return nil, err
	}
	acct, err := w.Account(u.GUIDHash)
	if err != nil {
		return nil, err
	}
	return h.propose(db, w, acct.Policy, u, initiator, now, depositAmount)
}

// FinalizeTransfer moves the funds out of the account's ledger cell when
// the vote came out approved.
func (h Handler) FinalizeTransfer(
	db vault.KVStore,
	id multisig.OpID,
	u TransferParams,
	now vault.UnixTime,
) (multisig.Disposition, error) {
	return h.ops.Finalize(db, id, u, now, func(db vault.KVStore) error {
		w, err := h.wallets.Get(db)
		if err != nil {
			return err
		}
		if err := w.AuthorizeTransfer(u); err != nil {
			return err
		}
		return h.ledger.Move(db, AccountAddress(u.GUIDHash), u.Destination, u.Amount)
	})
}

// propose checks initiator authorization against the gating policy and
// creates the multisig operation with its approver snapshot. The initiator
// funds the storage deposit and receives it back at finalize.
func (h Handler) propose(
	db vault.KVStore,
	w *Wallet,
	pol Policy,
	params multisig.Params,
	initiator vault.Address,
	now vault.UnixTime,
	depositAmount uint64,
) (multisig.OpID, error) {
	if !w.CanInitiate(initiator, pol) {
		return nil, errors.Wrapf(errors.ErrUnauthorized,
			"%s may not initiate this proposal", initiator)
	}
	id, _, err := h.ops.Create(db, w.PolicyApprovers(pol), pol.Required,
		now, pol.Timeout, params, initiator, initiator, depositAmount)
	return id, err
}

// finalizeUpdate closes a configuration proposal. An approved outcome
// applies the update to a clone and persists it only when it validates; a
// failing update aborts finalization entirely so nothing is reclaimed. The
// unlock step runs on every completed outcome, keeping lock and operation
// record released together.
func (h Handler) finalizeUpdate(
	db vault.KVStore,
	id multisig.OpID,
	params multisig.Params,
	now vault.UnixTime,
	apply func(*Wallet) error,
	unlock func(*Wallet),
) (multisig.Disposition, error) {
	outcome, err := h.ops.Finalize(db, id, params, now, func(db vault.KVStore) error {
		w, err := h.wallets.Get(db)
		if err != nil {
			return err
		}
		next := w.Clone()
		if err := apply(next); err != nil {
			return err
		}
		if unlock != nil {
			unlock(next)
		}
		return h.wallets.Save(db, next)
	})
	if err != nil {
		return outcome, err
	}
	if outcome != multisig.DispositionApproved && unlock != nil {
		w, err := h.wallets.Get(db)
		if err != nil {
			return outcome, err
		}
		unlock(w)
		if err := h.wallets.Save(db, w); err != nil {
			return outcome, err
		}
	}
	return outcome, nil
}
