package wallet

import (
	"bytes"

	"github.com/custodix/vault"
	"github.com/custodix/vault/errors"
	"github.com/custodix/vault/orm"
	"github.com/custodix/vault/slot"
)

const (
	// SignersCap bounds the signer registry.
	SignersCap = 24
	// AddressBookCap bounds the whitelisted destination registry.
	AddressBookCap = 32
	// DAppBookCap bounds the whitelisted external-call target registry.
	DAppBookCap = 16
	// MaxAccounts bounds the managed balance accounts of one wallet.
	MaxAccounts = 8
	// HashLength is the length of guid and name hashes.
	HashLength = 32
)

// Policy is an approval policy: how many of which signers must approve, and
// how long a proposal stays open. Locked marks an in-flight update proposal
// against this policy domain.
type Policy struct {
	Required  uint8
	Timeout   vault.UnixDuration
	Approvers *slot.BitSet
	Locked    bool
}

// NewPolicy returns an unlocked policy with no approvers yet.
func NewPolicy(required uint8, timeout vault.UnixDuration) Policy {
	return Policy{
		Required:  required,
		Timeout:   timeout,
		Approvers: slot.NewBitSet(SignersCap),
	}
}

// Validate returns an error unless the required count is reachable with the
// current approver set.
func (p *Policy) Validate() error {
	if p.Required == 0 {
		return errors.Wrap(errors.ErrInput, "zero approvals required")
	}
	if p.Timeout <= 0 {
		return errors.Wrap(errors.ErrInput, "non-positive timeout")
	}
	if n := p.Approvers.Count(); int(p.Required) > n {
		return errors.Wrapf(errors.ErrInput,
			"%d approvals required of %d approvers", p.Required, n)
	}
	return nil
}

// Lock marks an update proposal as pending. A second lock attempt fails, so
// at most one update proposal targets this policy domain at a time.
func (p *Policy) Lock() error {
	if p.Locked {
		return errors.Wrap(errors.ErrLocked, "policy update already pending")
	}
	p.Locked = true
	return nil
}

// Unlock releases the pending update marker. Unlocking an unlocked policy
// is a no-op.
func (p *Policy) Unlock() {
	p.Locked = false
}

// Clone returns an independent copy of the policy.
func (p *Policy) Clone() Policy {
	return Policy{
		Required:  p.Required,
		Timeout:   p.Timeout,
		Approvers: p.Approvers.Clone(),
		Locked:    p.Locked,
	}
}

// BalanceAccount is one managed sub-account of the wallet. Its funds live
// in the deposit ledger under the address derived from the guid hash, so no
// private key is held for it.
type BalanceAccount struct {
	GUIDHash            []byte
	NameHash            []byte
	Policy              Policy
	AllowedDestinations *slot.BitSet
	WhitelistEnabled    bool
	DAppsEnabled        bool
}

func (a *BalanceAccount) Validate() error {
	if len(a.GUIDHash) != HashLength {
		return errors.Wrapf(errors.ErrInput, "guid hash is %d bytes", len(a.GUIDHash))
	}
	if len(a.NameHash) != HashLength {
		return errors.Wrapf(errors.ErrInput, "name hash is %d bytes", len(a.NameHash))
	}
	if err := a.Policy.Validate(); err != nil {
		return errors.Wrap(err, "transfer policy")
	}
	return nil
}

// Clone returns an independent copy of the account.
func (a *BalanceAccount) Clone() *BalanceAccount {
	return &BalanceAccount{
		GUIDHash:            append([]byte(nil), a.GUIDHash...),
		NameHash:            append([]byte(nil), a.NameHash...),
		Policy:              a.Policy.Clone(),
		AllowedDestinations: a.AllowedDestinations.Clone(),
		WhitelistEnabled:    a.WhitelistEnabled,
		DAppsEnabled:        a.DAppsEnabled,
	}
}

// AccountAddress derives the ledger authority of a balance account from its
// guid hash.
func AccountAddress(guidHash []byte) vault.Address {
	return vault.NewCondition("account", "guid", guidHash).Address()
}

// Wallet is the root configuration record.
//
// Assistant is the always-trusted administrative key that may initiate any
// proposal. The registries give signers, destinations and dapp targets
// stable slot ids; the policy and whitelist bitsets reference those ids.
type Wallet struct {
	Assistant   vault.Address
	Signers     *slot.Registry
	Config      Policy
	AddressBook *slot.Registry
	DAppBook    *slot.Registry
	Accounts    []*BalanceAccount
}

var _ orm.Model = (*Wallet)(nil)

// NewWallet creates a wallet with the given signers, all of them config
// approvers.
func NewWallet(
	assistant vault.Address,
	signers []vault.Address,
	required uint8,
	timeout vault.UnixDuration,
) (*Wallet, error) {
	w := &Wallet{
		Assistant:   assistant.Clone(),
		Signers:     slot.NewRegistry(SignersCap, vault.AddressLength),
		Config:      NewPolicy(required, timeout),
		AddressBook: slot.NewRegistry(AddressBookCap, vault.AddressLength),
		DAppBook:    slot.NewRegistry(DAppBookCap, vault.AddressLength),
	}
	if err := w.Signers.InsertMany(addrItems(signers)); err != nil {
		return nil, errors.Wrap(err, "signers")
	}
	for _, s := range signers {
		id, ok := w.Signers.FindSlot(s)
		if !ok {
			return nil, errors.Wrapf(errors.ErrInput, "%s is not a signer", s)
		}
		w.Config.Approvers.Set(id)
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// Validate returns an error if the wallet is not in a persistable state.
func (w *Wallet) Validate() error {
	if err := w.Assistant.Validate(); err != nil {
		return errors.Wrap(err, "assistant")
	}
	if err := w.Config.Validate(); err != nil {
		return errors.Wrap(err, "config policy")
	}
	if len(w.Accounts) > MaxAccounts {
		return errors.Wrapf(errors.ErrCapacity, "%d accounts", len(w.Accounts))
	}
	for i, a := range w.Accounts {
		if err := a.Validate(); err != nil {
			return errors.Wrapf(err, "account %d", i)
		}
	}
	return nil
}

// Clone returns a deep copy, used to pre-flight updates and to keep a
// rejected update from touching the loaded record.
func (w *Wallet) Clone() *Wallet {
	accounts := make([]*BalanceAccount, len(w.Accounts))
	for i, a := range w.Accounts {
		accounts[i] = a.Clone()
	}
	return &Wallet{
		Assistant:   w.Assistant.Clone(),
		Signers:     w.Signers.Clone(),
		Config:      w.Config.Clone(),
		AddressBook: w.AddressBook.Clone(),
		DAppBook:    w.DAppBook.Clone(),
		Accounts:    accounts,
	}
}

// Account returns the balance account with the given guid hash.
func (w *Wallet) Account(guidHash []byte) (*BalanceAccount, error) {
	for _, a := range w.Accounts {
		if bytes.Equal(a.GUIDHash, guidHash) {
			return a, nil
		}
	}
	return nil, errors.Wrapf(errors.ErrNotFound, "account %X", guidHash)
}

// PolicyApprovers resolves a policy's approver bits to signer addresses,
// preserving slot order. Bits are only ever set for live signer slots.
func (w *Wallet) PolicyApprovers(p Policy) []vault.Address {
	var out []vault.Address
	for _, id := range p.Approvers.Ones() {
		out = append(out, vault.Address(w.Signers.Get(id)))
	}
	return out
}

// CanInitiate reports whether the given address may initiate a proposal
// gated by the given policy: the assistant always may, otherwise the
// address must be one of the policy's approvers.
func (w *Wallet) CanInitiate(addr vault.Address, p Policy) bool {
	if w.Assistant.Equals(addr) {
		return true
	}
	for _, a := range w.PolicyApprovers(p) {
		if a.Equals(addr) {
			return true
		}
	}
	return false
}

func addrItems(addrs []vault.Address) [][]byte {
	items := make([][]byte, len(addrs))
	for i, a := range addrs {
		items[i] = a
	}
	return items
}
