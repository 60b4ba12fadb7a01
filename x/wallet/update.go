package wallet

import (
	"github.com/custodix/vault"
	"github.com/custodix/vault/errors"
	"github.com/custodix/vault/slot"
)

// Toggle is a tri-state switch used by settings updates, so a delta can
// leave a flag untouched.
type Toggle byte

const (
	ToggleUnchanged Toggle = iota
	ToggleOff
	ToggleOn
)

func (t Toggle) apply(current bool) bool {
	switch t {
	case ToggleOff:
		return false
	case ToggleOn:
		return true
	default:
		return current
	}
}

// SignersUpdate adds and removes signer registry entries. A removed signer
// loses its approver bit everywhere, in the wallet config policy and in
// every balance account's transfer policy.
type SignersUpdate struct {
	Add    []vault.Address
	Remove []vault.Address
}

// ConfigPolicyUpdate replaces the wallet-wide approval policy.
type ConfigPolicyUpdate struct {
	Required        uint8
	Timeout         vault.UnixDuration
	AddApprovers    []vault.Address
	RemoveApprovers []vault.Address
}

// BookUpdate adds and removes entries of the address book or the dapp book.
type BookUpdate struct {
	Add    []vault.Address
	Remove []vault.Address
}

// CreateAccountParams describes a new balance account.
type CreateAccountParams struct {
	GUIDHash         []byte
	NameHash         []byte
	Required         uint8
	Timeout          vault.UnixDuration
	Approvers        []vault.Address
	WhitelistEnabled bool
	DAppsEnabled     bool
}

// AccountPolicyUpdate replaces one balance account's transfer policy.
type AccountPolicyUpdate struct {
	GUIDHash        []byte
	Required        uint8
	Timeout         vault.UnixDuration
	AddApprovers    []vault.Address
	RemoveApprovers []vault.Address
}

// AccountSettingsUpdate toggles one balance account's whitelist and dapp
// flags and maintains its allowed destination set. Destinations must be
// address book entries.
type AccountSettingsUpdate struct {
	GUIDHash           []byte
	Whitelist          Toggle
	DApps              Toggle
	AddDestinations    []vault.Address
	RemoveDestinations []vault.Address
}

// TransferParams describes a transfer out of a balance account.
type TransferParams struct {
	GUIDHash    []byte
	Destination vault.Address
	Amount      uint64
}

// ApplySignersUpdate mutates the receiver in place. Removals run first;
// every slot they free is cleared from all dependent approver sets before
// insertions may reuse it. The update fails if any policy's required count
// becomes unreachable. Callers apply updates to a clone so a failure leaves
// the stored record untouched.
func (w *Wallet) ApplySignersUpdate(u SignersUpdate) error {
	freed := w.Signers.RemoveMany(addrItems(u.Remove))
	for _, id := range freed {
		w.Config.Approvers.Clear(id)
		for _, acct := range w.Accounts {
			acct.Policy.Approvers.Clear(id)
		}
	}
	if err := w.Signers.InsertMany(addrItems(u.Add)); err != nil {
		return errors.Wrap(err, "signers")
	}
	if err := w.Config.Validate(); err != nil {
		return errors.Wrap(err, "config policy")
	}
	for _, acct := range w.Accounts {
		if err := acct.Policy.Validate(); err != nil {
			return errors.Wrapf(err, "account %X policy", acct.GUIDHash)
		}
	}
	return nil
}

// ApplyConfigPolicyUpdate mutates the receiver in place.
func (w *Wallet) ApplyConfigPolicyUpdate(u ConfigPolicyUpdate) error {
	return w.applyPolicy(&w.Config, u.Required, u.Timeout, u.AddApprovers, u.RemoveApprovers)
}

// applyPolicy rewrites a policy's threshold, timeout and approver set. Every
// referenced approver must resolve to a live signer slot; an unresolvable
// item aborts the whole update.
func (w *Wallet) applyPolicy(
	p *Policy,
	required uint8,
	timeout vault.UnixDuration,
	add []vault.Address,
	remove []vault.Address,
) error {
	for _, a := range remove {
		id, ok := w.Signers.FindSlot(a)
		if !ok {
			return errors.Wrapf(errors.ErrInput, "%s is not configured as signer", a)
		}
		p.Approvers.Clear(id)
	}
	for _, a := range add {
		id, ok := w.Signers.FindSlot(a)
		if !ok {
			return errors.Wrapf(errors.ErrInput, "%s is not configured as signer", a)
		}
		p.Approvers.Set(id)
	}
	p.Required = required
	p.Timeout = timeout
	return p.Validate()
}

// ApplyAddressBookUpdate mutates the receiver in place. Slots freed by a
// removal are cleared from every account's allowed destination set before
// insertions may reuse them.
func (w *Wallet) ApplyAddressBookUpdate(u BookUpdate) error {
	freed := w.AddressBook.RemoveMany(addrItems(u.Remove))
	for _, id := range freed {
		for _, acct := range w.Accounts {
			acct.AllowedDestinations.Clear(id)
		}
	}
	if err := w.AddressBook.InsertMany(addrItems(u.Add)); err != nil {
		return errors.Wrap(err, "address book")
	}
	return nil
}

// ApplyDAppBookUpdate mutates the receiver in place.
func (w *Wallet) ApplyDAppBookUpdate(u BookUpdate) error {
	w.DAppBook.RemoveMany(addrItems(u.Remove))
	if err := w.DAppBook.InsertMany(addrItems(u.Add)); err != nil {
		return errors.Wrap(err, "dapp book")
	}
	return nil
}

// AddBalanceAccount mutates the receiver in place, creating a new balance
// account. Its approvers must be live signers.
func (w *Wallet) AddBalanceAccount(u CreateAccountParams) error {
	if _, err := w.Account(u.GUIDHash); err == nil {
		return errors.Wrapf(errors.ErrDuplicate, "account %X", u.GUIDHash)
	}
	if len(w.Accounts) >= MaxAccounts {
		return errors.Wrapf(errors.ErrCapacity, "%d accounts", len(w.Accounts))
	}
	acct := &BalanceAccount{
		GUIDHash:            append([]byte(nil), u.GUIDHash...),
		NameHash:            append([]byte(nil), u.NameHash...),
		Policy:              NewPolicy(u.Required, u.Timeout),
		AllowedDestinations: slot.NewBitSet(AddressBookCap),
		WhitelistEnabled:    u.WhitelistEnabled,
		DAppsEnabled:        u.DAppsEnabled,
	}
	for _, a := range u.Approvers {
		id, ok := w.Signers.FindSlot(a)
		if !ok {
			return errors.Wrapf(errors.ErrInput, "%s is not configured as signer", a)
		}
		acct.Policy.Approvers.Set(id)
	}
	if err := acct.Validate(); err != nil {
		return err
	}
	w.Accounts = append(w.Accounts, acct)
	return nil
}

// ApplyAccountPolicyUpdate mutates the receiver in place.
func (w *Wallet) ApplyAccountPolicyUpdate(u AccountPolicyUpdate) error {
	acct, err := w.Account(u.GUIDHash)
	if err != nil {
		return err
	}
	return w.applyPolicy(&acct.Policy, u.Required, u.Timeout, u.AddApprovers, u.RemoveApprovers)
}

// ApplyAccountSettingsUpdate mutates the receiver in place. Destination
// changes must reference live address book entries.
func (w *Wallet) ApplyAccountSettingsUpdate(u AccountSettingsUpdate) error {
	acct, err := w.Account(u.GUIDHash)
	if err != nil {
		return err
	}
	for _, a := range u.RemoveDestinations {
		id, ok := w.AddressBook.FindSlot(a)
		if !ok {
			return errors.Wrapf(errors.ErrInput, "%s is not configured as destination", a)
		}
		acct.AllowedDestinations.Clear(id)
	}
	for _, a := range u.AddDestinations {
		id, ok := w.AddressBook.FindSlot(a)
		if !ok {
			return errors.Wrapf(errors.ErrInput, "%s is not configured as destination", a)
		}
		acct.AllowedDestinations.Set(id)
	}
	acct.WhitelistEnabled = u.Whitelist.apply(acct.WhitelistEnabled)
	acct.DAppsEnabled = u.DApps.apply(acct.DAppsEnabled)
	return nil
}

// AuthorizeTransfer checks a transfer against the account's whitelist
// settings and the address book. It is evaluated both when a transfer is
// proposed and again when it is finalized, as the whitelist may have
// changed in between.
func (w *Wallet) AuthorizeTransfer(u TransferParams) error {
	acct, err := w.Account(u.GUIDHash)
	if err != nil {
		return err
	}
	if u.Amount == 0 {
		return errors.Wrap(errors.ErrAmount, "zero transfer")
	}
	if err := u.Destination.Validate(); err != nil {
		return errors.Wrap(err, "destination")
	}
	if acct.WhitelistEnabled {
		id, ok := w.AddressBook.FindSlot(u.Destination)
		if !ok || !acct.AllowedDestinations.Has(id) {
			return errors.Wrapf(errors.ErrUnauthorized,
				"destination %s is not whitelisted", u.Destination)
		}
	}
	return nil
}
