package wallet

import (
	"encoding/binary"

	"github.com/custodix/vault"
	"github.com/custodix/vault/errors"
	"github.com/custodix/vault/slot"
)

// Fixed serialized lengths. Free registry slots and unused account slots
// are zero-filled, so a wallet record always has the same byte length.
const (
	signersBitsetLen = (SignersCap + 7) / 8
	destsBitsetLen   = (AddressBookCap + 7) / 8

	policySize = 1 + 4 + signersBitsetLen + 1

	accountSize = HashLength + HashLength + policySize + destsBitsetLen + 2

	walletSize = vault.AddressLength +
		SignersCap*vault.AddressLength +
		policySize +
		AddressBookCap*vault.AddressLength +
		DAppBookCap*vault.AddressLength +
		1 + MaxAccounts*accountSize
)

// Size returns the fixed encoded length of a wallet record.
func (w *Wallet) Size() int { return walletSize }

func (w *Wallet) Marshal() ([]byte, error) {
	raw := make([]byte, walletSize)
	off := 0
	copy(raw[off:off+vault.AddressLength], w.Assistant)
	off += vault.AddressLength

	if err := w.Signers.WriteTo(raw[off : off+w.Signers.EncodedLen()]); err != nil {
		return nil, errors.Wrap(err, "signers")
	}
	off += w.Signers.EncodedLen()

	if err := marshalPolicy(raw[off:off+policySize], w.Config); err != nil {
		return nil, errors.Wrap(err, "config policy")
	}
	off += policySize

	if err := w.AddressBook.WriteTo(raw[off : off+w.AddressBook.EncodedLen()]); err != nil {
		return nil, errors.Wrap(err, "address book")
	}
	off += w.AddressBook.EncodedLen()

	if err := w.DAppBook.WriteTo(raw[off : off+w.DAppBook.EncodedLen()]); err != nil {
		return nil, errors.Wrap(err, "dapp book")
	}
	off += w.DAppBook.EncodedLen()

	raw[off] = byte(len(w.Accounts))
	off++
	for _, a := range w.Accounts {
		if err := marshalAccount(raw[off:off+accountSize], a); err != nil {
			return nil, err
		}
		off += accountSize
	}
	return raw, nil
}

func (w *Wallet) Unmarshal(raw []byte) error {
	if len(raw) != walletSize {
		return errors.Wrapf(errors.ErrModel,
			"wallet must be %d bytes, got %d", walletSize, len(raw))
	}
	off := 0
	w.Assistant = make(vault.Address, vault.AddressLength)
	copy(w.Assistant, raw[off:off+vault.AddressLength])
	off += vault.AddressLength

	w.Signers = slot.NewRegistry(SignersCap, vault.AddressLength)
	if err := w.Signers.ReadFrom(raw[off : off+w.Signers.EncodedLen()]); err != nil {
		return errors.Wrap(err, "signers")
	}
	off += w.Signers.EncodedLen()

	if err := unmarshalPolicy(raw[off:off+policySize], &w.Config); err != nil {
		return errors.Wrap(err, "config policy")
	}
	off += policySize

	w.AddressBook = slot.NewRegistry(AddressBookCap, vault.AddressLength)
	if err := w.AddressBook.ReadFrom(raw[off : off+w.AddressBook.EncodedLen()]); err != nil {
		return errors.Wrap(err, "address book")
	}
	off += w.AddressBook.EncodedLen()

	w.DAppBook = slot.NewRegistry(DAppBookCap, vault.AddressLength)
	if err := w.DAppBook.ReadFrom(raw[off : off+w.DAppBook.EncodedLen()]); err != nil {
		return errors.Wrap(err, "dapp book")
	}
	off += w.DAppBook.EncodedLen()

	n := int(raw[off])
	off++
	if n > MaxAccounts {
		return errors.Wrapf(errors.ErrModel, "%d accounts stored", n)
	}
	w.Accounts = make([]*BalanceAccount, n)
	for i := 0; i < n; i++ {
		a := &BalanceAccount{}
		if err := unmarshalAccount(raw[off:off+accountSize], a); err != nil {
			return errors.Wrapf(err, "account %d", i)
		}
		w.Accounts[i] = a
		off += accountSize
	}
	return nil
}

func marshalPolicy(dst []byte, p Policy) error {
	dst[0] = p.Required
	binary.BigEndian.PutUint32(dst[1:], uint32(p.Timeout))
	if err := p.Approvers.WriteTo(dst[5 : 5+signersBitsetLen]); err != nil {
		return err
	}
	if p.Locked {
		dst[5+signersBitsetLen] = 1
	}
	return nil
}

func unmarshalPolicy(src []byte, p *Policy) error {
	p.Required = src[0]
	p.Timeout = vault.UnixDuration(binary.BigEndian.Uint32(src[1:]))
	p.Approvers = slot.NewBitSet(SignersCap)
	if err := p.Approvers.ReadFrom(src[5 : 5+signersBitsetLen]); err != nil {
		return err
	}
	p.Locked = src[5+signersBitsetLen] == 1
	return nil
}

func marshalAccount(dst []byte, a *BalanceAccount) error {
	copy(dst[:HashLength], a.GUIDHash)
	copy(dst[HashLength:2*HashLength], a.NameHash)
	off := 2 * HashLength
	if err := marshalPolicy(dst[off:off+policySize], a.Policy); err != nil {
		return err
	}
	off += policySize
	if err := a.AllowedDestinations.WriteTo(dst[off : off+destsBitsetLen]); err != nil {
		return err
	}
	off += destsBitsetLen
	if a.WhitelistEnabled {
		dst[off] = 1
	}
	if a.DAppsEnabled {
		dst[off+1] = 1
	}
	return nil
}

func unmarshalAccount(src []byte, a *BalanceAccount) error {
	a.GUIDHash = make([]byte, HashLength)
	copy(a.GUIDHash, src[:HashLength])
	a.NameHash = make([]byte, HashLength)
	copy(a.NameHash, src[HashLength:2*HashLength])
	off := 2 * HashLength
	if err := unmarshalPolicy(src[off:off+policySize], &a.Policy); err != nil {
		return err
	}
	off += policySize
	a.AllowedDestinations = slot.NewBitSet(AddressBookCap)
	if err := a.AllowedDestinations.ReadFrom(src[off : off+destsBitsetLen]); err != nil {
		return err
	}
	off += destsBitsetLen
	a.WhitelistEnabled = src[off] == 1
	a.DAppsEnabled = src[off+1] == 1
	return nil
}
