package wallet

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"

	"github.com/custodix/vault"
	"github.com/custodix/vault/x/multisig"
)

// Parameter fingerprints are sha256 digests over a type tag and a canonical
// encoding of the update. The tag keeps two different update kinds with an
// identical field encoding from sharing a fingerprint.
const (
	tagSignersUpdate byte = iota + 1
	tagConfigPolicyUpdate
	tagAddressBookUpdate
	tagDAppBookUpdate
	tagCreateAccount
	tagAccountPolicyUpdate
	tagAccountSettingsUpdate
	tagTransfer
)

var (
	_ multisig.Params = SignersUpdate{}
	_ multisig.Params = ConfigPolicyUpdate{}
	_ multisig.Params = addressBookUpdate{}
	_ multisig.Params = dappBookUpdate{}
	_ multisig.Params = CreateAccountParams{}
	_ multisig.Params = AccountPolicyUpdate{}
	_ multisig.Params = AccountSettingsUpdate{}
	_ multisig.Params = TransferParams{}
)

// addressBookUpdate and dappBookUpdate give the shared BookUpdate shape two
// distinct fingerprint tags.
type addressBookUpdate struct{ BookUpdate }

type dappBookUpdate struct{ BookUpdate }

func (u SignersUpdate) Fingerprint() []byte {
	var buf bytes.Buffer
	buf.WriteByte(tagSignersUpdate)
	writeAddrs(&buf, u.Add)
	writeAddrs(&buf, u.Remove)
	return digest(&buf)
}

func (u ConfigPolicyUpdate) Fingerprint() []byte {
	var buf bytes.Buffer
	buf.WriteByte(tagConfigPolicyUpdate)
	writePolicyDelta(&buf, u.Required, u.Timeout, u.AddApprovers, u.RemoveApprovers)
	return digest(&buf)
}

func (u addressBookUpdate) Fingerprint() []byte {
	var buf bytes.Buffer
	buf.WriteByte(tagAddressBookUpdate)
	writeAddrs(&buf, u.Add)
	writeAddrs(&buf, u.Remove)
	return digest(&buf)
}

func (u dappBookUpdate) Fingerprint() []byte {
	var buf bytes.Buffer
	buf.WriteByte(tagDAppBookUpdate)
	writeAddrs(&buf, u.Add)
	writeAddrs(&buf, u.Remove)
	return digest(&buf)
}

func (u CreateAccountParams) Fingerprint() []byte {
	var buf bytes.Buffer
	buf.WriteByte(tagCreateAccount)
	buf.Write(u.GUIDHash)
	buf.Write(u.NameHash)
	writePolicyDelta(&buf, u.Required, u.Timeout, u.Approvers, nil)
	writeBool(&buf, u.WhitelistEnabled)
	writeBool(&buf, u.DAppsEnabled)
	return digest(&buf)
}

func (u AccountPolicyUpdate) Fingerprint() []byte {
	var buf bytes.Buffer
	buf.WriteByte(tagAccountPolicyUpdate)
	buf.Write(u.GUIDHash)
	writePolicyDelta(&buf, u.Required, u.Timeout, u.AddApprovers, u.RemoveApprovers)
	return digest(&buf)
}

func (u AccountSettingsUpdate) Fingerprint() []byte {
	var buf bytes.Buffer
	buf.WriteByte(tagAccountSettingsUpdate)
	buf.Write(u.GUIDHash)
	buf.WriteByte(byte(u.Whitelist))
	buf.WriteByte(byte(u.DApps))
	writeAddrs(&buf, u.AddDestinations)
	writeAddrs(&buf, u.RemoveDestinations)
	return digest(&buf)
}

func (u TransferParams) Fingerprint() []byte {
	var buf bytes.Buffer
	buf.WriteByte(tagTransfer)
	buf.Write(u.GUIDHash)
	buf.Write(u.Destination)
	var amount [8]byte
	binary.BigEndian.PutUint64(amount[:], u.Amount)
	buf.Write(amount[:])
	return digest(&buf)
}

func writeAddrs(buf *bytes.Buffer, addrs []vault.Address) {
	buf.WriteByte(byte(len(addrs)))
	for _, a := range addrs {
		buf.Write(a)
	}
}

func writePolicyDelta(
	buf *bytes.Buffer,
	required uint8,
	timeout vault.UnixDuration,
	add []vault.Address,
	remove []vault.Address,
) {
	buf.WriteByte(required)
	var t [4]byte
	binary.BigEndian.PutUint32(t[:], uint32(timeout))
	buf.Write(t[:])
	writeAddrs(buf, add)
	writeAddrs(buf, remove)
}

func writeBool(buf *bytes.Buffer, v bool) {
	if v {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}

func digest(buf *bytes.Buffer) []byte {
	h := sha256.Sum256(buf.Bytes())
	return h[:]
}
