// Package vaulttest provides test helpers for generating signer identities.
// The engine itself never verifies signatures (the host supplies verified
// caller identity), but tests want realistic key material behind the
// conditions they authorize with.
package vaulttest

import (
	"crypto/rand"
	"crypto/sha256"

	"golang.org/x/crypto/ed25519"

	"github.com/custodix/vault"
)

// Signer is a test identity: an ed25519 key pair plus the condition and
// address the vault knows it by.
type Signer struct {
	Pub  ed25519.PublicKey
	Priv ed25519.PrivateKey
}

// NewSigner generates a random test signer.
func NewSigner() *Signer {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		panic(err)
	}
	return &Signer{Pub: pub, Priv: priv}
}

// SignerFromSeed derives a deterministic test signer from a seed string, so
// fixtures can refer to the same identity by name across test cases.
func SignerFromSeed(seed string) *Signer {
	sum := sha256.Sum256([]byte(seed))
	priv := ed25519.NewKeyFromSeed(sum[:])
	return &Signer{
		Pub:  priv.Public().(ed25519.PublicKey),
		Priv: priv,
	}
}

// Condition returns the signature condition of this signer.
func (s *Signer) Condition() vault.Condition {
	return vault.NewCondition("sigs", "ed25519", s.Pub)
}

// Address returns the vault address of this signer.
func (s *Signer) Address() vault.Address {
	return s.Condition().Address()
}

// Sign signs the message with the signer's private key.
func (s *Signer) Sign(msg []byte) []byte {
	return ed25519.Sign(s.Priv, msg)
}
