package deposit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodix/vault"
	"github.com/custodix/vault/errors"
	"github.com/custodix/vault/store"
)

func TestLedgerCreditDebit(t *testing.T) {
	db := store.MemStore()
	l := NewLedger()
	alice := vault.NewCondition("sigs", "ed25519", []byte("alice")).Address()

	bal, err := l.Balance(db, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), bal)

	require.NoError(t, l.Credit(db, alice, 100))
	require.NoError(t, l.Debit(db, alice, 30))

	bal, err = l.Balance(db, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(70), bal)
}

func TestLedgerInsufficientFunds(t *testing.T) {
	db := store.MemStore()
	l := NewLedger()
	alice := vault.NewCondition("sigs", "ed25519", []byte("alice")).Address()

	require.NoError(t, l.Credit(db, alice, 10))
	err := l.Debit(db, alice, 11)
	assert.True(t, errors.ErrAmount.Is(err))

	bal, err := l.Balance(db, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), bal)
}

func TestLedgerOverflow(t *testing.T) {
	db := store.MemStore()
	l := NewLedger()
	alice := vault.NewCondition("sigs", "ed25519", []byte("alice")).Address()

	require.NoError(t, l.Credit(db, alice, math.MaxUint64))
	err := l.Credit(db, alice, 1)
	assert.True(t, errors.ErrOverflow.Is(err))
}

func TestLedgerMove(t *testing.T) {
	db := store.MemStore()
	l := NewLedger()
	alice := vault.NewCondition("sigs", "ed25519", []byte("alice")).Address()
	bob := vault.NewCondition("sigs", "ed25519", []byte("bob")).Address()

	require.NoError(t, l.Credit(db, alice, 50))
	require.NoError(t, l.Move(db, alice, bob, 50))

	bal, err := l.Balance(db, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), bal)
	bal, err = l.Balance(db, bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), bal)

	err = l.Move(db, alice, bob, 1)
	assert.True(t, errors.ErrAmount.Is(err))
}
