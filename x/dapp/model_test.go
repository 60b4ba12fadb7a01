package dapp

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodix/vault"
	"github.com/custodix/vault/errors"
)

func addr(name string) vault.Address {
	return vault.NewCondition("sigs", "ed25519", []byte(name)).Address()
}

func hash(name string) []byte {
	h := sha256.Sum256([]byte(name))
	return h[:]
}

func TestStagedHashIndependentOfSupplyOrder(t *testing.T) {
	forward, err := NewStagedTx(hash("acct"), addr("dapp"), 2)
	require.NoError(t, err)
	require.NoError(t, forward.Supply(0, [][]byte{[]byte("first"), []byte("second")}))

	backward, err := NewStagedTx(hash("acct"), addr("dapp"), 2)
	require.NoError(t, err)
	require.NoError(t, backward.Supply(1, [][]byte{[]byte("second")}))
	require.NoError(t, backward.Supply(0, [][]byte{[]byte("first")}))

	fh, err := forward.StructuralHash()
	require.NoError(t, err)
	bh, err := backward.StructuralHash()
	require.NoError(t, err)
	assert.Equal(t, fh, bh)

	assert.NotEqual(t, fh, forward.placeholder().Fingerprint(),
		"placeholder and structural commitments live in distinct domains")
}

func TestStagedHashOnlyWhenComplete(t *testing.T) {
	tx, err := NewStagedTx(hash("acct"), addr("dapp"), 2)
	require.NoError(t, err)
	require.NoError(t, tx.Supply(0, [][]byte{[]byte("first")}))

	assert.False(t, tx.Complete())
	_, err = tx.StructuralHash()
	assert.True(t, errors.ErrNotReady.Is(err))
}

func TestStagedSupplyIsWriteOnce(t *testing.T) {
	tx, err := NewStagedTx(hash("acct"), addr("dapp"), 3)
	require.NoError(t, err)
	require.NoError(t, tx.Supply(1, [][]byte{[]byte("middle")}))

	err = tx.Supply(1, [][]byte{[]byte("overwrite")})
	assert.True(t, errors.ErrDuplicate.Is(err))
	assert.Equal(t, []byte("middle"), tx.Instructions[1], "no silent overwrite")
}

func TestStagedSupplyRangeChecked(t *testing.T) {
	tx, err := NewStagedTx(hash("acct"), addr("dapp"), 2)
	require.NoError(t, err)

	err = tx.Supply(1, [][]byte{[]byte("a"), []byte("b")})
	assert.True(t, errors.ErrCapacity.Is(err))
	assert.Nil(t, tx.Instructions[1], "failed supply fills nothing")

	err = tx.Supply(0, [][]byte{nil})
	assert.True(t, errors.ErrEmpty.Is(err))

	big := make([]byte, MaxInstructionLen+1)
	big[0] = 1
	err = tx.Supply(0, [][]byte{big})
	assert.True(t, errors.ErrInput.Is(err))
}

func TestStagedDeclaredCountBounds(t *testing.T) {
	_, err := NewStagedTx(hash("acct"), addr("dapp"), 0)
	assert.True(t, errors.ErrInput.Is(err))

	_, err = NewStagedTx(hash("acct"), addr("dapp"), MaxInstructions+1)
	assert.True(t, errors.ErrInput.Is(err))
}

func TestStagedSerializationRoundTrip(t *testing.T) {
	tx, err := NewStagedTx(hash("acct"), addr("dapp"), 3)
	require.NoError(t, err)
	require.NoError(t, tx.Supply(2, [][]byte{[]byte("tail")}))

	raw, err := tx.Marshal()
	require.NoError(t, err)
	assert.Equal(t, tx.Size(), len(raw))

	var restored StagedTx
	require.NoError(t, restored.Unmarshal(raw))
	assert.Equal(t, tx, &restored)
	assert.False(t, restored.Complete(), "unfilled slots survive the round trip")
}
