package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConditionParse(t *testing.T) {
	cond := NewCondition("sigs", "ed25519", []byte{1, 2, 3, 4})
	require.NoError(t, cond.Validate())

	ext, typ, data, err := cond.Parse()
	require.NoError(t, err)
	assert.Equal(t, "sigs", ext)
	assert.Equal(t, "ed25519", typ)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)
}

func TestConditionRejectsBadFormat(t *testing.T) {
	cases := map[string]Condition{
		"empty":         {},
		"no separators": Condition("justsomebytes"),
		"short ext":     NewCondition("ab", "ed25519", []byte{1}),
		"empty data":    NewCondition("sigs", "ed25519", nil),
	}
	for name, cond := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, cond.Validate())
		})
	}
}

func TestConditionDataMayContainAnyByte(t *testing.T) {
	// derived authorities embed raw hashes, including 0x0a and 0x00
	cond := NewCondition("account", "guid", []byte{0, '\n', 0xff})
	require.NoError(t, cond.Validate())

	_, _, data, err := cond.Parse()
	require.NoError(t, err)
	assert.Equal(t, []byte{0, '\n', 0xff}, data)
}

func TestAddressIsStableDigest(t *testing.T) {
	a := NewCondition("sigs", "ed25519", []byte("alice")).Address()
	b := NewCondition("sigs", "ed25519", []byte("alice")).Address()
	c := NewCondition("sigs", "ed25519", []byte("bob")).Address()

	require.NoError(t, a.Validate())
	assert.Len(t, []byte(a), AddressLength)
	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
}

func TestAddressValidate(t *testing.T) {
	assert.Error(t, Address(nil).Validate())
	assert.Error(t, Address([]byte{1, 2, 3}).Validate())
	assert.NoError(t, NewAddress([]byte("payload")).Validate())
}

func TestAddressClone(t *testing.T) {
	a := NewAddress([]byte("payload"))
	b := a.Clone()
	b[0]++
	assert.False(t, a.Equals(b))
}
