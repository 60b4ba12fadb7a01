package orm

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodix/vault/errors"
	"github.com/custodix/vault/store"
)

// counter is a minimal fixed-size model for bucket tests.
type counter struct {
	Total uint64
}

func (c *counter) Size() int { return 8 }

func (c *counter) Validate() error {
	return nil
}

func (c *counter) Marshal() ([]byte, error) {
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, c.Total)
	return raw, nil
}

func (c *counter) Unmarshal(raw []byte) error {
	if len(raw) != 8 {
		return errors.Wrap(errors.ErrModel, "invalid length")
	}
	c.Total = binary.BigEndian.Uint64(raw)
	return nil
}

func TestBucketSaveLoadDelete(t *testing.T) {
	db := store.MemStore()
	b := NewBucket("cnts")
	key := []byte("a")

	var missing counter
	err := b.One(db, key, &missing)
	assert.True(t, errors.ErrNotFound.Is(err))

	require.NoError(t, b.Save(db, key, &counter{Total: 7}))

	var loaded counter
	require.NoError(t, b.One(db, key, &loaded))
	assert.Equal(t, uint64(7), loaded.Total)

	require.NoError(t, b.Delete(db, key))
	err = b.Delete(db, key)
	assert.True(t, errors.ErrNotFound.Is(err),
		"second delete of the same record must fail")
}

func TestBucketRejectsWrongLength(t *testing.T) {
	db := store.MemStore()
	b := NewBucket("cnts")
	key := []byte("a")

	// a record written with a different length must not unmarshal
	require.NoError(t, db.Set(b.DBKey(key), []byte{1, 2, 3}))
	var c counter
	err := b.One(db, key, &c)
	assert.True(t, errors.ErrModel.Is(err))
}

func TestBucketsDoNotCollide(t *testing.T) {
	db := store.MemStore()
	b1 := NewBucket("one")
	b2 := NewBucket("two")
	key := []byte("k")

	require.NoError(t, b1.Save(db, key, &counter{Total: 1}))
	require.NoError(t, b2.Save(db, key, &counter{Total: 2}))

	var c counter
	require.NoError(t, b1.One(db, key, &c))
	assert.Equal(t, uint64(1), c.Total)
	require.NoError(t, b2.One(db, key, &c))
	assert.Equal(t, uint64(2), c.Total)
}

func TestSequenceIssuesOrderedKeys(t *testing.T) {
	db := store.MemStore()
	s := NewSequence("mseq", "id")

	var prev []byte
	for i := 0; i < 3; i++ {
		cur, err := s.NextVal(db)
		require.NoError(t, err)
		require.Len(t, cur, 8)
		if prev != nil {
			assert.True(t, bytes.Compare(prev, cur) < 0,
				"keys must sort in issue order")
		}
		prev = cur
	}
	assert.Equal(t, uint64(3), binary.BigEndian.Uint64(prev))
}

func TestSequencesAreIndependent(t *testing.T) {
	db := store.MemStore()
	a := NewSequence("one", "id")
	b := NewSequence("one", "other")

	av, err := a.NextVal(db)
	require.NoError(t, err)
	bv, err := b.NextVal(db)
	require.NoError(t, err)
	assert.Equal(t, av, bv, "each counter starts from its own cell")
}
