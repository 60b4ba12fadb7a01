package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBTreeCacheGetSet(t *testing.T) {
	base := MemStore()

	k, v := []byte("french"), []byte("fry")

	val, err := base.Get(k)
	require.NoError(t, err)
	assert.Nil(t, val)

	require.NoError(t, base.Set(k, v))
	val, err = base.Get(k)
	require.NoError(t, err)
	assert.Equal(t, v, val)

	has, err := base.Has(k)
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, base.Delete(k))
	val, err = base.Get(k)
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestBTreeCacheWrapDiscard(t *testing.T) {
	base := MemStore()
	k, v := []byte("subway"), []byte("mind the gap")
	require.NoError(t, base.Set(k, v))

	cache := base.CacheWrap()

	k2, v2 := []byte("d"), []byte("space")
	require.NoError(t, cache.Set(k2, v2))
	require.NoError(t, cache.Delete(k))

	// cached reads see overlay writes, base does not
	val, err := cache.Get(k2)
	require.NoError(t, err)
	assert.Equal(t, v2, val)
	val, err = cache.Get(k)
	require.NoError(t, err)
	assert.Nil(t, val)

	val, err = base.Get(k)
	require.NoError(t, err)
	assert.Equal(t, v, val)

	// discard throws every overlay change away
	cache.Discard()
	val, err = base.Get(k)
	require.NoError(t, err)
	assert.Equal(t, v, val)
	has, err := base.Has(k2)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestBTreeCacheWrapWrite(t *testing.T) {
	base := MemStore()
	cache := base.CacheWrap()

	k, v := []byte("walrus"), []byte("tusk")
	require.NoError(t, cache.Set(k, v))
	require.NoError(t, cache.Write())

	val, err := base.Get(k)
	require.NoError(t, err)
	assert.Equal(t, v, val)
}

func TestBTreeCacheWrapLayered(t *testing.T) {
	base := MemStore()
	k := []byte("key")
	require.NoError(t, base.Set(k, []byte("a")))

	outer := base.CacheWrap()
	inner := outer.CacheWrap()
	require.NoError(t, inner.Set(k, []byte("b")))

	val, err := outer.Get(k)
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), val)

	require.NoError(t, inner.Write())
	val, err = outer.Get(k)
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), val)

	outer.Discard()
	val, err = base.Get(k)
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), val)
}
