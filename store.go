package vault

// ReadOnlyKVStore is a simple interface to read data.
type ReadOnlyKVStore interface {
	// Get returns nil iff key doesn't exist. Panics on nil key.
	Get(key []byte) ([]byte, error)

	// Has checks if a key exists. Panics on nil key.
	Has(key []byte) (bool, error)
}

// KVStore is a simple interface to get/set data.
//
// For simplicity, we require all backing stores to implement this interface.
// They *may* implement other methods as well, but at least these are
// required.
//
// Note that all records persisted through this interface have a fixed byte
// length per record type (empty slots zero-filled), so every write is an
// in-place update of a point-addressed cell and no range iteration is ever
// needed.
type KVStore interface {
	ReadOnlyKVStore

	// Set sets the key. Panics on nil key.
	Set(key, value []byte) error

	// Delete deletes the key. Panics on nil key.
	Delete(key []byte) error
}

// CacheableKVStore is a KVStore that can be wrapped with a cache.
type CacheableKVStore interface {
	KVStore
	CacheWrap() KVCacheWrap
}

// KVCacheWrap allows us to create a new local cache, which we can batch
// write to the parent, or discard. This is the transactional boundary used
// by dry-run execution: run the calls against the wrap, read the outcome,
// then Discard.
type KVCacheWrap interface {
	// CacheableKVStore allows us to use this Cache recursively.
	CacheableKVStore

	// Write syncs with the underlying store.
	Write() error

	// Discard invalidates this CacheWrap and releases all data.
	Discard()
}

// SetDeleter is a minimal interface for writing, the write-side subset of
// KVStore.
type SetDeleter interface {
	Set(key, value []byte) error
	Delete(key []byte) error
}

// Batch can write multiple operations to the underlying store and flush them
// atomically with Write.
type Batch interface {
	SetDeleter
	Write() error
}
