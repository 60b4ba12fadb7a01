package store

import "github.com/custodix/vault"

// Move references for all storage types into this package for shorter names
// everywhere.

type KVStore = vault.KVStore
type ReadOnlyKVStore = vault.ReadOnlyKVStore
type CacheableKVStore = vault.CacheableKVStore
type KVCacheWrap = vault.KVCacheWrap
type Batch = vault.Batch
type SetDeleter = vault.SetDeleter
