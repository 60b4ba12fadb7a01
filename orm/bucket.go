package orm

import (
	"regexp"

	"github.com/custodix/vault"
	"github.com/custodix/vault/errors"
)

// bucket name must be a valid namespace
var isBucketName = regexp.MustCompile(`^[a-z_]{1,10}$`).MatchString

// Bucket is a generic holder that stores fixed-size records under a common
// key prefix. It is the main entry point for all storage access in the
// vault.
type Bucket struct {
	name   string
	prefix []byte
}

// NewBucket creates a bucket with given name. Panics on invalid name, which
// is fine as buckets are only declared during package initialization.
func NewBucket(name string) Bucket {
	if !isBucketName(name) {
		panic("invalid bucket name: " + name)
	}
	return Bucket{
		name:   name,
		prefix: append([]byte(name), ':'),
	}
}

// Name returns the name of the bucket.
func (b Bucket) Name() string {
	return b.name
}

// DBKey is the full key we store in the db, including the bucket prefix.
func (b Bucket) DBKey(key []byte) []byte {
	return append(b.prefix, key...)
}

// One loads the record stored under the given key into the model. It returns
// ErrNotFound when there is no record and ErrModel when the stored bytes do
// not have the model's fixed length.
func (b Bucket) One(db vault.ReadOnlyKVStore, key []byte, model Model) error {
	raw, err := db.Get(b.DBKey(key))
	if err != nil {
		return errors.Wrap(err, "bucket get")
	}
	if raw == nil {
		return errors.Wrapf(errors.ErrNotFound, "bucket %s, key %X", b.name, key)
	}
	if len(raw) != model.Size() {
		return errors.Wrapf(errors.ErrModel,
			"bucket %s, key %X: %d bytes stored, record type requires %d",
			b.name, key, len(raw), model.Size())
	}
	return model.Unmarshal(raw)
}

// Has returns true if a record exists under the given key.
func (b Bucket) Has(db vault.ReadOnlyKVStore, key []byte) (bool, error) {
	return db.Has(b.DBKey(key))
}

// Save validates the model and persists its fixed-size serialization under
// the given key.
func (b Bucket) Save(db vault.KVStore, key []byte, model Model) error {
	if err := model.Validate(); err != nil {
		return errors.Wrap(err, "invalid model")
	}
	raw, err := model.Marshal()
	if err != nil {
		return errors.Wrap(err, "marshal model")
	}
	if len(raw) != model.Size() {
		return errors.Wrapf(errors.ErrModel,
			"bucket %s: model serialized to %d bytes, record type requires %d",
			b.name, len(raw), model.Size())
	}
	return db.Set(b.DBKey(key), raw)
}

// Delete removes the record stored under the given key. Deleting an absent
// record is an error, so a storage cell can be reclaimed exactly once.
func (b Bucket) Delete(db vault.KVStore, key []byte) error {
	ok, err := db.Has(b.DBKey(key))
	if err != nil {
		return errors.Wrap(err, "bucket has")
	}
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "bucket %s, key %X", b.name, key)
	}
	return db.Delete(b.DBKey(key))
}
