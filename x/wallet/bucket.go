package wallet

import (
	"github.com/custodix/vault"
	"github.com/custodix/vault/errors"
	"github.com/custodix/vault/orm"
)

// walletKey is the fixed key of the single wallet record. The host
// dispatches every call against one wallet's store.
var walletKey = []byte("s")

// Bucket persists the wallet record.
type Bucket struct {
	bucket orm.Bucket
}

func NewBucket() Bucket {
	return Bucket{bucket: orm.NewBucket("wallet")}
}

// Init stores the wallet. It fails when a wallet already exists, so the
// record can only be created once.
func (b Bucket) Init(db vault.KVStore, w *Wallet) error {
	ok, err := b.bucket.Has(db, walletKey)
	if err != nil {
		return err
	}
	if ok {
		return errors.Wrap(errors.ErrDuplicate, "wallet already initialized")
	}
	return b.bucket.Save(db, walletKey, w)
}

// Get loads the wallet record.
func (b Bucket) Get(db vault.ReadOnlyKVStore) (*Wallet, error) {
	var w Wallet
	if err := b.bucket.One(db, walletKey, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// Save persists an updated wallet record.
func (b Bucket) Save(db vault.KVStore, w *Wallet) error {
	return b.bucket.Save(db, walletKey, w)
}
