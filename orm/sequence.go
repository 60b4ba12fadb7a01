package orm

import (
	"encoding/binary"

	"github.com/custodix/vault"
)

// Sequence issues an increasing series of 8 byte identifiers backed by a
// single counter cell. Later identifiers sort after earlier ones under
// bytes.Compare, so records keyed by them line up in creation order.
type Sequence struct {
	id []byte
}

// NewSequence returns a sequence counter persisting its state under
//    _s.<bucket>:<name>
func NewSequence(bucket, name string) Sequence {
	return Sequence{
		id: []byte("_s." + bucket + ":" + name),
	}
}

// NextVal increments the sequence and returns its new state as 8 big endian
// bytes. Every returned value is unique within the store.
func (s *Sequence) NextVal(db vault.KVStore) ([]byte, error) {
	raw, err := db.Get(s.id)
	if err != nil {
		return nil, err
	}
	var val uint64
	if raw != nil {
		val = binary.BigEndian.Uint64(raw)
	}
	raw = make([]byte, 8)
	binary.BigEndian.PutUint64(raw, val+1)
	if err := db.Set(s.id, raw); err != nil {
		return nil, err
	}
	return raw, nil
}
