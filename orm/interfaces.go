package orm

import "github.com/custodix/vault"

// Model is implemented by any entity that can be stored in a Bucket.
//
// Size reports the fixed encoded length of the record type. Every record of
// a given type encodes to exactly Size bytes regardless of contents (empty
// slots zero-filled), which keeps all storage cells in-place updatable.
// Buckets enforce this on both save and load.
type Model interface {
	vault.Persistent

	// Validate returns an error if the model is not in a valid state to
	// save to the db (eg. field missing, out of range, ...).
	Validate() error

	// Size returns the fixed encoded length of this record type in bytes.
	Size() int
}
