package vault

// Persistent is implemented by every record type that is written to a
// KVStore. Unlike generic serialization, every implementation here encodes
// to a fixed number of bytes regardless of contents, with empty slots
// zero-filled, so records can be updated in place without reallocation.
type Persistent interface {
	// Marshal serializes the record into its fixed-size binary form.
	Marshal() ([]byte, error)
	// Unmarshal parses the fixed-size binary form into this record,
	// overwriting all previous state.
	Unmarshal(raw []byte) error
}
