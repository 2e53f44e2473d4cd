package storage

import (
	"errors"
	"fmt"

	"github.com/compactmint/compactmint/pkg/core/storage/dbconfig"
)

// KeyPrefix constants.
const (
	// SYSCollection is the key of the singleton collection-wide record
	// (mint watermark, supply cap, batch size, lock flags, base URI).
	SYSCollection KeyPrefix = 0x01
	// STOwnerSlot is used for sparse ownership slot entries identified
	// by a big-endian token ID. Only batch heads and transfer boundaries
	// have a slot, intermediate IDs resolve via a backwards Seek.
	STOwnerSlot KeyPrefix = 0x10
	// STBalance is used for per-account token counters.
	STBalance KeyPrefix = 0x20
	// STTokenApproval is used for single-token approval entries.
	STTokenApproval KeyPrefix = 0x30
	// STOperatorApproval is used for (owner, operator) approval pairs.
	STOperatorApproval KeyPrefix = 0x40
	// STTokenMetadata is used for per-token metadata records.
	STTokenMetadata KeyPrefix = 0x50
)

// SeekRange represents options for Store.Seek operation.
type SeekRange struct {
	// Prefix denotes the Seek's lookup key.
	Prefix []byte
	// Start denotes value appended to the Prefix to start Seek from.
	// Seeking starting from some key includes this key to the result;
	// if no matching key was found then the next suitable key is picked up.
	// Start may be empty. Empty Start means seeking through all keys in
	// the DB with the matching Prefix.
	Start []byte
	// Backwards denotes whether Seek direction should be reversed, i.e.
	// whether seeking should be performed in a descending way.
	// Backwards can be safely combined with Prefix and Start.
	Backwards bool
}

// ErrKeyNotFound is an error returned by Store implementations
// when a certain key is not found.
var ErrKeyNotFound = errors.New("key not found")

type (
	// Store is the underlying KV backend for the ledger data, it's
	// not intended to be used directly, you wrap it with some memory cache
	// layer most of the time.
	Store interface {
		Get([]byte) ([]byte, error)
		// PutChangeSet allows to push the prepared changeset to the Store.
		// A nil value in the set means key removal.
		PutChangeSet(puts map[string][]byte) error
		// Seek can guarantee that provided key (k) and value (v) are the only valid until the next call to f.
		// Seek continues iteration until false is returned from f.
		// Key and value slices should not be modified.
		// Seek can guarantee that key-value items are sorted by key in ascending way.
		Seek(rng SeekRange, f func(k, v []byte) bool)
		Close() error
	}

	// KeyPrefix is a constant byte added as a prefix for each key
	// stored.
	KeyPrefix uint8
)

// Bytes returns the bytes representation of KeyPrefix.
func (k KeyPrefix) Bytes() []byte {
	return []byte{byte(k)}
}

// NewStore creates storage with preselected in configuration database type.
func NewStore(cfg dbconfig.DBConfiguration) (Store, error) {
	var store Store
	var err error
	switch cfg.Type {
	case dbconfig.LevelDB:
		store, err = NewLevelDBStore(cfg.LevelDBOptions)
	case dbconfig.InMemoryDB:
		store = NewMemoryStore()
	case dbconfig.BoltDB:
		store, err = NewBoltDBStore(cfg.BoltDBOptions)
	default:
		return nil, fmt.Errorf("unknown storage: %s", cfg.Type)
	}
	return store, err
}
