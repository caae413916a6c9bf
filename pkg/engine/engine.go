// Package engine defines the ordered byte-store capability consumed by the
// typed layer. An Engine maps raw byte keys to raw byte values in
// byte-lexicographic order and supplies prefix iteration, an atomic
// multi-operation write primitive, and a transactional execution primitive.
//
// Implementations live in the subpackages (pebble, badger, bolt) and translate
// their library's errors to the sentinels declared here. The typed layer never
// imports a storage library directly.
package engine

import "errors"

// Errors
var (
	// ErrNotFound is returned by Get when the key is absent.
	ErrNotFound = errors.New("engine: key not found")

	// ErrConflict is returned by Update when a transaction body could not be
	// committed within the engine's retry budget.
	ErrConflict = errors.New("engine: transaction conflict")

	// ErrReadOnly is returned by mutating operations on a read-only engine.
	ErrReadOnly = errors.New("engine: store is read-only")
)

// Op is a single pending write in a batch: a put, or a delete when Delete
// is set.
type Op struct {
	Key    []byte
	Value  []byte
	Delete bool
}

// Engine is an ordered store of raw byte keys to raw byte values.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Engine interface {
	// Get returns the value stored for key, or ErrNotFound.
	Get(key []byte) ([]byte, error)

	// Set stores value under key, overwriting any previous value.
	Set(key, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key []byte) error

	// NewIterator returns an iterator over all keys beginning with prefix,
	// in ascending byte order. The iterator observes a snapshot taken at
	// creation; writes made afterwards are not visible through it.
	NewIterator(prefix []byte) (Iterator, error)

	// ApplyBatch applies ops in order as one atomic write: either every
	// operation becomes visible or none do.
	ApplyBatch(ops []Op) error

	// Update executes fn inside a read-write transaction. Writes made
	// through the Txn are invisible outside it until fn returns nil and the
	// transaction commits. The engine owns the conflict retry loop: a
	// conflicted body is re-executed from the start with a fresh Txn, and
	// ErrConflict is returned only once the retry budget is exhausted. Any
	// error returned by fn stops the loop, discards the transaction, and is
	// returned unchanged.
	Update(fn func(Txn) error) error

	// View executes fn inside a read-only transaction.
	View(fn func(Txn) error) error

	// Close releases the underlying handle.
	Close() error
}

// Txn is the transactional context handed to Update and View bodies.
// Reads observe the transaction's own pending writes.
type Txn interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	NewIterator(prefix []byte) (Iterator, error)
}

// Iterator is a forward cursor over an ordered key range.
//
// The byte slices returned by Key and Value are only valid until the next
// call to Next or Close; callers retaining them must copy.
type Iterator interface {
	// Next advances to the next pair, returning false when the range is
	// exhausted or an error occurred. It must be called before the first
	// Key/Value access.
	Next() bool

	Key() []byte
	Value() []byte

	// Err reports the error that terminated iteration, if any.
	Err() error

	Close() error
}

// PrefixUpperBound returns the smallest key greater than every key that
// begins with prefix, or nil if no such bound exists (all 0xff).
func PrefixUpperBound(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
