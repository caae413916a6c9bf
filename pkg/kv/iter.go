package kv

import "github.com/njordb/njord/pkg/engine"

// Iter is a lazy, ordered walk over a bucket's subspace. Usage follows the
// usual cursor pattern:
//
//	it, err := bucket.Iter()
//	...
//	defer it.Close()
//	for it.Next() {
//		item := it.Item()
//		...
//	}
//	if err := it.Err(); err != nil { ... }
type Iter[K, V any] struct {
	bucket *Bucket[K, V]
	it     engine.Iterator
}

// Next advances to the next pair, returning false when the subspace is
// exhausted or the engine reported an error (check Err).
func (i *Iter[K, V]) Next() bool { return i.it.Next() }

// Item returns the pair at the current position. The returned item owns
// copies of the raw bytes and stays valid after further Next calls.
func (i *Iter[K, V]) Item() Item[K, V] {
	rawKey := i.it.Key()
	rawValue := i.it.Value()

	// Strip the subspace prefix; the engine guarantees it is present.
	key := make([]byte, len(rawKey)-len(i.bucket.prefix))
	copy(key, rawKey[len(i.bucket.prefix):])
	value := make([]byte, len(rawValue))
	copy(value, rawValue)

	return Item[K, V]{keys: i.bucket.keys, values: i.bucket.values, key: key, value: value}
}

// Err reports the error that terminated iteration, if any.
func (i *Iter[K, V]) Err() error { return i.it.Err() }

// Close releases the iterator and its snapshot.
func (i *Iter[K, V]) Close() error { return i.it.Close() }

// Item is one raw key/value pair from an iteration. Decoding is deferred
// until Key or Value is called, and each side decodes independently: a scan
// that only reads keys never pays for value decoding, and a corrupt value
// does not prevent reading its key.
type Item[K, V any] struct {
	keys   Codec[K]
	values Codec[V]
	key    []byte
	value  []byte
}

// Key decodes and returns the typed key.
func (it Item[K, V]) Key() (K, error) { return it.keys.Decode(it.key) }

// Value decodes and returns the typed value.
func (it Item[K, V]) Value() (V, error) { return it.values.Decode(it.value) }

// RawKey returns the encoded key bytes, without the subspace prefix.
func (it Item[K, V]) RawKey() []byte { return it.key }

// RawValue returns the encoded value bytes.
func (it Item[K, V]) RawValue() []byte { return it.value }
