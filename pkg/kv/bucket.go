package kv

import (
	"bytes"
	"errors"

	"github.com/njordb/njord/pkg/engine"
)

// subspaceSep terminates the bucket name in every stored key, so that no
// bucket's subspace is a prefix of another's.
const subspaceSep = 0x00

// Bucket is a typed view over a named subspace of the store. It owns no data
// and holds no lock; any number of handles over the same name may coexist,
// including handles with different codecs.
type Bucket[K, V any] struct {
	store  *Store
	name   string
	prefix []byte
	keys   Codec[K]
	values Codec[V]
}

// NewBucket opens a typed bucket named name on s. The empty name denotes the
// default bucket. Names must not contain NUL bytes.
func NewBucket[K, V any](s *Store, name string, keys Codec[K], values Codec[V]) (*Bucket[K, V], error) {
	if bytes.IndexByte([]byte(name), subspaceSep) >= 0 {
		return nil, ErrBucketName
	}
	prefix := make([]byte, 0, len(name)+1)
	prefix = append(prefix, name...)
	prefix = append(prefix, subspaceSep)

	s.register(name)
	return &Bucket[K, V]{
		store:  s,
		name:   name,
		prefix: prefix,
		keys:   keys,
		values: values,
	}, nil
}

// Name returns the bucket's name; empty for the default bucket.
func (b *Bucket[K, V]) Name() string { return b.name }

// Get returns the value stored for key. The second return is false when the
// key is absent; absence is not an error.
func (b *Bucket[K, V]) Get(key K) (V, bool, error) {
	var zero V
	ek, err := b.encodeKey(key)
	if err != nil {
		return zero, false, err
	}
	raw, err := b.store.engine.Get(ek)
	if errors.Is(err, engine.ErrNotFound) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	v, err := b.values.Decode(raw)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// Set stores value under key, writing through to the engine immediately, and
// returns the previous value when one existed. Reading the previous value and
// writing the new one are two engine operations; callers that need them to be
// atomic use Store.Update.
func (b *Bucket[K, V]) Set(key K, value V) (V, bool, error) {
	var zero V
	ek, err := b.encodeKey(key)
	if err != nil {
		return zero, false, err
	}
	ev, err := b.values.Encode(value)
	if err != nil {
		return zero, false, err
	}

	prev, found, err := b.rawGet(ek)
	if err != nil {
		return zero, false, err
	}
	if err := b.store.engine.Set(ek, ev); err != nil {
		return zero, false, err
	}
	if !found {
		return zero, false, nil
	}
	v, err := b.values.Decode(prev)
	if err != nil {
		return zero, true, err
	}
	return v, true, nil
}

// Remove deletes key and returns the previous value when one existed.
func (b *Bucket[K, V]) Remove(key K) (V, bool, error) {
	var zero V
	ek, err := b.encodeKey(key)
	if err != nil {
		return zero, false, err
	}

	prev, found, err := b.rawGet(ek)
	if err != nil {
		return zero, false, err
	}
	if err := b.store.engine.Delete(ek); err != nil {
		return zero, false, err
	}
	if !found {
		return zero, false, nil
	}
	v, err := b.values.Decode(prev)
	if err != nil {
		return zero, true, err
	}
	return v, true, nil
}

// Contains reports whether key exists, without decoding the stored value.
func (b *Bucket[K, V]) Contains(key K) (bool, error) {
	ek, err := b.encodeKey(key)
	if err != nil {
		return false, err
	}
	_, found, err := b.rawGet(ek)
	return found, err
}

// Iter returns a lazy iterator over the whole subspace, ordered by encoded
// key bytes. The iterator observes a snapshot taken now; it is not
// restartable, call Iter again to walk anew. Callers must Close it.
func (b *Bucket[K, V]) Iter() (*Iter[K, V], error) {
	it, err := b.store.engine.NewIterator(b.prefix)
	if err != nil {
		return nil, err
	}
	return &Iter[K, V]{bucket: b, it: it}, nil
}

// NewBatch returns an empty batch of pending writes for this bucket.
func (b *Bucket[K, V]) NewBatch() *Batch[K, V] {
	return &Batch[K, V]{bucket: b}
}

// Apply applies every operation buffered in batch as one atomic engine
// write: either all of them become visible or none do.
func (b *Bucket[K, V]) Apply(batch *Batch[K, V]) error {
	return b.store.engine.ApplyBatch(batch.ops)
}

// Tx returns a view of this bucket whose operations run inside tx instead of
// writing through to the store.
func (b *Bucket[K, V]) Tx(tx *Tx) TxBucket[K, V] {
	return TxBucket[K, V]{bucket: b, tx: tx}
}

func (b *Bucket[K, V]) encodeKey(key K) ([]byte, error) {
	ek, err := b.keys.Encode(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(b.prefix)+len(ek))
	out = append(out, b.prefix...)
	out = append(out, ek...)
	return out, nil
}

func (b *Bucket[K, V]) rawGet(ek []byte) ([]byte, bool, error) {
	raw, err := b.store.engine.Get(ek)
	if errors.Is(err, engine.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return raw, true, nil
}
