package kv

import "github.com/njordb/njord/pkg/engine"

// Batch buffers an ordered sequence of typed writes and removals in memory.
// Nothing touches the store until the batch is passed to Bucket.Apply, which
// applies the whole sequence atomically. Later operations on the same key
// override earlier ones, matching normal overwrite semantics.
type Batch[K, V any] struct {
	bucket *Bucket[K, V]
	ops    []engine.Op
}

// Set appends a pending write of value under key. Encoding happens now;
// an encode failure leaves the batch unchanged.
func (b *Batch[K, V]) Set(key K, value V) error {
	ek, err := b.bucket.encodeKey(key)
	if err != nil {
		return err
	}
	ev, err := b.bucket.values.Encode(value)
	if err != nil {
		return err
	}
	b.ops = append(b.ops, engine.Op{Key: ek, Value: ev})
	return nil
}

// Remove appends a pending removal of key.
func (b *Batch[K, V]) Remove(key K) error {
	ek, err := b.bucket.encodeKey(key)
	if err != nil {
		return err
	}
	b.ops = append(b.ops, engine.Op{Key: ek, Delete: true})
	return nil
}

// Len returns the number of pending operations.
func (b *Batch[K, V]) Len() int { return len(b.ops) }
