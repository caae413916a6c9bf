package kv

import (
	"errors"

	"github.com/njordb/njord/pkg/engine"
)

// Tx is a unit of atomic work spanning one or more buckets. It wraps the
// engine's transactional context; typed operations routed through it are
// invisible outside the transaction until commit and commit together or not
// at all.
type Tx struct {
	txn engine.Txn
}

// Update executes fn inside a read-write transaction and commits when fn
// returns nil. The engine drives the retry loop: on a write conflict the body
// is re-executed from the start with a fresh transactional context, so fn
// must be safe to run more than once. engine.ErrConflict surfaces only once
// the engine's retry budget is exhausted.
//
// Returning Abort(reason) from fn stops the transaction without committing;
// the *AbortError comes back as Update's result. Any other error from fn
// likewise discards the transaction and is returned unchanged.
func (s *Store) Update(fn func(tx *Tx) error) error {
	return s.engine.Update(func(txn engine.Txn) error {
		return fn(&Tx{txn: txn})
	})
}

// View executes fn inside a read-only transaction.
func (s *Store) View(fn func(tx *Tx) error) error {
	return s.engine.View(func(txn engine.Txn) error {
		return fn(&Tx{txn: txn})
	})
}

// TxBucket is a bucket view bound to a transaction. It is obtained from
// Bucket.Tx and only valid for the duration of the transaction body.
type TxBucket[K, V any] struct {
	bucket *Bucket[K, V]
	tx     *Tx
}

// Get returns the value stored for key, observing the transaction's own
// pending writes.
func (t TxBucket[K, V]) Get(key K) (V, bool, error) {
	var zero V
	ek, err := t.bucket.encodeKey(key)
	if err != nil {
		return zero, false, err
	}
	raw, err := t.tx.txn.Get(ek)
	if errors.Is(err, engine.ErrNotFound) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	v, err := t.bucket.values.Decode(raw)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// Set stores value under key within the transaction.
func (t TxBucket[K, V]) Set(key K, value V) error {
	ek, err := t.bucket.encodeKey(key)
	if err != nil {
		return err
	}
	ev, err := t.bucket.values.Encode(value)
	if err != nil {
		return err
	}
	return t.tx.txn.Set(ek, ev)
}

// Remove deletes key within the transaction.
func (t TxBucket[K, V]) Remove(key K) error {
	ek, err := t.bucket.encodeKey(key)
	if err != nil {
		return err
	}
	return t.tx.txn.Delete(ek)
}

// Contains reports whether key exists, observing pending writes.
func (t TxBucket[K, V]) Contains(key K) (bool, error) {
	ek, err := t.bucket.encodeKey(key)
	if err != nil {
		return false, err
	}
	_, err = t.tx.txn.Get(ek)
	if errors.Is(err, engine.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Iter iterates the bucket's subspace as seen by the transaction.
func (t TxBucket[K, V]) Iter() (*Iter[K, V], error) {
	it, err := t.tx.txn.NewIterator(t.bucket.prefix)
	if err != nil {
		return nil, err
	}
	return &Iter[K, V]{bucket: t.bucket, it: it}, nil
}
