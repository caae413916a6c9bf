package kv_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njordb/njord/pkg/engine"
	"github.com/njordb/njord/pkg/kv"
)

func TestBatchAppliesAtomically(t *testing.T) {
	store := newTestStore(t)
	bucket, err := kv.NewBucket(store, "batch", kv.String{}, kv.String{})
	require.NoError(t, err)

	batch := bucket.NewBatch()
	require.NoError(t, batch.Set("a", "1"))
	require.NoError(t, batch.Set("b", "2"))
	require.NoError(t, batch.Remove("c"))
	assert.Equal(t, 3, batch.Len())

	// Buffered operations must not touch the store before Apply.
	ok, err := bucket.Contains("a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, bucket.Apply(batch))

	for key, want := range map[string]string{"a": "1", "b": "2"} {
		got, found, err := bucket.Get(key)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, want, got)
	}
}

func TestBatchLastWriteWins(t *testing.T) {
	store := newTestStore(t)
	bucket, err := kv.NewBucket(store, "lww", kv.String{}, kv.String{})
	require.NoError(t, err)

	batch := bucket.NewBatch()
	require.NoError(t, batch.Set("k", "first"))
	require.NoError(t, batch.Set("k", "second"))
	require.NoError(t, bucket.Apply(batch))

	got, found, err := bucket.Get("k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "second", got)

	batch = bucket.NewBatch()
	require.NoError(t, batch.Set("k", "third"))
	require.NoError(t, batch.Remove("k"))
	require.NoError(t, bucket.Apply(batch))

	_, found, err = bucket.Get("k")
	require.NoError(t, err)
	assert.False(t, found, "a later remove must override an earlier set")
}

// faultEngine wraps a real engine and fails ApplyBatch before anything
// reaches the store, simulating an engine fault mid-apply.
type faultEngine struct {
	engine.Engine
	batchErr error
}

func (f *faultEngine) ApplyBatch(ops []engine.Op) error {
	if f.batchErr != nil {
		return f.batchErr
	}
	return f.Engine.ApplyBatch(ops)
}

func TestBatchFailureLeavesNothingVisible(t *testing.T) {
	inner := newTestStore(t)
	boom := errors.New("simulated engine fault")
	store := kv.NewStore(&faultEngine{Engine: inner.Engine(), batchErr: boom})

	bucket, err := kv.NewBucket(store, "batch", kv.String{}, kv.String{})
	require.NoError(t, err)

	batch := bucket.NewBatch()
	require.NoError(t, batch.Set("a", "1"))
	require.NoError(t, batch.Set("b", "2"))

	err = bucket.Apply(batch)
	require.ErrorIs(t, err, boom, "engine failures propagate unchanged")

	for _, key := range []string{"a", "b"} {
		ok, err := bucket.Contains(key)
		require.NoError(t, err)
		assert.False(t, ok, "no operation from a failed batch may be visible")
	}
}
