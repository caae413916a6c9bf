package kv_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njordb/njord/pkg/kv"
)

func TestIterIntegerKeysAscending(t *testing.T) {
	store := newTestStore(t)
	bucket, err := kv.NewBucket(store, "nums", kv.Integer{}, kv.String{})
	require.NoError(t, err)

	for _, k := range []uint64{3, 1, 2} {
		_, _, err := bucket.Set(k, "v")
		require.NoError(t, err)
	}

	it, err := bucket.Iter()
	require.NoError(t, err)
	defer it.Close()

	var keys []uint64
	for it.Next() {
		key, err := it.Item().Key()
		require.NoError(t, err)
		keys = append(keys, key)
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []uint64{1, 2, 3}, keys)
}

func TestIterScopedToBucket(t *testing.T) {
	store := newTestStore(t)
	a, err := kv.NewBucket(store, "a", kv.String{}, kv.String{})
	require.NoError(t, err)
	b, err := kv.NewBucket(store, "b", kv.String{}, kv.String{})
	require.NoError(t, err)

	_, _, err = a.Set("one", "1")
	require.NoError(t, err)
	_, _, err = b.Set("two", "2")
	require.NoError(t, err)

	it, err := a.Iter()
	require.NoError(t, err)
	defer it.Close()

	require.True(t, it.Next())
	key, err := it.Item().Key()
	require.NoError(t, err)
	assert.Equal(t, "one", key)
	assert.False(t, it.Next())
	require.NoError(t, it.Err())
}

func TestIterLazyDecode(t *testing.T) {
	type user struct {
		Name string `json:"name"`
	}

	store := newTestStore(t)
	raw, err := kv.NewBucket(store, "users", kv.String{}, kv.Raw{})
	require.NoError(t, err)
	typed, err := kv.NewBucket(store, "users", kv.String{}, kv.JSON[user]())
	require.NoError(t, err)

	_, _, err = raw.Set("broken", []byte("{not json"))
	require.NoError(t, err)

	it, err := typed.Iter()
	require.NoError(t, err)
	defer it.Close()

	// The corrupt value must not break retrieval or key decoding; only the
	// value decode fails, and only when asked for.
	require.True(t, it.Next())
	item := it.Item()

	key, err := item.Key()
	require.NoError(t, err)
	assert.Equal(t, "broken", key)

	_, err = item.Value()
	var decodeErr *kv.DecodeError
	require.ErrorAs(t, err, &decodeErr)

	require.NoError(t, it.Err())
}

func TestIterSnapshotAtStart(t *testing.T) {
	store := newTestStore(t)
	bucket, err := kv.NewBucket(store, "snap", kv.String{}, kv.String{})
	require.NoError(t, err)

	_, _, err = bucket.Set("a", "1")
	require.NoError(t, err)

	it, err := bucket.Iter()
	require.NoError(t, err)
	defer it.Close()

	// Written after the iterator was created; must not be observed.
	_, _, err = bucket.Set("b", "2")
	require.NoError(t, err)

	var keys []string
	for it.Next() {
		key, err := it.Item().Key()
		require.NoError(t, err)
		keys = append(keys, key)
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"a"}, keys)
}

func TestItemSurvivesNext(t *testing.T) {
	store := newTestStore(t)
	bucket, err := kv.NewBucket(store, "copy", kv.String{}, kv.String{})
	require.NoError(t, err)

	_, _, err = bucket.Set("a", "1")
	require.NoError(t, err)
	_, _, err = bucket.Set("b", "2")
	require.NoError(t, err)

	it, err := bucket.Iter()
	require.NoError(t, err)
	defer it.Close()

	require.True(t, it.Next())
	first := it.Item()
	require.True(t, it.Next())

	key, err := first.Key()
	require.NoError(t, err)
	assert.Equal(t, "a", key)
	value, err := first.Value()
	require.NoError(t, err)
	assert.Equal(t, "1", value)
}
