package badger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njordb/njord/pkg/engine"
	badgerengine "github.com/njordb/njord/pkg/engine/badger"
)

func newTestEngine(t *testing.T) *badgerengine.Engine {
	t.Helper()
	e, err := badgerengine.Open(badgerengine.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func TestBasicOperations(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Get([]byte("missing"))
	assert.ErrorIs(t, err, engine.ErrNotFound)

	require.NoError(t, e.Set([]byte("k"), []byte("v")))
	value, err := e.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)

	require.NoError(t, e.Delete([]byte("k")))
	_, err = e.Get([]byte("k"))
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestIteratorPrefixOrder(t *testing.T) {
	e := newTestEngine(t)

	require.NoError(t, e.Set([]byte("a/3"), []byte("v")))
	require.NoError(t, e.Set([]byte("a/1"), []byte("v")))
	require.NoError(t, e.Set([]byte("a/2"), []byte("v")))
	require.NoError(t, e.Set([]byte("b/1"), []byte("other")))

	it, err := e.NewIterator([]byte("a/"))
	require.NoError(t, err)
	defer it.Close()

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"a/1", "a/2", "a/3"}, keys)
}

func TestIteratorSnapshot(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Set([]byte("k/1"), []byte("v")))

	it, err := e.NewIterator([]byte("k/"))
	require.NoError(t, err)
	defer it.Close()

	require.NoError(t, e.Set([]byte("k/2"), []byte("v")))

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"k/1"}, keys, "iterator must not observe writes made after its creation")
}

func TestApplyBatchAtomic(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Set([]byte("gone"), []byte("x")))

	ops := []engine.Op{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("gone"), Delete: true},
	}
	require.NoError(t, e.ApplyBatch(ops))

	value, err := e.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), value)
	_, err = e.Get([]byte("gone"))
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestUpdateRetriesOnConflict(t *testing.T) {
	e := newTestEngine(t)
	require.NoError(t, e.Set([]byte("counter"), []byte("0")))

	attempts := 0
	err := e.Update(func(txn engine.Txn) error {
		attempts++

		// Take a read dependency on the key.
		if _, err := txn.Get([]byte("counter")); err != nil {
			return err
		}

		// On the first attempt, commit a competing write outside the
		// transaction so the commit below conflicts.
		if attempts == 1 {
			if err := e.Set([]byte("counter"), []byte("raced")); err != nil {
				return err
			}
		}

		return txn.Set([]byte("derived"), []byte("done"))
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts, "the body must be re-executed after a conflict")

	value, err := e.Get([]byte("derived"))
	require.NoError(t, err)
	assert.Equal(t, []byte("done"), value)
}

func TestUpdateAbortNotRetried(t *testing.T) {
	e := newTestEngine(t)

	attempts := 0
	boom := assert.AnError
	err := e.Update(func(txn engine.Txn) error {
		attempts++
		if err := txn.Set([]byte("k"), []byte("v")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts, "body errors are never retried")

	_, err = e.Get([]byte("k"))
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestViewRejectsWrites(t *testing.T) {
	e := newTestEngine(t)

	err := e.View(func(txn engine.Txn) error {
		return txn.Set([]byte("k"), []byte("v"))
	})
	assert.ErrorIs(t, err, engine.ErrReadOnly)
}
