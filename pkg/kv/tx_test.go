package kv_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njordb/njord/pkg/kv"
)

func TestUpdateCommitsAcrossBuckets(t *testing.T) {
	store := newTestStore(t)
	accounts, err := kv.NewBucket(store, "accounts", kv.String{}, kv.Integer{})
	require.NoError(t, err)
	audit, err := kv.NewBucket(store, "audit", kv.String{}, kv.String{})
	require.NoError(t, err)

	err = store.Update(func(tx *kv.Tx) error {
		if err := accounts.Tx(tx).Set("ada", 100); err != nil {
			return err
		}
		return audit.Tx(tx).Set("last", "credited ada")
	})
	require.NoError(t, err)

	balance, found, err := accounts.Get("ada")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint64(100), balance)

	entry, found, err := audit.Get("last")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "credited ada", entry)
}

func TestUpdateAbortDiscardsEverything(t *testing.T) {
	store := newTestStore(t)
	accounts, err := kv.NewBucket(store, "accounts", kv.String{}, kv.Integer{})
	require.NoError(t, err)
	audit, err := kv.NewBucket(store, "audit", kv.String{}, kv.String{})
	require.NoError(t, err)

	reason := errors.New("insufficient funds")
	err = store.Update(func(tx *kv.Tx) error {
		if err := accounts.Tx(tx).Set("ada", 100); err != nil {
			return err
		}
		if err := audit.Tx(tx).Set("last", "credited ada"); err != nil {
			return err
		}
		return kv.Abort(reason)
	})

	var abortErr *kv.AbortError
	require.ErrorAs(t, err, &abortErr)
	assert.ErrorIs(t, err, reason, "the abort must carry the caller's reason")

	// Neither bucket's write may be visible.
	_, found, err := accounts.Get("ada")
	require.NoError(t, err)
	assert.False(t, found)
	_, found, err = audit.Get("last")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestUpdateReadsItsOwnWrites(t *testing.T) {
	store := newTestStore(t)
	bucket, err := kv.NewBucket(store, "ryow", kv.String{}, kv.String{})
	require.NoError(t, err)

	_, _, err = bucket.Set("existing", "old")
	require.NoError(t, err)

	err = store.Update(func(tx *kv.Tx) error {
		tb := bucket.Tx(tx)

		if err := tb.Set("fresh", "new"); err != nil {
			return err
		}
		value, found, err := tb.Get("fresh")
		if err != nil {
			return err
		}
		if !found || value != "new" {
			return errors.New("transaction must observe its own pending write")
		}

		value, found, err = tb.Get("existing")
		if err != nil {
			return err
		}
		if !found || value != "old" {
			return errors.New("transaction must observe committed state")
		}
		return nil
	})
	require.NoError(t, err)
}

func TestUpdateErrorPropagatesUnchanged(t *testing.T) {
	store := newTestStore(t)
	bucket, err := kv.NewBucket(store, "err", kv.String{}, kv.String{})
	require.NoError(t, err)

	boom := errors.New("business rule violated")
	err = store.Update(func(tx *kv.Tx) error {
		if err := bucket.Tx(tx).Set("k", "v"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, found, err := bucket.Get("k")
	require.NoError(t, err)
	assert.False(t, found, "a failed transaction leaves no writes behind")
}

func TestUpdateDecodeFailureAborts(t *testing.T) {
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

	err = store.Update(func(tx *kv.Tx) error {
		_, _, err := typed.Tx(tx).Get("broken")
		if err != nil {
			return kv.Abort(err)
		}
		return typed.Tx(tx).Set("broken", user{Name: "fixed"})
	})

	var abortErr *kv.AbortError
	require.ErrorAs(t, err, &abortErr)
	var decodeErr *kv.DecodeError
	assert.ErrorAs(t, err, &decodeErr)

	// The repair write must have been discarded with the abort.
	stored, found, err := raw.Get("broken")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("{not json"), stored)
}

func TestViewIsReadOnly(t *testing.T) {
	store := newTestStore(t)
	bucket, err := kv.NewBucket(store, "view", kv.String{}, kv.String{})
	require.NoError(t, err)

	_, _, err = bucket.Set("k", "v")
	require.NoError(t, err)

	err = store.View(func(tx *kv.Tx) error {
		value, found, err := bucket.Tx(tx).Get("k")
		if err != nil {
			return err
		}
		if !found || value != "v" {
			return errors.New("view must observe committed state")
		}
		return nil
	})
	require.NoError(t, err)

	err = store.View(func(tx *kv.Tx) error {
		return bucket.Tx(tx).Set("k", "mutated")
	})
	require.Error(t, err, "writes inside View must be rejected")
}

func TestTxIter(t *testing.T) {
	store := newTestStore(t)
	bucket, err := kv.NewBucket(store, "txiter", kv.Integer{}, kv.String{})
	require.NoError(t, err)

	err = store.Update(func(tx *kv.Tx) error {
		tb := bucket.Tx(tx)
		for _, k := range []uint64{3, 1, 2} {
			if err := tb.Set(k, "v"); err != nil {
				return err
			}
		}

		it, err := tb.Iter()
		if err != nil {
			return err
		}
		defer it.Close()

		var keys []uint64
		for it.Next() {
			key, err := it.Item().Key()
			if err != nil {
				return err
			}
			keys = append(keys, key)
		}
		if err := it.Err(); err != nil {
			return err
		}
		assert.Equal(t, []uint64{1, 2, 3}, keys, "transactional iteration sees pending writes in order")
		return nil
	})
	require.NoError(t, err)
}
