// Package badger implements engine.Engine on dgraph-io/badger. Badger uses
// optimistic concurrency control: transactions may fail at commit with a
// conflict, and Update re-executes the body until it commits or the retry
// budget runs out.
package badger

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"

	"github.com/njordb/njord/pkg/engine"
)

// maxRetries bounds how many times Update re-executes a conflicted body
// before surfacing engine.ErrConflict.
const maxRetries = 16

// Options configures a badger engine.
type Options struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps the whole store in memory.
	InMemory bool

	// ReadOnly rejects all mutations with engine.ErrReadOnly.
	ReadOnly bool

	// SyncWrites makes every commit wait for the value log to be synced.
	SyncWrites bool

	// CacheSize is the block cache size in bytes. Zero keeps badger's
	// default.
	CacheSize int64
}

// Engine implements engine.Engine on a badger database.
type Engine struct {
	db       *badger.DB
	readOnly bool
}

var _ engine.Engine = (*Engine)(nil)

// Open creates or opens a badger database with the given options.
func Open(opts Options) (*Engine, error) {
	bo := badger.DefaultOptions(opts.Path)
	bo.Logger = nil
	if opts.InMemory {
		bo = bo.WithInMemory(true)
		bo.Dir = ""
		bo.ValueDir = ""
	}
	bo = bo.WithReadOnly(opts.ReadOnly).WithSyncWrites(opts.SyncWrites)
	if opts.CacheSize > 0 {
		bo = bo.WithBlockCacheSize(opts.CacheSize)
	}

	db, err := badger.Open(bo)
	if err != nil {
		return nil, fmt.Errorf("opening badger db: %w", err)
	}
	return &Engine{db: db, readOnly: opts.ReadOnly}, nil
}

func (e *Engine) Get(key []byte) ([]byte, error) {
	var val []byte
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	return val, translate(err)
}

func (e *Engine) Set(key, value []byte) error {
	if e.readOnly {
		return engine.ErrReadOnly
	}
	return e.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (e *Engine) Delete(key []byte) error {
	if e.readOnly {
		return engine.ErrReadOnly
	}
	return e.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

// NewIterator pins a read transaction so the iterator observes a snapshot
// taken at creation. Close releases the transaction.
func (e *Engine) NewIterator(prefix []byte) (engine.Iterator, error) {
	txn := e.db.NewTransaction(false)
	return newIterator(txn, prefix, true), nil
}

func (e *Engine) ApplyBatch(ops []engine.Op) error {
	if e.readOnly {
		return engine.ErrReadOnly
	}
	// A single transaction keeps the batch atomic; badger's WriteBatch may
	// split across commits and cannot be used here.
	return e.db.Update(func(txn *badger.Txn) error {
		for _, op := range ops {
			var err error
			if op.Delete {
				err = txn.Delete(op.Key)
			} else {
				err = txn.Set(op.Key, op.Value)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *Engine) Update(fn func(engine.Txn) error) error {
	if e.readOnly {
		return engine.ErrReadOnly
	}
	for i := 0; i < maxRetries; i++ {
		txn := e.db.NewTransaction(true)
		if err := fn(&badgerTxn{txn: txn}); err != nil {
			txn.Discard()
			return translate(err)
		}
		err := txn.Commit()
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return engine.ErrConflict
}

func (e *Engine) View(fn func(engine.Txn) error) error {
	txn := e.db.NewTransaction(false)
	defer txn.Discard()
	return translate(fn(&badgerTxn{txn: txn, readOnly: true}))
}

func (e *Engine) Close() error {
	return e.db.Close()
}

// badgerTxn adapts a badger transaction to engine.Txn.
type badgerTxn struct {
	txn      *badger.Txn
	readOnly bool
}

func (t *badgerTxn) Get(key []byte) ([]byte, error) {
	item, err := t.txn.Get(key)
	if err != nil {
		return nil, translate(err)
	}
	return item.ValueCopy(nil)
}

func (t *badgerTxn) Set(key, value []byte) error {
	if t.readOnly {
		return engine.ErrReadOnly
	}
	return t.txn.Set(key, value)
}

func (t *badgerTxn) Delete(key []byte) error {
	if t.readOnly {
		return engine.ErrReadOnly
	}
	return t.txn.Delete(key)
}

func (t *badgerTxn) NewIterator(prefix []byte) (engine.Iterator, error) {
	return newIterator(t.txn, prefix, false), nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return engine.ErrNotFound
	case errors.Is(err, badger.ErrConflict):
		return engine.ErrConflict
	default:
		return err
	}
}

// iterator walks a prefix range inside a badger transaction. When ownsTxn is
// set, Close also discards the pinned transaction.
type iterator struct {
	txn     *badger.Txn
	it      *badger.Iterator
	prefix  []byte
	ownsTxn bool
	started bool
	value   []byte
	err     error
}

func newIterator(txn *badger.Txn, prefix []byte, ownsTxn bool) *iterator {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	return &iterator{
		txn:     txn,
		it:      txn.NewIterator(opts),
		prefix:  prefix,
		ownsTxn: ownsTxn,
	}
}

func (i *iterator) Next() bool {
	if i.err != nil {
		return false
	}
	if !i.started {
		i.started = true
		i.it.Seek(i.prefix)
	} else {
		i.it.Next()
	}
	if !i.it.ValidForPrefix(i.prefix) {
		return false
	}
	i.value, i.err = i.it.Item().ValueCopy(i.value[:0])
	return i.err == nil
}

func (i *iterator) Key() []byte   { return i.it.Item().Key() }
func (i *iterator) Value() []byte { return i.value }
func (i *iterator) Err() error    { return i.err }

func (i *iterator) Close() error {
	i.it.Close()
	if i.ownsTxn {
		i.txn.Discard()
	}
	return nil
}
