// Package bolt implements engine.Engine on bbolt (embedded B+ tree). All keys
// live in a single root bucket; subspace partitioning happens above this
// layer via key prefixes. bbolt allows one writer at a time, so Update bodies
// are serialized by the library itself and conflicts cannot occur.
package bolt

import (
	"bytes"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/njordb/njord/pkg/engine"
)

var rootBucket = []byte("njord")

// Options configures a bolt engine.
type Options struct {
	// Path is the database file.
	Path string

	// ReadOnly opens the file read-only and rejects mutations with
	// engine.ErrReadOnly. The file must already exist.
	ReadOnly bool
}

// Engine implements engine.Engine on a bbolt database.
type Engine struct {
	db       *bolt.DB
	readOnly bool
}

var _ engine.Engine = (*Engine)(nil)

// Open creates or opens a bbolt database at the given path.
func Open(opts Options) (*Engine, error) {
	db, err := bolt.Open(opts.Path, 0o600, &bolt.Options{ReadOnly: opts.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("opening bolt db: %w", err)
	}
	if !opts.ReadOnly {
		err = db.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(rootBucket)
			return err
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("creating root bucket: %w", err)
		}
	}
	return &Engine{db: db, readOnly: opts.ReadOnly}, nil
}

func (e *Engine) Get(key []byte) ([]byte, error) {
	var val []byte
	err := e.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(rootBucket)
		if b == nil {
			return engine.ErrNotFound
		}
		v := b.Get(key)
		if v == nil {
			return engine.ErrNotFound
		}
		val = make([]byte, len(v))
		copy(val, v)
		return nil
	})
	return val, err
}

func (e *Engine) Set(key, value []byte) error {
	if e.readOnly {
		return engine.ErrReadOnly
	}
	return e.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(rootBucket).Put(key, value)
	})
}

func (e *Engine) Delete(key []byte) error {
	if e.readOnly {
		return engine.ErrReadOnly
	}
	return e.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(rootBucket).Delete(key)
	})
}

// NewIterator pins a read transaction so the iterator observes a snapshot
// taken at creation. Close rolls the transaction back.
func (e *Engine) NewIterator(prefix []byte) (engine.Iterator, error) {
	tx, err := e.db.Begin(false)
	if err != nil {
		return nil, err
	}
	return newIterator(tx, prefix, true), nil
}

func (e *Engine) ApplyBatch(ops []engine.Op) error {
	if e.readOnly {
		return engine.ErrReadOnly
	}
	return e.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(rootBucket)
		for _, op := range ops {
			var err error
			if op.Delete {
				err = b.Delete(op.Key)
			} else {
				err = b.Put(op.Key, op.Value)
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
	return e.db.Update(func(tx *bolt.Tx) error {
		return fn(&boltTxn{tx: tx})
	})
}

func (e *Engine) View(fn func(engine.Txn) error) error {
	return e.db.View(func(tx *bolt.Tx) error {
		return fn(&boltTxn{tx: tx, readOnly: true})
	})
}

func (e *Engine) Close() error {
	return e.db.Close()
}

// boltTxn adapts a bbolt transaction to engine.Txn.
type boltTxn struct {
	tx       *bolt.Tx
	readOnly bool
}

func (t *boltTxn) Get(key []byte) ([]byte, error) {
	b := t.tx.Bucket(rootBucket)
	if b == nil {
		return nil, engine.ErrNotFound
	}
	v := b.Get(key)
	if v == nil {
		return nil, engine.ErrNotFound
	}
	val := make([]byte, len(v))
	copy(val, v)
	return val, nil
}

func (t *boltTxn) Set(key, value []byte) error {
	if t.readOnly {
		return engine.ErrReadOnly
	}
	return t.tx.Bucket(rootBucket).Put(key, value)
}

func (t *boltTxn) Delete(key []byte) error {
	if t.readOnly {
		return engine.ErrReadOnly
	}
	return t.tx.Bucket(rootBucket).Delete(key)
}

func (t *boltTxn) NewIterator(prefix []byte) (engine.Iterator, error) {
	return newIterator(t.tx, prefix, false), nil
}

// iterator walks a prefix range with a bbolt cursor. When ownsTx is set,
// Close rolls back the pinned read transaction.
type iterator struct {
	tx      *bolt.Tx
	cursor  *bolt.Cursor
	prefix  []byte
	ownsTx  bool
	started bool
	key     []byte
	value   []byte
}

func newIterator(tx *bolt.Tx, prefix []byte, ownsTx bool) *iterator {
	it := &iterator{tx: tx, prefix: prefix, ownsTx: ownsTx}
	if b := tx.Bucket(rootBucket); b != nil {
		it.cursor = b.Cursor()
	}
	return it
}

func (i *iterator) Next() bool {
	if i.cursor == nil {
		return false
	}
	if !i.started {
		i.started = true
		i.key, i.value = i.cursor.Seek(i.prefix)
	} else {
		i.key, i.value = i.cursor.Next()
	}
	return i.key != nil && bytes.HasPrefix(i.key, i.prefix)
}

func (i *iterator) Key() []byte   { return i.key }
func (i *iterator) Value() []byte { return i.value }
func (i *iterator) Err() error    { return nil }

func (i *iterator) Close() error {
	if i.ownsTx {
		return i.tx.Rollback()
	}
	return nil
}
