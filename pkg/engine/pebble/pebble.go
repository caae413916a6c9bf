// Package pebble implements engine.Engine on cockroachdb/pebble. It is the
// default engine.
//
// Pebble has no optimistic concurrency control, so Update serializes writers
// behind a commit mutex and runs the body against an indexed batch. Bodies
// never observe a conflict; the retry path in engine.Update's contract is
// simply never taken here.
package pebble

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/njordb/njord/pkg/engine"
)

// Options configures a pebble engine.
type Options struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory backs the store with an in-memory filesystem. Useful for
	// tests and temporary stores.
	InMemory bool

	// ReadOnly rejects all mutations with engine.ErrReadOnly.
	ReadOnly bool

	// SyncWrites makes every commit wait for the WAL to reach stable
	// storage. Off by default, matching pebble.NoSync.
	SyncWrites bool

	// CacheSize is the block cache size in bytes. Zero keeps pebble's
	// default.
	CacheSize int64
}

// Engine implements engine.Engine on a pebble database.
type Engine struct {
	db       *pebble.DB
	writeOpt *pebble.WriteOptions
	readOnly bool

	// mu serializes Update bodies so an indexed batch is never committed
	// over another writer's feet.
	mu sync.Mutex
}

var _ engine.Engine = (*Engine)(nil)

// Open creates or opens a pebble database with the given options.
func Open(opts Options) (*Engine, error) {
	po := &pebble.Options{
		ReadOnly: opts.ReadOnly,
	}
	if opts.InMemory {
		po.FS = vfs.NewMem()
	}
	if opts.CacheSize > 0 {
		cache := pebble.NewCache(opts.CacheSize)
		defer cache.Unref()
		po.Cache = cache
	}

	db, err := pebble.Open(opts.Path, po)
	if err != nil {
		return nil, fmt.Errorf("opening pebble db: %w", err)
	}

	writeOpt := pebble.NoSync
	if opts.SyncWrites {
		writeOpt = pebble.Sync
	}

	return &Engine{db: db, writeOpt: writeOpt, readOnly: opts.ReadOnly}, nil
}

func (e *Engine) Get(key []byte) ([]byte, error) {
	data, closer, err := e.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, engine.ErrNotFound
		}
		return nil, err
	}
	val := make([]byte, len(data))
	copy(val, data)
	if err := closer.Close(); err != nil {
		return nil, err
	}
	return val, nil
}

func (e *Engine) Set(key, value []byte) error {
	if e.readOnly {
		return engine.ErrReadOnly
	}
	return e.db.Set(key, value, e.writeOpt)
}

func (e *Engine) Delete(key []byte) error {
	if e.readOnly {
		return engine.ErrReadOnly
	}
	return e.db.Delete(key, e.writeOpt)
}

func (e *Engine) NewIterator(prefix []byte) (engine.Iterator, error) {
	it, err := e.db.NewIter(iterOptions(prefix))
	if err != nil {
		return nil, err
	}
	return &iterator{it: it}, nil
}

func (e *Engine) ApplyBatch(ops []engine.Op) error {
	if e.readOnly {
		return engine.ErrReadOnly
	}
	b := e.db.NewBatch()
	defer b.Close()
	for _, op := range ops {
		var err error
		if op.Delete {
			err = b.Delete(op.Key, nil)
		} else {
			err = b.Set(op.Key, op.Value, nil)
		}
		if err != nil {
			return err
		}
	}
	return e.db.Apply(b, e.writeOpt)
}

func (e *Engine) Update(fn func(engine.Txn) error) error {
	if e.readOnly {
		return engine.ErrReadOnly
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	b := e.db.NewIndexedBatch()
	defer b.Close()
	if err := fn(&batchTxn{b: b}); err != nil {
		return err
	}
	return b.Commit(e.writeOpt)
}

func (e *Engine) View(fn func(engine.Txn) error) error {
	snap := e.db.NewSnapshot()
	defer snap.Close()
	return fn(&snapshotTxn{snap: snap})
}

func (e *Engine) Close() error {
	return e.db.Close()
}

// batchTxn routes transactional reads and writes through an indexed batch,
// which overlays its pending writes on the database.
type batchTxn struct {
	b *pebble.Batch
}

func (t *batchTxn) Get(key []byte) ([]byte, error) {
	data, closer, err := t.b.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, engine.ErrNotFound
		}
		return nil, err
	}
	val := make([]byte, len(data))
	copy(val, data)
	if err := closer.Close(); err != nil {
		return nil, err
	}
	return val, nil
}

func (t *batchTxn) Set(key, value []byte) error {
	return t.b.Set(key, value, nil)
}

func (t *batchTxn) Delete(key []byte) error {
	return t.b.Delete(key, nil)
}

func (t *batchTxn) NewIterator(prefix []byte) (engine.Iterator, error) {
	it, err := t.b.NewIter(iterOptions(prefix))
	if err != nil {
		return nil, err
	}
	return &iterator{it: it}, nil
}

// snapshotTxn serves read-only transactions from a point-in-time snapshot.
type snapshotTxn struct {
	snap *pebble.Snapshot
}

func (t *snapshotTxn) Get(key []byte) ([]byte, error) {
	data, closer, err := t.snap.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, engine.ErrNotFound
		}
		return nil, err
	}
	val := make([]byte, len(data))
	copy(val, data)
	if err := closer.Close(); err != nil {
		return nil, err
	}
	return val, nil
}

func (t *snapshotTxn) Set(key, value []byte) error {
	return engine.ErrReadOnly
}

func (t *snapshotTxn) Delete(key []byte) error {
	return engine.ErrReadOnly
}

func (t *snapshotTxn) NewIterator(prefix []byte) (engine.Iterator, error) {
	it, err := t.snap.NewIter(iterOptions(prefix))
	if err != nil {
		return nil, err
	}
	return &iterator{it: it}, nil
}

func iterOptions(prefix []byte) *pebble.IterOptions {
	if len(prefix) == 0 {
		return &pebble.IterOptions{}
	}
	return &pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: engine.PrefixUpperBound(prefix),
	}
}

// iterator adapts pebble's positioned iterator to engine.Iterator's
// Next-before-first-access contract.
type iterator struct {
	it      *pebble.Iterator
	started bool
}

func (i *iterator) Next() bool {
	if !i.started {
		i.started = true
		return i.it.First()
	}
	return i.it.Next()
}

func (i *iterator) Key() []byte   { return i.it.Key() }
func (i *iterator) Value() []byte { return i.it.Value() }
func (i *iterator) Err() error    { return i.it.Error() }
func (i *iterator) Close() error  { return i.it.Close() }
