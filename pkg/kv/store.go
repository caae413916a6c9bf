// Package kv provides typed, named-subspace access to an ordered byte store.
//
// A Store owns an engine handle; buckets carved out of it give type-safe
// get/set/remove/iterate over a named key prefix, with key and value codecs
// bound at bucket creation. Batches group writes into one atomic apply, and
// Store.Update runs a body atomically across any number of buckets.
//
//	store, err := kv.Open(cfg)
//	...
//	users, err := kv.NewBucket(store, "users", kv.String{}, kv.JSON[User]())
//	...
//	prev, existed, err := users.Set("ada", User{Name: "Ada"})
package kv

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/njordb/njord/pkg/config"
	"github.com/njordb/njord/pkg/engine"
	badgerengine "github.com/njordb/njord/pkg/engine/badger"
	boltengine "github.com/njordb/njord/pkg/engine/bolt"
	pebbleengine "github.com/njordb/njord/pkg/engine/pebble"
)

// Store owns the engine handle and the bucket name registry. A Store and the
// buckets derived from it may be shared by multiple goroutines; multi-step
// invariants across operations need Update.
type Store struct {
	engine engine.Engine

	// dataDir is removed on Close when temporary is set.
	dataDir   string
	temporary bool

	mu      sync.Mutex
	buckets map[string]struct{}
}

// NewStore wraps an explicitly constructed engine. The store takes ownership:
// Close closes the engine.
func NewStore(e engine.Engine) *Store {
	return &Store{engine: e, buckets: make(map[string]struct{})}
}

// Open builds the engine selected by cfg and returns a store over it. An
// empty DataDir opens an in-memory store (pebble and badger only).
func Open(cfg *config.Config) (*Store, error) {
	var (
		e   engine.Engine
		err error
	)
	switch cfg.Engine {
	case "", config.EnginePebble:
		e, err = pebbleengine.Open(pebbleengine.Options{
			Path:       cfg.DataDir,
			InMemory:   cfg.DataDir == "",
			ReadOnly:   cfg.ReadOnly,
			SyncWrites: cfg.SyncWrites,
			CacheSize:  cfg.CacheSize,
		})
	case config.EngineBadger:
		e, err = badgerengine.Open(badgerengine.Options{
			Path:       cfg.DataDir,
			InMemory:   cfg.DataDir == "",
			ReadOnly:   cfg.ReadOnly,
			SyncWrites: cfg.SyncWrites,
			CacheSize:  cfg.CacheSize,
		})
	case config.EngineBolt:
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("kv: the bolt engine requires a data dir")
		}
		e, err = boltengine.Open(boltengine.Options{
			Path:     cfg.DataDir,
			ReadOnly: cfg.ReadOnly,
		})
	default:
		return nil, fmt.Errorf("kv: unknown engine %q", cfg.Engine)
	}
	if err != nil {
		return nil, err
	}

	s := NewStore(e)
	s.dataDir = cfg.DataDir
	s.temporary = cfg.Temporary
	return s, nil
}

// Engine exposes the raw engine handle for callers that need to drop below
// the typed layer.
func (s *Store) Engine() engine.Engine { return s.engine }

// Buckets returns the names of all buckets opened through this store handle,
// sorted. The default bucket is reported as the empty string.
func (s *Store) Buckets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.buckets))
	for name := range s.buckets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes the engine and, for temporary stores, removes the data
// directory.
func (s *Store) Close() error {
	err := s.engine.Close()
	if s.temporary && s.dataDir != "" {
		if rmErr := os.RemoveAll(s.dataDir); rmErr != nil && err == nil {
			err = rmErr
		}
	}
	return err
}

func (s *Store) register(name string) {
	s.mu.Lock()
	s.buckets[name] = struct{}{}
	s.mu.Unlock()
}
