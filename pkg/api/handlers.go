package api

import (
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/njordb/njord/pkg/kv"
)

// Server holds the API server state. It exposes raw-codec buckets of the
// underlying store over HTTP; values travel as opaque request/response
// bodies.
type Server struct {
	store   *kv.Store
	config  ServerConfig
	metrics *Metrics

	mu      sync.Mutex
	buckets map[string]*kv.Bucket[[]byte, []byte]
}

// NewServer creates a new API server
func NewServer(store *kv.Store, config ServerConfig, metrics *Metrics) *Server {
	return &Server{
		store:   store,
		config:  config,
		metrics: metrics,
		buckets: make(map[string]*kv.Bucket[[]byte, []byte]),
	}
}

// bucket returns the raw bucket for name, opening and caching it on first
// use. Bucket handles are shareable, so one per name is enough.
func (s *Server) bucket(name string) (*kv.Bucket[[]byte, []byte], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.buckets[name]; ok {
		return b, nil
	}
	b, err := kv.NewBucket(s.store, name, kv.Raw{}, kv.Raw{})
	if err != nil {
		return nil, err
	}
	s.buckets[name] = b
	return b, nil
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleGet returns the stored value as the raw response body.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	bucketName := chi.URLParam(r, "bucket")
	key := chi.URLParam(r, "key")

	b, err := s.bucket(bucketName)
	if err != nil {
		s.metrics.RecordStoreOperation("get", false, time.Since(start))
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	value, found, err := b.Get([]byte(key))
	if err != nil {
		s.metrics.RecordStoreOperation("get", false, time.Since(start))
		sendError(w, "Failed to get value", http.StatusInternalServerError)
		return
	}
	if !found {
		s.metrics.RecordStoreOperation("get", true, time.Since(start))
		sendError(w, "Key not found", http.StatusNotFound)
		return
	}

	s.metrics.RecordStoreOperation("get", true, time.Since(start))
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(value)
}

// handlePut stores the request body under the key.
func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	bucketName := chi.URLParam(r, "bucket")
	key := chi.URLParam(r, "key")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.metrics.RecordStoreOperation("put", false, time.Since(start))
		sendError(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	b, err := s.bucket(bucketName)
	if err != nil {
		s.metrics.RecordStoreOperation("put", false, time.Since(start))
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	_, replaced, err := b.Set([]byte(key), body)
	if err != nil {
		s.metrics.RecordStoreOperation("put", false, time.Since(start))
		sendError(w, "Failed to store value", http.StatusInternalServerError)
		return
	}

	s.metrics.RecordStoreOperation("put", true, time.Since(start))
	sendSuccess(w, PutResult{Key: key, Replaced: replaced})
}

// handleDelete removes the key.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	bucketName := chi.URLParam(r, "bucket")
	key := chi.URLParam(r, "key")

	b, err := s.bucket(bucketName)
	if err != nil {
		s.metrics.RecordStoreOperation("delete", false, time.Since(start))
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	_, existed, err := b.Remove([]byte(key))
	if err != nil {
		s.metrics.RecordStoreOperation("delete", false, time.Since(start))
		sendError(w, "Failed to delete value", http.StatusInternalServerError)
		return
	}

	s.metrics.RecordStoreOperation("delete", true, time.Since(start))
	sendSuccess(w, DeleteResult{Key: key, Existed: existed})
}

// handleListKeys returns the bucket's keys in encoded-key byte order.
func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	bucketName := chi.URLParam(r, "bucket")

	b, err := s.bucket(bucketName)
	if err != nil {
		s.metrics.RecordStoreOperation("list", false, time.Since(start))
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	it, err := b.Iter()
	if err != nil {
		s.metrics.RecordStoreOperation("list", false, time.Since(start))
		sendError(w, "Failed to list keys", http.StatusInternalServerError)
		return
	}
	defer it.Close()

	keys := []string{}
	for it.Next() {
		keys = append(keys, string(it.Item().RawKey()))
	}
	if err := it.Err(); err != nil {
		s.metrics.RecordStoreOperation("list", false, time.Since(start))
		sendError(w, "Failed to list keys", http.StatusInternalServerError)
		return
	}

	s.metrics.RecordStoreOperation("list", true, time.Since(start))
	sendSuccess(w, KeyList{Bucket: bucketName, Keys: keys})
}
