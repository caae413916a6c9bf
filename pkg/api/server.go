// Package api exposes a store's buckets over a small REST surface with
// API-key authentication and Prometheus metrics.
package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/njordb/njord/pkg/kv"
)

// StartServer starts the HTTP server with all routes configured and blocks
// until it fails.
func StartServer(store *kv.Store, config ServerConfig) error {
	metrics := NewMetrics(prometheus.DefaultRegisterer)
	server := NewServer(store, config, metrics)
	router := NewRouter(server)

	addr := fmt.Sprintf("%s:%d", config.Bind, config.Port)
	slog.Info("starting api server", "addr", addr)
	return http.ListenAndServe(addr, router)
}

// NewRouter builds the chi router for server. Split out of StartServer so
// tests can drive the routes through httptest.
func NewRouter(server *Server) chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(requestIDMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", promhttp.Handler())

	// API key authentication middleware for protected routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apiKeyMiddleware(server.config.APIKey, server.metrics))

		m := server.metrics
		r.Get("/health", m.InstrumentHandler("GET", "/health", server.handleHealth))
		r.Get("/buckets/{bucket}/keys", m.InstrumentHandler("GET", "/buckets/{bucket}/keys", server.handleListKeys))
		r.Get("/buckets/{bucket}/keys/{key}", m.InstrumentHandler("GET", "/buckets/{bucket}/keys/{key}", server.handleGet))
		r.Put("/buckets/{bucket}/keys/{key}", m.InstrumentHandler("PUT", "/buckets/{bucket}/keys/{key}", server.handlePut))
		r.Delete("/buckets/{bucket}/keys/{key}", m.InstrumentHandler("DELETE", "/buckets/{bucket}/keys/{key}", server.handleDelete))
	})

	return r
}
