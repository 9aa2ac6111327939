// Package api serves a read-only HTTP view of a document store.
//
// Documents are rendered as plain JSON: identifiers in their text form,
// date-times as RFC 3339 strings and discriminators as ordinary keys. No
// entity types are needed on the serving side.
package api

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the HTTP handler with all routes configured
func NewRouter(store DocumentStore, config ServerConfig) http.Handler {
	if config.Registerer == nil {
		config.Registerer = prometheus.DefaultRegisterer
	}
	if config.Gatherer == nil {
		config.Gatherer = prometheus.DefaultGatherer
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	metrics := NewMetrics(config.Registerer)
	server := NewServer(store, config.Logger)

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(config.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint (unprotected for scraping)
	r.Handle("/metrics", promhttp.HandlerFor(config.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apiKeyMiddleware(config.APIKey))

		r.Get("/health", metrics.InstrumentHandler("GET", "/api/v1/health", server.handleHealth))

		r.Get("/collections", metrics.InstrumentHandler("GET", "/api/v1/collections", server.handleCollections))
		r.Get("/collections/{collection}", metrics.InstrumentHandler("GET", "/api/v1/collections/{collection}", server.handleList))
		r.Get("/collections/{collection}/{id}", metrics.InstrumentHandler("GET", "/api/v1/collections/{collection}/{id}", server.handleGet))
	})

	return r
}

// NewHTTPServer wraps the router in an http.Server with sane timeouts
func NewHTTPServer(store DocumentStore, config ServerConfig) *http.Server {
	return &http.Server{
		Addr:              config.Addr,
		Handler:           NewRouter(store, config),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
