package api

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ssargent/docmap/pkg/codec"
	"github.com/ssargent/docmap/pkg/document"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Addr string
	// APIKey protects /api/v1 when set
	APIKey string
	// Registerer and Gatherer back the HTTP metrics and /metrics. Both
	// default to the prometheus globals.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
	// Logger receives one entry per request. Nil discards them.
	Logger *slog.Logger
}

// HealthResponse is the body of /api/v1/health
type HealthResponse struct {
	Status      string `json:"status"`
	Collections int    `json:"collections"`
}

// ListResponse is one page of a collection scan
type ListResponse struct {
	Collection string           `json:"collection"`
	Documents  []map[string]any `json:"documents"`
	// Truncated is set when the limit stopped the scan early
	Truncated bool `json:"truncated"`
}

// DocumentStore is the read side of a document store
type DocumentStore interface {
	Collections() ([]string, error)
	GetRaw(collection string, id document.RawValue) (document.Raw, error)
	ScanRaw(collection string, fn func(id document.RawValue, doc document.Raw) error) error
	Registry() codec.Registry
}
