package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ssargent/docmap/pkg/document"
	"github.com/ssargent/docmap/pkg/primitive"
	"github.com/ssargent/docmap/pkg/storage"
)

// defaultLimit caps a collection listing when no limit is given
const defaultLimit = 100

var errStopScan = errors.New("stop scan")

// Server holds the dependencies of the HTTP handlers
type Server struct {
	store  DocumentStore
	logger *slog.Logger
}

// NewServer creates a new API server
func NewServer(store DocumentStore, logger *slog.Logger) *Server {
	return &Server{
		store:  store,
		logger: logger,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	collections, err := s.store.Collections()
	if err != nil {
		s.fail(w, err)
		return
	}
	sendSuccess(w, HealthResponse{Status: "ok", Collections: len(collections)})
}

func (s *Server) handleCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := s.store.Collections()
	if err != nil {
		s.fail(w, err)
		return
	}
	if collections == nil {
		collections = []string{}
	}
	sendSuccess(w, collections)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")

	limit := defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			sendError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	resp := ListResponse{Collection: collection, Documents: []map[string]any{}}
	err := s.store.ScanRaw(collection, func(_ document.RawValue, doc document.Raw) error {
		if limit > 0 && len(resp.Documents) == limit {
			resp.Truncated = true
			return errStopScan
		}
		m, err := plainDocument(doc)
		if err != nil {
			return err
		}
		resp.Documents = append(resp.Documents, m)
		return nil
	})
	if err != nil && !errors.Is(err, errStopScan) {
		s.fail(w, err)
		return
	}
	sendSuccess(w, resp)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	collection := chi.URLParam(r, "collection")
	id := chi.URLParam(r, "id")

	candidates, err := primitive.IdentifierCandidates(s.store.Registry(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	for _, candidate := range candidates {
		doc, err := s.store.GetRaw(collection, candidate)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			s.fail(w, err)
			return
		}
		m, err := plainDocument(doc)
		if err != nil {
			s.fail(w, err)
			return
		}
		sendSuccess(w, m)
		return
	}
	sendError(w, "document not found", http.StatusNotFound)
}

// fail maps store errors onto status codes
func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		sendError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, storage.ErrClosed):
		sendError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		s.logger.Error("request failed", "error", err)
		sendError(w, err.Error(), http.StatusInternalServerError)
	}
}

func plainDocument(doc document.Raw) (map[string]any, error) {
	v, err := primitive.ReadPlain(document.NewBinaryReader(doc))
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, document.ErrUnexpectedType
	}
	return m, nil
}
