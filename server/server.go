// Package server exposes the HTTP surface: streaming chat, document
// ingestion, folder listings, and a websocket chat transport.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/mbarlow/docchat/internal/log"
	"github.com/mbarlow/docchat/internal/models"
	"github.com/mbarlow/docchat/internal/types"
	"github.com/mbarlow/docchat/pkg/rag"
)

// Answerer runs one chat exchange. *rag.Orchestrator implements it.
type Answerer interface {
	Answer(ctx context.Context, req rag.Request) (*rag.Answer, error)
}

// Ingester runs one ingestion batch. *ingest.Pipeline implements it.
type Ingester interface {
	Ingest(ctx context.Context, namespace string, files []models.FileRef) []models.FileResult
}

// Config wires the server's collaborators.
type Config struct {
	Logger     log.Logger
	Orchestra  Answerer      // required
	Pipeline   Ingester      // required
	Catalog    types.Catalog // optional: nil disables folder listings
	MaxBodyMB  int           // request body limit, default 1
}

// Server is the HTTP server.
type Server struct {
	mux       *http.ServeMux
	logger    log.Logger
	orchestra Answerer
	pipeline  Ingester
	catalog   types.Catalog
	maxBody   int64
}

// New creates the server with all routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.Orchestra == nil {
		return nil, errors.New("orchestrator is required")
	}
	if cfg.Pipeline == nil {
		return nil, errors.New("ingestion pipeline is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	maxBody := int64(cfg.MaxBodyMB)
	if maxBody <= 0 {
		maxBody = 1
	}

	s := &Server{
		mux:       http.NewServeMux(),
		logger:    logger,
		orchestra: cfg.Orchestra,
		pipeline:  cfg.Pipeline,
		catalog:   cfg.Catalog,
		maxBody:   maxBody << 20,
	}

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /api/chat", s.handleChat)
	s.mux.HandleFunc("POST /api/ingest", s.handleIngest)
	s.mux.HandleFunc("GET /ws", s.handleWebSocket)

	if cfg.Catalog != nil {
		s.mux.HandleFunc("GET /api/folders", s.handleListFolders)
		s.mux.HandleFunc("GET /api/folders/{folder}/files", s.handleListFiles)
	}

	return s, nil
}

// Handler returns the full middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.mux
	handler = loggingMiddleware(s.logger)(handler)
	handler = recoveryMiddleware(s.logger)(handler)
	return handler
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// userID extracts the caller identity set by the authenticating proxy.
// Authentication itself is outside this service.
func userID(r *http.Request) string {
	if uid := r.Header.Get("X-User-Id"); uid != "" {
		return uid
	}
	return "default"
}
