// Package server exposes the question-answering system over a small JSON
// HTTP API: query answering, corpus statistics, and session management.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"lectern/internal/models"
	"lectern/internal/rag"
)

// RAGService is the slice of the RAG system the server depends on.
type RAGService interface {
	Query(ctx context.Context, query, sessionID string) (string, []models.Source)
	CreateSession() string
	ClearSession(sessionID string)
	Analytics(ctx context.Context) (rag.Analytics, error)
}

// Server serves the JSON API.
type Server struct {
	service RAGService
	logger  *zap.Logger
	addr    string
}

// New creates a server listening on addr once started.
func New(service RAGService, addr string, logger *zap.Logger) *Server {
	if addr == "" {
		addr = ":8000"
	}
	return &Server{service: service, logger: logger, addr: addr}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	s.logger.Info("http server listening", zap.String("addr", s.addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Handler builds the route table. Exposed separately so tests can drive it
// through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/query", s.handleQuery)
	mux.HandleFunc("GET /api/courses", s.handleCourses)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleClearSession)
	return mux
}

type queryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

type queryResponse struct {
	Answer    string          `json:"answer"`
	Sources   []models.Source `json:"sources"`
	SessionID string          `json:"session_id"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		s.writeError(w, http.StatusBadRequest, "query must not be empty")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = s.service.CreateSession()
	}

	start := time.Now()
	answer, sources := s.service.Query(r.Context(), req.Query, sessionID)
	s.logger.Info("query answered",
		zap.String("session_id", sessionID),
		zap.Int("sources", len(sources)),
		zap.Duration("elapsed", time.Since(start)))

	if sources == nil {
		sources = []models.Source{}
	}
	s.writeJSON(w, http.StatusOK, queryResponse{
		Answer:    answer,
		Sources:   sources,
		SessionID: sessionID,
	})
}

func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	analytics, err := s.service.Analytics(r.Context())
	if err != nil {
		s.logger.Error("course analytics failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load course statistics")
		return
	}
	if analytics.CourseTitles == nil {
		analytics.CourseTitles = []string{}
	}
	s.writeJSON(w, http.StatusOK, analytics)
}

func (s *Server) handleClearSession(w http.ResponseWriter, r *http.Request) {
	s.service.ClearSession(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("response encoding failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
