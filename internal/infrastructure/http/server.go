// Package http provides the HTTP server infrastructure: the chat page, the
// question endpoint and health checks.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/0xcro3dile/ragagent/internal/domain/usecases"
)

// Server is the HTTP server for the question answering API and chat UI.
type Server struct {
	queryUseCase *usecases.QueryUseCase
	addr         string
	logger       *slog.Logger
}

// NewServer creates a new HTTP server.
func NewServer(queryUC *usecases.QueryUseCase, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		queryUseCase: queryUC,
		addr:         addr,
		logger:       logger.With("component", "http"),
	}
}

// Handler returns the routed handler with logging and CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// UI
	mux.HandleFunc("GET /{$}", s.handleIndex)

	// API
	mux.HandleFunc("POST /ask", s.handleAsk)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/stats", s.handleStats)

	return corsMiddleware(s.loggingMiddleware(mux))
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 300 * time.Second, // agent loops can take several model calls
	}

	s.logger.Info("server starting", "addr", s.addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleAsk answers {"question": "..."} with {"answer": "...", "status": "success"}.
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		req.Question = ""
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No question provided"})
		return
	}

	answer := s.queryUseCase.Ask(r.Context(), req.Question)
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer, "status": "success"})
}

// handleSearch returns the raw retrieval results for ?q=, without reasoning.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Query required"})
		return
	}

	results, err := s.queryUseCase.Search(r.Context(), query)
	if err != nil {
		s.logger.Error("search failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "search failed"})
		return
	}

	type hit struct {
		Page    int     `json:"page"`
		Index   int     `json:"index"`
		Score   float64 `json:"score"`
		Source  string  `json:"source"`
		Content string  `json:"content"`
	}
	hits := make([]hit, len(results))
	for i, res := range results {
		hits[i] = hit{
			Page:    res.Chunk.Page,
			Index:   res.Chunk.Index,
			Score:   res.Score,
			Source:  res.SourceDoc,
			Content: res.Chunk.Content,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": query, "results": hits})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	chunks, dim := s.queryUseCase.Stats()
	writeJSON(w, http.StatusOK, map[string]int{"chunks": chunks, "dimension": dim})
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "message": "RAG Agent is running"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			return
		}
		next.ServeHTTP(w, r)
	})
}
