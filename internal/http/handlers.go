package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"intake-chatbot/internal/kb"
)

// Server exposes the read-only operational endpoints of an intake process:
// metrics, liveness and the loaded knowledge base.  The dialogue itself
// stays on the console.
type Server struct {
	Knowledge *kb.KnowledgeBase
	Gatherer  prometheus.Gatherer
	Logger    *zap.Logger

	router chi.Router
}

// NewServer constructs a Server and its routes.
func NewServer(knowledge *kb.KnowledgeBase, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{Knowledge: knowledge, Gatherer: gatherer, Logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/api/knowledge-base", s.handleKnowledgeBase)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status": "ok",
		"cases":  s.Knowledge.Len(),
	})
}

// handleKnowledgeBase returns the case definitions in priority order.
func (s *Server) handleKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Knowledge.Entries())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
