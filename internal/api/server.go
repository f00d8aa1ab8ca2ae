package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mzhuang1/chanyeops-sub000/internal/config"
	"github.com/mzhuang1/chanyeops-sub000/internal/llm"
	"github.com/mzhuang1/chanyeops-sub000/internal/pipeline"
	"github.com/mzhuang1/chanyeops-sub000/internal/templates"
)

// LLMInfo identifies the generation backend for the stats endpoint.
type LLMInfo struct {
	Provider string
	Model    string
	Stats    *llm.Stats
}

// Server is the HTTP API server for plan generation.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	templates    *templates.Registry
	llm          LLMInfo
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, reg *templates.Registry, info LLMInfo, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		templates:    reg,
		llm:          info,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Get("/api/planning/templates", s.handleListTemplates)
		r.Post("/api/planning/runs", s.handleCreateRun)
		r.Get("/api/planning/runs", s.handleListRuns)
		r.Get("/api/planning/runs/{runID}", s.handleGetRun)
		r.Get("/api/planning/runs/{runID}/download/{format}", s.handleDownload)
		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
