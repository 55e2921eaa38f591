// Package api exposes project ingestion, storage and bug analysis over HTTP,
// with a WebSocket channel for progress events.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/mpetrov/bugscope/internal/config"
	"github.com/mpetrov/bugscope/internal/diagnose"
	"github.com/mpetrov/bugscope/internal/ingest"
	"github.com/mpetrov/bugscope/internal/project"
)

// Server wires the HTTP routes to the pipeline, store and diagnosis service.
type Server struct {
	cfg      config.ServerConfig
	store    *project.Store
	pipeline *ingest.Pipeline
	diag     *diagnose.Service
	hub      *Hub
	mux      *chi.Mux
	version  string
}

// NewServer builds the router and its WebSocket hub. The hub's Run loop is
// started by the caller.
func NewServer(cfg config.ServerConfig, store *project.Store, pipeline *ingest.Pipeline, diag *diagnose.Service, version string) *Server {
	s := &Server{
		cfg:      cfg,
		store:    store,
		pipeline: pipeline,
		diag:     diag,
		hub:      NewHub(),
		mux:      chi.NewRouter(),
		version:  version,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler for the whole API.
func (s *Server) Handler() http.Handler { return s.mux }

// Hub returns the WebSocket hub so the caller can run its event loop.
func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) setupMiddleware() {
	s.mux.Use(chimiddleware.Recoverer)
	s.mux.Use(corsMiddleware)
	s.mux.Use(chimiddleware.RequestSize(s.cfg.MaxUploadBytes))
}

func (s *Server) setupRoutes() {
	s.mux.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/ws", s.hub.HandleUpgrade)

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", s.handleListProjects)
			r.Post("/", s.handleUploadProject)
			r.Post("/app", s.handleCreateAppProject)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetProject)
				r.Delete("/", s.handleDeleteProject)
				r.Post("/analyze", s.handleAnalyzeProject)
				r.Post("/implement", s.handleImplementFix)
			})
		})
	})
}
