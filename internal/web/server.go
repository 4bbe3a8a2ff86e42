// Package web provides the HTTP surface that triggers import runs.
//
// The surrounding product (account CRUD, dashboards, auth) lives in other
// services; this server only exposes the importer and a health check.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/contaflow/contaflow/internal/config"
	ourmw "github.com/contaflow/contaflow/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Server is the HTTP server for the importer API.
type Server struct {
	imports *ImportHandler
	pool    *pgxpool.Pool
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a Server wired to the importer and the database pool
// (the pool is only used by the health check).
func NewServer(imports *ImportHandler, pool *pgxpool.Pool, cfg *config.Config) *Server {
	s := &Server{
		imports: imports,
		pool:    pool,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(ourmw.Logger)
	s.router.Use(middleware.Recoverer)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/imports", s.imports.handleRunImport)
		r.Get("/imports", s.imports.handleListImports)
	})
}

// Start begins listening. Blocks until the server stops.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// handleHealth reports liveness, including database reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.pool.Ping(ctx); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
