// Package api provides the HTTP surface (C6, C7, preferences CRUD, health)
// the orchestration core exposes to an authenticated caller, grounded on
// the teacher's echo/v5 Server/setupRoutes layout (pkg/api/server.go).
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/manga-orchestrator/pkg/config"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/eventbus"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/metastore"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/orchestrator"
	"github.com/codeready-toolchain/manga-orchestrator/pkg/ratelimit"
)

// Server is the HTTP API server fronting C6, C7, and preferences CRUD.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server

	meta    metastore.MetaStore
	bus     eventbus.EventBus
	limiter *ratelimit.Limiter
	rates   *config.Defaults
	pool    *orchestrator.Pool // nil until SetPool; included in GET /healthz

	validate *validator.Validate
}

// NewServer creates a Server with its routes registered.
func NewServer(meta metastore.MetaStore, bus eventbus.EventBus, limiter *ratelimit.Limiter, rates *config.Defaults) *Server {
	e := echo.New()

	s := &Server{
		echo:     e,
		meta:     meta,
		bus:      bus,
		limiter:  limiter,
		rates:    rates,
		validate: validator.New(),
	}

	s.setupRoutes()
	return s
}

// SetPool wires the orchestrator worker pool so GET /healthz can report
// whether any workers are running. Optional: a Server with no pool set
// still serves the HTTP surface, it just omits the worker_pool check from
// health responses.
func (s *Server) SetPool(pool *orchestrator.Pool) {
	s.pool = pool
}

// setupRoutes registers all API routes (spec §6).
func (s *Server) setupRoutes() {
	s.echo.Use(requestID())
	s.echo.Use(securityHeaders())

	s.echo.GET("/healthz", s.healthHandler)

	s.echo.POST("/workflow/start", s.startWorkflowHandler)
	s.echo.POST("/stories/:storyId/episodes", s.continueEpisodeHandler)
	s.echo.POST("/preferences", s.savePreferencesHandler)
	s.echo.GET("/preferences", s.getPreferencesHandler)
}

// Start starts the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func nowISO8601() string {
	return time.Now().UTC().Format(time.RFC3339)
}
