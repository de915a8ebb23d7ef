// Package api provides the REST boundary for surf. Every capability of the
// service is reachable through it: backend attachment, tool execution, and
// task sessions.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/entrhq/surf/pkg/agent"
	"github.com/entrhq/surf/pkg/dispatch"
	"github.com/entrhq/surf/pkg/logging"
	"github.com/entrhq/surf/pkg/toolserver"
)

// BrowserBackend is the live-browser handle as the HTTP boundary sees it.
type BrowserBackend interface {
	Connected() bool
	Connect(endpoint string) error
	Disconnect() error
	Endpoint() string
}

// ToolServerBackend is the subprocess client as the HTTP boundary sees it.
type ToolServerBackend interface {
	Connected() bool
	Connect(ctx context.Context) error
	Close() error
}

// ToolDispatcher executes tool calls and serves the catalog.
type ToolDispatcher interface {
	ListTools(ctx context.Context) ([]toolserver.ToolDescriptor, error)
	CallTool(ctx context.Context, name string, args map[string]any) (*dispatch.Result, error)
}

// RunSessionFunc drives one session to a terminal state. The boundary calls
// it synchronously or on a background goroutine depending on the request.
type RunSessionFunc func(ctx context.Context, sessionID string, maxIterations int) error

// Deps wires the server to the rest of the service.
type Deps struct {
	// Address to listen on (default: 127.0.0.1:8700)
	Address string

	// Browser is the live-browser handle (optional; nil means disabled).
	Browser BrowserBackend

	// ToolServer is the subprocess tool-server client.
	ToolServer ToolServerBackend

	// Dispatcher routes tool calls across the two backends.
	Dispatcher ToolDispatcher

	// Store holds task sessions.
	Store *agent.Store

	// RunSession executes one session.
	RunSession RunSessionFunc

	// Endpoint is a fixed debugging endpoint; empty means auto-detect.
	Endpoint string

	// DetectEndpoint probes for a local debugging endpoint (optional).
	DetectEndpoint func(ctx context.Context) string

	// LiveBrowserDisabled skips browser attachment on connect entirely.
	LiveBrowserDisabled bool
}

// Server is the surf REST server.
type Server struct {
	deps       Deps
	httpServer *http.Server
	log        *logging.Logger
}

// NewServer creates the REST server and installs its routes.
func NewServer(deps Deps) *Server {
	if deps.Address == "" {
		deps.Address = "127.0.0.1:8700"
	}

	logger, _ := logging.NewLogger("api")
	s := &Server{
		deps: deps,
		log:  logger,
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(s.requestLogger)

	router.Post("/connect", s.handleConnect)
	router.Post("/disconnect", s.handleDisconnect)
	router.Get("/tools", s.handleListTools)
	router.Post("/tools/{name}", s.handleCallTool)
	router.Post("/session", s.handleCreateSession)
	router.Get("/session/{id}", s.handleGetSession)
	router.Get("/sessions", s.handleListSessions)
	router.Get("/healthz", s.handleHealthz)
	router.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:         deps.Address,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // Foreground sessions block the response
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the server and blocks until it stops.
func (s *Server) Start() error {
	s.log.Infof("listening on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
