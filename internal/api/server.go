// Package api exposes the collection layer over HTTP and websockets.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ramonehamilton/mtg-binder/internal/api/websocket"
	"github.com/ramonehamilton/mtg-binder/internal/collection"
	"github.com/ramonehamilton/mtg-binder/internal/events"
	"github.com/ramonehamilton/mtg-binder/internal/pagination"
	"github.com/ramonehamilton/mtg-binder/internal/selection"
	"github.com/ramonehamilton/mtg-binder/internal/storage/repository"
)

// Server represents the REST API server.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	port       int
	logger     *slog.Logger

	// WebSocket hub for invalidation events
	wsHub      *websocket.Hub
	wsObserver *websocket.Observer

	pages        *pagination.Engine
	cards        repository.CardRepository
	collections  *collection.Service
	views        *selection.Registry
	stores       map[string]repository.Deleter
	dispatcher   *events.EventDispatcher
	pageSize     int
	initialCount int
}

// Config holds configuration for the API server.
type Config struct {
	Port           int
	AllowedOrigins []string
	PageSize       int
	InitialCount   int
	Logger         *slog.Logger
}

// DefaultConfig returns the default API server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:           8080,
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		PageSize:       60,
		InitialCount:   24,
	}
}

// Dependencies are the services the routes call into.
type Dependencies struct {
	// Cards is the active card store adapter.
	Cards repository.CardRepository

	// CardDeleter removes catalog cards. Nil disables card views.
	CardDeleter repository.Deleter

	Collections *collection.Service
	Decks       repository.Deleter
	Wishlists   repository.Deleter

	// Dispatcher carries invalidation events to websocket clients.
	Dispatcher *events.EventDispatcher
}

// NewServer creates a new API server.
func NewServer(cfg *Config, deps Dependencies) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = events.NewEventDispatcher(logger)
	}

	stores := map[string]repository.Deleter{
		events.PathDecks:     deps.Decks,
		events.PathWishlists: deps.Wishlists,
	}
	if deps.CardDeleter != nil {
		stores[events.PathCards] = deps.CardDeleter
	}

	s := &Server{
		router:       chi.NewRouter(),
		port:         cfg.Port,
		logger:       logger,
		wsHub:        websocket.NewHub(websocket.HubOptions{Logger: logger}),
		pages:        pagination.NewEngine(deps.Cards),
		cards:        deps.Cards,
		collections:  deps.Collections,
		views:        selection.NewRegistry(),
		stores:       stores,
		dispatcher:   dispatcher,
		pageSize:     cfg.PageSize,
		initialCount: cfg.InitialCount,
	}

	s.wsObserver = websocket.NewObserver(s.wsHub)
	s.dispatcher.Register(s.wsObserver)

	s.setupMiddleware(cfg.AllowedOrigins)
	s.setupRoutes()

	return s
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware(origins []string) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Content-Type enforcement for POST only (not GET/DELETE/OPTIONS)
	s.router.Use(jsonContentTypeMiddleware)
}

// jsonContentTypeMiddleware enforces application/json content-type for requests with bodies.
func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.ContentLength != 0 {
			contentType := r.Header.Get("Content-Type")
			if contentType != "application/json" && !strings.HasPrefix(contentType, "application/json;") {
				http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the websocket hub and the HTTP listener in goroutines.
func (s *Server) Start() error {
	go s.wsHub.Run()

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "port", s.port)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the API server and the websocket hub. The
// dispatcher may outlive the server, so the hub stops receiving events first.
func (s *Server) Shutdown(ctx context.Context) error {
	s.dispatcher.Unregister(s.wsObserver)
	s.wsHub.Stop()
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// Port returns the port the server is configured to listen on.
func (s *Server) Port() int {
	return s.port
}

// WebSocketHub returns the WebSocket hub.
func (s *Server) WebSocketHub() *websocket.Hub {
	return s.wsHub
}
