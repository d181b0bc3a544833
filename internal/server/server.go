package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/raaihank/llm-humanizer/internal/cache"
	"github.com/raaihank/llm-humanizer/internal/config"
	"github.com/raaihank/llm-humanizer/internal/history"
	"github.com/raaihank/llm-humanizer/internal/humanizer"
	"github.com/raaihank/llm-humanizer/internal/logger"
	"github.com/raaihank/llm-humanizer/internal/websocket"
	"go.uber.org/zap"
)

// Version is reported by / and /info
const Version = "2.0.0"

// Options are the collaborators the server uses. Only Humanizer is required.
type Options struct {
	Humanizer *humanizer.Humanizer
	Cache     cache.Store
	History   *history.Store
	Hub       *websocket.Hub
}

// pipeline is the part of the server swapped on config reload
type pipeline struct {
	humanizer *humanizer.Humanizer
	cache     cache.Store
	settings  config.HumanizerConfig
}

// Server serves the humanizer HTTP API
type Server struct {
	config    *config.Config
	logger    *logger.Logger
	state     atomic.Pointer[pipeline]
	history   *history.Store
	hub       *websocket.Hub
	limiter   *RateLimiter
	router    *mux.Router
	handler   http.Handler
	server    *http.Server
	startedAt time.Time
}

// New creates a new server instance
func New(cfg *config.Config, opts Options, log *logger.Logger) (*Server, error) {
	if opts.Humanizer == nil {
		return nil, fmt.Errorf("humanizer is required")
	}
	if log == nil {
		log = logger.Nop()
	}

	s := &Server{
		config:    cfg,
		logger:    log.WithComponent("server"),
		history:   opts.History,
		hub:       opts.Hub,
		limiter:   NewRateLimiter(cfg.RateLimit),
		router:    mux.NewRouter(),
		startedAt: time.Now(),
	}
	s.state.Store(&pipeline{
		humanizer: opts.Humanizer,
		cache:     opts.Cache,
		settings:  cfg.Humanizer,
	})

	s.setupRoutes()

	// CORS and request IDs wrap the router so preflight requests never hit route matching
	s.handler = s.requestIDMiddleware(s.loggingMiddleware(s.corsMiddleware(s.router)))

	s.server = &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      s.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/info", s.handleInfo).Methods(http.MethodGet)
	s.router.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	s.router.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)

	// Rate-limited processing endpoints
	api := s.router.NewRoute().Subrouter()
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/humanize", s.handleHumanize).Methods(http.MethodPost)
	api.HandleFunc("/batch", s.handleBatch).Methods(http.MethodPost)
	api.HandleFunc("/analyze", s.handleAnalyze).Methods(http.MethodPost)
	api.HandleFunc("/test", s.handleTest).Methods(http.MethodGet)

	if s.hub != nil && s.config.WebSocket.Enabled {
		path := s.config.WebSocket.Path
		if path == "" {
			path = "/ws"
		}
		s.router.HandleFunc(path, s.hub.HandleWebSocket).Methods(http.MethodGet)
	}

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusNotFound, "not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server and background maintenance. It blocks until
// the server stops.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting LLM-Humanizer server",
		zap.String("addr", s.server.Addr),
		zap.String("rewriter", s.humanizer().RewriterName()),
		zap.String("default_mode", s.state.Load().settings.DefaultMode),
		zap.Bool("history", s.history != nil),
		zap.Bool("rate_limit", s.limiter != nil),
	)

	if s.limiter != nil {
		go s.limiter.Run(ctx, s.config.RateLimit.CleanupInterval)
	}

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping LLM-Humanizer server")
	return s.server.Shutdown(ctx)
}

// Reload swaps in a rebuilt humanizer. In-flight requests finish on the old one.
func (s *Server) Reload(h *humanizer.Humanizer, store cache.Store, settings config.HumanizerConfig) {
	s.state.Store(&pipeline{humanizer: h, cache: store, settings: settings})
	s.logger.Info("Humanizer reloaded",
		zap.String("rewriter", h.RewriterName()),
		zap.String("default_mode", settings.DefaultMode))
	s.BroadcastStatus("configuration reloaded")
}

// BroadcastStatus sends a system_status event to websocket clients
func (s *Server) BroadcastStatus(message string) {
	if s.hub == nil {
		return
	}

	h := s.humanizer()
	stats := h.Stats()
	byMethod := make(map[string]int64, len(stats.ByMethod))
	for method, n := range stats.ByMethod {
		byMethod[string(method)] = n
	}

	s.hub.BroadcastEvent(websocket.Event{
		Type:      websocket.EventTypeSystemStatus,
		Timestamp: time.Now(),
		Data: websocket.SystemStatusEvent{
			Status:           "healthy",
			Uptime:           time.Since(s.startedAt).Round(time.Second).String(),
			TotalRequests:    stats.Total,
			ByMethod:         byMethod,
			RewriteFailures:  stats.RewriteFailures,
			CacheHits:        stats.CacheHits,
			Rewriter:         h.RewriterName(),
			ConnectedClients: s.hub.ClientCount(),
			Message:          message,
		},
	})
}

func (s *Server) humanizer() *humanizer.Humanizer {
	return s.state.Load().humanizer
}
