package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/privsentry/pii-sentinel/internal/cache"
	"github.com/privsentry/pii-sentinel/internal/config"
	"github.com/privsentry/pii-sentinel/internal/engine"
	"github.com/privsentry/pii-sentinel/internal/logger"
	"github.com/privsentry/pii-sentinel/internal/web"
	"github.com/privsentry/pii-sentinel/internal/websocket"
)

const version = "0.1.0"

// Server is the HTTP front end of the detection engine.
type Server struct {
	config  *config.Config
	logger  *logger.Logger
	engine  *engine.Engine
	cache   *cache.ResultCache
	limiter *rateLimiter
	router  *mux.Router
	server  *http.Server
	wsHub   *websocket.Hub
	started time.Time
}

// New creates a server around an engine. The redis cache is optional;
// when disabled every request is computed fresh.
func New(cfg *config.Config, log *logger.Logger, eng *engine.Engine) (*Server, error) {
	s := &Server{
		config: cfg,
		logger: log.WithComponent("server"),
		engine: eng,
		router: mux.NewRouter(),
		wsHub:  websocket.NewHub(cfg.WebSocket, log.WithComponent("websocket")),
	}

	if cfg.Cache.Enabled {
		c, err := cache.New(cfg.Cache, log.WithComponent("cache").Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create result cache: %w", err)
		}
		s.cache = c
	}

	if cfg.Server.RateLimit.Enabled {
		s.limiter = newRateLimiter(cfg.Server.RateLimit.RequestsPerMin, cfg.Server.RateLimit.Burst)
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")

	s.router.HandleFunc("/", web.ServeDashboard).Methods("GET")
	s.router.HandleFunc("/dashboard", web.ServeDashboard).Methods("GET")
	if s.config.WebSocket.Enabled {
		s.router.HandleFunc(s.config.WebSocket.Path, s.handleWebSocket).Methods("GET")
	}

	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(s.loggingMiddleware)
	if s.limiter != nil {
		api.Use(s.rateLimitMiddleware)
	}
	api.Use(s.bodyLimitMiddleware)
	api.HandleFunc("/detect", s.handleDetect).Methods("POST")
	api.HandleFunc("/anonymize", s.handleAnonymize).Methods("POST")
	api.HandleFunc("/assess", s.handleAssess).Methods("POST")
}

// Start runs the HTTP server until it fails or is shut down.
func (s *Server) Start() error {
	s.started = time.Now()
	s.logger.Info("starting pii-sentinel server",
		zap.Int("port", s.config.Server.Port),
		zap.Strings("sources", s.engine.Sources()),
		zap.Bool("cache_enabled", s.cache != nil),
	)

	go s.wsHub.Run()
	if s.config.WebSocket.Events.BroadcastSystem {
		go s.statusLoop()
	}

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server and releases resources.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping pii-sentinel server")
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Warn("failed to close cache", zap.Error(err))
		}
	}
	return s.server.Shutdown(ctx)
}

// statusLoop periodically pushes a system status event to the
// dashboard.
func (s *Server) statusLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		stats := s.wsHub.GetStats()
		s.wsHub.BroadcastEvent(websocket.Event{
			Type:      websocket.EventTypeSystemStatus,
			Timestamp: time.Now(),
			Data: websocket.SystemStatusEvent{
				Status:        "healthy",
				Sources:       s.engine.Sources(),
				ActiveClients: stats.ActiveConnections,
				UptimeSeconds: time.Since(s.started).Seconds(),
			},
		})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"sources":   s.engine.Sources(),
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":             "pii-sentinel",
		"version":          version,
		"sources":          s.engine.Sources(),
		"confidence_floor": s.config.Detection.ConfidenceFloor,
		"default_mode":     s.config.Anonymize.DefaultMode,
		"cache_enabled":    s.cache != nil,
	}
	if s.cache != nil {
		info["cache_stats"] = s.cache.Stats()
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.wsHub.HandleWebSocket(w, r)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
