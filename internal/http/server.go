// Package http serves the quiz views, the JSON API, the WebSocket push
// channel and the Prometheus metrics.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"songquiz/internal/core"
	"songquiz/internal/flood"
	"songquiz/internal/host"
)

const shutdownTimeout = 10 * time.Second

// Server exposes the host over HTTP and pushes events to connected views.
type Server struct {
	config   *core.ServerConfig
	logger   *zap.Logger
	server   *http.Server
	host     *host.Host
	hub      *Hub
	metrics  *Metrics
	limiter  *flood.Floodgate
	language string
}

// NewServer registers all routes. language is the fallback for error messages.
func NewServer(config *core.ServerConfig, app *host.Host, hub *Hub, metrics *Metrics,
	limiter *flood.Floodgate, language string, logger *zap.Logger) *Server {
	s := &Server{
		config:   config,
		logger:   logger,
		host:     app,
		hub:      hub,
		metrics:  metrics,
		limiter:  limiter,
		language: language,
	}

	s.server = createHTTPServer(config, s.routes())
	return s
}

// Handler exposes the route table, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func createHTTPServer(config *core.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:           handler,
		ReadTimeout:       config.ReadTimeout,
		ReadHeaderTimeout: config.ReadTimeout,
		WriteTimeout:      config.WriteTimeout,
	}
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /{$}", s.handleIndex)

	mux.HandleFunc("GET /login", s.handleLogin)
	mux.HandleFunc("GET /callback", s.handleCallback)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("POST /reset", s.handleReset)

	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("POST /api/session/refresh", s.limit("refresh", s.handleRefresh))
	mux.HandleFunc("POST /api/setup", s.handleSetup)
	mux.HandleFunc("POST /api/playlist/reload", s.handleReload)
	mux.HandleFunc("GET /api/game", s.handleGame)
	mux.HandleFunc("POST /api/round/start", s.handleStartRound)
	mux.HandleFunc("POST /api/round/next", s.handleNextRound)
	mux.HandleFunc("POST /api/round/correct", s.handleCorrect)
	mux.HandleFunc("POST /api/round/wrong", s.handleWrong)
	mux.HandleFunc("POST /api/round/guess", s.handleGuess)
	mux.HandleFunc("POST /api/device", s.handleDevice)
	mux.HandleFunc("POST /api/scan", s.limit("scan", s.handleScan))
	mux.HandleFunc("POST /api/categories/suggest", s.handleSuggest)
	mux.HandleFunc("GET /api/cards", s.handleCards)
	mux.HandleFunc("GET /api/cards/{index}/qr.png", s.handleCardQR)

	mux.HandleFunc("GET /ws", s.handleWS)

	return mux
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server",
		zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

func (s *Server) GetMetrics() *Metrics {
	return s.metrics
}
