// Package transport exposes the relay over HTTP: message delivery, the event
// stream, provider callbacks, health and metrics.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/brizzai/recall/internal/config"
	"github.com/brizzai/recall/internal/events"
	"github.com/brizzai/recall/internal/logger"
	"github.com/brizzai/recall/internal/mcpserver"
	"github.com/brizzai/recall/internal/metrics"
	"github.com/brizzai/recall/internal/relay"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	// shutdownTimeout is the maximum time to wait for server shutdown
	shutdownTimeout = 5 * time.Second
)

// Params are the transport's dependencies.
type Params struct {
	fx.In

	Config  *config.Config
	Handler relay.Handler
	Hub     *events.Hub
	Metrics *metrics.Metrics  `optional:"true"`
	MCP     *mcpserver.Server `optional:"true"`
}

// Server routes HTTP requests to the relay.
type Server struct {
	config  *config.Config
	handler relay.Handler
	hub     *events.Hub
	metrics *metrics.Metrics
	mcp     *mcpserver.Server
	router  chi.Router
}

// NewServer builds the router.
func NewServer(p Params) *Server {
	s := &Server{
		config:  p.Config,
		handler: p.Handler,
		hub:     p.Hub,
		metrics: p.Metrics,
		mcp:     p.MCP,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(LoggingMiddleware)
	r.Use(MetricsMiddleware(s.metrics))
	r.Use(CORSWithOrigins(s.config.Server.AllowOrigins))

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/messages", s.handleMessage)
		r.Method(http.MethodGet, "/events", events.NewHandler(s.hub, OriginAllowed(s.config.Server.AllowOrigins)))
	})

	if s.mcp != nil {
		r.Handle("/mcp", s.mcp.HTTPHandler())
	}

	r.Get("/auth/{provider}/callback", s.handleCallback)
	r.Get("/oauth/{provider}/callback", s.handleCallback)
	r.Get("/auth/callback", s.handleCallback)
	r.Get("/oauth/callback", s.handleCallback)
	return r
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on the configured address until ctx is done, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Server.Addr(), err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is done.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel for server errors
	errChan := make(chan error, 1)

	go func() {
		logger.Info("Starting relay server", zap.String("address", ln.Addr().String()))

		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down relay server", zap.Duration("timeout", shutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil

	case err := <-errChan:
		return err
	}
}
