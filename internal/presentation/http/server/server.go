// Package server runs the site's HTTP listener.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/TwistedArtistsGuild/tag-web/internal/application/container"
	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
	"github.com/TwistedArtistsGuild/tag-web/internal/presentation/http/routes"
	"github.com/TwistedArtistsGuild/tag-web/pkg/config"
)

// FeedCloser ends long-lived connections that Shutdown cannot drain, such
// as the hijacked websocket reaction feeds.
type FeedCloser interface {
	Close()
}

// Timeouts bound each phase of a request.
type Timeouts struct {
	ReadHeader time.Duration
	Read       time.Duration
	Write      time.Duration
	Idle       time.Duration
}

// Server serves the site router and stops it in order: feeds first, then
// in-flight requests.
type Server struct {
	httpServer *http.Server
	feeds      FeedCloser
	logger     *logging.ChanneledLogger

	mu   sync.Mutex
	addr net.Addr
}

// New builds the site server for port from the container.
func New(port string, c *container.Container) *Server {
	return NewWithHandler(":"+port, routes.SetupRoutes(c), c.Hub, c.Logger, Timeouts{
		ReadHeader: 5 * time.Second,
		Read:       config.ServerReadTimeout,
		Write:      config.ServerWriteTimeout,
		Idle:       config.ServerIdleTimeout,
	})
}

// NewWithHandler serves handler on addr. feeds may be nil.
func NewWithHandler(addr string, handler http.Handler, feeds FeedCloser, logger *logging.ChanneledLogger, t Timeouts) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: t.ReadHeader,
			ReadTimeout:       t.Read,
			WriteTimeout:      t.Write,
			IdleTimeout:       t.Idle,
			ErrorLog:          slog.NewLogLogger(logger.System().Handler(), slog.LevelWarn),
		},
		feeds:  feeds,
		logger: logger,
	}
}

// Addr is the bound listener address, or nil before Start or Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Start listens on the configured address and serves until Stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Stop. A clean stop returns nil.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	s.logger.Startup().Info("HTTP server listening", "addr", ln.Addr().String())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server stopped: %w", err)
	}
	return nil
}

// Stop closes the reaction feeds, then waits for in-flight requests until
// ctx expires.
func (s *Server) Stop(ctx context.Context) error {
	start := time.Now()
	if s.feeds != nil {
		s.feeds.Close()
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Shutdown().Warn("HTTP server shutdown incomplete", "error", err.Error(), "duration", time.Since(start))
		return err
	}
	s.logger.Shutdown().Info("HTTP server stopped", "duration", time.Since(start))
	return nil
}
