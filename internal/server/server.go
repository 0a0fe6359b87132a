// Package server exposes a profiling session over HTTP.
//
// The Server composes the pieces explicitly: an Engine owned by a
// profiler.Session, a Dispatcher holding that session, and a net/http
// transport the dispatcher is wired into.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/coral-mesh/heatline/internal/constants"
	ierrors "github.com/coral-mesh/heatline/internal/errors"
	"github.com/coral-mesh/heatline/internal/profiler"
)

// Config contains dependencies for creating a control-plane server.
type Config struct {
	// Host is the listen host.
	Host string

	// Port is the listen port. Zero selects a free port.
	Port int

	// SamplingIntervalMicros is forwarded to the engine when positive.
	SamplingIntervalMicros int

	// MaxNodes bounds the nodes serialized per /stop, zero disables the bound.
	MaxNodes int

	// ShutdownTimeout bounds graceful shutdown in Run (optional).
	ShutdownTimeout time.Duration

	// Engine is the sampling engine (optional, defaults to a PprofEngine).
	Engine profiler.Engine

	// Logger is the logger instance.
	Logger zerolog.Logger
}

// Server serves the control protocol for one profiling session.
type Server struct {
	logger     zerolog.Logger
	session    *profiler.Session
	handler    http.Handler
	listenAddr string
	shutdown   time.Duration

	mu         sync.Mutex
	listener   net.Listener
	httpServer *http.Server
	done       chan struct{}
}

// New creates a server. It does not listen until Start or Run is called.
func New(cfg Config) (*Server, error) {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}

	logger := cfg.Logger.With().Str("component", "server").Logger()

	engine := cfg.Engine
	if engine == nil {
		engine = profiler.NewPprofEngine(cfg.Logger)
	}

	session, err := profiler.NewSession(engine, profiler.SessionConfig{
		SamplingIntervalMicros: cfg.SamplingIntervalMicros,
	}, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create profiling session: %w", err)
	}

	host := cfg.Host
	if host == "" {
		host = constants.DefaultHost
	}

	shutdown := cfg.ShutdownTimeout
	if shutdown <= 0 {
		shutdown = constants.DefaultShutdownTimeout
	}

	dispatcher := NewDispatcher(session, cfg.MaxNodes, cfg.Logger)

	return &Server{
		logger:     logger,
		session:    session,
		handler:    accessLog(dispatcher, logger),
		listenAddr: net.JoinHostPort(host, strconv.Itoa(cfg.Port)),
		shutdown:   shutdown,
	}, nil
}

// Start listens and serves in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpServer != nil {
		return fmt.Errorf("server already started")
	}

	listener, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.listenAddr, err)
	}

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           h2c.NewHandler(s.handler, &http2.Server{}),
		ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,

		// OPTIONS * reaches the dispatcher like any other method.
		DisableGeneralOptionsHandler: true,
	}
	s.done = make(chan struct{})

	go func(srv *http.Server, done chan struct{}) {
		defer close(done)
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Control server error")
		}
	}(s.httpServer, s.done)

	s.logger.Info().Str("addr", listener.Addr().String()).Msg("Control server listening")
	return nil
}

// Run starts the server and blocks until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}

	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		ierrors.DeferShutdown(s.logger, s, s.shutdown, "Control server shutdown failed")
		<-done
		return nil
	case <-done:
		return fmt.Errorf("control server stopped unexpectedly")
	}
}

// Shutdown gracefully stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	s.logger.Info().Msg("Shutting down control server")
	return srv.Shutdown(ctx)
}

// Stop closes the server immediately.
func (s *Server) Stop() error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	s.logger.Info().Msg("Stopping control server")
	return srv.Close()
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.listenAddr
}

// Handler returns the request handler, for use with another transport.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Session returns the profiling session.
func (s *Server) Session() *profiler.Session {
	return s.session
}

// Engine returns the raw sampling engine, bypassing the session's state
// machine. See profiler.Session.Engine.
func (s *Server) Engine() profiler.Engine {
	return s.session.Engine()
}
