package heatline

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/coral-mesh/heatline/internal/constants"
	"github.com/coral-mesh/heatline/internal/profiler"
	"github.com/coral-mesh/heatline/internal/server"
)

// DefaultPort is the port used when Start is given a negative port.
const DefaultPort = constants.DefaultPort

// Engine is the sampling profiler behind a Server.
type Engine = profiler.Engine

// CallTreeNode is a read-only node of a collected call tree.
type CallTreeNode = profiler.CallTreeNode

// Options contains server options.
type Options struct {
	// SamplingInterval is the sampling interval in microseconds (optional).
	SamplingInterval int

	// Host is the listen host (optional, defaults to 127.0.0.1).
	Host string

	// Engine replaces the Go runtime profiler (optional).
	Engine Engine

	// Logger is the logger instance (optional, the zero value discards output).
	Logger zerolog.Logger
}

// Server is a running profiling control server.
type Server struct {
	logger zerolog.Logger
	server *server.Server
}

// Start creates a server and starts listening on port. A negative port
// selects DefaultPort, zero selects a free port.
func Start(port int, opts Options) (*Server, error) {
	if port < 0 {
		port = DefaultPort
	}
	if opts.SamplingInterval < 0 {
		return nil, fmt.Errorf("sampling interval must not be negative")
	}

	logger := opts.Logger.With().Str("component", "heatline").Logger()

	srv, err := server.New(server.Config{
		Host:                   opts.Host,
		Port:                   port,
		SamplingIntervalMicros: opts.SamplingInterval,
		MaxNodes:               constants.DefaultMaxNodes,
		Engine:                 opts.Engine,
		Logger:                 logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	if err := srv.Start(); err != nil {
		return nil, fmt.Errorf("failed to start server: %w", err)
	}

	return &Server{logger: logger, server: srv}, nil
}

// Addr returns the address the server listens on.
func (s *Server) Addr() string {
	return s.server.Addr()
}

// Running reports whether a profile is being collected.
func (s *Server) Running() bool {
	return s.server.Session().Info().Running
}

// Engine returns the raw profiler. Starting or stopping it directly bypasses
// the server's single-session checks and desynchronizes Running.
func (s *Server) Engine() Engine {
	return s.server.Engine()
}

// Close stops the server. A profile still being collected is left running.
func (s *Server) Close() error {
	return s.server.Stop()
}
