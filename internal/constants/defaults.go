// Package constants defines shared configuration constants and defaults.
package constants

import "time"

// Server defaults.
const (
	// DefaultPort is the control-plane listen port.
	DefaultPort = 11337

	// DefaultHost keeps the control plane on loopback unless configured otherwise.
	DefaultHost = "127.0.0.1"

	// DefaultMaxNodes caps the number of nodes serialized for one /stop response.
	DefaultMaxNodes = 1_000_000

	// DefaultReadHeaderTimeout bounds how long a client may take to send headers.
	DefaultReadHeaderTimeout = 10 * time.Second

	// DefaultShutdownTimeout bounds graceful shutdown of the HTTP server.
	DefaultShutdownTimeout = 5 * time.Second
)

// Profiler defaults.
const (
	// DefaultCPUProfileRateHz is the rate the Go runtime samples at when no interval is set.
	DefaultCPUProfileRateHz = 100

	// RootNodeName is the name of the synthetic top-of-stack node.
	RootNodeName = "(root)"
)

// Client defaults.
const (
	// DefaultClientTimeout is the default timeout for control-plane requests.
	DefaultClientTimeout = 30 * time.Second

	// DefaultClientRetries is how many times the client attempts to connect.
	DefaultClientRetries = 3

	// DefaultClientBackoff is the initial backoff between connection attempts.
	DefaultClientBackoff = 100 * time.Millisecond
)

// Environment variables.
const (
	// EnvConfigPath points at a YAML configuration file.
	EnvConfigPath = "HEATLINE_CONFIG"
)
