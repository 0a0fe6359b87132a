package config

import "github.com/coral-mesh/heatline/internal/constants"

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            constants.DefaultHost,
			Port:            constants.DefaultPort,
			MaxNodes:        constants.DefaultMaxNodes,
			ShutdownTimeout: constants.DefaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}
