// Package config provides configuration loading and validation for heatline.
package config

import "time"

// Config is the heatline server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Profiler ProfilerConfig `yaml:"profiler"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the control-plane listener.
type ServerConfig struct {
	// Host is the listen host.
	Host string `yaml:"host" env:"HEATLINE_HOST"`
	// Port is the listen port, 0 selects a free port.
	Port int `yaml:"port" env:"HEATLINE_PORT"`
	// MaxNodes bounds the call-tree size of a /stop response, 0 disables it.
	MaxNodes int `yaml:"max_nodes" env:"HEATLINE_MAX_NODES"`
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HEATLINE_SHUTDOWN_TIMEOUT"`
}

// ProfilerConfig configures the sampling engine.
type ProfilerConfig struct {
	// SamplingIntervalMicros is the sampling interval, 0 keeps the engine default.
	SamplingIntervalMicros int `yaml:"sampling_interval_us" env:"HEATLINE_SAMPLING_INTERVAL_US"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"HEATLINE_LOG_LEVEL"`
	Pretty bool   `yaml:"pretty" env:"HEATLINE_LOG_PRETTY"`
}
