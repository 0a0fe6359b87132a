package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/heatline/internal/config"
	ierrors "github.com/coral-mesh/heatline/internal/errors"
	"github.com/coral-mesh/heatline/internal/logging"
	"github.com/coral-mesh/heatline/internal/server"
	"github.com/coral-mesh/heatline/pkg/version"
)

type serveOptions struct {
	configPath       string
	host             string
	port             int
	samplingInterval int
	maxNodes         int
	logLevel         string
	logPretty        bool
}

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	return newServeCmd(&serveOptions{})
}

func newServeCmd(opts *serveOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the profiling control server",
		Long: `Run the profiling control server until interrupted.

Configuration is layered: built-in defaults, then the YAML file given by
--config or HEATLINE_CONFIG, then HEATLINE_* environment variables, then flags.

Examples:
  # Listen on the default port 11337
  heatline serve

  # Sample every 250us on all interfaces
  heatline serve --host 0.0.0.0 --sampling-interval 250`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveServeConfig(cmd, opts)
			if err != nil {
				return err
			}

			logger := logging.New(logging.Config{
				Level:  cfg.Logging.Level,
				Pretty: cfg.Logging.Pretty,
				Output: cmd.ErrOrStderr(),
			})
			logger.Info().Str("version", version.String()).Msg("Starting heatline")

			srv, err := server.New(server.Config{
				Host:                   cfg.Server.Host,
				Port:                   cfg.Server.Port,
				SamplingIntervalMicros: cfg.Profiler.SamplingIntervalMicros,
				MaxNodes:               cfg.Server.MaxNodes,
				ShutdownTimeout:        cfg.Server.ShutdownTimeout,
				Logger:                 logger,
			})
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML config file")
	cmd.Flags().StringVar(&opts.host, "host", "", "Listen host (default 127.0.0.1)")
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "Listen port, 0 selects a free port (default 11337)")
	cmd.Flags().IntVar(&opts.samplingInterval, "sampling-interval", 0, "Sampling interval in microseconds (default: engine default)")
	cmd.Flags().IntVar(&opts.maxNodes, "max-nodes", 0, "Maximum call-tree nodes per /stop response, 0 disables the limit")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	cmd.Flags().BoolVar(&opts.logPretty, "log-pretty", true, "Human-readable log output")
	ierrors.Must(cmd.MarkFlagFilename("config", "yaml", "yml"), "mark config flag")

	return cmd
}

// resolveServeConfig loads the layered configuration and applies the flags
// the user set explicitly.
func resolveServeConfig(cmd *cobra.Command, opts *serveOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Server.Host = opts.host
	}
	if flags.Changed("port") {
		cfg.Server.Port = opts.port
	}
	if flags.Changed("sampling-interval") {
		cfg.Profiler.SamplingIntervalMicros = opts.samplingInterval
	}
	if flags.Changed("max-nodes") {
		cfg.Server.MaxNodes = opts.maxNodes
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}
	if flags.Changed("log-pretty") {
		cfg.Logging.Pretty = opts.logPretty
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
