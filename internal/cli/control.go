package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/coral-mesh/heatline/internal/client"
	"github.com/coral-mesh/heatline/internal/constants"
	ierrors "github.com/coral-mesh/heatline/internal/errors"
	"github.com/coral-mesh/heatline/internal/logging"
)

// envAddr overrides the default server address of the control commands.
const envAddr = "HEATLINE_ADDR"

type controlOptions struct {
	addr    string
	timeout time.Duration
}

func addControlFlags(cmd *cobra.Command, opts *controlOptions) {
	defaultAddr := os.Getenv(envAddr)
	if defaultAddr == "" {
		defaultAddr = net.JoinHostPort(constants.DefaultHost, strconv.Itoa(constants.DefaultPort))
	}
	cmd.Flags().StringVarP(&opts.addr, "addr", "a", defaultAddr, "Server address (host:port or URL), env "+envAddr)
	cmd.Flags().DurationVar(&opts.timeout, "timeout", constants.DefaultClientTimeout, "Request timeout")
}

func (o *controlOptions) client(cmd *cobra.Command) *client.Client {
	logger := logging.New(logging.Config{Level: "warn", Output: cmd.ErrOrStderr()})
	return client.New(o.addr, client.WithLogger(logger))
}

func (o *controlOptions) requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), o.timeout)
}

// NewInfoCmd creates the info command.
func NewInfoCmd() *cobra.Command {
	opts := &controlOptions{}

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show whether the server is profiling",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.requestContext(cmd)
			defer cancel()

			running, err := opts.client(cmd).Info(ctx)
			if err != nil {
				return fmt.Errorf("failed to query server: %w", err)
			}

			state := "idle"
			if running {
				state = "running"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", opts.addr, state)
			return nil
		},
	}
	addControlFlags(cmd, opts)

	return cmd
}

// NewStartCmd creates the start command.
func NewStartCmd() *cobra.Command {
	opts := &controlOptions{}

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start profiling on the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.requestContext(cmd)
			defer cancel()

			if err := opts.client(cmd).Start(ctx); err != nil {
				return fmt.Errorf("failed to start profiling: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Profiling started on %s\n", opts.addr)
			return nil
		},
	}
	addControlFlags(cmd, opts)

	return cmd
}

// NewStopCmd creates the stop command.
func NewStopCmd() *cobra.Command {
	var (
		opts     = &controlOptions{}
		format   string
		output   string
		maxDepth int
	)

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop profiling and print the call tree",
		Long: `Stop profiling on the server and print the collected call tree.

Examples:
  # Human-readable tree
  heatline stop --format tree --depth 6

  # Generate a flamegraph (requires flamegraph.pl)
  heatline stop --format folded | flamegraph.pl > cpu.svg

  # Save the raw JSON
  heatline stop --output profile.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			renderer, err := rendererFor(format, maxDepth)
			if err != nil {
				return err
			}

			ctx, cancel := opts.requestContext(cmd)
			defer cancel()

			root, err := opts.client(cmd).Stop(ctx)
			if err != nil {
				return fmt.Errorf("failed to stop profiling: %w", err)
			}

			out := cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output) //nolint:gosec // Path is operator supplied.
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				logger := logging.New(logging.Config{Level: "warn", Output: cmd.ErrOrStderr()})
				defer ierrors.DeferClose(logger, f, "failed to close output file")
				out = f
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Nodes: %d, samples: %d\n", root.Count(), root.TotalHits())
			return renderer(out, root)
		},
	}
	addControlFlags(cmd, opts)
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json (default), folded, tree")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the profile to a file instead of stdout")
	cmd.Flags().IntVar(&maxDepth, "depth", 0, "Maximum depth for the tree format, 0 for unlimited")

	return cmd
}
