// Package cli implements the heatline command line.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/coral-mesh/heatline/pkg/version"
)

// NewRootCmd creates the heatline root command with all subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "heatline",
		Short: "Heatline - on-demand CPU profiling behind a tiny HTTP control plane",
		Long: `Heatline arbitrates access to a sampling CPU profiler.

A server owns one profiler and exposes its lifecycle over HTTP:
  GET  /info   reports whether a profile is being collected
  POST /start  starts sampling
  POST /stop   stops sampling and returns the call tree as JSON

The info, start and stop commands drive a running server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewInfoCmd())
	rootCmd.AddCommand(NewStartCmd())
	rootCmd.AddCommand(NewStopCmd())
	rootCmd.AddCommand(NewConfigCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("Heatline version %s\n", version.Version)
			cmd.Printf("Git commit: %s\n", version.GitCommit)
			cmd.Printf("Build date: %s\n", version.BuildDate)
			cmd.Printf("Go version: %s\n", version.GoVersion)
		},
	}
}
