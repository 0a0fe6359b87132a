// Package main provides the heatline binary.
package main

import (
	"fmt"
	"os"

	"github.com/coral-mesh/heatline/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
