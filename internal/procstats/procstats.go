// Package procstats reads resource usage of the heatline process.
package procstats

import (
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// CPUTime returns the user plus system CPU time consumed by this process.
func CPUTime() (time.Duration, error) {
	p, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // PIDs fit in int32.
	if err != nil {
		return 0, fmt.Errorf("failed to open process: %w", err)
	}

	times, err := p.Times()
	if err != nil {
		return 0, fmt.Errorf("failed to read cpu times: %w", err)
	}

	return time.Duration((times.User + times.System) * float64(time.Second)), nil
}
