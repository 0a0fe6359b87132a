package profiler

import (
	"bytes"
	"fmt"
	"io"
	"runtime"
	"runtime/pprof"
	"sync"

	"github.com/google/pprof/profile"
	"github.com/rs/zerolog"

	"github.com/coral-mesh/heatline/internal/constants"
)

// PprofEngine samples the current process with the Go runtime CPU profiler.
type PprofEngine struct {
	logger zerolog.Logger

	mu     sync.Mutex
	rateHz int
	buf    *bytes.Buffer
	active bool

	// Overridable in tests.
	startProfile func(w io.Writer) error
	stopProfile  func()
	setRate      func(hz int)
}

const microsPerSecond = 1_000_000

// NewPprofEngine creates an engine sampling at the runtime default rate.
func NewPprofEngine(logger zerolog.Logger) *PprofEngine {
	return &PprofEngine{
		logger:       logger.With().Str("component", "pprof-engine").Logger(),
		startProfile: pprof.StartCPUProfile,
		stopProfile:  pprof.StopCPUProfile,
		setRate:      runtime.SetCPUProfileRate,
	}
}

// SetSamplingInterval converts micros to a sampling rate for the next Start.
// Intervals longer than one second are clamped to 1Hz.
func (e *PprofEngine) SetSamplingInterval(micros int) error {
	if micros <= 0 {
		return ErrInvalidInterval
	}

	hz := 1
	if micros < microsPerSecond {
		hz = microsPerSecond / micros
	}

	e.mu.Lock()
	e.rateHz = hz
	e.mu.Unlock()

	e.logger.Debug().Int("interval_us", micros).Int("rate_hz", hz).Msg("Sampling interval set")
	return nil
}

// RateHz returns the sampling rate the next Start uses.
func (e *PprofEngine) RateHz() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rateHzLocked()
}

// Start begins CPU profiling. It fails if another CPU profile is active in
// the process.
func (e *PprofEngine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active {
		return fmt.Errorf("cpu profile already active")
	}

	// runtime/pprof always asks for 100Hz; a rate set beforehand wins and
	// the runtime prints a warning about the second call.
	if e.rateHz != 0 && e.rateHz != constants.DefaultCPUProfileRateHz {
		e.setRate(e.rateHz)
	}

	buf := &bytes.Buffer{}
	if err := e.startProfile(buf); err != nil {
		return fmt.Errorf("failed to start cpu profile: %w", err)
	}
	e.buf = buf
	e.active = true

	e.logger.Debug().Int("rate_hz", e.rateHzLocked()).Msg("CPU profile started")
	return nil
}

// Stop ends CPU profiling and folds the collected samples into a call tree.
// Stopping an engine that is not sampling yields an empty tree.
func (e *PprofEngine) Stop() (CallTreeNode, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.active {
		return EmptyCallTree(), nil
	}

	e.stopProfile()
	e.active = false
	data := e.buf
	e.buf = nil

	if data == nil || data.Len() == 0 {
		return EmptyCallTree(), nil
	}

	prof, err := profile.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cpu profile: %w", err)
	}

	e.logger.Debug().
		Int("samples", len(prof.Sample)).
		Int("functions", len(prof.Function)).
		Msg("CPU profile stopped")

	return BuildCallTree(prof), nil
}

func (e *PprofEngine) rateHzLocked() int {
	if e.rateHz == 0 {
		return constants.DefaultCPUProfileRateHz
	}
	return e.rateHz
}
