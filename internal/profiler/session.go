package profiler

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coral-mesh/heatline/internal/procstats"
)

// Status is the lifecycle state of a Session.
type Status int32

const (
	// StatusIdle means no profile is being collected.
	StatusIdle Status = iota
	// StatusRunning means the engine is sampling.
	StatusRunning
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	default:
		return fmt.Sprintf("status(%d)", int32(s))
	}
}

// Info is the liveness view of a Session.
type Info struct {
	Running bool `json:"running"`
}

// SessionConfig holds construction-time session options.
type SessionConfig struct {
	// SamplingIntervalMicros is forwarded to the engine when positive.
	// Zero keeps the engine default.
	SamplingIntervalMicros int

	// CPUClock reports process CPU time for session summaries.
	// Defaults to procstats.CPUTime.
	CPUClock func() (time.Duration, error)
}

// run describes the profile currently being collected.
type run struct {
	id        string
	startedAt time.Time
	startCPU  time.Duration
	cpuOK     bool
}

// Session arbitrates access to a single Engine.
//
// Start, Stop and Configure hold a mutex around the check-then-act sequence,
// and the engine call happens before the status changes: a failed Start
// leaves the session idle and a failed Stop leaves it running, so both can
// be retried. Info only reads an atomic and never blocks.
type Session struct {
	engine   Engine
	logger   zerolog.Logger
	cpuClock func() (time.Duration, error)

	mu             sync.Mutex
	status         atomic.Int32
	intervalMicros int
	current        *run
}

// NewSession creates an idle session that exclusively owns engine.
func NewSession(engine Engine, cfg SessionConfig, logger zerolog.Logger) (*Session, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if cfg.SamplingIntervalMicros < 0 {
		return nil, ErrInvalidInterval
	}

	s := &Session{
		engine:   engine,
		logger:   logger.With().Str("component", "session").Logger(),
		cpuClock: cfg.CPUClock,
	}
	if s.cpuClock == nil {
		s.cpuClock = procstats.CPUTime
	}

	if cfg.SamplingIntervalMicros > 0 {
		if err := engine.SetSamplingInterval(cfg.SamplingIntervalMicros); err != nil {
			return nil, fmt.Errorf("failed to set sampling interval: %w", err)
		}
		s.intervalMicros = cfg.SamplingIntervalMicros
	}

	return s, nil
}

// Configure changes the sampling interval used by the next Start.
// It is allowed whenever the session is idle, including after a completed
// Start/Stop cycle, and the last value wins.
func (s *Session) Configure(micros int) error {
	if micros <= 0 {
		return ErrInvalidInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Status() == StatusRunning {
		return fmt.Errorf("cannot change sampling interval: %w", ErrAlreadyRunning)
	}

	if err := s.engine.SetSamplingInterval(micros); err != nil {
		return fmt.Errorf("failed to set sampling interval: %w", err)
	}
	s.intervalMicros = micros

	s.logger.Info().Int("sampling_interval_us", micros).Msg("Sampling interval configured")
	return nil
}

// Start starts the engine. It returns ErrAlreadyRunning without touching
// the engine when a profile is already being collected.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Status() == StatusRunning {
		s.logger.Warn().Str("session_id", s.current.id).Msg("Start rejected, profiler already running")
		return ErrAlreadyRunning
	}

	if err := s.engine.Start(); err != nil {
		s.logger.Error().Err(err).Msg("Profiler engine failed to start")
		return fmt.Errorf("failed to start profiler: %w", err)
	}

	r := &run{
		id:        uuid.NewString(),
		startedAt: time.Now(),
	}
	if cpu, err := s.cpuClock(); err == nil {
		r.startCPU, r.cpuOK = cpu, true
	} else {
		s.logger.Debug().Err(err).Msg("Process CPU time unavailable")
	}
	s.current = r
	s.status.Store(int32(StatusRunning))

	s.logger.Info().
		Str("session_id", r.id).
		Int("sampling_interval_us", s.intervalMicros).
		Msg("Profiling session started")

	return nil
}

// Stop stops the engine and returns the root of the collected call tree.
// It returns ErrNotRunning without touching the engine when idle.
func (s *Session) Stop() (CallTreeNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Status() != StatusRunning {
		s.logger.Warn().Msg("Stop rejected, profiler not running")
		return nil, ErrNotRunning
	}

	root, err := s.engine.Stop()
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", s.current.id).Msg("Profiler engine failed to stop")
		return nil, fmt.Errorf("failed to stop profiler: %w", err)
	}

	r := s.current
	s.current = nil
	s.status.Store(int32(StatusIdle))

	event := s.logger.Info().
		Str("session_id", r.id).
		Dur("duration", time.Since(r.startedAt))
	if cpu, err := s.cpuClock(); err == nil && r.cpuOK {
		event = event.Dur("cpu_time", cpu-r.startCPU)
	}
	event.Msg("Profiling session stopped")

	return root, nil
}

// Info reports whether a profile is being collected.
func (s *Session) Info() Info {
	return Info{Running: s.Status() == StatusRunning}
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	return Status(s.status.Load())
}

// SamplingInterval returns the configured interval in microseconds, 0 when
// the engine default is in use.
func (s *Session) SamplingInterval() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intervalMicros
}

// Engine returns the raw engine.
//
// Calls made through it bypass the session: starting or stopping the engine
// directly desynchronizes Info and may hit the engine's undefined behavior.
func (s *Session) Engine() Engine {
	return s.engine
}
