// Package sidecar supervises the background server a desktop app depends on.
//
// A Supervisor spawns the server once, relays its stdout and stderr into the
// host's logger line by line, and polls a local TCP address until the server
// accepts connections. Only a failure to spawn is an error: a server that is
// slow to listen degrades to TimedOutContinuing so the desktop shell keeps running.
package sidecar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/google/uuid"
)

// ErrAlreadyStarted is returned when Start is called more than once.
var ErrAlreadyStarted = errors.New("supervision already started")

// Outcome is the terminal result of a supervision run.
type Outcome int

const (
	// Ready means the readiness probe succeeded.
	Ready Outcome = iota + 1
	// TimedOutContinuing means the attempt budget ran out; the server keeps running.
	TimedOutContinuing
	// Skipped means Development mode: nothing was spawned.
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Ready:
		return "ready"
	case TimedOutContinuing:
		return "timed-out-continuing"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// State is the supervisor lifecycle position.
type State int

const (
	StateNotStarted State = iota
	StateSkipped
	StateSpawning
	StateSpawnFailed
	StatePolling
	StateReady
	StateTimedOutContinuing
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NotStarted"
	case StateSkipped:
		return "Skipped"
	case StateSpawning:
		return "Spawning"
	case StateSpawnFailed:
		return "SpawnFailed"
	case StatePolling:
		return "Polling"
	case StateReady:
		return "Ready"
	case StateTimedOutContinuing:
		return "TimedOutContinuing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Supervisor owns one child process for the lifetime of the application.
type Supervisor struct {
	logger *slog.Logger
	proc   *Process
	id     string
	cfg    Config
	mu     sync.Mutex
	state  State
}

// New validates cfg, filling unset fields from DefaultConfig.
// A nil logger means slog.Default(). Every record the supervisor and its
// relays emit carries the supervision ID.
func New(cfg Config, logger *slog.Logger) (*Supervisor, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid supervision config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.New().String()
	return &Supervisor{cfg: cfg, id: id, logger: logger.With("supervision_id", id)}, nil
}

// ID identifies this supervision run in logs.
func (s *Supervisor) ID() string {
	return s.id
}

// Config returns the resolved configuration.
func (s *Supervisor) Config() Config {
	return s.cfg
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Process returns the spawned child, or nil if none was spawned.
func (s *Supervisor) Process() *Process {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proc
}

func (s *Supervisor) setState(st State) {
	s.mu.Lock()
	prev := s.state
	s.state = st
	s.mu.Unlock()
	s.logger.Debug("[SIDECAR] State change", "from", prev.String(), "to", st.String())
}

// Start runs the supervision sequence: spawn, relay output, and wait for readiness.
// It returns within roughly PollAttempts*PollInterval plus probe time. The child
// keeps running after Start returns. The only error returned is *SpawnError
// (or ErrAlreadyStarted on a second call).
func (s *Supervisor) Start(ctx context.Context) (Outcome, error) {
	s.mu.Lock()
	if s.state != StateNotStarted {
		s.mu.Unlock()
		return 0, ErrAlreadyStarted
	}
	s.state = StateSpawning
	s.mu.Unlock()

	if s.cfg.Mode == Development {
		s.setState(StateSkipped)
		s.logger.Info("[SIDECAR] Development mode: API server should be started separately")
		return Skipped, nil
	}

	s.logger.Info("[SIDECAR] Starting API server",
		"entry", s.cfg.EntryPath,
		"interpreter", s.cfg.Interpreter,
		"readiness_address", s.cfg.ReadinessAddress)

	proc, err := spawn(s.cfg, s.logger)
	if err != nil {
		s.setState(StateSpawnFailed)
		return 0, err
	}

	s.mu.Lock()
	s.proc = proc
	s.mu.Unlock()
	s.setState(StatePolling)
	s.logger.Info("[SIDECAR] API server spawned", "pid", proc.PID())

	if s.awaitReady(ctx) {
		s.setState(StateReady)
		s.logger.Info("[SIDECAR] API server is ready", "address", s.cfg.ReadinessAddress)
		return Ready, nil
	}

	s.setState(StateTimedOutContinuing)
	s.logger.Warn("[SIDECAR] API server started (health check timed out, continuing anyway)",
		"attempts", s.cfg.PollAttempts,
		"interval", s.cfg.PollInterval)
	return TimedOutContinuing, nil
}

// awaitReady reports whether the probe succeeded within the attempt budget.
// The interval elapses before every attempt, including the first.
func (s *Supervisor) awaitReady(ctx context.Context) bool {
	probe := s.cfg.Probe
	if probe == nil {
		probe = TCPProbe{Address: s.cfg.ReadinessAddress, Timeout: s.cfg.ProbeTimeout}
	}

	if !sleep(ctx, s.cfg.PollInterval) {
		s.logger.Warn("[SIDECAR] Readiness wait cancelled", "error", ctx.Err())
		return false
	}

	attempts := uint(s.cfg.PollAttempts) //nolint:gosec // validated >= 1
	err := retry.Do(func() error {
		return probe.Probe(ctx)
	},
		retry.Attempts(attempts),
		retry.Delay(s.cfg.PollInterval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Debug("[SIDECAR] Readiness probe failed", "attempt", n+1, "max_attempts", attempts, "error", err)
		}),
		retry.Context(ctx),
	)
	if err != nil && ctx.Err() != nil {
		s.logger.Warn("[SIDECAR] Readiness wait cancelled", "error", ctx.Err())
	}
	return err == nil
}

// Stop terminates the child if one is running.
func (s *Supervisor) Stop(grace time.Duration) error {
	proc := s.Process()
	if proc == nil {
		return nil
	}
	return proc.Stop(grace)
}

// sleep waits d or until ctx is done, reporting whether the full duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
