package sidecar

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"
)

// maxLineSize bounds a single relayed output line.
const maxLineSize = 1024 * 1024

// SpawnError reports that the child process could not be created.
// It is the only failure Start returns.
type SpawnError struct {
	Err  error
	Path string
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// drainDelay bounds how long relays keep reading after the child exited.
// Output from processes that inherited the pipes is cut off after it.
const drainDelay = time.Second

// Process is the spawned server plus its two output relays.
// The supervisor owns it; relays only borrow the pipes.
type Process struct {
	cmd     *exec.Cmd
	logger  *slog.Logger
	exitErr error
	relays  sync.WaitGroup
	drained chan struct{}
	exited  chan struct{}
	pid     int
}

// PID returns the operating system process ID.
func (p *Process) PID() int {
	return p.pid
}

// Drained is closed once both the stdout and stderr relays finished.
func (p *Process) Drained() <-chan struct{} {
	return p.drained
}

// Exited is closed once the child process has exited and been reaped.
func (p *Process) Exited() <-chan struct{} {
	return p.exited
}

// ExitErr returns the result of waiting on the child. Only meaningful after Exited is closed.
func (p *Process) ExitErr() error {
	select {
	case <-p.exited:
		return p.exitErr
	default:
		return nil
	}
}

// Stop interrupts the child's process group, waits up to grace for the child
// to exit, and kills the group otherwise. Group members left behind by an
// exited child are killed as well.
func (p *Process) Stop(grace time.Duration) error {
	select {
	case <-p.exited:
		p.killLeftovers()
		return nil
	default:
	}

	p.logger.Info("[SIDECAR] Stopping server", "grace", grace)
	if err := interruptGroup(p.cmd.Process); err != nil {
		// Windows does not support os.Interrupt; fall through to Kill.
		p.logger.Debug("[SIDECAR] Interrupt failed", "error", err)
		grace = 0
	}

	timer := time.NewTimer(grace)
	defer timer.Stop()

	select {
	case <-p.exited:
		p.logger.Info("[SIDECAR] Server exited after interrupt")
		p.killLeftovers()
		return nil
	case <-timer.C:
	}

	p.logger.Warn("[SIDECAR] Server did not exit in time, killing")
	if err := killGroup(p.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill pid %d: %w", p.pid, err)
	}
	<-p.exited
	return nil
}

func (p *Process) killLeftovers() {
	if err := killGroup(p.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
		p.logger.Debug("[SIDECAR] Failed to kill leftover processes", "error", err)
	}
}

// spawn starts cfg's entry with piped output and attaches the relays.
func spawn(cfg Config, logger *slog.Logger) (*Process, error) {
	name, args := cfg.EntryPath, cfg.Args
	if cfg.Interpreter != "" {
		name = cfg.Interpreter
		args = append([]string{cfg.EntryPath}, cfg.Args...)
	}

	// Not CommandContext: the server outlives the supervision call.
	cmd := exec.Command(name, args...) //nolint:gosec // entry path comes from the host's resource directory
	cmd.Dir = cfg.Dir
	cmd.Env = os.Environ()
	if cfg.ProductionEnv != "" {
		cmd.Env = append(cmd.Env, cfg.ProductionEnv)
	}
	setProcessGroup(cmd)

	// The pipes are plain files so Wait reports the child's own exit even
	// while a process it started still holds the write ends.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, &SpawnError{Path: cfg.EntryPath, Err: fmt.Errorf("stdout pipe: %w", err)}
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		closeFiles(stdoutR, stdoutW)
		return nil, &SpawnError{Path: cfg.EntryPath, Err: fmt.Errorf("stderr pipe: %w", err)}
	}
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW

	err = cmd.Start()
	closeFiles(stdoutW, stderrW)
	if err != nil {
		closeFiles(stdoutR, stderrR)
		return nil, &SpawnError{Path: cfg.EntryPath, Err: err}
	}

	p := &Process{
		cmd:     cmd,
		pid:     cmd.Process.Pid,
		logger:  logger.With("pid", cmd.Process.Pid),
		drained: make(chan struct{}),
		exited:  make(chan struct{}),
	}

	relaysDone := make(chan struct{})
	p.relays.Add(2)
	go p.relay("stdout", stdoutR, func(line string) {
		p.logger.Info(cfg.StdoutTag + " " + line)
	})
	go p.relay("stderr", stderrR, func(line string) {
		p.logger.Error(cfg.StderrTag + " " + line)
	})
	go func() {
		p.relays.Wait()
		close(relaysDone)
	}()
	go p.reap(relaysDone, stdoutR, stderrR)

	return p, nil
}

// reap waits for the child, then gives the relays drainDelay to reach
// end-of-stream before closing the read ends under them.
func (p *Process) reap(relaysDone <-chan struct{}, pipes ...*os.File) {
	p.exitErr = p.cmd.Wait()
	close(p.exited)
	if p.exitErr != nil {
		p.logger.Error("[SIDECAR] Server exited", "error", p.exitErr)
	} else {
		p.logger.Info("[SIDECAR] Server exited")
	}

	timer := time.NewTimer(drainDelay)
	defer timer.Stop()
	select {
	case <-relaysDone:
	case <-timer.C:
		p.logger.Warn("[SIDECAR] Output still open after exit, closing pipes", "delay", drainDelay)
		closeFiles(pipes...)
		<-relaysDone
	}
	closeFiles(pipes...)
	close(p.drained)
}

func closeFiles(files ...*os.File) {
	for _, f := range files {
		_ = f.Close() //nolint:errcheck // pipe ends; a second close reports os.ErrClosed
	}
}

func (p *Process) relay(stream string, r io.Reader, emit func(string)) {
	defer p.relays.Done()
	if err := relayLines(r, emit); err != nil {
		p.logger.Warn("[SIDECAR] Output relay stopped early, discarding rest of stream", "stream", stream, "error", err)
		// Keep the pipe empty so the child never blocks on a full buffer.
		if _, err := io.Copy(io.Discard, r); err != nil && !errors.Is(err, os.ErrClosed) {
			p.logger.Debug("[SIDECAR] Discard failed", "stream", stream, "error", err)
		}
	}
}

// relayLines calls emit for every line read from r until end-of-stream.
// End-of-stream and reads from an already-closed pipe are not errors.
func relayLines(r io.Reader, emit func(string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		emit(scanner.Text())
	}
	err := scanner.Err()
	if errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}

// Wait blocks until the child exits or ctx is done.
func (p *Process) Wait(ctx context.Context) error {
	select {
	case <-p.exited:
		return p.exitErr
	case <-ctx.Done():
		return ctx.Err()
	}
}
