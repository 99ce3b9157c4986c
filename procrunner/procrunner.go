// Package procrunner creates child processes and manages their full I/O
// lifecycle: stdout/stderr line capture, exit waiting, and signal-escalation
// termination. It is decoupled from scheduling and rendering so it can be
// driven by the supervisor loop and exercised in tests with a fake Command.
package procrunner

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/sync/errgroup"
)

const (
	scannerInitialBufferSize = 64 * 1024
	scannerMaxBufferSize     = 1024 * 1024

	// sigintGrace and sigtermGrace are the wait windows between each
	// escalation step of Terminate.
	sigintGrace  = 300 * time.Millisecond
	sigtermGrace = 300 * time.Millisecond
)

// Stream tags which pipe a Line event came from.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

// Event is the sum type emitted on an Instance's event channel: either a
// captured output line or the single terminal Exited event.
type Event struct {
	Panel int

	// Line/Stream are populated when IsExit is false.
	Stream Stream
	Line   string

	// IsExit marks the terminal event for this instance. Exactly one is
	// emitted per spawned instance.
	IsExit bool
	// ExitCode is the process's exit code (0-255, 128+signal if
	// signal-terminated, or -1 if Wait failed without an exit status). The
	// exit waiter does not stop early on shutdown, so ExitCode is always
	// set on the exit event.
	ExitCode *int
}

// Command is an abstraction over os/exec.Cmd so tests can substitute a fake
// process without actually spawning one.
type Command interface {
	StdoutPipe() (io.ReadCloser, error)
	StderrPipe() (io.ReadCloser, error)
	Start() error
	Wait() error
	Process() ProcessHandle
}

// ProcessHandle is an abstraction over os.Process for signal delivery.
type ProcessHandle interface {
	Signal(sig syscall.Signal) error
	Kill() error
}

// Factory constructs a Command for the given program/argv/cwd. Swap it out
// in tests to avoid spawning real processes.
type Factory func(ctx context.Context, program string, args []string, cwd string) (Command, error)

// DefaultFactory spawns a real child process via os/exec.
func DefaultFactory(ctx context.Context, program string, args []string, cwd string) (Command, error) {
	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Dir = cwd
	return &execCommand{cmd: cmd}, nil
}

type execCommand struct {
	cmd *exec.Cmd
}

func (e *execCommand) StdoutPipe() (io.ReadCloser, error) { return e.cmd.StdoutPipe() }
func (e *execCommand) StderrPipe() (io.ReadCloser, error) { return e.cmd.StderrPipe() }
func (e *execCommand) Start() error                       { return e.cmd.Start() }
func (e *execCommand) Wait() error                        { return e.cmd.Wait() }

func (e *execCommand) Process() ProcessHandle {
	if e.cmd.Process == nil {
		return nil
	}
	return osProcessHandle{proc: e.cmd.Process}
}

type osProcessHandle struct {
	proc *os.Process
}

func (h osProcessHandle) Signal(sig syscall.Signal) error { return h.proc.Signal(sig) }
func (h osProcessHandle) Kill() error                     { return h.proc.Kill() }

// Instance is one spawned child process and its I/O lifecycle.
type Instance struct {
	panel  int
	cmd    Command
	events chan<- Event

	mu     sync.Mutex
	done   bool
	result *int // exit code, populated once, nil means "never observed"
	notify chan struct{}
}

// Spawn starts program with args in cwd, wiring its stdout/stderr to events
// tagged with panel. It returns synchronously on spawn failure (pipe setup
// or process start), per the spawn contract: failures are never delivered
// through the event channel.
func Spawn(ctx context.Context, factory Factory, panel int, program string, args []string, cwd string, events chan<- Event) (*Instance, error) {
	if factory == nil {
		factory = DefaultFactory
	}
	cmd, err := factory(ctx, program, args, cwd)
	if err != nil {
		return nil, errors.Wrap(err, "create command")
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "stdout pipe")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.Wrap(err, "stderr pipe")
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, "start process")
	}

	inst := &Instance{
		panel:  panel,
		cmd:    cmd,
		events: events,
		notify: make(chan struct{}),
	}

	var g errgroup.Group
	g.Go(func() error {
		streamLines(stdout, panel, Stdout, events)
		return nil
	})
	g.Go(func() error {
		streamLines(stderr, panel, Stderr, events)
		return nil
	})

	go func() {
		_ = g.Wait() // stream readers never return error; only used to join them
		waitErr := cmd.Wait()
		code := exitCodeOf(waitErr)
		inst.finish(&code)
	}()

	return inst, nil
}

// streamLines reads r line-by-line, emitting Line events tagged with stream
// until EOF. Sends never block: whenever the events channel is full the
// line is dropped, so a backed-up consumer cannot stall the reader that
// keeps the pipe drained. Callers size the channel generously.
func streamLines(r io.ReadCloser, panel int, stream Stream, events chan<- Event) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, scannerInitialBufferSize)
	scanner.Buffer(buf, scannerMaxBufferSize)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		select {
		case events <- Event{Panel: panel, Stream: stream, Line: line}:
		default:
			// Channel full: drop rather than block a reader that must stay
			// live to drain stdout/stderr pipes.
		}
	}
}

// exitCodeOf converts a Wait() error into the spec's exit-code encoding:
// the process's own code, or 128+signal if it died by signal.
func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(interface{ Signaled() bool }); ok && status.Signaled() {
			if sig, ok := exitErr.Sys().(interface{ Signal() syscall.Signal }); ok {
				return 128 + int(sig.Signal())
			}
		}
		return exitErr.ExitCode()
	}
	return -1
}

func (inst *Instance) finish(code *int) {
	inst.mu.Lock()
	if inst.done {
		inst.mu.Unlock()
		return
	}
	inst.done = true
	inst.result = code
	close(inst.notify)
	inst.mu.Unlock()

	inst.events <- Event{Panel: inst.panel, IsExit: true, ExitCode: code}
}

// Alive reports whether the instance's process has not yet reported an
// exit outcome.
func (inst *Instance) Alive() bool {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return !inst.done
}

// Wait blocks until the instance's exit outcome is available, or ctx is
// done first.
func (inst *Instance) Wait(ctx context.Context) (*int, error) {
	select {
	case <-inst.notify:
		inst.mu.Lock()
		defer inst.mu.Unlock()
		return inst.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Terminate escalates signals to the child: SIGINT, wait, SIGTERM, wait,
// SIGKILL. Between steps it polls the instance's recorded exit outcome; it
// does not probe the pid with a non-delivering signal. It returns as soon
// as the exit has been recorded, right after sending SIGKILL, or at once
// if the process was never started.
func (inst *Instance) Terminate() {
	proc := inst.cmd.Process()
	if proc == nil {
		return
	}

	_ = proc.Signal(syscall.SIGINT)
	if !inst.waitAlive(sigintGrace) {
		return
	}

	_ = proc.Signal(syscall.SIGTERM)
	if !inst.waitAlive(sigtermGrace) {
		return
	}

	_ = proc.Kill()
}

// waitAlive polls for process exit for up to grace, returning true if the
// instance is still alive when the window elapses.
func (inst *Instance) waitAlive(grace time.Duration) bool {
	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		inst.mu.Lock()
		done := inst.done
		inst.mu.Unlock()
		if done {
			return false
		}
		time.Sleep(10 * time.Millisecond)
	}
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return !inst.done
}
