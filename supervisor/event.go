// Package supervisor is the central orchestrator: it resolves a configured
// target list into a dependency order, spawns and supervises each task's
// process, feeds a single-consumer event loop from process output, exit
// notifications, healthcheck results, a periodic reconciliation tick and the
// UI's keyboard input, and drives a tui.Adapter from the resulting state.
package supervisor

import (
	"github.com/a2y-d5l/rote/msglog"
	"github.com/a2y-d5l/rote/tui"
)

// EventKind distinguishes the shapes of Event.
type EventKind int

const (
	// EventLine is a captured output line from a running task's process.
	EventLine EventKind = iota
	// EventExited is the single terminal event for one process instance.
	EventExited
	// EventHealthy marks a task's first successful healthcheck probe.
	EventHealthy
	// EventCheckStatus is the periodic (~250ms) liveness re-derivation tick.
	EventCheckStatus
	// EventStartNextTask re-evaluates readiness and spawns anything ready.
	EventStartNextTask
	// EventRespawn re-spawns one specific task once its restart floor has
	// elapsed; it bypasses taskmgr, since the task already started once.
	EventRespawn
	// EventUserInput wraps a UiEvent from the input source.
	EventUserInput
)

// Event is the single sum type carried on the supervisor's event queue.
type Event struct {
	Kind EventKind

	// Panel identifies the task by panel index for Line/Exited events.
	Panel int

	// Stream/Line populate EventLine.
	Stream msglog.Kind
	Line   string

	// ExitCode populates EventExited. procrunner always sets it;
	// handleExited reads a nil value as -1.
	ExitCode *int

	// Task names the task for EventHealthy and EventRespawn.
	Task string

	// UserInput populates EventUserInput.
	UserInput tui.UiEvent
}
