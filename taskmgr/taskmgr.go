// Package taskmgr tracks which tasks are pending, which Ensure tasks have
// completed, and which Run tasks have become healthy, and decides which
// pending tasks are ready to start.
package taskmgr

import "github.com/a2y-d5l/rote/config"

// Manager holds the mutable scheduling state the supervisor consults on
// every event that could unblock a dependent task.
type Manager struct {
	pending         []string
	completedEnsure map[string]struct{}
	healthy         map[string]struct{}
	taskToPanel     map[string]int
}

// New creates a Manager seeded with the resolved dependency order and a
// name-to-panel-index mapping.
func New(tasksToStart []string, taskToPanel map[string]int) *Manager {
	pending := make([]string, len(tasksToStart))
	copy(pending, tasksToStart)
	return &Manager{
		pending:         pending,
		completedEnsure: make(map[string]struct{}),
		healthy:         make(map[string]struct{}),
		taskToPanel:     taskToPanel,
	}
}

// MarkEnsureCompleted records that an Ensure task exited zero.
func (m *Manager) MarkEnsureCompleted(name string) {
	m.completedEnsure[name] = struct{}{}
}

// MarkHealthy records that a Run task's healthcheck passed.
func (m *Manager) MarkHealthy(name string) {
	m.healthy[name] = struct{}{}
}

// IsHealthy reports whether name has been marked healthy.
func (m *Manager) IsHealthy(name string) bool {
	_, ok := m.healthy[name]
	return ok
}

// PanelIndex returns the panel index assigned to name, if any.
func (m *Manager) PanelIndex(name string) (int, bool) {
	idx, ok := m.taskToPanel[name]
	return idx, ok
}

// HasPendingTasks reports whether any task remains unscheduled.
func (m *Manager) HasPendingTasks() bool {
	return len(m.pending) > 0
}

// TakeReadyTasks removes and returns, in pending order, every pending task
// whose blocking dependencies are all satisfied.
func (m *Manager) TakeReadyTasks(cfg *config.Config) []string {
	var ready []string
	var stillPending []string

	for _, name := range m.pending {
		if m.depsSatisfied(name, cfg) {
			ready = append(ready, name)
		} else {
			stillPending = append(stillPending, name)
		}
	}
	m.pending = stillPending
	return ready
}

// depsSatisfied implements the readiness predicate: an Ensure dependency
// blocks until it has completed; a Run dependency blocks only if it
// declares a healthcheck, until that healthcheck passes; an aggregator (no
// action) and an unknown dependency never block.
func (m *Manager) depsSatisfied(name string, cfg *config.Config) bool {
	task, ok := cfg.Tasks.Get(name)
	if !ok {
		return true
	}

	for _, dep := range task.Require {
		depTask, ok := cfg.Tasks.Get(dep)
		if !ok {
			continue
		}
		switch depTask.Action.Kind {
		case config.ActionEnsure:
			if _, done := m.completedEnsure[dep]; !done {
				return false
			}
		case config.ActionRun:
			if depTask.Healthcheck != nil {
				if _, ok := m.healthy[dep]; !ok {
					return false
				}
			}
		case config.ActionNone:
			// Aggregator: its own dependencies gate it, not this check.
		}
	}
	return true
}
