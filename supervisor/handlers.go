package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/a2y-d5l/rote/config"
	"github.com/a2y-d5l/rote/msglog"
	"github.com/a2y-d5l/rote/statusreg"
	"github.com/a2y-d5l/rote/tui"
	"go.uber.org/zap"
)

func (l *Loop) handle(ctx context.Context, ev Event) {
	switch ev.Kind {
	case EventLine:
		l.handleLine(ev)
	case EventExited:
		l.handleExited(ctx, ev)
	case EventHealthy:
		l.handleHealthy(ctx, ev)
	case EventCheckStatus:
		l.handleCheckStatus()
	case EventStartNextTask:
		l.runStartNextTask(ctx)
	case EventRespawn:
		l.triggerRestart(ctx, ev.Task)
	case EventUserInput:
		l.handleUserInput(ctx, ev.UserInput)
	}
}

func (l *Loop) handleLine(ev Event) {
	if ev.Panel < 0 || ev.Panel >= len(l.nameOf) {
		return
	}
	name := l.nameOf[ev.Panel]
	task, _ := l.cfg.Tasks.Get(name)
	l.pushLine(name, ev.Stream, ev.Line, task.Timestamps)
	if !l.showStatus && l.activePanel == ev.Panel {
		l.dirty = true
	}
}

// pushLine appends a line to name's log and, if the panel was already
// showing its bottom (follow mode), advances its scroll position to the new
// bottom so freshly appended output stays in view.
func (l *Loop) pushLine(name string, kind msglog.Kind, content string, withTimestamp bool) {
	wasFollowing := l.scroll[name] >= l.panelBottom(name)
	l.logs[name].Push(kind, content, withTimestamp, time.Now())
	if wasFollowing {
		l.scroll[name] = l.panelBottom(name)
	}
}

// handleExited is the single place a process's terminal outcome is
// resolved: Stop and Restart requests are recognized here (they tear down
// the instance and wait for this same event), otherwise the task's own
// action kind decides whether it unblocks dependents or auto-restarts.
func (l *Loop) handleExited(ctx context.Context, ev Event) {
	if ev.Panel < 0 || ev.Panel >= len(l.nameOf) {
		return
	}
	name := l.nameOf[ev.Panel]
	task, _ := l.cfg.Tasks.Get(name)

	code := -1
	if ev.ExitCode != nil {
		code = *ev.ExitCode
	}

	if ch, ok := l.exitedCh[name]; ok {
		close(ch)
		delete(l.exitedCh, name)
	}
	delete(l.instances, name)
	if cancel, ok := l.cancels[name]; ok {
		cancel()
		delete(l.cancels, name)
	}

	l.status.UpdateStatus(name, statusreg.Exited)
	l.status.UpdateExitCode(name, code)
	l.prevStatus[name] = statusreg.Exited
	l.dirty = true

	if l.stopped[name] {
		delete(l.stopped, name)
		l.logger.Info("task stopped", zap.String("task", name), zap.Int("exit_code", code))
		l.pushLine(name, msglog.Status, fmt.Sprintf("[stopped: %d]", code), task.Timestamps)
		return
	}

	l.logger.Info("task exited", zap.String("task", name), zap.Int("exit_code", code))
	l.pushLine(name, msglog.Status, fmt.Sprintf("[exited: %d]", code), task.Timestamps)

	if l.restartPending[name] {
		delete(l.restartPending, name)
		if !l.shuttingDown {
			l.triggerRestart(ctx, name)
		}
		return
	}

	switch task.Action.Kind {
	case config.ActionEnsure:
		if code == 0 {
			l.tasks.MarkEnsureCompleted(name)
			l.runStartNextTask(ctx)
		} else {
			l.logger.Error("ensure task failed, shutting down", zap.String("task", name), zap.Int("exit_code", code))
			l.pushLine(name, msglog.Status, fmt.Sprintf("[ensure failed: %d, shutting down]", code), task.Timestamps)
			l.beginShutdown(ctx)
		}
	case config.ActionRun:
		if !l.shuttingDown && task.AutoRestart {
			l.logger.Info("auto-restarting task", zap.String("task", name))
			l.pushLine(name, msglog.Status, "[auto-restarting]", task.Timestamps)
			l.triggerRestart(ctx, name)
		}
	}
}

// handleHealthy is the only path that ever adds to taskmgr's healthy set,
// which is permanent for the life of the run: a later exit of this same
// task does not revoke it, so dependents that already unblocked never
// re-block.
func (l *Loop) handleHealthy(ctx context.Context, ev Event) {
	l.tasks.MarkHealthy(ev.Task)
	if task, ok := l.cfg.Tasks.Get(ev.Task); ok {
		l.logger.Info("task healthy", zap.String("task", ev.Task))
		l.pushLine(ev.Task, msglog.Status, "[healthy]", task.Timestamps)
	}
	l.dirty = true
	l.runStartNextTask(ctx)
}

// handleCheckStatus is the periodic reconciliation tick: for every task that
// has started, it derives the current status from whether its instance is
// still alive, compares the result against the shadow status recorded at
// the last tick, and only touches the registry (and requests a redraw) for
// the tasks whose derived status actually changed. It is a safety net
// against a delayed or dropped terminal event, not a source of state
// transitions in its own right.
func (l *Loop) handleCheckStatus() {
	changed := false
	for _, name := range l.order {
		entry, ok := l.status.Get(name)
		if !ok || entry.Status == statusreg.NotStarted {
			continue
		}

		derived := statusreg.Exited
		if inst, running := l.instances[name]; running && inst.Alive() {
			derived = statusreg.Running
		}
		if l.prevStatus[name] == derived {
			continue
		}
		l.prevStatus[name] = derived
		l.status.UpdateStatus(name, derived)
		changed = true
	}
	if changed {
		l.dirty = true
	}
}

func (l *Loop) handleUserInput(ctx context.Context, ev tui.UiEvent) {
	switch ev.Kind {
	case tui.Exit:
		l.beginShutdown(ctx)
	case tui.Restart:
		l.handleRestartRequest(ctx)
	case tui.Stop:
		l.handleStopRequest()
	case tui.ToggleStdout:
		l.toggleActivePanel(l.showStdoutFlag)
	case tui.ToggleStderr:
		l.toggleActivePanel(l.showStderrFlag)
	case tui.SwitchPanel:
		if ev.Panel >= 0 && ev.Panel < len(l.nameOf) {
			l.activePanel = ev.Panel
			l.showStatus = false
			l.dirty = true
		}
	case tui.SwitchToStatus:
		l.showStatus = true
		l.dirty = true
	case tui.PrevPanel:
		l.cyclePanel(-1)
	case tui.NextPanel:
		l.cyclePanel(1)
	case tui.Scroll:
		if !l.showStatus && len(l.nameOf) > 0 {
			name := l.nameOf[l.activePanel]
			l.scroll[name] += ev.Delta
			if l.scroll[name] < 0 {
				l.scroll[name] = 0
			}
			if bottom := l.panelBottom(name); l.scroll[name] > bottom {
				l.scroll[name] = bottom
			}
			l.dirty = true
		}
	}
}

func (l *Loop) toggleActivePanel(flags map[string]bool) {
	if l.showStatus || len(l.nameOf) == 0 {
		return
	}
	name := l.nameOf[l.activePanel]
	flags[name] = !flags[name]
	if bottom := l.panelBottom(name); l.scroll[name] > bottom {
		l.scroll[name] = bottom
	}
	l.dirty = true
}

func (l *Loop) cyclePanel(delta int) {
	if len(l.nameOf) == 0 {
		return
	}
	l.showStatus = false
	n := len(l.nameOf)
	l.activePanel = ((l.activePanel+delta)%n + n) % n
	l.dirty = true
}

// handleRestartRequest terminates the active panel's instance (if any) and
// flags it so handleExited respawns it once the teardown completes, or
// spawns it directly if it was not running.
func (l *Loop) handleRestartRequest(ctx context.Context) {
	if l.showStatus || len(l.nameOf) == 0 {
		return
	}
	name := l.nameOf[l.activePanel]
	task, ok := l.cfg.Tasks.Get(name)
	if !ok || !task.HasAction() {
		return
	}
	l.logger.Info("restart requested", zap.String("task", name))
	l.pushLine(name, msglog.Status, "[restarting]", task.Timestamps)
	if l.terminateInstance(name) {
		l.restartPending[name] = true
		return
	}
	l.triggerRestart(ctx, name)
}

// handleStopRequest terminates the active panel's instance and flags it so
// handleExited records a "stopped" status line instead of "exited" and does
// not auto-restart, even if the task configured it.
func (l *Loop) handleStopRequest() {
	if l.showStatus || len(l.nameOf) == 0 {
		return
	}
	name := l.nameOf[l.activePanel]
	if l.terminateInstance(name) {
		l.logger.Info("stop requested", zap.String("task", name))
		l.stopped[name] = true
	}
}
