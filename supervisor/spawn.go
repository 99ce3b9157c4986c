package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/a2y-d5l/rote/config"
	"github.com/a2y-d5l/rote/health"
	"github.com/a2y-d5l/rote/msglog"
	"github.com/a2y-d5l/rote/procrunner"
	"github.com/a2y-d5l/rote/statusreg"
	"go.uber.org/zap"
)

// runStartNextTask takes every currently-ready pending task and starts it:
// aggregators complete instantly (they spawn nothing), everything else is
// spawned as a child process.
func (l *Loop) runStartNextTask(ctx context.Context) {
	for _, name := range l.tasks.TakeReadyTasks(l.cfg) {
		task, ok := l.cfg.Tasks.Get(name)
		if !ok {
			continue
		}
		if !task.HasAction() {
			l.completeAggregator(name)
			continue
		}
		l.spawnTask(ctx, name, task)
	}
	l.dirty = true
}

// completeAggregator marks a dependency-only task as satisfied the moment
// its own dependencies are ready: it never spawns a process, so nothing
// downstream of it (per taskmgr's readiness predicate) was ever blocked on
// this step, but Ensure-completion-style bookkeeping still needs a status
// entry to show something other than "not started".
func (l *Loop) completeAggregator(name string) {
	zero := 0
	l.status.UpdateStatus(name, statusreg.Exited)
	l.status.UpdateExitCode(name, zero)
	l.prevStatus[name] = statusreg.Exited
}

// spawnTask starts name's process via the shell, exactly as Cmd health
// probes are invoked: through `sh -c`.
func (l *Loop) spawnTask(ctx context.Context, name string, task config.Task) {
	cwd := task.ResolveCwd(l.configDir)
	panelIdx := l.panelOf[name]
	instCtx, cancel := context.WithCancel(ctx)

	inst, err := procrunner.Spawn(instCtx, l.factory, panelIdx, "sh", []string{"-c", task.Action.Command.AsCommand()}, cwd, l.procEvents)
	if err != nil {
		cancel()
		code := -1
		l.logger.Error("spawn failed", zap.String("task", name), zap.Error(err))
		l.pushLine(name, msglog.Status, fmt.Sprintf("[spawn failed: %v]", err), task.Timestamps)
		l.status.UpdateStatus(name, statusreg.Exited)
		l.status.UpdateExitCode(name, code)
		l.prevStatus[name] = statusreg.Exited
		return
	}

	l.instances[name] = inst
	l.cancels[name] = cancel
	l.lastSpawn[name] = time.Now()
	l.status.UpdateStatus(name, statusreg.Running)
	l.prevStatus[name] = statusreg.Running
	l.logger.Info("task starting", zap.String("task", name))
	l.pushLine(name, msglog.Status, "[starting]", task.Timestamps)

	if task.Healthcheck != nil {
		exited := make(chan struct{})
		l.exitedCh[name] = exited
		prober := health.New(*task.Healthcheck)
		go func() {
			if prober.Run(instCtx, exited) {
				l.events <- Event{Kind: EventHealthy, Task: name}
			}
		}()
	}
}

// triggerRestart re-spawns name, waiting out the remainder of restartFloor
// since its last spawn attempt if necessary. The wait happens off the event
// loop goroutine so the loop stays responsive to Stop/Exit while it waits.
// While a respawn is pending, name is tracked in l.pendingRespawn so the
// loop does not mistake the gap for natural completion.
func (l *Loop) triggerRestart(ctx context.Context, name string) {
	elapsed := time.Since(l.lastSpawn[name])
	if elapsed >= restartFloor {
		delete(l.pendingRespawn, name)
		task, ok := l.cfg.Tasks.Get(name)
		if ok {
			l.spawnTask(ctx, name, task)
			l.dirty = true
		}
		return
	}
	l.pendingRespawn[name] = true
	delay := restartFloor - elapsed
	go func() {
		time.Sleep(delay)
		l.events <- Event{Kind: EventRespawn, Task: name}
	}()
}

// terminateInstance tears down name's running process in the background so
// the caller (the event loop) is never blocked by signal-escalation grace
// windows.
func (l *Loop) terminateInstance(name string) bool {
	inst, ok := l.instances[name]
	if !ok {
		return false
	}
	go inst.Terminate()
	return true
}
