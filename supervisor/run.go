package supervisor

import (
	"context"
	"time"

	"github.com/a2y-d5l/rote/msglog"
	"github.com/a2y-d5l/rote/procrunner"
	"github.com/a2y-d5l/rote/tui"
)

// Run drives the event loop until the UI or the context requests exit, or
// until there is nothing left to do (no pending tasks and no live Run
// instances, e.g. a config made only of Ensure tasks and aggregators). It
// returns an exit code: 0 on a clean shutdown, 1 if any task's final status
// left the health rollup with issues.
func (l *Loop) Run(ctx context.Context) int {
	go l.convertProcEvents()
	go l.forwardUserInput()
	go l.tickCheckStatus(ctx)
	go func() {
		<-ctx.Done()
		l.postUserInput(tui.UiEvent{Kind: tui.Exit})
	}()

	l.dirty = true
	l.events <- Event{Kind: EventStartNextTask}

	for ev := range l.events {
		l.handle(ctx, ev)
		l.render()

		if l.shuttingDown {
			return l.exitCode()
		}
		if l.naturallyComplete() {
			return l.exitCode()
		}
	}
	return l.exitCode()
}

func (l *Loop) exitCode() int {
	_, _, hasIssues := l.status.Rollup()
	if hasIssues {
		return 1
	}
	return 0
}

// naturallyComplete reports whether the run has nothing left to do: every
// task has been started and no process instance is still alive. A config
// of only Ensure tasks and aggregators completes this way without the user
// ever sending Exit.
func (l *Loop) naturallyComplete() bool {
	return !l.tasks.HasPendingTasks() && len(l.instances) == 0 && len(l.pendingRespawn) == 0
}

// convertProcEvents translates procrunner's per-stream event shape into the
// supervisor's single Event sum type.
func (l *Loop) convertProcEvents() {
	for ev := range l.procEvents {
		if ev.IsExit {
			l.events <- Event{Kind: EventExited, Panel: ev.Panel, ExitCode: ev.ExitCode}
			continue
		}
		kind := msglog.Stdout
		if ev.Stream == procrunner.Stderr {
			kind = msglog.Stderr
		}
		l.events <- Event{Kind: EventLine, Panel: ev.Panel, Stream: kind, Line: ev.Line}
	}
}

func (l *Loop) forwardUserInput() {
	for ev := range l.adapter.Events() {
		l.postUserInput(ev)
	}
}

func (l *Loop) postUserInput(ev tui.UiEvent) {
	select {
	case l.events <- Event{Kind: EventUserInput, UserInput: ev}:
	default:
		// The queue is backed up; a dropped keypress is preferable to
		// blocking the adapter's reader goroutine.
	}
}

func (l *Loop) tickCheckStatus(ctx context.Context) {
	ticker := time.NewTicker(checkStatusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			select {
			case l.events <- Event{Kind: EventCheckStatus}:
			default:
			}
		}
	}
}
