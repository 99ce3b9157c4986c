package supervisor

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// shutdownDrainTimeout bounds how long shutdown waits for a single instance
// to report its exit once Terminate has been told to escalate signals.
const shutdownDrainTimeout = 5 * time.Second

// beginShutdown is idempotent: it terminates every live instance and waits
// for each to report its exit (up to shutdownDrainTimeout) before
// returning. The instances are terminated concurrently, one goroutine
// each, with no order among them. Exit interrupts every live instance,
// Ensure tasks still in flight included.
func (l *Loop) beginShutdown(ctx context.Context) {
	if l.shuttingDown {
		return
	}
	l.shuttingDown = true

	names := make([]string, 0, len(l.instances))
	for name := range l.instances {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return l.panelOf[names[i]] < l.panelOf[names[j]] })

	if len(names) > 0 {
		l.logger.Info("shutting down", zap.Strings("tasks", names))
	}

	var g errgroup.Group
	for _, name := range names {
		inst := l.instances[name]
		g.Go(func() error {
			inst.Terminate()
			drainCtx, cancel := context.WithTimeout(context.Background(), shutdownDrainTimeout)
			defer cancel()
			_, _ = inst.Wait(drainCtx)
			return nil
		})
	}
	_ = g.Wait()
}
