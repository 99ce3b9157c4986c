// Package health runs per-task healthcheck probes on a timer until the
// first successful probe, or until the task's process exits first.
package health

import (
	"context"
	"os/exec"
	"time"

	"github.com/a2y-d5l/rote/config"
	"github.com/a2y-d5l/rote/tools"
)

// Prober runs one task's healthcheck on a ticker.
type Prober struct {
	method   config.HealthcheckMethod
	interval time.Duration
}

// New returns a Prober for the given healthcheck configuration.
func New(hc config.Healthcheck) *Prober {
	return &Prober{method: hc.Method, interval: hc.Interval}
}

// Run ticks at the configured interval, probing until the first success,
// until exited fires, or until ctx is cancelled. It reports true if a probe
// ever succeeded.
func (p *Prober) Run(ctx context.Context, exited <-chan struct{}) bool {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-exited:
			return false
		case <-ticker.C:
			if p.probe() {
				return true
			}
		}
	}
}

func (p *Prober) probe() bool {
	switch p.method.Kind {
	case config.HealthcheckCmd:
		return exec.Command("sh", "-c", p.method.Cmd).Run() == nil
	case config.HealthcheckIsPortOpen:
		return tools.IsPortOpen(p.method.Port) == nil
	default:
		return false
	}
}
