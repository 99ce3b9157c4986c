package supervisor_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/a2y-d5l/rote/config"
	"github.com/a2y-d5l/rote/statusreg"
	"github.com/a2y-d5l/rote/supervisor"
	"github.com/a2y-d5l/rote/tui"
)

// fakeAdapter is a test double for tui.Adapter: it lets a test post UiEvents
// directly (bypassing any real keyboard) and records every RenderState for
// inspection.
type fakeAdapter struct {
	events chan tui.UiEvent

	mu      sync.Mutex
	renders []tui.RenderState
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{events: make(chan tui.UiEvent, 16)}
}

func (f *fakeAdapter) Events() <-chan tui.UiEvent { return f.events }
func (f *fakeAdapter) Close() error               { return nil }

func (f *fakeAdapter) Render(s tui.RenderState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renders = append(f.renders, s)
}

func (f *fakeAdapter) send(ev tui.UiEvent) { f.events <- ev }

func mustParse(t *testing.T, yaml string) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	return cfg
}

// findEntry returns the status entry named name, or zero value and false.
func findEntry(entries []statusreg.Entry, name string) (statusreg.Entry, bool) {
	for _, e := range entries {
		if e.Name == name {
			return e, true
		}
	}
	return statusreg.Entry{}, false
}

// waitFor polls fn every 10ms until it returns true or the deadline passes,
// failing the test on timeout.
func waitFor(t *testing.T, timeout time.Duration, what string, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestEnsureGatesRun(t *testing.T) {
	cfg := mustParse(t, `
tasks:
  migrate:
    ensure: true
  web:
    run: "sleep 2"
    require: [migrate]
`)
	adapter := newFakeAdapter()
	loop, err := supervisor.New(cfg, ".", []string{"web"}, adapter, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done := make(chan int, 1)
	go func() { done <- loop.Run(context.Background()) }()

	waitFor(t, 2*time.Second, "web running", func() bool {
		e, ok := findEntry(loop.Status(), "web")
		return ok && e.Status == statusreg.Running
	})

	migrate, ok := findEntry(loop.Status(), "migrate")
	if !ok || migrate.Status != statusreg.Exited || migrate.ExitCode == nil || *migrate.ExitCode != 0 {
		t.Fatalf("expected migrate exited 0, got %+v", migrate)
	}

	adapter.send(tui.UiEvent{Kind: tui.Exit})
	select {
	case code := <-done:
		if code != 0 {
			t.Errorf("expected exit code 0, got %d", code)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Exit")
	}
}

func TestHealthcheckGatesDependent(t *testing.T) {
	cfg := mustParse(t, `
tasks:
  web:
    run: "sleep 2"
    healthcheck:
      cmd: "true"
      interval: 0.05
  smoke:
    ensure: true
    require: [web]
`)
	adapter := newFakeAdapter()
	loop, err := supervisor.New(cfg, ".", []string{"smoke"}, adapter, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done := make(chan int, 1)
	go func() { done <- loop.Run(context.Background()) }()

	// smoke must complete well before web's 2s sleep finishes: it is
	// gated on web's healthcheck, not on web's exit.
	waitFor(t, 1*time.Second, "smoke exited", func() bool {
		e, ok := findEntry(loop.Status(), "smoke")
		return ok && e.Status == statusreg.Exited
	})
	smoke, _ := findEntry(loop.Status(), "smoke")
	if smoke.ExitCode == nil || *smoke.ExitCode != 0 {
		t.Fatalf("expected smoke exited 0, got %+v", smoke)
	}

	adapter.send(tui.UiEvent{Kind: tui.Exit})
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Exit")
	}
}

func TestStopSuppressesAutoRestart(t *testing.T) {
	cfg := mustParse(t, `
tasks:
  web:
    run: "sleep 5"
    autorestart: true
`)
	adapter := newFakeAdapter()
	loop, err := supervisor.New(cfg, ".", []string{"web"}, adapter, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done := make(chan int, 1)
	go func() { done <- loop.Run(context.Background()) }()

	waitFor(t, 2*time.Second, "web running", func() bool {
		e, ok := findEntry(loop.Status(), "web")
		return ok && e.Status == statusreg.Running
	})

	adapter.send(tui.UiEvent{Kind: tui.Stop})

	waitFor(t, 2*time.Second, "web exited", func() bool {
		e, ok := findEntry(loop.Status(), "web")
		return ok && e.Status == statusreg.Exited
	})

	// Give a would-be auto-restart a chance to (incorrectly) kick in.
	time.Sleep(400 * time.Millisecond)
	e, _ := findEntry(loop.Status(), "web")
	if e.Status != statusreg.Exited {
		t.Fatalf("expected web to stay exited after Stop, got %v", e.Status)
	}

	adapter.send(tui.UiEvent{Kind: tui.Exit})
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Exit")
	}
}

func TestRestartRespawns(t *testing.T) {
	cfg := mustParse(t, `
tasks:
  web:
    run: "sleep 5"
`)
	adapter := newFakeAdapter()
	loop, err := supervisor.New(cfg, ".", []string{"web"}, adapter, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done := make(chan int, 1)
	go func() { done <- loop.Run(context.Background()) }()

	waitFor(t, 2*time.Second, "web running", func() bool {
		e, ok := findEntry(loop.Status(), "web")
		return ok && e.Status == statusreg.Running
	})

	adapter.send(tui.UiEvent{Kind: tui.Restart})

	waitFor(t, 2*time.Second, "web running again after restart", func() bool {
		e, ok := findEntry(loop.Status(), "web")
		return ok && e.Status == statusreg.Running
	})

	adapter.send(tui.UiEvent{Kind: tui.Exit})
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Exit")
	}
}

func TestEnsureOnlyConfigCompletesNaturally(t *testing.T) {
	cfg := mustParse(t, `
tasks:
  a:
    ensure: true
  b:
    ensure: true
    require: [a]
`)
	adapter := newFakeAdapter()
	loop, err := supervisor.New(cfg, ".", []string{"b"}, adapter, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done := make(chan int, 1)
	go func() { done <- loop.Run(context.Background()) }()

	select {
	case code := <-done:
		if code != 0 {
			t.Errorf("expected exit code 0, got %d", code)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not complete naturally")
	}

	b, ok := findEntry(loop.Status(), "b")
	if !ok || b.Status != statusreg.Exited || b.ExitCode == nil || *b.ExitCode != 0 {
		t.Fatalf("expected b exited 0, got %+v", b)
	}
}

func TestEnsureFailureShutsDownIndependentTask(t *testing.T) {
	cfg := mustParse(t, `
tasks:
  broken:
    ensure: false
  server:
    run: "sleep 300"
`)
	adapter := newFakeAdapter()
	loop, err := supervisor.New(cfg, ".", []string{"broken", "server"}, adapter, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done := make(chan int, 1)
	go func() { done <- loop.Run(context.Background()) }()

	waitFor(t, 2*time.Second, "server running", func() bool {
		e, ok := findEntry(loop.Status(), "server")
		return ok && e.Status == statusreg.Running
	})

	// broken has no require relation to server: if a failed Ensure did not
	// trigger a fatal shutdown, server's 300s sleep would keep Run blocked
	// far past this deadline.
	select {
	case code := <-done:
		if code != 1 {
			t.Errorf("expected exit code 1, got %d", code)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not shut down after independent Ensure failure")
	}
}

func TestFailedEnsureReportsExitCodeOne(t *testing.T) {
	cfg := mustParse(t, `
tasks:
  broken:
    ensure: false
`)
	adapter := newFakeAdapter()
	loop, err := supervisor.New(cfg, ".", []string{"broken"}, adapter, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done := make(chan int, 1)
	go func() { done <- loop.Run(context.Background()) }()

	select {
	case code := <-done:
		if code != 1 {
			t.Errorf("expected exit code 1, got %d", code)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not complete naturally")
	}
}
