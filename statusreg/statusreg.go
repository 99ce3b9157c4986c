// Package statusreg tracks the per-task status the UI renders: process
// state, last exit code, action kind, and dependency list, plus the global
// health rollup used for the status bar.
package statusreg

import "github.com/a2y-d5l/rote/config"

// ProcessStatus is the lifecycle state of one task's process instance.
type ProcessStatus int

const (
	NotStarted ProcessStatus = iota
	Running
	Exited
)

func (s ProcessStatus) String() string {
	switch s {
	case Running:
		return "running"
	case Exited:
		return "exited"
	default:
		return "not started"
	}
}

// Entry is one task's current status, in the order it appeared in
// configuration.
type Entry struct {
	Name       string
	Status     ProcessStatus
	ExitCode   *int
	ActionKind config.ActionKind
	Deps       []string
}

// Registry is an ordered list of Entries plus a name-to-index map for O(1)
// lookup and update.
type Registry struct {
	entries []Entry
	index   map[string]int
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{index: make(map[string]int)}
}

// UpsertWithAction inserts a new Entry (appended, preserving configuration
// order) or, if name already exists, updates its status and action kind in
// place.
func (r *Registry) UpsertWithAction(name string, status ProcessStatus, action config.ActionKind) {
	if i, ok := r.index[name]; ok {
		r.entries[i].Status = status
		r.entries[i].ActionKind = action
		return
	}
	r.index[name] = len(r.entries)
	r.entries = append(r.entries, Entry{Name: name, Status: status, ActionKind: action})
}

// UpdateStatus sets the status of an existing entry. It is a no-op if name
// is unknown.
func (r *Registry) UpdateStatus(name string, status ProcessStatus) {
	if i, ok := r.index[name]; ok {
		r.entries[i].Status = status
	}
}

// UpdateExitCode sets the exit code of an existing entry.
func (r *Registry) UpdateExitCode(name string, code int) {
	if i, ok := r.index[name]; ok {
		r.entries[i].ExitCode = &code
	}
}

// UpdateDependencies sets the dependency list of an existing entry.
func (r *Registry) UpdateDependencies(name string, deps []string) {
	if i, ok := r.index[name]; ok {
		r.entries[i].Deps = deps
	}
}

// Get returns the entry for name, if present.
func (r *Registry) Get(name string) (Entry, bool) {
	i, ok := r.index[name]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i], true
}

// Entries returns every entry in configuration order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Rollup computes the global health summary: healthy and total task counts,
// and whether any task is unhealthy. NotStarted tasks are excluded from
// both healthy and total. A Run task is healthy while Running; any other
// action kind is healthy only once Exited with exit code 0.
func (r *Registry) Rollup() (healthy, total int, hasIssues bool) {
	for _, e := range r.entries {
		if e.Status == NotStarted {
			continue
		}
		total++
		if r.isHealthy(e) {
			healthy++
		}
	}
	hasIssues = total > 0 && healthy < total
	return healthy, total, hasIssues
}

func (r *Registry) isHealthy(e Entry) bool {
	if e.ActionKind == config.ActionRun {
		return e.Status == Running
	}
	return e.Status == Exited && e.ExitCode != nil && *e.ExitCode == 0
}
