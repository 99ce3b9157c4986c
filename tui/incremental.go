package tui

import (
	"fmt"
	"os"
)

// IncrementalAdapter renders to a plain, non-TTY stdout: each redraw prints
// the active panel's new lines, one output line per log line, prefixed with
// the panel's title, with no screen clearing or cursor manipulation. It emits no UiEvents since a non-interactive
// stream has no keyboard to read from.
type IncrementalAdapter struct {
	lastLineCount int
}

// NewIncrementalAdapter returns an adapter suitable for piped/redirected
// output or CI logs.
func NewIncrementalAdapter() *IncrementalAdapter {
	return &IncrementalAdapter{}
}

func (a *IncrementalAdapter) Events() <-chan UiEvent {
	ch := make(chan UiEvent)
	return ch
}

func (a *IncrementalAdapter) Close() error { return nil }

// Render prints only the lines appended since the last redraw, prefixed
// with the active panel's title, matching the teacher's
// prefix-per-line approach for log-friendly output.
func (a *IncrementalAdapter) Render(state RenderState) {
	if state.ShowStatus {
		for _, e := range state.Status.Entries {
			code := "-"
			if e.ExitCode != nil {
				code = fmt.Sprintf("%d", *e.ExitCode)
			}
			fmt.Fprintf(os.Stdout, "[status] %s %s exit=%s\n", e.Name, e.Status, code)
		}
		return
	}
	if state.ActivePanel == nil {
		return
	}

	lines := state.ActivePanel.Lines
	start := a.lastLineCount
	if start > len(lines) {
		start = 0
	}
	for _, line := range lines[start:] {
		fmt.Fprintf(os.Stdout, "[%s] %s\n", state.ActivePanel.Title, line.Text)
	}
	a.lastLineCount = len(lines)
}
