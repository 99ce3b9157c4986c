// Package tui renders the supervisor's panels to a terminal and turns
// keyboard input into UiEvents. It is a thin boundary: the Adapter
// interface is specified by the data it consumes (a snapshot of the active
// panel plus the status rollup) and the events it emits, so the supervisor
// loop never depends on ANSI escapes or raw-mode details directly.
package tui

// PanelWindowHeight is the number of lines an adapter shows at once for the
// active panel; Scroll positions and the "at bottom" follow-mode check are
// both expressed relative to it.
const PanelWindowHeight = 20

// UiEvent is the vocabulary of events a keyboard input source can produce.
type UiEvent struct {
	Kind  UiEventKind
	Panel int // SwitchPanel
	Delta int // Scroll
}

// UiEventKind distinguishes the shapes of UiEvent.
type UiEventKind int

const (
	Exit UiEventKind = iota
	Restart
	Stop
	ToggleStdout
	ToggleStderr
	SwitchPanel
	SwitchToStatus
	PrevPanel
	NextPanel
	Scroll
)

// PanelLine is one renderable line: its text and which stream kind tagged
// it, so the renderer can color/prefix by kind if it chooses to.
type PanelLine struct {
	Kind string // "stdout", "stderr", or "status"
	Text string
}

// PanelView is the read-only snapshot of the active panel the adapter
// renders on each redraw.
type PanelView struct {
	Title      string
	Lines      []PanelLine
	Scroll     int
	ShowStdout bool
	ShowStderr bool
	ShowStatus bool
}

// StatusLine is one row of the status rollup view.
type StatusLine struct {
	Name     string
	Status   string
	ExitCode *int
}

// StatusView is the data behind the aggregate status pane.
type StatusView struct {
	Entries   []StatusLine
	Healthy   int
	Total     int
	HasIssues bool
}

// RenderState is everything one redraw needs: the active panel (or the
// status view, if the user switched to it) and the rollup, which the ANSI
// adapter shows in its footer regardless of which view is active.
type RenderState struct {
	ActivePanel *PanelView
	ShowStatus  bool
	Status      StatusView
	PanelTitles []string
	ActiveIndex int
}

// Adapter is the UI boundary: it renders RenderState snapshots and emits
// UiEvents from user input. Close restores any terminal mode changes.
type Adapter interface {
	Render(state RenderState)
	Events() <-chan UiEvent
	Close() error
}
