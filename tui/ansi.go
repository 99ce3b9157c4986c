package tui

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// ANSIAdapter is the full-screen interactive renderer: it clears and
// redraws the whole screen on each call to Render, and reads keystrokes
// from a raw-mode stdin in a background goroutine.
type ANSIAdapter struct {
	events   chan UiEvent
	oldState *term.State
	stdinFd  int
}

// NewANSIAdapter puts stdin into raw mode and starts the keyboard reader.
// Callers must call Close to restore the terminal.
func NewANSIAdapter() (*ANSIAdapter, error) {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}

	a := &ANSIAdapter{
		events:   make(chan UiEvent, 64),
		oldState: oldState,
		stdinFd:  fd,
	}
	go a.readKeys()
	return a, nil
}

func (a *ANSIAdapter) Events() <-chan UiEvent { return a.events }

func (a *ANSIAdapter) Close() error {
	return term.Restore(a.stdinFd, a.oldState)
}

// readKeys translates raw stdin bytes into UiEvents using the key bindings
// named in spec.md §4.9: q/R/o/e, digits 1-9, arrows, PageUp/PageDown.
func (a *ANSIAdapter) readKeys() {
	r := bufio.NewReader(os.Stdin)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return
		}

		switch {
		case b == 'q':
			a.send(UiEvent{Kind: Exit})
		case b == 'R':
			a.send(UiEvent{Kind: Restart})
		case b == 's':
			a.send(UiEvent{Kind: Stop})
		case b == 'o':
			a.send(UiEvent{Kind: ToggleStdout})
		case b == 'e':
			a.send(UiEvent{Kind: ToggleStderr})
		case b == '0':
			a.send(UiEvent{Kind: SwitchToStatus})
		case b >= '1' && b <= '9':
			a.send(UiEvent{Kind: SwitchPanel, Panel: int(b - '1')})
		case b == 0x1b: // ESC: possible arrow/page key sequence
			a.readEscapeSequence(r)
		}
	}
}

func (a *ANSIAdapter) readEscapeSequence(r *bufio.Reader) {
	b1, err := r.ReadByte()
	if err != nil || b1 != '[' {
		return
	}
	b2, err := r.ReadByte()
	if err != nil {
		return
	}
	switch b2 {
	case 'A': // Up
		a.send(UiEvent{Kind: Scroll, Delta: -1})
	case 'B': // Down
		a.send(UiEvent{Kind: Scroll, Delta: 1})
	case '5': // PageUp: ESC [ 5 ~
		if b3, err := r.ReadByte(); err == nil && b3 == '~' {
			a.send(UiEvent{Kind: Scroll, Delta: -20})
		}
	case '6': // PageDown: ESC [ 6 ~
		if b3, err := r.ReadByte(); err == nil && b3 == '~' {
			a.send(UiEvent{Kind: Scroll, Delta: 20})
		}
	}
}

func (a *ANSIAdapter) send(ev UiEvent) {
	select {
	case a.events <- ev:
	default:
	}
}

// Render clears the screen and redraws the active panel (or the status
// view) plus a footer naming the key bindings.
func (a *ANSIAdapter) Render(state RenderState) {
	var b strings.Builder
	b.WriteString("\x1b[H\x1b[2J")

	if state.ShowStatus {
		renderStatus(&b, state.Status)
	} else if state.ActivePanel != nil {
		renderPanel(&b, state.ActivePanel, state.PanelTitles, state.ActiveIndex)
	}

	fmt.Fprintf(&b, "\nhealthy %d/%d  [q]uit [R]estart [s]top [o]stdout [e]stderr [0]status [1-9]panel\n",
		state.Status.Healthy, state.Status.Total)
	fmt.Fprint(os.Stdout, b.String())
}

func renderPanel(b *strings.Builder, panel *PanelView, titles []string, active int) {
	fmt.Fprintf(b, "%s  [o:%s e:%s]\n", panel.Title, onOff(panel.ShowStdout), onOff(panel.ShowStderr))
	for i, t := range titles {
		marker := " "
		if i == active {
			marker = ">"
		}
		fmt.Fprintf(b, "%s %d:%s", marker, i+1, t)
	}
	b.WriteString("\n")

	var visible []PanelLine
	for _, line := range panel.Lines {
		switch line.Kind {
		case "stdout":
			if !panel.ShowStdout {
				continue
			}
		case "stderr":
			if !panel.ShowStderr {
				continue
			}
		case "status":
			if !panel.ShowStatus {
				continue
			}
		}
		visible = append(visible, line)
	}

	bottom := 0
	if len(visible) > PanelWindowHeight {
		bottom = len(visible) - PanelWindowHeight
	}
	top := panel.Scroll
	if top > bottom {
		top = bottom
	}
	if top < 0 {
		top = 0
	}
	end := top + PanelWindowHeight
	if end > len(visible) {
		end = len(visible)
	}
	for _, line := range visible[top:end] {
		fmt.Fprintln(b, line.Text)
	}
}

func renderStatus(b *strings.Builder, status StatusView) {
	fmt.Fprintln(b, "Status")
	for _, e := range status.Entries {
		code := "-"
		if e.ExitCode != nil {
			code = fmt.Sprintf("%d", *e.ExitCode)
		}
		fmt.Fprintf(b, "  %-20s %-12s exit=%s\n", e.Name, e.Status, code)
	}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
