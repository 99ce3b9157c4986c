package supervisor

import "github.com/a2y-d5l/rote/tui"

func (l *Loop) buildRenderState() tui.RenderState {
	healthy, total, hasIssues := l.status.Rollup()
	status := tui.StatusView{Healthy: healthy, Total: total, HasIssues: hasIssues}
	for _, e := range l.status.Entries() {
		status.Entries = append(status.Entries, tui.StatusLine{
			Name:     e.Name,
			Status:   e.Status.String(),
			ExitCode: e.ExitCode,
		})
	}

	state := tui.RenderState{
		ShowStatus:  l.showStatus,
		Status:      status,
		PanelTitles: l.nameOf,
		ActiveIndex: l.activePanel,
	}
	if l.showStatus || l.activePanel >= len(l.nameOf) {
		return state
	}

	name := l.nameOf[l.activePanel]
	showStdout := l.showStdoutFlag[name]
	showStderr := l.showStderrFlag[name]
	logLines := l.logs[name].LinesFiltered(showStdout, showStderr, true)
	lines := make([]tui.PanelLine, len(logLines))
	for i, ln := range logLines {
		lines[i] = tui.PanelLine{Kind: ln.Kind.String(), Text: ln.Content}
	}
	state.ActivePanel = &tui.PanelView{
		Title:      name,
		Lines:      lines,
		Scroll:     l.scroll[name],
		ShowStdout: showStdout,
		ShowStderr: showStderr,
		ShowStatus: true,
	}
	return state
}

// panelBottom is the scroll position that shows the newest lines of name's
// panel under its current stdout/stderr display flags: follow mode tracks
// this value as new lines arrive.
func (l *Loop) panelBottom(name string) int {
	n := len(l.logs[name].LinesFiltered(l.showStdoutFlag[name], l.showStderrFlag[name], true))
	if n > tui.PanelWindowHeight {
		return n - tui.PanelWindowHeight
	}
	return 0
}

// render redraws via the adapter if anything changed since the last call.
func (l *Loop) render() {
	if !l.dirty {
		return
	}
	l.dirty = false
	l.adapter.Render(l.buildRenderState())
}
