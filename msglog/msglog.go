// Package msglog is the per-task, stream-tagged line log that backs each
// panel's scrollback. It caps memory use with a fixed-capacity ring buffer:
// once full, the oldest line is evicted to admit the newest.
package msglog

import (
	"time"

	"github.com/a2y-d5l/rote/ring"
)

// MaxLines bounds the number of lines retained per task.
const MaxLines = 5000

// Kind tags the origin of a log line.
type Kind int

const (
	// Stdout is a line captured from the task's standard output.
	Stdout Kind = iota
	// Stderr is a line captured from the task's standard error.
	Stderr
	// Status is a synthetic line emitted by the supervisor itself
	// (start, exit, restart, healthcheck transitions).
	Status
)

func (k Kind) String() string {
	switch k {
	case Stdout:
		return "stdout"
	case Stderr:
		return "stderr"
	default:
		return "status"
	}
}

// Line is one entry in a Log: a tagged line of text, optionally stamped
// with the local time it was appended.
type Line struct {
	Kind      Kind
	Content   string
	Timestamp *time.Time
}

// Log is a capped, append-only buffer of Lines for a single task.
type Log struct {
	buf *ring.Buffer[Line]
}

// New returns an empty Log with room for MaxLines lines.
func New() *Log {
	return &Log{buf: ring.New[Line](MaxLines)}
}

// Push appends a line, stamping it with now when withTimestamp is true.
// If the log is at capacity, the oldest line is evicted.
func (l *Log) Push(kind Kind, content string, withTimestamp bool, now time.Time) {
	line := Line{Kind: kind, Content: content}
	if withTimestamp {
		line.Timestamp = &now
	}
	l.buf.ForcePush(line)
}

// Lines returns every retained line, oldest first.
func (l *Log) Lines() []Line {
	return l.LinesFiltered(true, true, true)
}

// LinesFiltered returns the retained lines whose Kind is enabled by the
// given flags, oldest first, without mutating the log.
func (l *Log) LinesFiltered(showStdout, showStderr, showStatus bool) []Line {
	n := l.buf.Len()
	all := l.buf.Snapshot()
	out := make([]Line, 0, n)
	for _, line := range all {
		switch line.Kind {
		case Stdout:
			if !showStdout {
				continue
			}
		case Stderr:
			if !showStderr {
				continue
			}
		case Status:
			if !showStatus {
				continue
			}
		}
		out = append(out, line)
	}
	return out
}

// Len returns the number of lines currently retained.
func (l *Log) Len() int { return l.buf.Len() }
