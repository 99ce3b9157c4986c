package msglog_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/a2y-d5l/rote/msglog"
)

func TestPushAndLines(t *testing.T) {
	log := msglog.New()
	log.Push(msglog.Stdout, "hello", false, time.Time{})
	log.Push(msglog.Stderr, "oops", false, time.Time{})
	log.Push(msglog.Status, "exited with code 0", false, time.Time{})

	lines := log.Lines()
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0].Kind != msglog.Stdout || lines[0].Content != "hello" {
		t.Errorf("unexpected first line: %+v", lines[0])
	}
	if lines[1].Kind != msglog.Stderr || lines[1].Content != "oops" {
		t.Errorf("unexpected second line: %+v", lines[1])
	}
	if lines[2].Kind != msglog.Status {
		t.Errorf("unexpected third line: %+v", lines[2])
	}
}

func TestPushWithTimestamp(t *testing.T) {
	log := msglog.New()
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	log.Push(msglog.Stdout, "hi", true, now)

	lines := log.Lines()
	if lines[0].Timestamp == nil {
		t.Fatal("expected timestamp to be set")
	}
	if !lines[0].Timestamp.Equal(now) {
		t.Errorf("expected %v, got %v", now, *lines[0].Timestamp)
	}
}

func TestPushWithoutTimestamp(t *testing.T) {
	log := msglog.New()
	log.Push(msglog.Stdout, "hi", false, time.Now())

	lines := log.Lines()
	if lines[0].Timestamp != nil {
		t.Errorf("expected nil timestamp, got %v", lines[0].Timestamp)
	}
}

func TestLinesFiltered(t *testing.T) {
	log := msglog.New()
	log.Push(msglog.Stdout, "out", false, time.Time{})
	log.Push(msglog.Stderr, "err", false, time.Time{})
	log.Push(msglog.Status, "status", false, time.Time{})

	stdoutOnly := log.LinesFiltered(true, false, false)
	if len(stdoutOnly) != 1 || stdoutOnly[0].Content != "out" {
		t.Fatalf("expected only stdout, got %+v", stdoutOnly)
	}

	none := log.LinesFiltered(false, false, false)
	if len(none) != 0 {
		t.Fatalf("expected no lines, got %+v", none)
	}

	all := log.LinesFiltered(true, true, true)
	if len(all) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(all))
	}
}

// TestEvictionAtCapacity pushes 50 lines past MaxLines and verifies that
// exactly MaxLines lines survive, with the oldest 50 evicted (Scenario D).
func TestEvictionAtCapacity(t *testing.T) {
	log := msglog.New()
	const overflow = 50
	for i := 0; i < msglog.MaxLines+overflow; i++ {
		log.Push(msglog.Stdout, content(i), false, time.Time{})
	}

	if log.Len() != msglog.MaxLines {
		t.Fatalf("expected %d lines, got %d", msglog.MaxLines, log.Len())
	}
	lines := log.Lines()
	if lines[0].Content != content(overflow) {
		t.Errorf("expected first surviving line to be %q, got %q", content(overflow), lines[0].Content)
	}
	last := lines[len(lines)-1]
	if last.Content != content(msglog.MaxLines+overflow-1) {
		t.Errorf("expected last line to be %q, got %q", content(msglog.MaxLines+overflow-1), last.Content)
	}
}

func content(i int) string {
	return "line " + strconv.Itoa(i)
}
