package logging

import (
	"strings"
	"testing"
)

func TestLoggerRespectsMinLevel(t *testing.T) {
	out := &strings.Builder{}
	logger := NewLoggerWithOutput(NewEntryBuffer(10), LevelWarning, out)

	logger.Debug("hidden", nil)
	logger.Info("also hidden", nil)
	logger.Warn("shown", nil)

	entries := logger.Buffer().List()
	if len(entries) != 1 {
		t.Fatalf("expected 1 buffered entry, got %d", len(entries))
	}
	if entries[0].Message != "shown" {
		t.Fatalf("unexpected message %q", entries[0].Message)
	}
	if !strings.Contains(out.String(), `msg="shown"`) {
		t.Fatalf("output missing warn line: %q", out.String())
	}
}

func TestLoggerWithStampsFields(t *testing.T) {
	out := &strings.Builder{}
	logger := NewLoggerWithOutput(NewEntryBuffer(10), LevelInfo, out)

	scoped := logger.With(map[string]string{"component": "watcher"})
	scoped.Info("started", map[string]string{"root": "/tmp"})

	line := out.String()
	if !strings.Contains(line, `component="watcher"`) {
		t.Fatalf("missing base field in %q", line)
	}
	if !strings.Contains(line, `root="/tmp"`) {
		t.Fatalf("missing call field in %q", line)
	}
}

func TestHubSubscribeAndCancel(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe(1)

	hub.Broadcast(Entry{Message: "one"})
	select {
	case entry := <-ch:
		if entry.Message != "one" {
			t.Fatalf("unexpected entry %q", entry.Message)
		}
	default:
		t.Fatal("expected a broadcast entry")
	}

	cancel()
	if _, open := <-ch; open {
		t.Fatal("expected channel closed after cancel")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug": LevelDebug,
		"INFO":  LevelInfo,
		"warn":  LevelWarning,
		"error": LevelError,
	}
	for input, want := range cases {
		got, ok := ParseLevel(input)
		if !ok || got != want {
			t.Fatalf("ParseLevel(%q) = %q, %v", input, got, ok)
		}
	}
	if _, ok := ParseLevel("loud"); ok {
		t.Fatal("expected unknown level to fail")
	}
}
