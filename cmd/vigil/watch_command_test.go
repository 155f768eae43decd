package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"vigil/internal/command"
	"vigil/internal/logging"
	"vigil/internal/metrics"
	"vigil/internal/watcher"
)

// Mirrors the runWatch wiring with no command templates configured: the
// event line and log entry must still be produced, and nothing may spawn.
func TestWatchOnlyLogsWithoutSpawning(t *testing.T) {
	previous := color.NoColor
	color.NoColor = true
	t.Cleanup(func() {
		color.NoColor = previous
	})

	root := t.TempDir()
	registry := &metrics.Registry{}
	logBuffer := logging.NewEntryBuffer(100)
	logger := logging.NewLoggerWithOutput(logBuffer, logging.LevelInfo, nil)
	printed := &strings.Builder{}
	printer := newEventPrinter(printed)

	commands := command.Commands{}
	if !commands.WatchOnly() {
		t.Fatal("expected empty commands to be watch-only")
	}
	runner := command.NewRunner(command.RunnerOptions{
		Logger:   logger,
		Registry: registry,
		Output:   command.OutputSuppress,
	})

	events := make(chan watcher.Event, 4)
	fsWatcher, err := watcher.New(watcher.Options{
		Root:     root,
		Debounce: 20 * time.Millisecond,
		Logger:   logger,
		Registry: registry,
		OnEvent: func(evt watcher.Event) {
			printer.Print(evt)
			if template, ok := commands.ForKind(evt.Kind); ok {
				runner.Dispatch(evt, template)
			}
			select {
			case events <- evt:
			default:
			}
		},
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	if err := fsWatcher.Start(); err != nil {
		t.Fatalf("start watcher: %v", err)
	}
	t.Cleanup(fsWatcher.Stop)

	if err := os.WriteFile(filepath.Join(root, "noted.txt"), []byte("x"), 0600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	select {
	case <-events:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for watch-only event")
	}
	runner.WaitIdle()

	if !strings.Contains(printed.String(), "noted.txt") {
		t.Fatalf("expected an event line, got %q", printed.String())
	}
	logged := false
	for _, entry := range logBuffer.List() {
		if entry.Message == "event" && entry.Context["path"] == "noted.txt" {
			logged = true
		}
	}
	if !logged {
		t.Fatal("expected a structured log entry for the event")
	}
	if snapshot := registry.Snapshot(); snapshot.CommandsStarted != 0 {
		t.Fatalf("watch-only mode spawned a command: %+v", snapshot)
	}
}
