package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"vigil/internal/filter"
	"vigil/internal/metrics"
)

func startTestWatcher(t *testing.T, root string, pf *filter.PatternFilter, debounce time.Duration) (*Watcher, chan Event) {
	t.Helper()

	events := make(chan Event, 16)
	instance, err := New(Options{
		Root:     root,
		Filter:   pf,
		Debounce: debounce,
		Registry: &metrics.Registry{},
		OnEvent: func(event Event) {
			select {
			case events <- event:
			default:
			}
		},
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	if err := instance.Start(); err != nil {
		t.Fatalf("start watcher: %v", err)
	}
	t.Cleanup(instance.Stop)
	return instance, events
}

func waitForEvent(events <-chan Event) (Event, bool) {
	select {
	case event := <-events:
		return event, true
	case <-time.After(2 * time.Second):
		return Event{}, false
	}
}

func TestWatcherEmitsCreateEvent(t *testing.T) {
	root := t.TempDir()
	_, events := startTestWatcher(t, root, nil, 20*time.Millisecond)

	path := filepath.Join(root, "fresh.txt")
	if err := os.WriteFile(path, []byte("hello"), 0600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	event, ok := waitForEvent(events)
	if !ok {
		t.Fatal("timed out waiting for create event")
	}
	if event.RelPath != "fresh.txt" {
		t.Fatalf("expected rel path fresh.txt, got %q", event.RelPath)
	}
	if event.Kind != KindCreated && event.Kind != KindModified {
		t.Fatalf("unexpected kind %q", event.Kind)
	}
}

func TestWatcherEmitsDeleteEvent(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "victim.txt")
	if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	_, events := startTestWatcher(t, root, nil, 20*time.Millisecond)

	if err := os.Remove(path); err != nil {
		t.Fatalf("remove file: %v", err)
	}

	event, ok := waitForEvent(events)
	if !ok {
		t.Fatal("timed out waiting for delete event")
	}
	if event.Kind != KindDeleted {
		t.Fatalf("expected delete, got %q", event.Kind)
	}
	if event.RelPath != "victim.txt" {
		t.Fatalf("unexpected rel path %q", event.RelPath)
	}
}

func TestWatcherAppliesFilter(t *testing.T) {
	root := t.TempDir()
	pf, err := filter.New([]string{"*.rs"}, nil)
	if err != nil {
		t.Fatalf("compile filter: %v", err)
	}
	_, events := startTestWatcher(t, root, pf, 20*time.Millisecond)

	if err := os.WriteFile(filepath.Join(root, "skip.txt"), []byte("x"), 0600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "keep.rs"), []byte("x"), 0600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	event, ok := waitForEvent(events)
	if !ok {
		t.Fatal("timed out waiting for matching event")
	}
	if event.RelPath != "keep.rs" {
		t.Fatalf("filter leaked %q", event.RelPath)
	}
}

func TestWatcherPicksUpNewDirectories(t *testing.T) {
	root := t.TempDir()
	_, events := startTestWatcher(t, root, nil, 20*time.Millisecond)

	nested := filepath.Join(root, "sub")
	if err := os.Mkdir(nested, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	// Give the watcher a beat to register the new directory.
	time.Sleep(100 * time.Millisecond)
	drainEvents(events)

	if err := os.WriteFile(filepath.Join(nested, "inner.txt"), []byte("x"), 0600); err != nil {
		t.Fatalf("write nested file: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-events:
			if event.RelPath == "sub/inner.txt" {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for nested file event")
		}
	}
}

func TestWatcherStopFlushesPendingWindow(t *testing.T) {
	root := t.TempDir()
	instance, events := startTestWatcher(t, root, nil, 10*time.Second)

	if err := os.WriteFile(filepath.Join(root, "pending.txt"), []byte("x"), 0600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	// Let the event reach the debouncer before stopping.
	time.Sleep(200 * time.Millisecond)

	instance.Stop()

	event, ok := waitForEvent(events)
	if !ok {
		t.Fatal("expected pending event to flush at shutdown")
	}
	if event.RelPath != "pending.txt" {
		t.Fatalf("unexpected flushed event %q", event.RelPath)
	}
	if instance.State() != StateStopped {
		t.Fatalf("expected stopped state, got %s", instance.State())
	}
}

func TestWatcherReleasesWatchOnDirectoryDelete(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	events := make(chan Event, 16)
	instance, err := New(Options{
		Root:       root,
		Debounce:   20 * time.Millisecond,
		MaxWatches: 2,
		Registry:   &metrics.Registry{},
		OnEvent: func(event Event) {
			select {
			case events <- event:
			default:
			}
		},
	})
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	if err := instance.Start(); err != nil {
		t.Fatalf("start watcher: %v", err)
	}
	t.Cleanup(instance.Stop)

	if instance.ActiveWatches() != 2 {
		t.Fatalf("expected 2 active watches, got %d", instance.ActiveWatches())
	}

	if err := os.RemoveAll(sub); err != nil {
		t.Fatalf("remove dir: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for instance.ActiveWatches() != 1 {
		select {
		case <-deadline:
			t.Fatalf("watch slot never released, active=%d", instance.ActiveWatches())
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}

	// The freed slot must be usable for a replacement directory.
	next := filepath.Join(root, "next")
	if err := os.Mkdir(next, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(next, "inner.txt"), []byte("x"), 0600); err != nil {
		t.Fatalf("write nested file: %v", err)
	}

	waitDeadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-events:
			if event.RelPath == "next/inner.txt" {
				return
			}
		case <-waitDeadline:
			t.Fatal("file inside replacement directory never observed")
		}
	}
}

func TestWatcherRejectsMissingRoot(t *testing.T) {
	_, err := New(Options{Root: filepath.Join(t.TempDir(), "absent")})
	if err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestWatcherRejectsFileRoot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.txt")
	if err := os.WriteFile(path, []byte("x"), 0600); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := New(Options{Root: path}); err == nil {
		t.Fatal("expected error for non-directory root")
	}
}

func TestWatcherStartTwiceFails(t *testing.T) {
	instance, _ := startTestWatcher(t, t.TempDir(), nil, 20*time.Millisecond)
	if err := instance.Start(); err == nil {
		t.Fatal("expected second start to fail")
	}
}

func drainEvents(events chan Event) {
	for {
		select {
		case <-events:
		default:
			return
		}
	}
}
