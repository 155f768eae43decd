package watcher

import (
	"testing"
	"time"
)

func TestDebouncerCoalescesEvents(t *testing.T) {
	debouncer := newDebouncer(25 * time.Millisecond)
	defer debouncer.stop()

	received := make(chan Event, 2)
	flush := func(path string, gen uint64) {
		if event, ok := debouncer.pop(path, gen); ok {
			received <- event
		}
	}

	coalesced := debouncer.schedule("path", Event{Path: "path", Kind: KindCreated}, flush)
	if coalesced {
		t.Fatalf("expected first event not to be coalesced")
	}
	coalesced = debouncer.schedule("path", Event{Path: "path", Kind: KindModified}, flush)
	if !coalesced {
		t.Fatalf("expected second event to be coalesced")
	}

	count := 0
	var last Event
	deadline := time.After(200 * time.Millisecond)
	for {
		select {
		case event := <-received:
			count++
			last = event
		case <-deadline:
			if count != 1 {
				t.Fatalf("expected 1 flush, got %d", count)
			}
			if last.Kind != KindModified {
				t.Fatalf("expected last kind to win, got %s", last.Kind)
			}
			return
		}
	}
}

func TestDebouncerKeepsPathsIndependent(t *testing.T) {
	debouncer := newDebouncer(25 * time.Millisecond)
	defer debouncer.stop()

	received := make(chan string, 4)
	flush := func(path string, gen uint64) {
		if _, ok := debouncer.pop(path, gen); ok {
			received <- path
		}
	}

	debouncer.schedule("a", Event{Path: "a"}, flush)
	debouncer.schedule("b", Event{Path: "b"}, flush)

	seen := map[string]bool{}
	deadline := time.After(500 * time.Millisecond)
	for len(seen) < 2 {
		select {
		case path := <-received:
			seen[path] = true
		case <-deadline:
			t.Fatalf("expected flushes for both paths, got %v", seen)
		}
	}
}

func TestDebouncerCreateThenDeleteEmitsDelete(t *testing.T) {
	debouncer := newDebouncer(25 * time.Millisecond)
	defer debouncer.stop()

	received := make(chan Event, 1)
	flush := func(path string, gen uint64) {
		if event, ok := debouncer.pop(path, gen); ok {
			received <- event
		}
	}

	debouncer.schedule("f", Event{Path: "f", Kind: KindCreated}, flush)
	debouncer.schedule("f", Event{Path: "f", Kind: KindDeleted}, flush)

	select {
	case event := <-received:
		if event.Kind != KindDeleted {
			t.Fatalf("expected delete to win the window, got %s", event.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for flush")
	}
}

func TestDebouncerStaleFlushPopsNothing(t *testing.T) {
	debouncer := newDebouncer(time.Hour)
	defer debouncer.stop()

	flush := func(string, uint64) {}
	debouncer.schedule("p", Event{Path: "p", Kind: KindCreated}, flush)
	debouncer.schedule("p", Event{Path: "p", Kind: KindModified}, flush)

	// A fire from the first window arrives after the reschedule; it must
	// not drain the replacement early.
	if _, ok := debouncer.pop("p", 1); ok {
		t.Fatal("stale generation popped the pending event")
	}
	event, ok := debouncer.pop("p", 2)
	if !ok || event.Kind != KindModified {
		t.Fatalf("current generation should pop the last event, got %+v ok=%v", event, ok)
	}
}

func TestDebouncerDrainReturnsPending(t *testing.T) {
	debouncer := newDebouncer(time.Hour)
	defer debouncer.stop()

	flush := func(string, uint64) {}
	debouncer.schedule("a", Event{Path: "a", Kind: KindCreated}, flush)
	debouncer.schedule("b", Event{Path: "b", Kind: KindModified}, flush)

	pending := debouncer.drain()
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending events, got %d", len(pending))
	}
	if more := debouncer.drain(); len(more) != 0 {
		t.Fatalf("expected drain to empty the map, got %d", len(more))
	}
}
