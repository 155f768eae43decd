package watcher

import "time"

type debounceEntry struct {
	timer *time.Timer
	event Event
	gen   uint64
}

// debouncer holds one pending event per path. Rescheduling a path replaces
// the pending event, so the last kind observed in a window wins. Entries
// carry a generation: a timer that fired just before its path was
// rescheduled flushes with a stale generation and pops nothing, so the
// replacement still gets a full quiet window.
type debouncer struct {
	duration time.Duration
	entries  map[string]debounceEntry
}

func newDebouncer(duration time.Duration) *debouncer {
	return &debouncer{
		duration: duration,
		entries:  make(map[string]debounceEntry),
	}
}

func (debouncer *debouncer) schedule(path string, event Event, flush func(path string, gen uint64)) bool {
	if debouncer == nil {
		return false
	}
	entry := debouncer.entries[path]
	coalesced := entry.timer != nil
	if entry.timer != nil {
		entry.timer.Stop()
	}
	entry.event = event
	entry.gen++
	gen := entry.gen
	entry.timer = time.AfterFunc(debouncer.duration, func() {
		flush(path, gen)
	})
	debouncer.entries[path] = entry
	return coalesced
}

func (debouncer *debouncer) pop(path string, gen uint64) (Event, bool) {
	if debouncer == nil {
		return Event{}, false
	}
	entry, ok := debouncer.entries[path]
	if !ok || entry.gen != gen {
		return Event{}, false
	}
	delete(debouncer.entries, path)
	return entry.event, true
}

// drain stops all timers and returns the pending events. Used at shutdown
// so pending windows still produce their events.
func (debouncer *debouncer) drain() []Event {
	if debouncer == nil {
		return nil
	}
	events := make([]Event, 0, len(debouncer.entries))
	for _, entry := range debouncer.entries {
		if entry.timer != nil {
			entry.timer.Stop()
		}
		events = append(events, entry.event)
	}
	debouncer.entries = make(map[string]debounceEntry)
	return events
}

func (debouncer *debouncer) stop() {
	if debouncer == nil {
		return
	}
	for _, entry := range debouncer.entries {
		if entry.timer != nil {
			entry.timer.Stop()
		}
	}
	debouncer.entries = nil
}
