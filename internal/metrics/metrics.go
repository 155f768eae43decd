package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Registry aggregates pipeline and command counters for the /metrics
// endpoint and the status snapshot.
type Registry struct {
	eventsSeen        atomic.Int64
	eventsFiltered    atomic.Int64
	eventsCoalesced   atomic.Int64
	commandsStarted   atomic.Int64
	commandsCompleted atomic.Int64
	commandsFailed    atomic.Int64
	commandNanos      atomic.Int64
	emittedByKind     sync.Map
	busCounters       sync.Map
}

type busStats struct {
	published   atomic.Int64
	dropped     atomic.Int64
	subscribers atomic.Int64
}

var Default = &Registry{}

func (r *Registry) IncEventSeen() {
	if r == nil {
		return
	}
	r.eventsSeen.Add(1)
}

func (r *Registry) IncEventFiltered() {
	if r == nil {
		return
	}
	r.eventsFiltered.Add(1)
}

func (r *Registry) IncEventCoalesced() {
	if r == nil {
		return
	}
	r.eventsCoalesced.Add(1)
}

func (r *Registry) IncEventEmitted(kind string) {
	if r == nil {
		return
	}
	if strings.TrimSpace(kind) == "" {
		kind = "unknown"
	}
	counter := r.emittedCounter(kind)
	counter.Add(1)
}

func (r *Registry) IncCommandStarted() {
	if r == nil {
		return
	}
	r.commandsStarted.Add(1)
}

func (r *Registry) RecordCommandResult(duration time.Duration, err error) {
	if r == nil {
		return
	}
	r.commandNanos.Add(duration.Nanoseconds())
	if err != nil {
		r.commandsFailed.Add(1)
		return
	}
	r.commandsCompleted.Add(1)
}

func (r *Registry) IncBusPublished(bus string) {
	if r == nil {
		return
	}
	r.busStats(bus).published.Add(1)
}

func (r *Registry) IncBusDropped(bus string) {
	if r == nil {
		return
	}
	r.busStats(bus).dropped.Add(1)
}

func (r *Registry) SetBusSubscribers(bus string, count int) {
	if r == nil {
		return
	}
	r.busStats(bus).subscribers.Store(int64(count))
}

// Snapshot is the counter view embedded in the status response.
type Snapshot struct {
	EventsSeen        int64            `json:"events_seen"`
	EventsFiltered    int64            `json:"events_filtered"`
	EventsCoalesced   int64            `json:"events_coalesced"`
	EventsEmitted     map[string]int64 `json:"events_emitted"`
	CommandsStarted   int64            `json:"commands_started"`
	CommandsCompleted int64            `json:"commands_completed"`
	CommandsFailed    int64            `json:"commands_failed"`
}

func (r *Registry) Snapshot() Snapshot {
	if r == nil {
		return Snapshot{}
	}
	snapshot := Snapshot{
		EventsSeen:        r.eventsSeen.Load(),
		EventsFiltered:    r.eventsFiltered.Load(),
		EventsCoalesced:   r.eventsCoalesced.Load(),
		EventsEmitted:     make(map[string]int64),
		CommandsStarted:   r.commandsStarted.Load(),
		CommandsCompleted: r.commandsCompleted.Load(),
		CommandsFailed:    r.commandsFailed.Load(),
	}
	r.emittedByKind.Range(func(key, value interface{}) bool {
		name, ok := key.(string)
		if !ok {
			return true
		}
		counter, ok := value.(*atomic.Int64)
		if !ok {
			return true
		}
		snapshot.EventsEmitted[name] = counter.Load()
		return true
	})
	return snapshot
}

func (r *Registry) WritePrometheus(writer io.Writer) error {
	if r == nil {
		return nil
	}

	writeCounter(writer, "vigil_events_seen_total", "Raw filesystem events observed", r.eventsSeen.Load())
	writeCounter(writer, "vigil_events_filtered_total", "Events rejected by path filters", r.eventsFiltered.Load())
	writeCounter(writer, "vigil_events_coalesced_total", "Events absorbed by debounce windows", r.eventsCoalesced.Load())

	writeHelp(writer, "vigil_events_emitted_total", "Debounced events emitted by kind")
	fmt.Fprintln(writer, "# TYPE vigil_events_emitted_total counter")
	for _, kind := range r.emittedKinds() {
		counter := r.emittedCounter(kind)
		fmt.Fprintf(writer, "vigil_events_emitted_total{kind=%s} %d\n", formatLabel(kind), counter.Load())
	}

	writeCounter(writer, "vigil_commands_started_total", "Commands dispatched", r.commandsStarted.Load())
	writeCounter(writer, "vigil_commands_completed_total", "Commands finished with exit 0", r.commandsCompleted.Load())
	writeCounter(writer, "vigil_commands_failed_total", "Commands that failed to spawn or exited non-zero", r.commandsFailed.Load())

	durationSeconds := float64(r.commandNanos.Load()) / float64(time.Second)
	writeHelp(writer, "vigil_command_duration_seconds", "Total command wall time")
	fmt.Fprintln(writer, "# TYPE vigil_command_duration_seconds summary")
	fmt.Fprintf(writer, "vigil_command_duration_seconds_sum %.6f\n", durationSeconds)
	fmt.Fprintf(writer, "vigil_command_duration_seconds_count %d\n", r.commandsStarted.Load())

	writeHelp(writer, "vigil_bus_published_total", "Events published per bus")
	fmt.Fprintln(writer, "# TYPE vigil_bus_published_total counter")
	writeHelp(writer, "vigil_bus_dropped_total", "Events dropped per bus")
	fmt.Fprintln(writer, "# TYPE vigil_bus_dropped_total counter")
	for _, name := range r.busNames() {
		stats := r.busStats(name)
		label := formatLabel(name)
		fmt.Fprintf(writer, "vigil_bus_published_total{bus=%s} %d\n", label, stats.published.Load())
		fmt.Fprintf(writer, "vigil_bus_dropped_total{bus=%s} %d\n", label, stats.dropped.Load())
	}

	return nil
}

func (r *Registry) emittedCounter(kind string) *atomic.Int64 {
	value, _ := r.emittedByKind.LoadOrStore(kind, &atomic.Int64{})
	return value.(*atomic.Int64)
}

func (r *Registry) emittedKinds() []string {
	var kinds []string
	r.emittedByKind.Range(func(key, value interface{}) bool {
		if name, ok := key.(string); ok {
			kinds = append(kinds, name)
		}
		return true
	})
	sort.Strings(kinds)
	return kinds
}

func (r *Registry) busStats(name string) *busStats {
	if strings.TrimSpace(name) == "" {
		name = "unknown"
	}
	value, _ := r.busCounters.LoadOrStore(name, &busStats{})
	return value.(*busStats)
}

func (r *Registry) busNames() []string {
	var names []string
	r.busCounters.Range(func(key, value interface{}) bool {
		if name, ok := key.(string); ok {
			names = append(names, name)
		}
		return true
	})
	sort.Strings(names)
	return names
}

func writeHelp(writer io.Writer, metric, help string) {
	fmt.Fprintf(writer, "# HELP %s %s\n", metric, help)
}

func writeCounter(writer io.Writer, metric, help string, value int64) {
	writeHelp(writer, metric, help)
	fmt.Fprintf(writer, "# TYPE %s counter\n", metric)
	fmt.Fprintf(writer, "%s %d\n", metric, value)
}

func formatLabel(value string) string {
	escaped := strings.ReplaceAll(value, "\\", "\\\\")
	escaped = strings.ReplaceAll(escaped, "\"", "\\\"")
	return fmt.Sprintf("\"%s\"", escaped)
}
