package watcher

import (
	"time"

	"vigil/internal/filter"
	"vigil/internal/logging"
	"vigil/internal/metrics"
)

// Kind classifies a filesystem change after normalization.
type Kind string

const (
	KindCreated  Kind = "create"
	KindModified Kind = "modify"
	KindDeleted  Kind = "delete"
)

// Label returns the human-facing name used in event lines.
func (kind Kind) Label() string {
	switch kind {
	case KindCreated:
		return "Created"
	case KindModified:
		return "Modified"
	case KindDeleted:
		return "Deleted"
	default:
		return string(kind)
	}
}

// Event is a normalized, filtered filesystem change.
type Event struct {
	Kind      Kind      `json:"kind"`
	Path      string    `json:"path"`
	RelPath   string    `json:"rel_path"`
	Timestamp time.Time `json:"timestamp"`
}

// Type satisfies the event bus typed-event contract.
func (event Event) Type() string {
	return string(event.Kind)
}

// State tracks the watcher lifecycle.
type State int32

const (
	StateIdle State = iota
	StateWatching
	StateShuttingDown
	StateStopped
)

func (state State) String() string {
	switch state {
	case StateIdle:
		return "idle"
	case StateWatching:
		return "watching"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Options controls watcher behavior.
type Options struct {
	Root       string
	Filter     *filter.PatternFilter
	Debounce   time.Duration
	MaxWatches int
	Logger     *logging.Logger
	Registry   *metrics.Registry

	// OnEvent receives every debounced event that passed the filter.
	OnEvent func(Event)
	// OnError receives unrecoverable stream errors.
	OnError func(error)
}
