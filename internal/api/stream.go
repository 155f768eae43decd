package api

import (
	"time"

	"vigil/internal/command"
	"vigil/internal/watcher"
)

// StreamEvent is the wire shape on the /api/events feed. Exactly one of
// Event and Result is set.
type StreamEvent struct {
	Kind      string           `json:"kind"`
	Event     *watcher.Event   `json:"event,omitempty"`
	Result    *command.Result  `json:"result,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

const (
	StreamKindEvent   = "event"
	StreamKindCommand = "command"
)

// Type satisfies the event bus typed-event contract.
func (event StreamEvent) Type() string {
	return event.Kind
}

func EventStreamEvent(event watcher.Event) StreamEvent {
	return StreamEvent{
		Kind:      StreamKindEvent,
		Event:     &event,
		Timestamp: time.Now().UTC(),
	}
}

func ResultStreamEvent(result command.Result) StreamEvent {
	return StreamEvent{
		Kind:      StreamKindCommand,
		Result:    &result,
		Timestamp: time.Now().UTC(),
	}
}
