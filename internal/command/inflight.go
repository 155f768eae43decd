package command

import (
	"sort"
	"sync"
	"time"
)

// Execution describes one running command.
type Execution struct {
	ID        string    `json:"id"`
	Command   string    `json:"command"`
	Path      string    `json:"path"`
	StartedAt time.Time `json:"started_at"`
}

// Tracker keeps the set of in-flight executions for the status endpoint
// and the shutdown drain log. It never cancels anything.
type Tracker struct {
	mu         sync.Mutex
	executions map[string]Execution
}

func NewTracker() *Tracker {
	return &Tracker{
		executions: make(map[string]Execution),
	}
}

func (tracker *Tracker) Add(execution Execution) {
	if tracker == nil {
		return
	}
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	tracker.executions[execution.ID] = execution
}

func (tracker *Tracker) Remove(id string) {
	if tracker == nil {
		return
	}
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	delete(tracker.executions, id)
}

func (tracker *Tracker) Count() int {
	if tracker == nil {
		return 0
	}
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	return len(tracker.executions)
}

// Snapshot returns the running executions ordered by start time.
func (tracker *Tracker) Snapshot() []Execution {
	if tracker == nil {
		return nil
	}
	tracker.mu.Lock()
	executions := make([]Execution, 0, len(tracker.executions))
	for _, execution := range tracker.executions {
		executions = append(executions, execution)
	}
	tracker.mu.Unlock()

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].StartedAt.Before(executions[j].StartedAt)
	})
	return executions
}
