package session

import (
	"context"
	"sync"

	"github.com/Sternrassler/review-harvester/pkg/pagination"
)

// State of a run.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// EventKind tags an Event.
type EventKind string

const (
	EventProgress EventKind = "progress"
	EventDone     EventKind = "done"
	EventFailed   EventKind = "error"
)

// Event is delivered on Handle.Events.
type Event struct {
	Kind     EventKind
	Progress pagination.Progress
	Result   *Result
	Err      error
	Message  string
}

// Handle observes one asynchronous run.
type Handle struct {
	ID string

	events chan Event
	done   chan struct{}

	mu    sync.Mutex
	state State
	final Event
}

// newHandle sizes the event buffer so the pagination loop never blocks on a
// consumer: at most maxPages progress events plus one terminal event.
func newHandle(id string, maxPages int) *Handle {
	return &Handle{
		ID:     id,
		events: make(chan Event, maxPages+2),
		done:   make(chan struct{}),
		state:  StateIdle,
	}
}

// Events streams progress events followed by one done or error event, then
// is closed.
func (h *Handle) Events() <-chan Event {
	return h.events
}

// Done is closed once the run reached a terminal state.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// State returns the current run state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Wait blocks until the run finishes or ctx is done. It does not consume
// Events.
func (h *Handle) Wait(ctx context.Context) (Result, error) {
	select {
	case <-h.done:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.final.Kind == EventFailed {
		var res Result
		if h.final.Result != nil {
			res = *h.final.Result
		}
		return res, h.final.Err
	}
	return *h.final.Result, nil
}

func (h *Handle) setState(s State) {
	h.mu.Lock()
	h.state = s
	h.mu.Unlock()
}

func (h *Handle) emitProgress(p pagination.Progress) {
	h.events <- Event{Kind: EventProgress, Progress: p}
}

func (h *Handle) finish(ev Event) {
	h.mu.Lock()
	h.final = ev
	if ev.Kind == EventFailed {
		h.state = StateFailed
	} else {
		h.state = StateCompleted
	}
	h.mu.Unlock()

	h.events <- ev
	close(h.events)
	close(h.done)
}
