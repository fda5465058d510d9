package poller

import (
	"context"
	"time"
)

// Phase is the lifecycle position of a poll controller.
type Phase int

const (
	// Idle means no poll has resolved yet.
	Idle Phase = iota
	// Loading means a poll is in flight.
	Loading
	// Ready means the last applied poll succeeded.
	Ready
	// Failed means the last applied poll failed. Data still holds the
	// last good snapshot, if any.
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is a copy of a controller's state. Data points at an immutable
// snapshot that is replaced, never mutated, by later polls.
type State[T any] struct {
	Name        string
	Phase       Phase
	Enabled     bool
	Active      bool
	Data        *T
	Error       string
	Loading     bool
	LastUpdated time.Time
	LastAttempt time.Time
	Polls       int
	Failures    int
}

// Status is the type-erased form of State used by Group and subscribers.
type Status struct {
	Name        string
	Phase       Phase
	Enabled     bool
	Active      bool
	Loading     bool
	Error       string
	LastUpdated time.Time
	LastAttempt time.Time
	Polls       int
	Failures    int
	// Data is the *T snapshot, nil until the first success.
	Data any
}

// HasData reports whether a good snapshot has ever been applied.
func (s Status) HasData() bool { return s.Data != nil }

// Event is published after every applied poll result.
type Event struct {
	Status
	// Previous is the outcome of the poll applied before this one: Idle,
	// Ready or Failed.
	Previous Phase
}

// Recovered reports a Failed to Ready transition.
func (e Event) Recovered() bool { return e.Previous == Failed && e.Phase == Ready }

// WentDown reports a transition into Failed from Idle or Ready.
func (e Event) WentDown() bool { return e.Phase == Failed && e.Previous != Failed }

// Member is the lifecycle surface Group drives. Every Controller is a Member.
type Member interface {
	Name() string
	Start(ctx context.Context)
	Stop()
	Refresh()
	Status() Status
	Subscribe() <-chan Event
}
