package history

import (
	"context"
	"time"
)

// EventType defines the kind of lifecycle event.
type EventType string

const (
	EventStart   EventType = "start"
	EventStop    EventType = "stop"
	EventRestart EventType = "restart"
	EventCleanup EventType = "cleanup"
)

// Event is one lifecycle event of a supervised process, appended to the
// audit trail. ProcessID is the repository id, not the OS pid.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	ProcessID  int64     `json:"process_id"`
	Name       string    `json:"name"`
	PID        int       `json:"pid"`
	Detail     string    `json:"detail,omitempty"`
}

// Sink is a destination for history events. Implementations must be safe
// for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
	Close() error
}
