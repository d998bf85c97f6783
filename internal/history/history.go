// Package history defines an optional sink for process lifecycle events.
// Sinks are observational only: the supervisor's registry stays in-memory and
// is never reconstructed from a sink.
package history

import (
	"context"
	"time"
)

type EventType string

const (
	EventStart   EventType = "start"
	EventStop    EventType = "stop"
	EventExit    EventType = "exit"
	EventCleanup EventType = "cleanup"
)

// Event is one lifecycle observation for a tracked process.
type Event struct {
	Type       EventType
	OccurredAt time.Time
	ProcessID  string
	PID        int
	Command    string
	ExitCode   *int
}

// Sink receives lifecycle events. Implementations must tolerate concurrent
// Send calls; errors are logged by the caller, never propagated to clients.
type Sink interface {
	Send(ctx context.Context, e Event) error
	Close() error
}
