package ports

import (
	"context"
	"time"
)

// EventResolution is the outcome of looking up one event at the venue: a
// tagged sum type with either no winner yet (Resolved=false) or a winning
// bracket name.
type EventResolution struct {
	Resolved bool
	Winner   string
}

// Resolver wraps the venue's event-discovery and resolution endpoints used
// by the resolution engine (C11) to find the winning bracket for an event.
type Resolver interface {
	// ResolveEvent tries each deterministic slug pattern for (city, eventDay)
	// until one returns an event, then extracts the winning outcome. Returns
	// EventResolution{Resolved: false} when no event is found yet or none of
	// its outcomes have settled.
	ResolveEvent(ctx context.Context, city string, eventDay time.Time) (EventResolution, error)
}
