// Package notify broadcasts view-refresh events so cached dashboards can be
// invalidated by path. Publishing is advisory: a broker failure is logged and
// never fails the originating request.
package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// Channel names events are published on.
const (
	ChannelViewRefresh = "leavedesk.view-refresh"
)

// View paths dependent caches key on.
const (
	PathDashboard   = "/dashboard"
	PathRequests    = "/dashboard/requests"
	PathTeam        = "/dashboard/team"
	PathAllRequests = "/dashboard/all-requests"
	PathUsers       = "/dashboard/users"
)

// Event describes a change that invalidates one or more views.
type Event struct {
	// Kind names the change, e.g. "leave_request.created".
	Kind string `json:"kind"`
	// Paths lists the views that must refresh.
	Paths []string `json:"paths"`
	// ActorID is the user who made the change.
	ActorID int `json:"actor_id"`
	// EntityID is the affected request or user id.
	EntityID int `json:"entity_id"`
	// OccurredAt is when the change happened.
	OccurredAt time.Time `json:"occurred_at"`
}

// Handler processes an event. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, event Event) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler func(ctx context.Context, data []byte, attrs map[string]string) error) error
	Close() error
}

// Events publishes view-refresh events to a backend. A nil *Events is valid
// and publishes nothing, so callers need no configuration checks.
type Events struct {
	backend Backend
}

// New constructs an Events publisher for the provided backend.
func New(backend Backend) *Events {
	return &Events{backend: backend}
}

// Publish sends the event, best-effort. Errors are logged, not returned.
func (e *Events) Publish(ctx context.Context, event Event) {
	if e == nil || e.backend == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("notify: marshal event %s: %v", event.Kind, err)
		return
	}

	attrs := map[string]string{"kind": event.Kind}
	if _, err := e.backend.Publish(ctx, ChannelViewRefresh, data, attrs); err != nil {
		log.Printf("notify: publish event %s: %v", event.Kind, err)
	}
}

// Subscribe consumes view-refresh events, decoding them before handing off.
func (e *Events) Subscribe(ctx context.Context, handler Handler) error {
	return e.backend.Subscribe(ctx, ChannelViewRefresh, func(ctx context.Context, data []byte, attrs map[string]string) error {
		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			log.Printf("notify: drop undecodable event: %v", err)
			return nil
		}
		return handler(ctx, event)
	})
}

// Close closes the underlying backend.
func (e *Events) Close() error {
	if e == nil || e.backend == nil {
		return nil
	}
	return e.backend.Close()
}
