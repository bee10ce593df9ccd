// Package feed consumes push-based change notifications for the ticket
// table.
package feed

import (
	"context"
	"time"
)

// EventType enumerates change-feed event kinds.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Record carries the row identity attached to a change event. Only the id
// is consumed here; inserts and updates trigger a full re-fetch rather than
// patching from the event payload.
type Record struct {
	ID     string `json:"id"`
	Status string `json:"status,omitempty"`
}

// Event is one table-level change notification.
type Event struct {
	Type EventType `json:"eventType"`
	Old  *Record   `json:"old,omitempty"`
	New  *Record   `json:"new,omitempty"`
}

// Status reports subscription health. These are surfaced for observability
// only; they do not change canonical-list semantics.
type Status string

const (
	StatusSubscribed   Status = "subscribed"
	StatusChannelError Status = "channel_error"
	StatusTimedOut     Status = "timed_out"
)

// Handler receives each parsed change event.
type Handler func(Event)

// StatusHandler receives subscription status transitions. err is non-nil
// for error statuses.
type StatusHandler func(Status, error)

// Subscription is one live feed attachment. Close is idempotent.
type Subscription interface {
	Close() error
}

// Feed is a source of ticket change events.
type Feed interface {
	Subscribe(ctx context.Context, handler Handler, status StatusHandler) (Subscription, error)
}

// ReconnectPolicy controls resubscription after a channel failure. Disabled
// by default: a dropped channel stays dropped unless configured otherwise.
type ReconnectPolicy struct {
	Enabled bool
	Backoff time.Duration
}
