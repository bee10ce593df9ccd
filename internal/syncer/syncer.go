// Package syncer keeps the canonical in-memory ticket list consistent with
// the remote store and its change feed.
package syncer

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/pothole-dashboard/internal/domain"
	"github.com/spec-kit/pothole-dashboard/internal/feed"
)

// TicketSource provides the full current ticket list, newest first.
type TicketSource interface {
	ListWithReports(ctx context.Context) ([]domain.Ticket, error)
}

// Controller owns the canonical ordered ticket list. Inserts and updates on
// the feed trigger a full re-fetch-and-replace; redundant reads are cheaper
// than patch bugs at this ticket volume. Deletes are applied in place
// without a re-fetch. Concurrent re-fetches are allowed and the last to
// resolve wins, which under rapid bursts may apply results out of arrival
// order; an accepted weak-consistency tradeoff.
type Controller struct {
	source   TicketSource
	logger   *zap.Logger
	onChange func()

	mu      sync.RWMutex
	tickets []domain.Ticket
}

// New constructs a controller with an empty canonical list.
func New(source TicketSource, logger *zap.Logger) *Controller {
	return &Controller{source: source, logger: logger}
}

// SetListener registers a callback invoked after every canonical-list
// change. Must be set before events start flowing.
func (c *Controller) SetListener(fn func()) {
	c.onChange = fn
}

// InitialLoad replaces the canonical list wholesale with the current remote
// state. On failure the list is left unchanged (stale but consistent).
func (c *Controller) InitialLoad(ctx context.Context) error {
	return c.refresh(ctx)
}

// OnChangeEvent reconciles the canonical list against one feed event.
func (c *Controller) OnChangeEvent(ctx context.Context, event feed.Event) {
	switch event.Type {
	case feed.EventInsert, feed.EventUpdate:
		if err := c.refresh(ctx); err != nil {
			c.logger.Error("ticket refresh after change event failed",
				zap.String("event", string(event.Type)), zap.Error(err))
		}
	case feed.EventDelete:
		if event.Old == nil || event.Old.ID == "" {
			c.logger.Warn("delete event without old record id, ignoring")
			return
		}
		c.remove(event.Old.ID)
	}
}

func (c *Controller) refresh(ctx context.Context) error {
	tickets, err := c.source.ListWithReports(ctx)
	if err != nil {
		c.logger.Error("ticket load failed, keeping current list", zap.Error(err))
		return err
	}

	c.mu.Lock()
	c.tickets = tickets
	c.mu.Unlock()

	c.notify()
	return nil
}

func (c *Controller) remove(id string) {
	c.mu.Lock()
	kept := c.tickets[:0]
	removed := false
	for _, t := range c.tickets {
		if t.ID == id {
			removed = true
			continue
		}
		kept = append(kept, t)
	}
	c.tickets = kept
	c.mu.Unlock()

	if removed {
		c.notify()
	}
}

func (c *Controller) notify() {
	if c.onChange != nil {
		c.onChange()
	}
}

// Tickets returns a copy of the canonical list.
func (c *Controller) Tickets() []domain.Ticket {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]domain.Ticket(nil), c.tickets...)
}

// ActiveSorted returns the active tickets ordered by severity descending,
// newest first within a severity.
func (c *Controller) ActiveSorted() []domain.Ticket {
	return domain.OrderActive(c.Tickets())
}
