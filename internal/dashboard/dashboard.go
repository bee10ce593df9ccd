// Package dashboard wires one dashboard instance: the ticket sync
// controller, the change-feed subscription, and the route lifecycle.
package dashboard

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/pothole-dashboard/internal/domain"
	"github.com/spec-kit/pothole-dashboard/internal/feed"
	"github.com/spec-kit/pothole-dashboard/internal/geo"
	"github.com/spec-kit/pothole-dashboard/internal/routeview"
	"github.com/spec-kit/pothole-dashboard/internal/syncer"
)

// TicketStore is the remote ticket surface the dashboard needs: full reads
// and status transitions.
type TicketStore interface {
	ListWithReports(ctx context.Context) ([]domain.Ticket, error)
	UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error
}

// Dependencies bundles collaborators for a dashboard instance. All are
// injected; the dashboard owns no global handles.
type Dependencies struct {
	Store  TicketStore
	Feed   feed.Feed
	Route  *routeview.Lifecycle
	Logger *zap.Logger
}

// Dashboard is one mounted dashboard instance. Start attaches it to the
// store and feed; Close detaches exactly once.
type Dashboard struct {
	store  TicketStore
	feed   feed.Feed
	route  *routeview.Lifecycle
	syncer *syncer.Controller
	logger *zap.Logger

	sub       feed.Subscription
	closeOnce sync.Once
}

// New constructs a dashboard and wires the sync controller to retrigger the
// route whenever the canonical list changes.
func New(deps Dependencies) *Dashboard {
	d := &Dashboard{
		store:  deps.Store,
		feed:   deps.Feed,
		route:  deps.Route,
		logger: deps.Logger,
		syncer: syncer.New(deps.Store, deps.Logger),
	}
	d.syncer.SetListener(d.refreshRoute)
	return d
}

// Start performs the initial load and establishes the feed subscription.
// The two may interleave with event delivery; an event arriving before the
// initial load completes is handled correctly because the re-fetch is
// idempotent. A failed initial load does not prevent the subscription: the
// first INSERT/UPDATE event will repopulate the list.
func (d *Dashboard) Start(ctx context.Context) error {
	if err := d.syncer.InitialLoad(ctx); err != nil {
		d.logger.Error("initial ticket load failed", zap.Error(err))
	}

	sub, err := d.feed.Subscribe(ctx, d.onEvent, d.onStatus)
	if err != nil {
		return err
	}
	d.sub = sub
	return nil
}

// Close tears down the subscription and the route visual. Idempotent.
func (d *Dashboard) Close() {
	d.closeOnce.Do(func() {
		if d.sub != nil {
			if err := d.sub.Close(); err != nil {
				d.logger.Warn("feed unsubscribe failed", zap.Error(err))
			}
		}
		d.route.Close()
	})
}

func (d *Dashboard) onEvent(event feed.Event) {
	d.syncer.OnChangeEvent(context.Background(), event)
}

func (d *Dashboard) onStatus(status feed.Status, err error) {
	switch status {
	case feed.StatusSubscribed:
		d.logger.Info("change feed subscribed")
	default:
		d.logger.Warn("change feed status", zap.String("status", string(status)), zap.Error(err))
	}
}

// refreshRoute recomputes the active stop set and hands it to the route
// lifecycle.
func (d *Dashboard) refreshRoute() {
	active := d.syncer.ActiveSorted()
	stops := make([]domain.Point, 0, len(active))
	for _, t := range active {
		stops = append(stops, domain.Point{Lat: t.Report.Latitude, Lon: t.Report.Longitude})
	}
	d.route.SetStops(stops)
}

// Tickets returns the canonical ticket list, newest first.
func (d *Dashboard) Tickets() []domain.Ticket {
	return d.syncer.Tickets()
}

// Route returns the current route snapshot.
func (d *Dashboard) Route() routeview.Snapshot {
	return d.route.Current()
}

// SetOrderMode switches the stop-ordering policy and recalculates.
func (d *Dashboard) SetOrderMode(mode geo.OrderMode) {
	d.route.SetMode(mode)
}

// UpdateStatus transitions a ticket's status remotely. The local list is
// not touched here; the resulting change event drives the re-fetch, so the
// view never reflects an update the store rejected.
func (d *Dashboard) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error {
	if err := d.store.UpdateStatus(ctx, id, status); err != nil {
		d.logger.Error("ticket status update failed",
			zap.String("ticket_id", id), zap.String("status", string(status)), zap.Error(err))
		return err
	}
	return nil
}
