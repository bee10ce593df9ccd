package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/pothole-dashboard/internal/domain"
	"github.com/spec-kit/pothole-dashboard/internal/feed"
	"github.com/spec-kit/pothole-dashboard/internal/geo"
	"github.com/spec-kit/pothole-dashboard/internal/observability"
	"github.com/spec-kit/pothole-dashboard/internal/routeview"
)

type fakeStore struct {
	mu            sync.Mutex
	tickets       []domain.Ticket
	updateErr     error
	statusUpdates map[string]domain.TicketStatus
}

func (s *fakeStore) ListWithReports(ctx context.Context) ([]domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Ticket(nil), s.tickets...), nil
}

func (s *fakeStore) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	if s.statusUpdates == nil {
		s.statusUpdates = map[string]domain.TicketStatus{}
	}
	s.statusUpdates[id] = status
	return nil
}

func (s *fakeStore) set(tickets []domain.Ticket) {
	s.mu.Lock()
	s.tickets = tickets
	s.mu.Unlock()
}

type fakeFeed struct {
	mu      sync.Mutex
	handler feed.Handler
	status  feed.StatusHandler
	closes  int
}

type fakeSubscription struct{ feed *fakeFeed }

func (s *fakeSubscription) Close() error {
	s.feed.mu.Lock()
	defer s.feed.mu.Unlock()
	s.feed.closes++
	return nil
}

func (f *fakeFeed) Subscribe(ctx context.Context, handler feed.Handler, status feed.StatusHandler) (feed.Subscription, error) {
	f.mu.Lock()
	f.handler = handler
	f.status = status
	f.mu.Unlock()
	status(feed.StatusSubscribed, nil)
	return &fakeSubscription{feed: f}, nil
}

func (f *fakeFeed) emit(event feed.Event) {
	f.mu.Lock()
	handler := f.handler
	f.mu.Unlock()
	handler(event)
}

// gateFetcher returns the input points as a service route, optionally
// holding each fetch until released.
type gateFetcher struct {
	gate chan struct{}
}

func (f *gateFetcher) Fetch(ctx context.Context, points []domain.Point, mode geo.OrderMode) domain.RouteResult {
	if f.gate != nil {
		<-f.gate
	}
	return domain.RouteResult{
		Line:       append(domain.Polyline(nil), points...),
		Style:      domain.StyleSeverity,
		Provenance: domain.ProvenanceService,
	}
}

func activeTicket(severity domain.Severity, lat, lon float64) domain.Ticket {
	return domain.Ticket{
		ID:        uuid.NewString(),
		Status:    domain.TicketStatusActive,
		CreatedAt: time.Now(),
		Report:    domain.PotholeReport{Latitude: lat, Longitude: lon, Severity: severity},
	}
}

func newTestDashboard(store *fakeStore, changeFeed *fakeFeed, fetcher routeview.Fetcher) *Dashboard {
	logger := zap.NewNop()
	lifecycle := routeview.New(fetcher, geo.OrderPreserve, time.Second, logger, observability.NewMetrics())
	return New(Dependencies{Store: store, Feed: changeFeed, Route: lifecycle, Logger: logger})
}

func waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}

func TestNoActiveTicketsNoRouteNoLoading(t *testing.T) {
	store := &fakeStore{}
	board := newTestDashboard(store, &fakeFeed{}, &gateFetcher{})
	if err := board.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer board.Close()

	snap := board.Route()
	if snap.State != routeview.StateIdle || snap.Calculating || snap.Route != nil {
		t.Fatalf("route snapshot = %+v, want idle with no route and no loading", snap)
	}
}

func TestSingleActiveTicketBelowRouteThreshold(t *testing.T) {
	store := &fakeStore{tickets: []domain.Ticket{activeTicket(domain.SeverityHigh, 10.5, 106.6)}}
	board := newTestDashboard(store, &fakeFeed{}, &gateFetcher{})
	if err := board.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer board.Close()

	if got := board.Tickets(); len(got) != 1 {
		t.Fatalf("ticket list has %d entries, want 1", len(got))
	}
	snap := board.Route()
	if snap.Route != nil || snap.Calculating {
		t.Fatalf("route snapshot = %+v, want none below the 2-stop threshold", snap)
	}
}

func TestTwoActiveTicketsRenderOneRoute(t *testing.T) {
	store := &fakeStore{tickets: []domain.Ticket{
		activeTicket(domain.SeverityHigh, 10.5, 106.6),
		activeTicket(domain.SeverityLow, 10.6, 106.7),
	}}
	fetcher := &gateFetcher{gate: make(chan struct{})}
	board := newTestDashboard(store, &fakeFeed{}, fetcher)
	if err := board.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer board.Close()

	if !board.Route().Calculating {
		t.Fatal("loading indicator off during calculation, want on")
	}

	close(fetcher.gate)
	waitFor(t, "route to render", func() bool { return board.Route().State == routeview.StateRendered })

	snap := board.Route()
	if snap.Calculating {
		t.Fatal("loading indicator still on after render")
	}
	if snap.Route == nil || len(snap.Route.Line) < 2 {
		t.Fatalf("rendered route = %+v, want a polyline with 2+ vertices", snap.Route)
	}
	if snap.Route.Provenance != domain.ProvenanceService {
		t.Errorf("provenance = %q, want service", snap.Route.Provenance)
	}
	// severity-first ordering puts the HIGH ticket at the route start
	if snap.Route.Line[0].Lat != 10.5 {
		t.Errorf("route starts at lat %v, want the HIGH ticket's 10.5", snap.Route.Line[0].Lat)
	}
}

func TestInsertEventGrowsListAndRetriggersRoute(t *testing.T) {
	store := &fakeStore{tickets: []domain.Ticket{activeTicket(domain.SeverityHigh, 10.5, 106.6)}}
	changeFeed := &fakeFeed{}
	board := newTestDashboard(store, changeFeed, &gateFetcher{})
	if err := board.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer board.Close()

	if board.Route().Route != nil {
		t.Fatal("route present with a single ticket")
	}

	store.set([]domain.Ticket{
		activeTicket(domain.SeverityHigh, 10.5, 106.6),
		activeTicket(domain.SeverityMedium, 10.7, 106.8),
	})
	changeFeed.emit(feed.Event{Type: feed.EventInsert, New: &feed.Record{ID: "new"}})

	waitFor(t, "route after insert", func() bool { return board.Route().State == routeview.StateRendered })
	if got := board.Tickets(); len(got) != 2 {
		t.Fatalf("ticket list has %d entries after insert, want 2", len(got))
	}
}

func TestDeleteEventShrinksListAndTearsDownRoute(t *testing.T) {
	a := activeTicket(domain.SeverityHigh, 10.5, 106.6)
	b := activeTicket(domain.SeverityLow, 10.6, 106.7)
	store := &fakeStore{tickets: []domain.Ticket{a, b}}
	changeFeed := &fakeFeed{}
	board := newTestDashboard(store, changeFeed, &gateFetcher{})
	if err := board.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer board.Close()

	waitFor(t, "initial route", func() bool { return board.Route().State == routeview.StateRendered })

	changeFeed.emit(feed.Event{Type: feed.EventDelete, Old: &feed.Record{ID: b.ID}})

	if got := board.Tickets(); len(got) != 1 || got[0].ID != a.ID {
		t.Fatalf("ticket list = %v, want only %s", got, a.ID)
	}
	snap := board.Route()
	if snap.State != routeview.StateIdle || snap.Route != nil {
		t.Fatalf("route snapshot after delete = %+v, want torn down", snap)
	}
}

func TestUpdateStatusDelegatesToStore(t *testing.T) {
	store := &fakeStore{}
	board := newTestDashboard(store, &fakeFeed{}, &gateFetcher{})

	if err := board.UpdateStatus(context.Background(), "t-1", domain.TicketStatusComplete); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if store.statusUpdates["t-1"] != domain.TicketStatusComplete {
		t.Fatalf("store updates = %v, want t-1 -> COMPLETE", store.statusUpdates)
	}
}

func TestUpdateStatusFailureDoesNotTouchLocalState(t *testing.T) {
	ticket := activeTicket(domain.SeverityHigh, 10.5, 106.6)
	store := &fakeStore{tickets: []domain.Ticket{ticket}, updateErr: errors.New("write refused")}
	board := newTestDashboard(store, &fakeFeed{}, &gateFetcher{})
	if err := board.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer board.Close()

	if err := board.UpdateStatus(context.Background(), ticket.ID, domain.TicketStatusComplete); err == nil {
		t.Fatal("UpdateStatus succeeded, want error")
	}
	if got := board.Tickets(); got[0].Status != domain.TicketStatusActive {
		t.Fatalf("local status = %q, want unchanged ACTIVE", got[0].Status)
	}
}

func TestCloseUnsubscribesExactlyOnce(t *testing.T) {
	changeFeed := &fakeFeed{}
	board := newTestDashboard(&fakeStore{}, changeFeed, &gateFetcher{})
	if err := board.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	board.Close()
	board.Close()

	changeFeed.mu.Lock()
	defer changeFeed.mu.Unlock()
	if changeFeed.closes != 1 {
		t.Fatalf("subscription closed %d times, want exactly 1", changeFeed.closes)
	}
}

func TestEventBeforeInitialLoadIsHandled(t *testing.T) {
	// Subscription setup and initial load may interleave; an event landing
	// on an empty canonical list must still reconcile via re-fetch.
	store := &fakeStore{tickets: []domain.Ticket{activeTicket(domain.SeverityHigh, 10.5, 106.6)}}
	changeFeed := &fakeFeed{}
	board := newTestDashboard(store, changeFeed, &gateFetcher{})
	if err := board.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer board.Close()

	changeFeed.emit(feed.Event{Type: feed.EventUpdate, New: &feed.Record{ID: "x"}})

	if got := board.Tickets(); len(got) != 1 {
		t.Fatalf("ticket list has %d entries, want 1", len(got))
	}
}
