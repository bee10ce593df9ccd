package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/pothole-dashboard/internal/dashboard"
	"github.com/spec-kit/pothole-dashboard/internal/domain"
	"github.com/spec-kit/pothole-dashboard/internal/feed"
	"github.com/spec-kit/pothole-dashboard/internal/geo"
	"github.com/spec-kit/pothole-dashboard/internal/observability"
	"github.com/spec-kit/pothole-dashboard/internal/routeview"
	apperrors "github.com/spec-kit/pothole-dashboard/pkg/util"
)

type stubStore struct {
	tickets []domain.Ticket
	updated map[string]domain.TicketStatus
}

func (s *stubStore) ListWithReports(ctx context.Context) ([]domain.Ticket, error) {
	return append([]domain.Ticket(nil), s.tickets...), nil
}

func (s *stubStore) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error {
	if s.updated == nil {
		s.updated = map[string]domain.TicketStatus{}
	}
	s.updated[id] = status
	return nil
}

type stubFeed struct{}

type stubSubscription struct{}

func (stubSubscription) Close() error { return nil }

func (stubFeed) Subscribe(ctx context.Context, handler feed.Handler, status feed.StatusHandler) (feed.Subscription, error) {
	status(feed.StatusSubscribed, nil)
	return stubSubscription{}, nil
}

type stubFetcher struct{}

func (stubFetcher) Fetch(ctx context.Context, points []domain.Point, mode geo.OrderMode) domain.RouteResult {
	return domain.RouteResult{
		Line:       append(domain.Polyline(nil), points...),
		Style:      domain.StyleSeverity,
		Provenance: domain.ProvenanceService,
	}
}

func setupApp(t *testing.T, store *stubStore) (*fiber.App, *dashboard.Dashboard) {
	t.Helper()
	logger := zap.NewNop()
	lifecycle := routeview.New(stubFetcher{}, geo.OrderPreserve, time.Second, logger, observability.NewMetrics())
	board := dashboard.New(dashboard.Dependencies{
		Store:  store,
		Feed:   stubFeed{},
		Route:  lifecycle,
		Logger: logger,
	})
	if err := board.Start(context.Background()); err != nil {
		t.Fatalf("dashboard start: %v", err)
	}
	t.Cleanup(board.Close)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		err := c.Next()
		if err != nil {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{
				"code":    domainErr.Code,
				"message": domainErr.Message,
			}})
		}
		return nil
	})

	app.Get("/tickets", NewTicketsHandler(board).ListTickets)
	app.Patch("/tickets/:id/status", NewTicketsHandler(board).UpdateStatus)
	app.Get("/route", NewRouteHandler(board).GetRoute)
	app.Put("/route/mode", NewRouteHandler(board).SetOrderMode)
	return app, board
}

func activeTicket(id string, severity domain.Severity) domain.Ticket {
	return domain.Ticket{
		ID:        id,
		Status:    domain.TicketStatusActive,
		CreatedAt: time.Now(),
		Report:    domain.PotholeReport{Latitude: 10.5, Longitude: 106.6, Severity: severity},
	}
}

func TestListTicketsReturnsCanonicalList(t *testing.T) {
	store := &stubStore{tickets: []domain.Ticket{
		activeTicket("t-1", domain.SeverityHigh),
		activeTicket("t-2", domain.SeverityLow),
	}}
	app, _ := setupApp(t, store)

	req := httptest.NewRequest("GET", "/tickets", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var body struct {
		Data []struct {
			ID       string `json:"id"`
			Severity string `json:"severity"`
		} `json:"data"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Data) != 2 {
		t.Fatalf("response has %d tickets, want 2", len(body.Data))
	}
}

func TestGetRouteExposesSnapshot(t *testing.T) {
	store := &stubStore{tickets: []domain.Ticket{
		activeTicket("t-1", domain.SeverityHigh),
		activeTicket("t-2", domain.SeverityLow),
	}}
	app, board := setupApp(t, store)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && board.Route().State != routeview.StateRendered {
		time.Sleep(5 * time.Millisecond)
	}

	req := httptest.NewRequest("GET", "/route", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	var body struct {
		Data struct {
			State       string `json:"state"`
			Calculating bool   `json:"calculating"`
			Route       *struct {
				Line       []domain.Point `json:"line"`
				Provenance string         `json:"provenance"`
			} `json:"route"`
		} `json:"data"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Data.State != "rendered" || body.Data.Route == nil {
		t.Fatalf("route response = %+v, want rendered route", body.Data)
	}
	if len(body.Data.Route.Line) < 2 {
		t.Fatalf("route line has %d points, want 2+", len(body.Data.Route.Line))
	}
}

func TestUpdateStatusValidatesPayload(t *testing.T) {
	app, _ := setupApp(t, &stubStore{})

	req := httptest.NewRequest("PATCH", "/tickets/t-1/status", strings.NewReader(`{"status":"FIXED"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Fatalf("status = %d, want 400 for invalid status value", resp.StatusCode)
	}
}

func TestUpdateStatusWritesThroughStore(t *testing.T) {
	store := &stubStore{}
	app, _ := setupApp(t, store)

	req := httptest.NewRequest("PATCH", "/tickets/t-1/status", strings.NewReader(`{"status":"COMPLETE"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if store.updated["t-1"] != domain.TicketStatusComplete {
		t.Fatalf("store updates = %v, want t-1 -> COMPLETE", store.updated)
	}
}

func TestSetOrderModeRejectsUnknownMode(t *testing.T) {
	app, _ := setupApp(t, &stubStore{})

	req := httptest.NewRequest("PUT", "/route/mode", strings.NewReader(`{"mode":"scenic"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Fatalf("status = %d, want 400 for unknown mode", resp.StatusCode)
	}
}
