// Package routeview owns the single current route visual for one map
// instance: which route is drawn, whether a calculation is in flight, and
// the teardown rules that keep overlapping calculations from both
// committing.
package routeview

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/pothole-dashboard/internal/domain"
	"github.com/spec-kit/pothole-dashboard/internal/geo"
	"github.com/spec-kit/pothole-dashboard/internal/observability"
)

// State is the lifecycle phase of the route visual.
type State string

const (
	StateIdle        State = "idle"
	StateCalculating State = "calculating"
	StateRendered    State = "rendered"
)

// Fetcher resolves an ordered point list into a route. Implementations must
// honor ctx cancellation and must always return a usable result for
// non-empty input (routing.Client satisfies this via its fallback).
type Fetcher interface {
	Fetch(ctx context.Context, points []domain.Point, mode geo.OrderMode) domain.RouteResult
}

// Snapshot is the externally visible route state.
type Snapshot struct {
	State       State               `json:"state"`
	Calculating bool                `json:"calculating"`
	Route       *domain.RouteResult `json:"route,omitempty"`
	Bounds      *domain.Bounds      `json:"bounds,omitempty"`
}

// Lifecycle manages the current route for one dashboard instance. Every
// retrigger invalidates the in-flight token, so only the most recently
// triggered calculation may commit; stale completions are discarded.
type Lifecycle struct {
	fetcher Fetcher
	timeout time.Duration
	logger  *zap.Logger
	metrics *observability.Metrics

	mu        sync.Mutex
	state     State
	mode      geo.OrderMode
	token     uint64
	lastStops []domain.Point
	current   *domain.RouteResult
	closed    bool
}

// New constructs an idle lifecycle. timeout is the wall-clock ceiling for
// one calculation.
func New(fetcher Fetcher, mode geo.OrderMode, timeout time.Duration, logger *zap.Logger, metrics *observability.Metrics) *Lifecycle {
	return &Lifecycle{
		fetcher: fetcher,
		timeout: timeout,
		logger:  logger,
		metrics: metrics,
		state:   StateIdle,
		mode:    mode,
	}
}

// SetStops replaces the active stop set and retriggers the route. The
// previous visual is torn down before anything else happens; fewer than two
// stops leaves the lifecycle idle with no route.
func (l *Lifecycle) SetStops(stops []domain.Point) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastStops = append([]domain.Point(nil), stops...)
	l.retriggerLocked()
}

// SetMode switches the ordering policy and recalculates against the current
// stop set.
func (l *Lifecycle) SetMode(mode geo.OrderMode) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.mode == mode {
		return
	}
	l.mode = mode
	l.retriggerLocked()
}

// Mode returns the active ordering policy.
func (l *Lifecycle) Mode() geo.OrderMode {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mode
}

// Calculating reports whether a calculation is in flight, for the loading
// overlay.
func (l *Lifecycle) Calculating() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == StateCalculating
}

// Current returns the snapshot of the route visual.
func (l *Lifecycle) Current() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	snap := Snapshot{State: l.state, Calculating: l.state == StateCalculating}
	if l.current != nil {
		route := *l.current
		snap.Route = &route
		if b, ok := route.Line.Bounds(); ok {
			snap.Bounds = &b
		}
	}
	return snap
}

// Close tears the visual down and discards any in-flight calculation. Safe
// to call more than once.
func (l *Lifecycle) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.token++
	l.teardownLocked()
}

// retriggerLocked tears down the current visual, then starts a fresh
// calculation when the stop set is large enough. Caller holds l.mu.
func (l *Lifecycle) retriggerLocked() {
	l.token++
	l.teardownLocked()
	if l.closed || len(l.lastStops) < 2 {
		return
	}

	tok := l.token
	l.state = StateCalculating
	stops := append([]domain.Point(nil), l.lastStops...)
	mode := l.mode

	go l.calculate(tok, stops, mode)
}

func (l *Lifecycle) calculate(tok uint64, stops []domain.Point, mode geo.OrderMode) {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	ordered := geo.Order(stops, mode)
	result := l.fetcher.Fetch(ctx, ordered, mode)

	// A ctx error means the ceiling expired mid-flight; whatever the
	// fetcher produced after that is an abandoned result, not a route.
	timedOut := ctx.Err() != nil

	l.mu.Lock()
	defer l.mu.Unlock()

	if tok != l.token || l.closed {
		l.metrics.RecordRouteCalculation("superseded")
		return
	}
	if timedOut {
		l.state = StateIdle
		l.current = nil
		l.metrics.RecordRouteCalculation("timeout")
		l.logger.Warn("route calculation timed out", zap.Duration("timeout", l.timeout))
		return
	}

	l.current = &result
	l.state = StateRendered
	if result.Provenance == domain.ProvenanceFallback {
		l.metrics.RecordRouteCalculation("fallback")
	} else {
		l.metrics.RecordRouteCalculation("rendered")
	}
}

// teardownLocked removes the current visual and clears the loading state.
// Caller holds l.mu.
func (l *Lifecycle) teardownLocked() {
	l.current = nil
	l.state = StateIdle
}
