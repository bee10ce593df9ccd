// Package routing fetches driving routes from an OSRM-compatible
// directions service and converts them to the internal polyline form.
package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/pothole-dashboard/internal/config"
	"github.com/spec-kit/pothole-dashboard/internal/domain"
	"github.com/spec-kit/pothole-dashboard/internal/geo"
)

// Client calls the external driving-directions service. A single attempt is
// made per fetch; every failure class (network, malformed body, non-Ok
// status) degrades to the straight-line fallback. The hard wall-clock
// ceiling is the caller's responsibility via ctx.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient constructs a routing client. The underlying http.Client carries
// no timeout of its own; request lifetime is bounded by the caller's
// context.
func NewClient(cfg config.RoutingConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{},
		logger:  logger,
	}
}

type osrmGeometry struct {
	Coordinates [][]float64 `json:"coordinates"`
}

type osrmRoute struct {
	Geometry osrmGeometry `json:"geometry"`
}

type osrmResponse struct {
	Code    string      `json:"code"`
	Routes  []osrmRoute `json:"routes"`
	Message string      `json:"message"`
}

// Fetch requests a driving route through the ordered points and returns the
// result. It never fails: any service error yields a straight-line polyline
// connecting the points in input order, tagged with fallback provenance.
// points must be non-empty.
func (c *Client) Fetch(ctx context.Context, points []domain.Point, mode geo.OrderMode) domain.RouteResult {
	style := styleFor(mode)

	line, err := c.fetchService(ctx, points)
	if err != nil {
		c.logger.Warn("routing service unavailable, using straight-line fallback", zap.Error(err))
		return domain.RouteResult{
			Line:       straightLine(points),
			Style:      style,
			Provenance: domain.ProvenanceFallback,
		}
	}
	return domain.RouteResult{
		Line:       line,
		Style:      style,
		Provenance: domain.ProvenanceService,
	}
}

func (c *Client) fetchService(ctx context.Context, points []domain.Point) (domain.Polyline, error) {
	url := c.baseURL + "/route/v1/driving/" + coordPath(points) + "?overview=full&geometries=geojson"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode routing response: %w", err)
	}
	if body.Code != "Ok" {
		return nil, fmt.Errorf("routing service status %q: %s", body.Code, body.Message)
	}
	if len(body.Routes) == 0 || len(body.Routes[0].Geometry.Coordinates) == 0 {
		return nil, errors.New("routing response contains no geometry")
	}

	coords := body.Routes[0].Geometry.Coordinates
	line := make(domain.Polyline, 0, len(coords))
	for _, coord := range coords {
		if len(coord) < 2 {
			return nil, errors.New("routing response contains malformed coordinate")
		}
		// geojson order is [lon, lat]
		line = append(line, domain.Point{Lat: coord[1], Lon: coord[0]})
	}
	return line, nil
}

// coordPath renders points as the semicolon-separated "lon,lat" list the
// service expects.
func coordPath(points []domain.Point) string {
	var sb strings.Builder
	for i, p := range points {
		if i > 0 {
			sb.WriteByte(';')
		}
		sb.WriteString(strconv.FormatFloat(p.Lon, 'f', -1, 64))
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatFloat(p.Lat, 'f', -1, 64))
	}
	return sb.String()
}

func straightLine(points []domain.Point) domain.Polyline {
	line := make(domain.Polyline, len(points))
	copy(line, points)
	return line
}

func styleFor(mode geo.OrderMode) domain.RouteStyle {
	if mode == geo.OrderNearestNeighbor {
		return domain.StyleShortest
	}
	return domain.StyleSeverity
}
