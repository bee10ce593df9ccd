// Package geo orders a set of geo-located stops into a visiting order for
// route construction.
package geo

import (
	"math"

	"github.com/spec-kit/pothole-dashboard/internal/domain"
)

// OrderMode selects the stop-ordering policy.
type OrderMode string

const (
	// OrderPreserve keeps the caller-supplied order (the caller has already
	// applied the severity/recency sort).
	OrderPreserve OrderMode = "preserve"
	// OrderNearestNeighbor greedily chains each stop to its nearest
	// unvisited neighbor.
	OrderNearestNeighbor OrderMode = "nearest_neighbor"
)

// Order produces a visiting order over stops. OrderPreserve returns the
// input unchanged. OrderNearestNeighbor starts at the first stop and
// repeatedly appends the unvisited stop closest to the last appended one,
// measured as Euclidean distance in raw degree space rather than geodesic
// distance. On exact distance ties the first minimum in slice order wins,
// keeping the result deterministic. O(n^2); an intentional approximation
// acceptable for tens of stops, not a TSP solver.
func Order(stops []domain.Point, mode OrderMode) []domain.Point {
	if mode != OrderNearestNeighbor || len(stops) < 2 {
		return stops
	}

	ordered := make([]domain.Point, 0, len(stops))
	visited := make([]bool, len(stops))

	ordered = append(ordered, stops[0])
	visited[0] = true

	for len(ordered) < len(stops) {
		last := ordered[len(ordered)-1]
		best := -1
		bestDist := math.MaxFloat64
		for i, p := range stops {
			if visited[i] {
				continue
			}
			if d := sqDist(last, p); d < bestDist {
				bestDist = d
				best = i
			}
		}
		ordered = append(ordered, stops[best])
		visited[best] = true
	}
	return ordered
}

// sqDist is the squared planar distance in degree space. Squaring preserves
// the ordering, so the sqrt is skipped.
func sqDist(a, b domain.Point) float64 {
	dLat := a.Lat - b.Lat
	dLon := a.Lon - b.Lon
	return dLat*dLat + dLon*dLon
}
