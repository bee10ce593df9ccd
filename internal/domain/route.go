package domain

// Point is one geographic coordinate in signed degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Polyline is an ordered sequence of points forming a path.
type Polyline []Point

// RouteProvenance records where a route geometry came from.
type RouteProvenance string

const (
	ProvenanceService  RouteProvenance = "service"
	ProvenanceFallback RouteProvenance = "fallback"
)

// RouteStyle tags a route with the ordering policy that produced it, so the
// presentation layer can style severity-ordered and shortest-path routes
// differently.
type RouteStyle string

const (
	StyleSeverity RouteStyle = "severity"
	StyleShortest RouteStyle = "shortest"
)

// RouteResult is one computed route. At most one current RouteResult exists
// per map instance; ownership is exclusive to the route lifecycle.
type RouteResult struct {
	Line       Polyline        `json:"line"`
	Style      RouteStyle      `json:"style"`
	Provenance RouteProvenance `json:"provenance"`
}

// Bounds is an axis-aligned bounding box over a polyline, used to fit the
// map viewport to a newly rendered route.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Bounds computes the bounding box of the polyline. ok is false for an
// empty line.
func (p Polyline) Bounds() (b Bounds, ok bool) {
	if len(p) == 0 {
		return Bounds{}, false
	}
	b = Bounds{MinLat: p[0].Lat, MaxLat: p[0].Lat, MinLon: p[0].Lon, MaxLon: p[0].Lon}
	for _, pt := range p[1:] {
		if pt.Lat < b.MinLat {
			b.MinLat = pt.Lat
		}
		if pt.Lat > b.MaxLat {
			b.MaxLat = pt.Lat
		}
		if pt.Lon < b.MinLon {
			b.MinLon = pt.Lon
		}
		if pt.Lon > b.MaxLon {
			b.MaxLon = pt.Lon
		}
	}
	return b, true
}
