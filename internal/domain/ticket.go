package domain

import (
	"sort"
	"time"
)

// TicketStatus enumerates lifecycle states for repair tickets.
type TicketStatus string

const (
	TicketStatusActive   TicketStatus = "ACTIVE"
	TicketStatusComplete TicketStatus = "COMPLETE"
)

// Severity enumerates pothole severity grades.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Rank maps a severity grade to a comparable weight; higher is more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// PotholeReport holds the detection metadata embedded in a ticket.
// Latitude and longitude are signed degrees; rendering assumes they fall
// within [-90,90] and [-180,180].
type PotholeReport struct {
	Latitude      float64
	Longitude     float64
	Severity      Severity
	ImageURL      *string
	Description   *string
	SeverityScore *float64
}

// Ticket is one reported pothole with a repair-status lifecycle.
// Tickets are created by the external detection pipeline; this service only
// transitions their status.
type Ticket struct {
	ID        string
	Status    TicketStatus
	CreatedAt time.Time
	UpdatedAt time.Time
	Report    PotholeReport
}

// Active reports whether the ticket should be shown and routed on the map.
func (t Ticket) Active() bool {
	return t.Status != TicketStatusComplete
}

// OrderActive filters tickets down to the active set and sorts it by
// severity descending, ties broken by creation time descending (newest
// first). The sort is stable with respect to the input order.
func OrderActive(tickets []Ticket) []Ticket {
	active := make([]Ticket, 0, len(tickets))
	for _, t := range tickets {
		if t.Active() {
			active = append(active, t)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		ri, rj := active[i].Report.Severity.Rank(), active[j].Report.Severity.Rank()
		if ri != rj {
			return ri > rj
		}
		return active[i].CreatedAt.After(active[j].CreatedAt)
	})
	return active
}
