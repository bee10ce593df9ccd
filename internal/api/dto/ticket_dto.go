package dto

import (
	"time"

	"github.com/spec-kit/pothole-dashboard/internal/domain"
)

// TicketSummary response.
type TicketSummary struct {
	ID            string              `json:"id"`
	Status        domain.TicketStatus `json:"status"`
	Latitude      float64             `json:"latitude"`
	Longitude     float64             `json:"longitude"`
	Severity      domain.Severity     `json:"severity"`
	ImageURL      *string             `json:"image_url,omitempty"`
	Description   *string             `json:"description,omitempty"`
	SeverityScore *float64            `json:"severity_score,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// FromTicket maps a domain ticket to its response form.
func FromTicket(t domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:            t.ID,
		Status:        t.Status,
		Latitude:      t.Report.Latitude,
		Longitude:     t.Report.Longitude,
		Severity:      t.Report.Severity,
		ImageURL:      t.Report.ImageURL,
		Description:   t.Report.Description,
		SeverityScore: t.Report.SeverityScore,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// SetOrderModeRequest payload.
type SetOrderModeRequest struct {
	Mode string `json:"mode"`
}
