package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/pothole-dashboard/internal/api/dto"
	"github.com/spec-kit/pothole-dashboard/internal/dashboard"
	"github.com/spec-kit/pothole-dashboard/internal/domain"
	apperrors "github.com/spec-kit/pothole-dashboard/pkg/util"
)

// TicketsHandler serves the canonical ticket list and status transitions.
type TicketsHandler struct {
	dashboard *dashboard.Dashboard
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(d *dashboard.Dashboard) *TicketsHandler {
	return &TicketsHandler{dashboard: d}
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	tickets := h.dashboard.Tickets()
	items := make([]dto.TicketSummary, 0, len(tickets))
	for _, t := range tickets {
		items = append(items, dto.FromTicket(t))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateStatus PATCH /tickets/:id/status.
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status != domain.TicketStatusActive && req.Status != domain.TicketStatusComplete {
		return apperrors.NewValidationError("status must be ACTIVE or COMPLETE", nil)
	}

	if err := h.dashboard.UpdateStatus(c.Context(), c.Params("id"), req.Status); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"id":     c.Params("id"),
		"status": req.Status,
	}})
}
