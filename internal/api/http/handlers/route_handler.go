package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/pothole-dashboard/internal/api/dto"
	"github.com/spec-kit/pothole-dashboard/internal/dashboard"
	"github.com/spec-kit/pothole-dashboard/internal/geo"
	apperrors "github.com/spec-kit/pothole-dashboard/pkg/util"
)

// RouteHandler exposes the current route visual state.
type RouteHandler struct {
	dashboard *dashboard.Dashboard
}

// NewRouteHandler constructs handler.
func NewRouteHandler(d *dashboard.Dashboard) *RouteHandler {
	return &RouteHandler{dashboard: d}
}

// GetRoute GET /route.
func (h *RouteHandler) GetRoute(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.dashboard.Route()})
}

// SetOrderMode PUT /route/mode.
func (h *RouteHandler) SetOrderMode(c *fiber.Ctx) error {
	var req dto.SetOrderModeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	var mode geo.OrderMode
	switch req.Mode {
	case "severity":
		mode = geo.OrderPreserve
	case "shortest":
		mode = geo.OrderNearestNeighbor
	default:
		return apperrors.NewValidationError("mode must be severity or shortest", nil)
	}

	h.dashboard.SetOrderMode(mode)
	return c.JSON(fiber.Map{"data": fiber.Map{"mode": req.Mode}})
}
