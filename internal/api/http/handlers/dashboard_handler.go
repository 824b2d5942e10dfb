package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/civicfix/civicfix-server/internal/api/dto"
	"github.com/civicfix/civicfix-server/internal/service"
)

// DashboardHandler serves per-role summary counters.
type DashboardHandler struct {
	stats *service.StatsService
}

// NewDashboardHandler constructs handler.
func NewDashboardHandler(stats *service.StatsService) *DashboardHandler {
	return &DashboardHandler{stats: stats}
}

// Admin GET /api/dashboard/admin.
func (h *DashboardHandler) Admin(c *fiber.Ctx) error {
	d, err := h.stats.AdminDashboard(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAdminDashboardResponse(d)})
}

// Citizen GET /api/dashboard/citizen.
func (h *DashboardHandler) Citizen(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	d, err := h.stats.CitizenDashboard(c.UserContext(), p.Email())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewScopedDashboardResponse(d)})
}

// Staff GET /api/dashboard/staff.
func (h *DashboardHandler) Staff(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	d, err := h.stats.StaffDashboard(c.UserContext(), p.Email())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewScopedDashboardResponse(d)})
}
