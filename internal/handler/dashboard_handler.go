package handler

import (
	"crm-web/internal/service"
	"crm-web/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type DashboardHandler struct {
	dashboardService *service.DashboardService
}

func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

func (h *DashboardHandler) FinOps(c *fiber.Ctx) error {
	return utils.SuccessResponse(c, "FinOps summary retrieved successfully", h.dashboardService.FinOps())
}

func (h *DashboardHandler) Activity(c *fiber.Ctx) error {
	return utils.SuccessResponse(c, "Activity summary retrieved successfully", h.dashboardService.Activity())
}

func (h *DashboardHandler) Refresh(c *fiber.Ctx) error {
	h.dashboardService.Refresh(c.UserContext())
	return utils.SuccessResponse(c, "Dashboards refreshed", fiber.Map{
		"finops":   h.dashboardService.FinOps(),
		"activity": h.dashboardService.Activity(),
	})
}
