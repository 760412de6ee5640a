package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/yuiyeong/bzero-api-sub001/internal/core/services"
	"github.com/yuiyeong/bzero-api-sub001/internal/pkg/response"
)

// DashboardHandler handles admin dashboard endpoints
type DashboardHandler struct {
	dashboardService *services.DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
	}
}

// GetAdminDashboard returns admin dashboard data
// @Summary Admin Dashboard
// @Description Tickets, stays, occupancy and recent task failures (Admin only)
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /admin/dashboard [get]
func (h *DashboardHandler) GetAdminDashboard(c *fiber.Ctx) error {
	data, err := h.dashboardService.GetAdminDashboard(c.Context())
	if err != nil {
		return response.InternalServerError(c, "Failed to get admin dashboard")
	}

	return response.Success(c, "Admin dashboard retrieved successfully", data)
}

// ListTaskFailures returns dead-lettered background tasks
// @Summary Task failures
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Max rows (default 20, max 100)"
// @Success 200 {object} response.Response
// @Router /admin/task-failures [get]
func (h *DashboardHandler) ListTaskFailures(c *fiber.Ctx) error {
	failures, err := h.dashboardService.RecentFailures(c.Context(), c.QueryInt("limit", 20))
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, "Task failures retrieved successfully", fiber.Map{
		"failures": failures,
	})
}

// ReconcileUser checks a user's balance against the ledger
// @Summary Reconcile balance
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/users/{id}/reconcile [get]
func (h *DashboardHandler) ReconcileUser(c *fiber.Ctx) error {
	result, err := h.dashboardService.ReconcileUser(c.Context(), c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, "Balance reconciled", result)
}
