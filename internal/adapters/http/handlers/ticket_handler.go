package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/http/middleware"
	"github.com/yuiyeong/bzero-api-sub001/internal/core/domain"
	"github.com/yuiyeong/bzero-api-sub001/internal/core/services"
	"github.com/yuiyeong/bzero-api-sub001/internal/pkg/pagination"
	"github.com/yuiyeong/bzero-api-sub001/internal/pkg/response"
)

// TicketHandler handles ticket endpoints
type TicketHandler struct {
	ticketService *services.TicketService
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(ticketService *services.TicketService) *TicketHandler {
	return &TicketHandler{ticketService: ticketService}
}

// Purchase buys a ticket and boards right away
// @Summary Purchase ticket
// @Tags Tickets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.PurchaseInput true "City and vehicle"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /tickets [post]
func (h *TicketHandler) Purchase(c *fiber.Ctx) error {
	var input services.PurchaseInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	ticket, err := h.ticketService.Purchase(c.Context(), middleware.UserID(c), &input)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Created(c, "Ticket purchased", fiber.Map{
		"ticket": ticket,
	})
}

// List lists the caller's tickets
// @Summary List tickets
// @Tags Tickets
// @Produce json
// @Security BearerAuth
// @Param status query string false "PURCHASED, BOARDING, COMPLETED or CANCELLED"
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /tickets [get]
func (h *TicketHandler) List(c *fiber.Ctx) error {
	var status *domain.TicketStatus
	if s := c.Query("status"); s != "" {
		st := domain.TicketStatus(s)
		switch st {
		case domain.TicketPurchased, domain.TicketBoarding, domain.TicketCompleted, domain.TicketCancelled:
			status = &st
		default:
			return response.BadRequest(c, "Invalid ticket status")
		}
	}

	params := pagination.GetParams(c)
	tickets, total, err := h.ticketService.ListByUser(c.Context(), middleware.UserID(c), status, params.Offset, params.Limit)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, "Tickets retrieved successfully", pagination.NewResponse(tickets, params, total))
}

// Boarding returns the ticket the caller is travelling on
// @Summary Current boarding ticket
// @Tags Tickets
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /tickets/boarding [get]
func (h *TicketHandler) Boarding(c *fiber.Ctx) error {
	ticket, err := h.ticketService.CurrentBoarding(c.Context(), middleware.UserID(c))
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, "Ticket retrieved successfully", fiber.Map{
		"ticket": ticket,
	})
}

// Get returns one of the caller's tickets
// @Summary Get ticket
// @Tags Tickets
// @Produce json
// @Security BearerAuth
// @Param id path string true "Ticket ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /tickets/{id} [get]
func (h *TicketHandler) Get(c *fiber.Ctx) error {
	ticket, err := h.ticketService.Get(c.Context(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, "Ticket retrieved successfully", fiber.Map{
		"ticket": ticket,
	})
}

// Cancel cancels a ticket before arrival and refunds it
// @Summary Cancel ticket
// @Tags Tickets
// @Produce json
// @Security BearerAuth
// @Param id path string true "Ticket ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /tickets/{id}/cancel [post]
func (h *TicketHandler) Cancel(c *fiber.Ctx) error {
	ticket, err := h.ticketService.Cancel(c.Context(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, "Ticket cancelled", fiber.Map{
		"ticket": ticket,
	})
}
