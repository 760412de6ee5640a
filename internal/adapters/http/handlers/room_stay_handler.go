package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/http/middleware"
	"github.com/yuiyeong/bzero-api-sub001/internal/core/services"
	"github.com/yuiyeong/bzero-api-sub001/internal/pkg/response"
)

// RoomStayHandler handles stay and room endpoints
type RoomStayHandler struct {
	stayService *services.RoomStayService
}

// NewRoomStayHandler creates a new room stay handler
func NewRoomStayHandler(stayService *services.RoomStayService) *RoomStayHandler {
	return &RoomStayHandler{stayService: stayService}
}

// RoomMember is the public view of a roommate
type RoomMember struct {
	UserID     string    `json:"user_id"`
	RoomStayID string    `json:"room_stay_id"`
	CheckInAt  time.Time `json:"check_in_at"`
}

// Current returns the caller's active stay
// @Summary Current stay
// @Tags RoomStays
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /room-stays/current [get]
func (h *RoomStayHandler) Current(c *fiber.Ctx) error {
	stay, err := h.stayService.Current(c.Context(), middleware.UserID(c))
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, "Room stay retrieved successfully", fiber.Map{
		"room_stay": stay,
	})
}

// Extend extends the caller's stay by one period
// @Summary Extend stay
// @Tags RoomStays
// @Produce json
// @Security BearerAuth
// @Param id path string true "Room stay ID"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /room-stays/{id}/extend [post]
func (h *RoomStayHandler) Extend(c *fiber.Ctx) error {
	stay, err := h.stayService.Extend(c.Context(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, "Room stay extended", fiber.Map{
		"room_stay": stay,
	})
}

// CheckOut checks the caller out early
// @Summary Check out
// @Tags RoomStays
// @Produce json
// @Security BearerAuth
// @Param id path string true "Room stay ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /room-stays/{id}/check-out [post]
func (h *RoomStayHandler) CheckOut(c *fiber.Ctx) error {
	stay, err := h.stayService.CheckOutByUser(c.Context(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, "Checked out", fiber.Map{
		"room_stay": stay,
	})
}

// RoomMembers lists the people staying in the caller's room
// @Summary Room members
// @Tags Rooms
// @Produce json
// @Security BearerAuth
// @Param id path string true "Room ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /rooms/{id}/members [get]
func (h *RoomStayHandler) RoomMembers(c *fiber.Ctx) error {
	stays, err := h.stayService.RoomMembers(c.Context(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}

	members := make([]RoomMember, 0, len(stays))
	for _, s := range stays {
		members = append(members, RoomMember{
			UserID:     s.UserID,
			RoomStayID: s.ID,
			CheckInAt:  s.CheckInAt,
		})
	}

	return response.Success(c, "Room members retrieved successfully", fiber.Map{
		"room_id": c.Params("id"),
		"members": members,
	})
}
