package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/http/middleware"
	"github.com/yuiyeong/bzero-api-sub001/internal/core/services"
	"github.com/yuiyeong/bzero-api-sub001/internal/pkg/pagination"
	"github.com/yuiyeong/bzero-api-sub001/internal/pkg/response"
)

// DiaryHandler handles diary endpoints
type DiaryHandler struct {
	rewardService *services.RewardService
}

// NewDiaryHandler creates a new diary handler
func NewDiaryHandler(rewardService *services.RewardService) *DiaryHandler {
	return &DiaryHandler{rewardService: rewardService}
}

// Write stores a diary for a stay and grants the diary reward
// @Summary Write diary
// @Tags Diaries
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.DiaryInput true "Diary"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /diaries [post]
func (h *DiaryHandler) Write(c *fiber.Ctx) error {
	var input services.DiaryInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	diary, err := h.rewardService.WriteDiary(c.Context(), middleware.UserID(c), &input)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Created(c, "Diary written", fiber.Map{
		"diary": diary,
	})
}

// List lists the caller's diaries
// @Summary List diaries
// @Tags Diaries
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /diaries [get]
func (h *DiaryHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)
	diaries, total, err := h.rewardService.ListDiaries(c.Context(), middleware.UserID(c), params.Offset, params.Limit)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, "Diaries retrieved successfully", pagination.NewResponse(diaries, params, total))
}
