package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/http/middleware"
	"github.com/yuiyeong/bzero-api-sub001/internal/adapters/persistence/repositories"
	"github.com/yuiyeong/bzero-api-sub001/internal/core/domain"
	"github.com/yuiyeong/bzero-api-sub001/internal/core/services"
	"github.com/yuiyeong/bzero-api-sub001/internal/pkg/pagination"
	"github.com/yuiyeong/bzero-api-sub001/internal/pkg/response"
)

// UserHandler handles traveller profile and point history endpoints
type UserHandler struct {
	userService   *services.UserService
	ledgerService *services.PointLedgerService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService, ledgerService *services.PointLedgerService) *UserHandler {
	return &UserHandler{
		userService:   userService,
		ledgerService: ledgerService,
	}
}

// Register creates the caller's account
// @Summary Register
// @Description Create the user behind the token and grant the sign-up bonus. Idempotent.
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.RegisterInput false "Nickname (defaults to the token's nickname claim)"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Router /users [post]
func (h *UserHandler) Register(c *fiber.Ctx) error {
	var input services.RegisterInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}
	if input.Nickname == "" {
		input.Nickname = middleware.Nickname(c)
	}

	user, err := h.userService.Register(c.Context(), middleware.UserID(c), input.Nickname)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Created(c, "User registered", fiber.Map{
		"user": user,
	})
}

// Me returns the caller's profile and balance
// @Summary Current user
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/me [get]
func (h *UserHandler) Me(c *fiber.Ctx) error {
	user, err := h.userService.Me(c.Context(), middleware.UserID(c))
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, "User retrieved successfully", fiber.Map{
		"user": user,
	})
}

// UpdateMe changes the caller's nickname
// @Summary Update profile
// @Tags Users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.UpdateUserInput true "New nickname"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /users/me [patch]
func (h *UserHandler) UpdateMe(c *fiber.Ctx) error {
	var input services.UpdateUserInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.userService.UpdateNickname(c.Context(), middleware.UserID(c), &input)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, "User updated successfully", fiber.Map{
		"user": user,
	})
}

// Transactions lists the caller's point ledger
// @Summary Point history
// @Tags Points
// @Produce json
// @Security BearerAuth
// @Param type query string false "EARN or SPEND"
// @Param reason query string false "Transaction reason"
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /points/transactions [get]
func (h *UserHandler) Transactions(c *fiber.Ctx) error {
	var filter repositories.TransactionFilter
	if t := c.Query("type"); t != "" {
		typ := domain.TransactionType(t)
		if typ != domain.TransactionEarn && typ != domain.TransactionSpend {
			return response.BadRequest(c, "Invalid transaction type")
		}
		filter.Type = &typ
	}
	if r := c.Query("reason"); r != "" {
		reason := domain.TransactionReason(r)
		filter.Reason = &reason
	}

	params := pagination.GetParams(c)
	txs, total, err := h.ledgerService.History(c.Context(), middleware.UserID(c), filter, params.Offset, params.Limit)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, "Transactions retrieved successfully", pagination.NewResponse(txs, params, total))
}
