package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/yuiyeong/bzero-api-sub001/internal/config"
	"github.com/yuiyeong/bzero-api-sub001/internal/pkg/jwt"
	"github.com/yuiyeong/bzero-api-sub001/internal/pkg/response"
)

const (
	localUserID   = "userID"
	localNickname = "nickname"
	localRole     = "role"
)

func bearerToken(c *fiber.Ctx) string {
	// 1. Cookie
	if token := c.Cookies("access_token"); token != "" {
		return token
	}
	// 2. Authorization header
	authHeader := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

// AuthMiddleware requires a valid access token whose subject is the user uuid
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accessToken := bearerToken(c)
		if accessToken == "" {
			return response.Unauthorized(c, "Access token required")
		}

		claims, err := jwt.ValidateAccessToken(accessToken, cfg.JWT.Secret, cfg.JWT.Issuer)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return response.Unauthorized(c, "Access token expired")
			}
			return response.Unauthorized(c, "Invalid access token")
		}

		c.Locals(localUserID, claims.UserID())
		c.Locals(localNickname, claims.Nickname)
		c.Locals(localRole, claims.Role)

		return c.Next()
	}
}

// UserID returns the authenticated user id set by AuthMiddleware
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}

// Nickname returns the nickname claim, if the token carried one
func Nickname(c *fiber.Ctx) string {
	name, _ := c.Locals(localNickname).(string)
	return name
}

// RoleMiddleware creates role-based authorization middleware. It must run
// after AuthMiddleware.
func RoleMiddleware(allowedRoles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(localRole).(string)
		if !ok {
			return response.Unauthorized(c, "Unauthorized")
		}

		for _, allowedRole := range allowedRoles {
			if role == allowedRole {
				return c.Next()
			}
		}

		return response.ErrorWithCode(c, fiber.StatusForbidden, "FORBIDDEN", "You don't have permission to access this resource")
	}
}

// AdminOnly middleware allows only ADMIN role
func AdminOnly() fiber.Handler {
	return RoleMiddleware(jwt.RoleAdmin)
}
