package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/ogzhnbygl/vivolearn/services"
	"github.com/ogzhnbygl/vivolearn/utils/middleware"
	"github.com/ogzhnbygl/vivolearn/utils/response"
)

// RefreshRequest carries a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest optionally carries the refresh token to revoke with the session
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh handles POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	session, err := h.identity.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		if services.KindOf(err) == services.KindAuth {
			return response.Unauthorized(c, "Invalid or expired refresh token")
		}
		return response.ServiceError(c, err)
	}

	return response.Success(c, toSessionResponse(session))
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)
	claims, _ := middleware.GetClaims(c)

	var req LogoutRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.BadRequest(c, "Invalid request body")
		}
	}

	if err := h.identity.Logout(c.UserContext(), caller, claims, req.RefreshToken); err != nil {
		return response.ServiceError(c, err)
	}

	return response.SuccessWithMessage(c, "Logged out successfully", nil)
}
