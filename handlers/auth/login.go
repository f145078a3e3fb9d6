package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/ogzhnbygl/vivolearn/services"
	"github.com/ogzhnbygl/vivolearn/utils/response"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	ip := c.IP()

	session, err := h.identity.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if services.KindOf(err) == services.KindAuth {
			h.bruteForceProtection.RecordFailedAttempt(c, ip, req.Email)
			return response.Unauthorized(c, "Invalid email or password")
		}
		return response.ServiceError(c, err)
	}

	// Clear failed attempts on successful login
	h.bruteForceProtection.RecordSuccessfulAttempt(c, ip)

	return response.Success(c, toSessionResponse(session))
}
