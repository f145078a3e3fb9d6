package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/ogzhnbygl/vivolearn/model"
	"github.com/ogzhnbygl/vivolearn/services"
	"github.com/ogzhnbygl/vivolearn/utils/middleware"
	"github.com/ogzhnbygl/vivolearn/utils/response"
	"github.com/ogzhnbygl/vivolearn/utils/validation"
)

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	identity             *services.IdentityService
	validator            *validation.Validator
	bruteForceProtection *middleware.BruteForceProtection
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(identity *services.IdentityService, bruteForceProtection *middleware.BruteForceProtection) *AuthHandler {
	return &AuthHandler{
		identity:             identity,
		validator:            validation.NewValidator(),
		bruteForceProtection: bruteForceProtection,
	}
}

// RegisterRequest represents a registration request. New profiles are
// always students; roles are assigned by an admin.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"full_name" validate:"required,min=2,max=255"`
}

// ProfileResponse represents profile data in responses
type ProfileResponse struct {
	ID        uint       `json:"id"`
	Email     string     `json:"email"`
	FullName  string     `json:"full_name"`
	AvatarURL string     `json:"avatar_url,omitempty"`
	Role      model.Role `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// SessionResponse represents a successful sign-in
type SessionResponse struct {
	Profile      ProfileResponse `json:"profile"`
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	ExpiresIn    int             `json:"expires_in"` // in seconds
}

func toProfileResponse(p *model.Profile) ProfileResponse {
	return ProfileResponse{
		ID:        p.ID,
		Email:     p.Email,
		FullName:  p.FullName,
		AvatarURL: p.AvatarURL,
		Role:      p.Role,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func toSessionResponse(s *services.Session) SessionResponse {
	return SessionResponse{
		Profile:      toProfileResponse(s.Profile),
		AccessToken:  s.Tokens.AccessToken,
		RefreshToken: s.Tokens.RefreshToken,
		ExpiresIn:    int(time.Until(s.Tokens.ExpiresAt).Seconds()),
	}
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	if ok, problems := validation.ValidatePassword(req.Password); !ok {
		return response.Error(c, fiber.StatusUnprocessableEntity, problems[0], "VALIDATION_ERROR")
	}

	session, err := h.identity.Register(c.UserContext(), services.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: validation.SanitizeString(req.FullName),
	})
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.Created(c, toSessionResponse(session))
}
