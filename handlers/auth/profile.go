package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/ogzhnbygl/vivolearn/services"
	"github.com/ogzhnbygl/vivolearn/utils/middleware"
	"github.com/ogzhnbygl/vivolearn/utils/response"
	"github.com/ogzhnbygl/vivolearn/utils/validation"
)

// UpdateProfileRequest represents the editable profile fields
type UpdateProfileRequest struct {
	FullName  *string `json:"full_name" validate:"omitempty,min=2,max=255"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url,max=2048"`
}

// GetProfile handles GET /api/v1/auth/profile
func (h *AuthHandler) GetProfile(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	profile, err := h.identity.GetProfile(c.UserContext(), caller)
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.Success(c, toProfileResponse(profile))
}

// UpdateProfile handles PUT /api/v1/auth/profile
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	if req.FullName != nil {
		name := validation.SanitizeString(*req.FullName)
		req.FullName = &name
	}

	profile, err := h.identity.UpdateProfile(c.UserContext(), caller, services.UpdateProfileInput{
		FullName:  req.FullName,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.SuccessWithMessage(c, "Profile updated successfully", toProfileResponse(profile))
}
