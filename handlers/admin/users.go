package admin

import (
	"github.com/gofiber/fiber/v2"
	"github.com/ogzhnbygl/vivolearn/model"
	"github.com/ogzhnbygl/vivolearn/services"
	"github.com/ogzhnbygl/vivolearn/utils/middleware"
	"github.com/ogzhnbygl/vivolearn/utils/query"
	"github.com/ogzhnbygl/vivolearn/utils/response"
	"github.com/ogzhnbygl/vivolearn/utils/validation"
)

// AdminHandler serves the admin-only endpoints
type AdminHandler struct {
	identity  *services.IdentityService
	audit     *services.AuditService
	validator *validation.Validator
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(identity *services.IdentityService, audit *services.AuditService) *AdminHandler {
	return &AdminHandler{
		identity:  identity,
		audit:     audit,
		validator: validation.NewValidator(),
	}
}

// UpdateRoleRequest represents the request body for changing a profile's role
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=student instructor admin"`
}

// ListUsers retrieves profiles with pagination and filters
// GET /admin/users
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)
	page := query.Pagination(c, 20, 100)

	profiles, total, err := h.identity.ListProfiles(c.UserContext(), caller, services.ProfileQuery{
		Role:   model.Role(c.Query("role")),
		Search: c.Query("search"),
		Page:   page.Page,
		Limit:  page.Limit,
	})
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.Paginated(c, profiles, response.CalculatePagination(page.Page, page.Limit, total))
}

// UpdateUserRole assigns a new role to a profile
// PUT /admin/users/:id/role
func (h *AdminHandler) UpdateUserRole(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	profileID, err := query.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid user ID")
	}

	var req UpdateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	profile, err := h.identity.UpdateRole(c.UserContext(), caller, profileID, model.Role(req.Role))
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.SuccessWithMessage(c, "Role updated successfully", profile)
}
