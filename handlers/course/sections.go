package course

import (
	"github.com/gofiber/fiber/v2"
	"github.com/ogzhnbygl/vivolearn/services"
	"github.com/ogzhnbygl/vivolearn/utils/middleware"
	"github.com/ogzhnbygl/vivolearn/utils/query"
	"github.com/ogzhnbygl/vivolearn/utils/response"
	"github.com/ogzhnbygl/vivolearn/utils/validation"
)

// CreateSectionRequest represents the request body for creating a section
type CreateSectionRequest struct {
	Title      string `json:"title" validate:"required,min=1,max=255"`
	OrderIndex *int   `json:"order_index" validate:"omitempty,min=0"`
}

// UpdateSectionRequest represents the request body for updating a section
type UpdateSectionRequest struct {
	Title      *string `json:"title" validate:"omitempty,min=1,max=255"`
	OrderIndex *int    `json:"order_index" validate:"omitempty,min=0"`
}

// OrderItemRequest places one row at a position
type OrderItemRequest struct {
	ID         uint `json:"id" validate:"required"`
	OrderIndex int  `json:"order_index" validate:"min=0"`
}

// ReorderRequest represents a full reorder of sections or lessons
type ReorderRequest struct {
	Items []OrderItemRequest `json:"items" validate:"dive"`
}

func (r ReorderRequest) toItems() []services.OrderItem {
	items := make([]services.OrderItem, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, services.OrderItem{ID: it.ID, OrderIndex: it.OrderIndex})
	}
	return items
}

// CreateSection handles POST /api/v1/courses/:id/sections
func (h *CourseHandler) CreateSection(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	courseID, err := query.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	var req CreateSectionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	section, err := h.curriculum.CreateSection(c.UserContext(), caller, courseID, services.SectionInput{
		Title:      validation.SanitizeString(req.Title),
		OrderIndex: req.OrderIndex,
	})
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.Created(c, section)
}

// UpdateSection handles PUT /api/v1/courses/:id/sections/:sectionId
func (h *CourseHandler) UpdateSection(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	courseID, err := query.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}
	sectionID, err := query.ParamID(c, "sectionId")
	if err != nil {
		return response.BadRequest(c, "Invalid section ID")
	}

	var req UpdateSectionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	section, err := h.curriculum.UpdateSection(c.UserContext(), caller, courseID, sectionID, services.UpdateSectionInput{
		Title:      req.Title,
		OrderIndex: req.OrderIndex,
	})
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.SuccessWithMessage(c, "Section updated successfully", section)
}

// DeleteSection handles DELETE /api/v1/courses/:id/sections/:sectionId
func (h *CourseHandler) DeleteSection(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	courseID, err := query.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}
	sectionID, err := query.ParamID(c, "sectionId")
	if err != nil {
		return response.BadRequest(c, "Invalid section ID")
	}

	if err := h.curriculum.DeleteSection(c.UserContext(), caller, courseID, sectionID); err != nil {
		return response.ServiceError(c, err)
	}

	return response.SuccessWithMessage(c, "Section deleted successfully", nil)
}

// ReorderSections handles PUT /api/v1/courses/:id/sections/order
func (h *CourseHandler) ReorderSections(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	courseID, err := query.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	var req ReorderRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	if err := h.curriculum.ReorderSections(c.UserContext(), caller, courseID, req.toItems()); err != nil {
		return response.ServiceError(c, err)
	}

	return response.SuccessWithMessage(c, "Sections reordered", nil)
}
