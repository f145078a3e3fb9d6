package enrollment

import (
	"github.com/gofiber/fiber/v2"
	"github.com/ogzhnbygl/vivolearn/model"
	"github.com/ogzhnbygl/vivolearn/services"
	"github.com/ogzhnbygl/vivolearn/utils/middleware"
	"github.com/ogzhnbygl/vivolearn/utils/query"
	"github.com/ogzhnbygl/vivolearn/utils/response"
	"github.com/ogzhnbygl/vivolearn/utils/validation"
)

// EnrollmentHandler handles applications and decisions
type EnrollmentHandler struct {
	enrollments *services.EnrollmentService
	validator   *validation.Validator
}

// NewEnrollmentHandler creates a new enrollment handler
func NewEnrollmentHandler(enrollments *services.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{
		enrollments: enrollments,
		validator:   validation.NewValidator(),
	}
}

// ApplyRequest represents an application to a course run
type ApplyRequest struct {
	ReceiptNo string `json:"receipt_no" validate:"required,max=255"`
	Note      string `json:"note" validate:"omitempty,max=2000"`
}

// DecisionRequest represents an instructor's decision on an application
type DecisionRequest struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
}

// Apply handles POST /api/v1/courses/:id/runs/:runId/apply
func (h *EnrollmentHandler) Apply(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	courseID, err := query.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}
	runID, err := query.ParamID(c, "runId")
	if err != nil {
		return response.BadRequest(c, "Invalid run ID")
	}

	var req ApplyRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	enrollment, err := h.enrollments.Apply(c.UserContext(), caller, services.ApplyInput{
		CourseID:    courseID,
		CourseRunID: runID,
		ReceiptNo:   validation.SanitizeString(req.ReceiptNo),
		Note:        req.Note,
	})
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.SuccessWithMessage(c, "Application received", enrollment)
}

// ListMine handles GET /api/v1/enrollments/me
func (h *EnrollmentHandler) ListMine(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	enrollments, err := h.enrollments.ListForStudent(c.UserContext(), caller)
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.Success(c, enrollments)
}

// ListPending handles GET /api/v1/enrollments/pending
func (h *EnrollmentHandler) ListPending(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	enrollments, err := h.enrollments.ListPending(c.UserContext(), caller)
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.Success(c, enrollments)
}

// Decide handles PUT /api/v1/enrollments/:id/decision
func (h *EnrollmentHandler) Decide(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	enrollmentID, err := query.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid enrollment ID")
	}

	var req DecisionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	enrollment, err := h.enrollments.Decide(c.UserContext(), caller, services.DecideInput{
		EnrollmentID: enrollmentID,
		Status:       model.EnrollmentStatus(req.Status),
	})
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.SuccessWithMessage(c, "Decision recorded", enrollment)
}
