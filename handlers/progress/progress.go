package progress

import (
	"github.com/gofiber/fiber/v2"
	"github.com/ogzhnbygl/vivolearn/services"
	"github.com/ogzhnbygl/vivolearn/utils/middleware"
	"github.com/ogzhnbygl/vivolearn/utils/query"
	"github.com/ogzhnbygl/vivolearn/utils/response"
	"github.com/ogzhnbygl/vivolearn/utils/validation"
)

// ProgressHandler handles lesson progress requests
type ProgressHandler struct {
	progress  *services.ProgressService
	validator *validation.Validator
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(progress *services.ProgressService) *ProgressHandler {
	return &ProgressHandler{
		progress:  progress,
		validator: validation.NewValidator(),
	}
}

// SetProgressRequest marks a lesson viewed, and optionally completed, within a run
type SetProgressRequest struct {
	LessonID    uint `json:"lesson_id" validate:"required"`
	CourseRunID uint `json:"course_run_id" validate:"required"`
	Completed   bool `json:"completed"`
}

// SetLessonProgress handles PUT /api/v1/progress
func (h *ProgressHandler) SetLessonProgress(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	var req SetProgressRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	progress, err := h.progress.SetLessonProgress(c.UserContext(), caller, services.SetProgressInput{
		LessonID:    req.LessonID,
		CourseRunID: req.CourseRunID,
		Completed:   req.Completed,
	})
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.Success(c, progress)
}

// ListRunProgress handles GET /api/v1/progress/runs/:runId
func (h *ProgressHandler) ListRunProgress(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	runID, err := query.ParamID(c, "runId")
	if err != nil {
		return response.BadRequest(c, "Invalid run ID")
	}

	rows, err := h.progress.ListRunProgress(c.UserContext(), caller, runID)
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.Success(c, rows)
}
