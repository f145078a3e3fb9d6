package course

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/ogzhnbygl/vivolearn/services"
	"github.com/ogzhnbygl/vivolearn/utils/middleware"
	"github.com/ogzhnbygl/vivolearn/utils/query"
	"github.com/ogzhnbygl/vivolearn/utils/response"
)

// RunRequest represents the schedule of a course run. Dates are RFC 3339.
type RunRequest struct {
	Label            string     `json:"label" validate:"omitempty,max=255"`
	AccessStart      *time.Time `json:"access_start" validate:"required"`
	AccessEnd        *time.Time `json:"access_end"`
	ApplicationStart *time.Time `json:"application_start"`
	ApplicationEnd   *time.Time `json:"application_end"`
	EnrollmentLimit  *int       `json:"enrollment_limit" validate:"omitempty,min=1"`
}

func (r RunRequest) toInput() services.RunInput {
	return services.RunInput{
		Label:            r.Label,
		AccessStart:      r.AccessStart,
		AccessEnd:        r.AccessEnd,
		ApplicationStart: r.ApplicationStart,
		ApplicationEnd:   r.ApplicationEnd,
		EnrollmentLimit:  r.EnrollmentLimit,
	}
}

// ListRuns handles GET /api/v1/courses/:id/runs
func (h *CourseHandler) ListRuns(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	courseID, err := query.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	// Visibility follows the course itself
	if _, err := h.catalog.GetCourse(c.UserContext(), caller, courseID); err != nil {
		return response.ServiceError(c, err)
	}

	runs, err := h.catalog.ListRuns(c.UserContext(), courseID)
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.Success(c, runs)
}

// CreateRun handles POST /api/v1/courses/:id/runs
func (h *CourseHandler) CreateRun(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	courseID, err := query.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	var req RunRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	run, err := h.catalog.CreateRun(c.UserContext(), caller, courseID, req.toInput())
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.Created(c, run)
}

// UpdateSchedule handles PUT /api/v1/courses/:id/runs/:runId
func (h *CourseHandler) UpdateSchedule(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	courseID, err := query.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}
	runID, err := query.ParamID(c, "runId")
	if err != nil {
		return response.BadRequest(c, "Invalid run ID")
	}

	var req RunRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	run, err := h.catalog.UpdateSchedule(c.UserContext(), caller, courseID, runID, req.toInput())
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.SuccessWithMessage(c, "Schedule updated successfully", run)
}
