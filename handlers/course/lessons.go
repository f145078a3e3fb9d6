package course

import (
	"github.com/gofiber/fiber/v2"
	"github.com/ogzhnbygl/vivolearn/model"
	"github.com/ogzhnbygl/vivolearn/services"
	"github.com/ogzhnbygl/vivolearn/utils/middleware"
	"github.com/ogzhnbygl/vivolearn/utils/query"
	"github.com/ogzhnbygl/vivolearn/utils/response"
	"github.com/ogzhnbygl/vivolearn/utils/validation"
)

// CreateLessonRequest represents the request body for creating a lesson
type CreateLessonRequest struct {
	SectionID   uint   `json:"section_id" validate:"required"`
	Title       string `json:"title" validate:"required,min=1,max=255"`
	VideoURL    string `json:"video_url" validate:"required,max=2048"`
	Content     string `json:"content" validate:"omitempty,max=50000"`
	OrderIndex  *int   `json:"order_index" validate:"omitempty,min=0"`
	IsPublished bool   `json:"is_published"`
}

// UpdateLessonRequest represents the request body for updating a lesson
type UpdateLessonRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=255"`
	Content     *string `json:"content" validate:"omitempty,max=50000"`
	VideoURL    *string `json:"video_url" validate:"omitempty,max=2048"`
	IsPublished *bool   `json:"is_published"`
	OrderIndex  *int    `json:"order_index" validate:"omitempty,min=0"`
	SectionID   *uint   `json:"section_id" validate:"omitempty,min=1"`
}

// MoveLessonRequest represents a cross-section lesson move
type MoveLessonRequest struct {
	LessonID    uint `json:"lesson_id" validate:"required"`
	ToSectionID uint `json:"to_section_id" validate:"required"`
	ToPosition  int  `json:"to_position" validate:"min=0"`
}

// LessonViewResponse is a lesson together with the run it is watched in.
// Run is omitted when a course manager opens the lesson without run_id.
type LessonViewResponse struct {
	Lesson *model.Lesson    `json:"lesson"`
	Run    *model.CourseRun `json:"run,omitempty"`
}

// CreateLesson handles POST /api/v1/courses/:id/lessons
func (h *CourseHandler) CreateLesson(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	courseID, err := query.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	var req CreateLessonRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	lesson, err := h.curriculum.CreateLesson(c.UserContext(), caller, courseID, services.LessonInput{
		SectionID:   req.SectionID,
		Title:       validation.SanitizeString(req.Title),
		VideoURL:    req.VideoURL,
		Content:     req.Content,
		OrderIndex:  req.OrderIndex,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.Created(c, lesson)
}

// UpdateLesson handles PUT /api/v1/courses/:id/lessons/:lessonId
func (h *CourseHandler) UpdateLesson(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	courseID, err := query.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}
	lessonID, err := query.ParamID(c, "lessonId")
	if err != nil {
		return response.BadRequest(c, "Invalid lesson ID")
	}

	var req UpdateLessonRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	lesson, err := h.curriculum.UpdateLesson(c.UserContext(), caller, courseID, lessonID, services.UpdateLessonInput{
		Title:       req.Title,
		Content:     req.Content,
		VideoURL:    req.VideoURL,
		IsPublished: req.IsPublished,
		OrderIndex:  req.OrderIndex,
		SectionID:   req.SectionID,
	})
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.SuccessWithMessage(c, "Lesson updated successfully", lesson)
}

// DeleteLesson handles DELETE /api/v1/courses/:id/lessons/:lessonId
func (h *CourseHandler) DeleteLesson(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	courseID, err := query.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}
	lessonID, err := query.ParamID(c, "lessonId")
	if err != nil {
		return response.BadRequest(c, "Invalid lesson ID")
	}

	if err := h.curriculum.DeleteLesson(c.UserContext(), caller, courseID, lessonID); err != nil {
		return response.ServiceError(c, err)
	}

	return response.SuccessWithMessage(c, "Lesson deleted successfully", nil)
}

// ReorderLessons handles PUT /api/v1/courses/:id/sections/:sectionId/lessons/order
func (h *CourseHandler) ReorderLessons(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	courseID, err := query.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}
	sectionID, err := query.ParamID(c, "sectionId")
	if err != nil {
		return response.BadRequest(c, "Invalid section ID")
	}

	var req ReorderRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	if err := h.curriculum.ReorderLessons(c.UserContext(), caller, courseID, sectionID, req.toItems()); err != nil {
		return response.ServiceError(c, err)
	}

	return response.SuccessWithMessage(c, "Lessons reordered", nil)
}

// MoveLesson handles POST /api/v1/courses/:id/lessons/move
func (h *CourseHandler) MoveLesson(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	courseID, err := query.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	var req MoveLessonRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	lesson, err := h.curriculum.MoveLesson(c.UserContext(), caller, courseID, services.MoveLessonInput{
		LessonID:    req.LessonID,
		ToSectionID: req.ToSectionID,
		ToPosition:  req.ToPosition,
	})
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.SuccessWithMessage(c, "Lesson moved", lesson)
}

// GetLesson handles GET /api/v1/lessons/:id?run_id=
// Students need an approved enrollment on the run and an open access window.
func (h *CourseHandler) GetLesson(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	lessonID, err := query.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid lesson ID")
	}
	runID, err := query.OptionalUint(c, "run_id")
	if err != nil {
		return response.BadRequest(c, "Invalid run_id")
	}

	lesson, err := h.curriculum.GetLesson(c.UserContext(), lessonID)
	if err != nil {
		return response.ServiceError(c, err)
	}

	run, err := h.enrollments.AuthorizeLessonView(c.UserContext(), caller, lesson, runID)
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.Success(c, LessonViewResponse{Lesson: lesson, Run: run})
}
