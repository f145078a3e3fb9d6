package quiz

import (
	"github.com/gofiber/fiber/v2"
	"github.com/ogzhnbygl/vivolearn/model"
	"github.com/ogzhnbygl/vivolearn/services"
	"github.com/ogzhnbygl/vivolearn/utils/middleware"
	"github.com/ogzhnbygl/vivolearn/utils/query"
	"github.com/ogzhnbygl/vivolearn/utils/response"
	"github.com/ogzhnbygl/vivolearn/utils/validation"
)

// QuizHandler handles quiz authoring and attempts
type QuizHandler struct {
	quizzes   *services.QuizService
	validator *validation.Validator
}

// NewQuizHandler creates a new quiz handler
func NewQuizHandler(quizzes *services.QuizService) *QuizHandler {
	return &QuizHandler{
		quizzes:   quizzes,
		validator: validation.NewValidator(),
	}
}

// CreateQuizRequest represents the request body for attaching a quiz to a lesson
type CreateQuizRequest struct {
	Title           string `json:"title" validate:"required,min=1,max=255"`
	Description     string `json:"description" validate:"omitempty,max=5000"`
	PassingScore    int    `json:"passing_score" validate:"min=0,max=100"`
	DurationSeconds *int   `json:"duration_seconds" validate:"omitempty,min=1"`
}

// CreateQuestionRequest represents the request body for adding a question
type CreateQuestionRequest struct {
	Prompt     string `json:"prompt" validate:"required,max=5000"`
	OrderIndex *int   `json:"order_index" validate:"omitempty,min=0"`
}

// CreateOptionRequest represents the request body for adding an option
type CreateOptionRequest struct {
	Text      string `json:"text" validate:"required,max=2000"`
	IsCorrect bool   `json:"is_correct"`
}

// ToggleCorrectRequest sets whether an option is correct
type ToggleCorrectRequest struct {
	IsCorrect bool `json:"is_correct"`
}

// SubmitAttemptRequest carries one chosen option per question, keyed by question ID
type SubmitAttemptRequest struct {
	CourseRunID uint                 `json:"course_run_id" validate:"required"`
	LessonID    uint                 `json:"lesson_id" validate:"required"`
	Answers     model.AttemptAnswers `json:"answers"`
}

// CreateQuiz handles POST /api/v1/lessons/:id/quiz
func (h *QuizHandler) CreateQuiz(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	lessonID, err := query.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid lesson ID")
	}

	var req CreateQuizRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	quiz, err := h.quizzes.CreateQuiz(c.UserContext(), caller, services.CreateQuizInput{
		LessonID:        lessonID,
		Title:           validation.SanitizeString(req.Title),
		Description:     req.Description,
		PassingScore:    req.PassingScore,
		DurationSeconds: req.DurationSeconds,
	})
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.Created(c, quiz)
}

// GetQuizForLesson handles GET /api/v1/lessons/:id/quiz
func (h *QuizHandler) GetQuizForLesson(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	lessonID, err := query.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid lesson ID")
	}

	view, err := h.quizzes.GetQuizForLesson(c.UserContext(), caller, lessonID)
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.Success(c, view)
}

// CreateQuestion handles POST /api/v1/quizzes/:id/questions
func (h *QuizHandler) CreateQuestion(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	quizID, err := query.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid quiz ID")
	}

	var req CreateQuestionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	question, err := h.quizzes.CreateQuestion(c.UserContext(), caller, quizID, services.QuestionInput{
		Prompt:     req.Prompt,
		OrderIndex: req.OrderIndex,
	})
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.Created(c, question)
}

// CreateOption handles POST /api/v1/questions/:id/options
func (h *QuizHandler) CreateOption(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	questionID, err := query.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid question ID")
	}

	var req CreateOptionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	option, err := h.quizzes.CreateOption(c.UserContext(), caller, questionID, services.OptionInput{
		Text:      req.Text,
		IsCorrect: req.IsCorrect,
	})
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.Created(c, option)
}

// ToggleOptionCorrect handles PUT /api/v1/options/:id/correct
func (h *QuizHandler) ToggleOptionCorrect(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	optionID, err := query.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid option ID")
	}

	var req ToggleCorrectRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	option, err := h.quizzes.ToggleOptionCorrect(c.UserContext(), caller, optionID, req.IsCorrect)
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.Success(c, option)
}

// SubmitAttempt handles POST /api/v1/quizzes/:id/attempts
func (h *QuizHandler) SubmitAttempt(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	quizID, err := query.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid quiz ID")
	}

	var req SubmitAttemptRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	result, err := h.quizzes.SubmitAttempt(c.UserContext(), caller, services.SubmitAttemptInput{
		QuizID:      quizID,
		CourseRunID: req.CourseRunID,
		LessonID:    req.LessonID,
		Answers:     req.Answers,
	})
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.Success(c, result)
}

// GetMyAttempt handles GET /api/v1/quizzes/:id/attempts/me
func (h *QuizHandler) GetMyAttempt(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	quizID, err := query.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid quiz ID")
	}

	attempt, err := h.quizzes.GetAttempt(c.UserContext(), caller, quizID)
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.Success(c, attempt)
}
