package course

import (
	"io"
	"log"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/ogzhnbygl/vivolearn/services"
	"github.com/ogzhnbygl/vivolearn/utils/cache"
	"github.com/ogzhnbygl/vivolearn/utils/middleware"
	"github.com/ogzhnbygl/vivolearn/utils/query"
	"github.com/ogzhnbygl/vivolearn/utils/response"
	"github.com/ogzhnbygl/vivolearn/utils/validation"
)

// CourseHandler handles course, run and curriculum requests
type CourseHandler struct {
	catalog     *services.CatalogService
	curriculum  *services.CurriculumService
	enrollments *services.EnrollmentService
	cache       *cache.RedisCache
	validator   *validation.Validator
}

// NewCourseHandler creates a new course handler. redisCache may be nil.
func NewCourseHandler(catalog *services.CatalogService, curriculum *services.CurriculumService, enrollments *services.EnrollmentService, redisCache *cache.RedisCache) *CourseHandler {
	return &CourseHandler{
		catalog:     catalog,
		curriculum:  curriculum,
		enrollments: enrollments,
		cache:       redisCache,
		validator:   validation.NewValidator(),
	}
}

// CreateCourseRequest represents the request body for creating a course
type CreateCourseRequest struct {
	Title         string     `json:"title" validate:"required,min=3,max=255"`
	Summary       string     `json:"summary" validate:"omitempty,max=500"`
	Description   string     `json:"description" validate:"omitempty,max=10000"`
	CoverImageURL string     `json:"cover_image_url" validate:"omitempty,url,max=2048"`
	IsPublished   bool       `json:"is_published"`
	FirstRun      RunRequest `json:"first_run" validate:"required"`
}

// UpdateCourseRequest represents the request body for updating a course
type UpdateCourseRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=3,max=255"`
	Summary     *string `json:"summary" validate:"omitempty,max=500"`
	Description *string `json:"description" validate:"omitempty,max=10000"`
	IsPublished *bool   `json:"is_published"`
}

// GetCatalog handles GET /api/v1/catalog
func (h *CourseHandler) GetCatalog(c *fiber.Ctx) error {
	ctx := c.UserContext()
	key := services.ViewCacheKey(services.ViewCatalog)

	if h.cache != nil {
		var cached services.CoursePartition
		if err := h.cache.GetJSON(ctx, key, &cached); err == nil {
			return response.Success(c, cached)
		}
	}

	partition, err := h.catalog.Catalog(ctx)
	if err != nil {
		return response.ServiceError(c, err)
	}

	if h.cache != nil {
		if err := h.cache.SetJSON(ctx, key, partition, services.CatalogCacheTTL); err != nil {
			log.Printf("[CATALOG] Failed to cache catalog: %v", err)
		}
	}

	return response.Success(c, partition)
}

// GetCourse handles GET /api/v1/courses/:id
func (h *CourseHandler) GetCourse(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	courseID, err := query.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	course, err := h.catalog.GetCourse(c.UserContext(), caller, courseID)
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.Success(c, course)
}

// GetCourseBySlug handles GET /api/v1/courses/slug/:slug
func (h *CourseHandler) GetCourseBySlug(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	course, err := h.catalog.GetCourseBySlug(c.UserContext(), caller, c.Params("slug"))
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.Success(c, course)
}

// ListInstructorCourses handles GET /api/v1/instructor/courses
func (h *CourseHandler) ListInstructorCourses(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	courses, err := h.catalog.ListForInstructor(c.UserContext(), caller)
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.Success(c, courses)
}

// CreateCourse handles POST /api/v1/courses
func (h *CourseHandler) CreateCourse(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	var req CreateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	course, err := h.catalog.CreateCourse(c.UserContext(), caller, services.CreateCourseInput{
		Title:         validation.SanitizeString(req.Title),
		Summary:       req.Summary,
		Description:   req.Description,
		CoverImageURL: req.CoverImageURL,
		IsPublished:   req.IsPublished,
		FirstRun:      req.FirstRun.toInput(),
	})
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.Created(c, course)
}

// UpdateCourse handles PUT /api/v1/courses/:id
func (h *CourseHandler) UpdateCourse(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	courseID, err := query.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	var req UpdateCourseRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if err := h.validator.ValidateStruct(req); err != nil {
		return response.ValidationError(c, err)
	}

	course, err := h.catalog.UpdateCourse(c.UserContext(), caller, courseID, services.UpdateCourseInput{
		Title:       req.Title,
		Summary:     req.Summary,
		Description: req.Description,
		IsPublished: req.IsPublished,
	})
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.SuccessWithMessage(c, "Course updated successfully", course)
}

// DeleteCourse handles DELETE /api/v1/courses/:id
func (h *CourseHandler) DeleteCourse(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	courseID, err := query.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	if err := h.catalog.DeleteCourse(c.UserContext(), caller, courseID); err != nil {
		return response.ServiceError(c, err)
	}

	return response.SuccessWithMessage(c, "Course deleted successfully", nil)
}

// UploadCover handles POST /api/v1/courses/:id/cover (multipart field "cover")
func (h *CourseHandler) UploadCover(c *fiber.Ctx) error {
	caller, _ := middleware.GetCaller(c)

	courseID, err := query.ParamID(c, "id")
	if err != nil {
		return response.BadRequest(c, "Invalid course ID")
	}

	file, err := c.FormFile("cover")
	if err != nil {
		return response.BadRequest(c, "Cover image file is required")
	}
	if file.Size > services.MaxCoverBytes {
		return response.Error(c, fiber.StatusRequestEntityTooLarge, "Cover image is too large", "FILE_TOO_LARGE")
	}

	data, err := readUpload(file)
	if err != nil {
		return response.BadRequest(c, "Failed to read cover image")
	}

	course, err := h.catalog.UploadCover(c.UserContext(), caller, courseID, services.CoverUpload{
		Filename:    file.Filename,
		ContentType: file.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		return response.ServiceError(c, err)
	}

	return response.SuccessWithMessage(c, "Cover image updated", course)
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(io.LimitReader(f, services.MaxCoverBytes+1))
}
