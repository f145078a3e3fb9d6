package router

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/ogzhnbygl/vivolearn/database"
	"github.com/ogzhnbygl/vivolearn/handlers"
	admin_handlers "github.com/ogzhnbygl/vivolearn/handlers/admin"
	auth_handlers "github.com/ogzhnbygl/vivolearn/handlers/auth"
	course_handlers "github.com/ogzhnbygl/vivolearn/handlers/course"
	enrollment_handlers "github.com/ogzhnbygl/vivolearn/handlers/enrollment"
	notification_handlers "github.com/ogzhnbygl/vivolearn/handlers/notification"
	progress_handlers "github.com/ogzhnbygl/vivolearn/handlers/progress"
	quiz_handlers "github.com/ogzhnbygl/vivolearn/handlers/quiz"
	"github.com/ogzhnbygl/vivolearn/model"
	"github.com/ogzhnbygl/vivolearn/services"
	"github.com/ogzhnbygl/vivolearn/utils/auth"
	"github.com/ogzhnbygl/vivolearn/utils/cache"
	"github.com/ogzhnbygl/vivolearn/utils/middleware"
	"gorm.io/gorm"
)

// Services holds every service the routes are built from
type Services struct {
	DB            *gorm.DB
	Cache         *cache.RedisCache // nil when Redis is unavailable
	JWT           *auth.JWTManager
	Blacklist     *auth.BlacklistService
	Views         services.ViewInvalidator
	Audit         *services.AuditService
	Notifications *services.NotificationService
	Identity      *services.IdentityService
	Catalog       *services.CatalogService
	Curriculum    *services.CurriculumService
	Enrollments   *services.EnrollmentService
	Progress      *services.ProgressService
	Quizzes       *services.QuizService
}

// NewServices wires the services on top of the database. redisCache and
// covers may be nil.
func NewServices(db *gorm.DB, redisCache *cache.RedisCache, jwtConfig auth.JWTConfig, covers services.CoverUploader) *Services {
	var views services.ViewInvalidator = services.NoopViewInvalidator{}
	if redisCache != nil {
		views = services.NewRedisViewInvalidator(redisCache)
	}

	jwtManager := auth.NewJWTManager(jwtConfig)
	blacklist := auth.NewBlacklistService(db)
	audit := services.NewAuditService(db)
	notifications := services.NewNotificationService(db)

	catalog := services.NewCatalogService(db, views)
	if covers != nil {
		catalog.SetCoverUploader(covers)
	}

	return &Services{
		DB:            db,
		Cache:         redisCache,
		JWT:           jwtManager,
		Blacklist:     blacklist,
		Views:         views,
		Audit:         audit,
		Notifications: notifications,
		Identity:      services.NewIdentityService(db, jwtManager, blacklist, audit, notifications),
		Catalog:       catalog,
		Curriculum:    services.NewCurriculumService(db, views),
		Enrollments:   services.NewEnrollmentService(db, views, notifications, audit),
		Progress:      services.NewProgressService(db, views),
		Quizzes:       services.NewQuizService(db, views),
	}
}

// RouteConfig holds HTTP-level settings
type RouteConfig struct {
	AllowedOrigins    string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

func SetupRoutes(app *fiber.App, store database.Storage, svc *Services, cfg RouteConfig) {
	// Brute force protection needs Redis
	var bruteForceProtection *middleware.BruteForceProtection
	if svc.Cache != nil {
		bruteForceProtection = middleware.NewBruteForceProtection(svc.Cache)
	} else {
		log.Println("Warning: Redis is not configured. Brute force protection is disabled.")
	}

	authMiddleware := middleware.NewAuthMiddleware(svc.Identity)

	authHandler := auth_handlers.NewAuthHandler(svc.Identity, bruteForceProtection)
	courseHandler := course_handlers.NewCourseHandler(svc.Catalog, svc.Curriculum, svc.Enrollments, svc.Cache)
	enrollmentHandler := enrollment_handlers.NewEnrollmentHandler(svc.Enrollments)
	progressHandler := progress_handlers.NewProgressHandler(svc.Progress)
	quizHandler := quiz_handlers.NewQuizHandler(svc.Quizzes)
	notificationHandler := notification_handlers.NewNotificationHandler(svc.Notifications)
	adminHandler := admin_handlers.NewAdminHandler(svc.Identity, svc.Audit)

	// Apply security middleware
	if cfg.RateLimitRequests == 0 {
		cfg.RateLimitRequests = 100
	}
	if cfg.RateLimitWindow == 0 {
		cfg.RateLimitWindow = time.Minute
	}
	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    cfg.AllowedOrigins,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
	})

	// Health check endpoint (public)
	app.Get("/ping", func(c *fiber.Ctx) error { return handlers.HandleCheckHealth(c, store) })

	// API v1 group
	api := app.Group("/api/v1")

	managers := authMiddleware.RequireRole(model.RoleInstructor, model.RoleAdmin)

	// ==================== Identity ====================

	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", bruteForceProtection.CheckAndRecordAttempt(), authHandler.Login)
	authGroup.Post("/refresh", authHandler.Refresh)
	authGroup.Post("/logout", authMiddleware.Required(), authHandler.Logout)
	authGroup.Get("/profile", authMiddleware.Required(), authHandler.GetProfile)
	authGroup.Put("/profile", authMiddleware.Required(), authHandler.UpdateProfile)

	// ==================== Catalog ====================

	api.Get("/catalog", courseHandler.GetCatalog) // Public: open / upcoming / past
	api.Get("/instructor/courses", authMiddleware.Required(), managers, courseHandler.ListInstructorCourses)

	courses := api.Group("/courses")
	courses.Get("/slug/:slug", authMiddleware.Optional(), courseHandler.GetCourseBySlug)
	courses.Get("/:id", authMiddleware.Optional(), courseHandler.GetCourse)
	courses.Get("/:id/runs", authMiddleware.Optional(), courseHandler.ListRuns)
	courses.Post("/", authMiddleware.Required(), managers, courseHandler.CreateCourse)
	courses.Put("/:id", authMiddleware.Required(), managers, courseHandler.UpdateCourse)
	courses.Delete("/:id", authMiddleware.Required(), managers, middleware.AdminAuditLog(svc.Audit, "course_delete", "courses"), courseHandler.DeleteCourse)
	courses.Post("/:id/cover", authMiddleware.Required(), managers, courseHandler.UploadCover)

	// Runs
	courses.Post("/:id/runs", authMiddleware.Required(), managers, courseHandler.CreateRun)
	courses.Put("/:id/runs/:runId", authMiddleware.Required(), managers, middleware.AdminAuditLog(svc.Audit, "schedule_update", "course_runs"), courseHandler.UpdateSchedule)
	courses.Post("/:id/runs/:runId/apply", authMiddleware.Required(), enrollmentHandler.Apply)

	// ==================== Curriculum ====================

	courses.Put("/:id/sections/order", authMiddleware.Required(), managers, courseHandler.ReorderSections)
	courses.Post("/:id/sections", authMiddleware.Required(), managers, courseHandler.CreateSection)
	courses.Put("/:id/sections/:sectionId", authMiddleware.Required(), managers, courseHandler.UpdateSection)
	courses.Delete("/:id/sections/:sectionId", authMiddleware.Required(), managers, courseHandler.DeleteSection)
	courses.Put("/:id/sections/:sectionId/lessons/order", authMiddleware.Required(), managers, courseHandler.ReorderLessons)
	courses.Post("/:id/lessons/move", authMiddleware.Required(), managers, courseHandler.MoveLesson)
	courses.Post("/:id/lessons", authMiddleware.Required(), managers, courseHandler.CreateLesson)
	courses.Put("/:id/lessons/:lessonId", authMiddleware.Required(), managers, courseHandler.UpdateLesson)
	courses.Delete("/:id/lessons/:lessonId", authMiddleware.Required(), managers, courseHandler.DeleteLesson)

	lessons := api.Group("/lessons", authMiddleware.Required())
	lessons.Get("/:id", courseHandler.GetLesson)
	lessons.Get("/:id/quiz", quizHandler.GetQuizForLesson)
	lessons.Post("/:id/quiz", managers, quizHandler.CreateQuiz)

	// ==================== Enrollment ====================

	enrollments := api.Group("/enrollments", authMiddleware.Required())
	enrollments.Get("/me", enrollmentHandler.ListMine)
	enrollments.Get("/pending", managers, enrollmentHandler.ListPending)
	enrollments.Put("/:id/decision", managers, enrollmentHandler.Decide)

	// ==================== Progress ====================

	progress := api.Group("/progress", authMiddleware.Required())
	progress.Put("/", progressHandler.SetLessonProgress)
	progress.Get("/runs/:runId", progressHandler.ListRunProgress)

	// ==================== Quizzes ====================

	quizzes := api.Group("/quizzes", authMiddleware.Required())
	quizzes.Post("/:id/questions", managers, quizHandler.CreateQuestion)
	quizzes.Post("/:id/attempts", quizHandler.SubmitAttempt)
	quizzes.Get("/:id/attempts/me", quizHandler.GetMyAttempt)

	api.Post("/questions/:id/options", authMiddleware.Required(), managers, quizHandler.CreateOption)
	api.Put("/options/:id/correct", authMiddleware.Required(), managers, quizHandler.ToggleOptionCorrect)

	// ==================== Notifications ====================

	notifications := api.Group("/notifications", authMiddleware.Required())
	notifications.Get("/", notificationHandler.GetNotifications)
	notifications.Get("/unread-count", notificationHandler.GetUnreadCount)
	notifications.Put("/read-all", notificationHandler.MarkAllAsRead)
	notifications.Put("/:id/read", notificationHandler.MarkAsRead)

	// ==================== Admin ====================

	admin := api.Group("/admin", authMiddleware.Required(), authMiddleware.RequireRole(model.RoleAdmin))
	admin.Get("/users", adminHandler.ListUsers)
	admin.Put("/users/:id/role", adminHandler.UpdateUserRole)
	admin.Get("/audit-logs", adminHandler.ListAuditLogs)
}
