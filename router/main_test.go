package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/ogzhnbygl/vivolearn/database"
	"github.com/ogzhnbygl/vivolearn/model"
	"github.com/ogzhnbygl/vivolearn/utils/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testServer struct {
	app *fiber.App
	db  *gorm.DB
}

func setupServer(t *testing.T) *testServer {
	t.Helper()

	dsn := fmt.Sprintf("file:router_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })

	svc := NewServices(db, nil, auth.JWTConfig{
		Secret:        "router-test-secret",
		Expiry:        time.Hour,
		RefreshExpiry: 24 * time.Hour,
		Issuer:        "vivolearn-test",
	}, nil)

	app := fiber.New()
	SetupRoutes(app, database.NewGORMStore(db), svc, RouteConfig{
		AllowedOrigins:    "http://localhost:3000",
		RateLimitRequests: 1000,
	})

	return &testServer{app: app, db: db}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &env)
	}
	return resp.StatusCode, env
}

func decode(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v))
}

// register signs up a student and returns its access token
func (s *testServer) register(t *testing.T, email string) string {
	t.Helper()
	status, env := s.do(t, http.MethodPost, "/api/v1/auth/register", "", fiber.Map{
		"email":     email,
		"password":  "password123",
		"full_name": "Test Student",
	})
	require.Equal(t, fiber.StatusCreated, status)

	var session struct {
		AccessToken string `json:"access_token"`
	}
	decode(t, env, &session)
	require.NotEmpty(t, session.AccessToken)
	return session.AccessToken
}

// instructor stores an instructor profile directly and signs it in
func (s *testServer) instructor(t *testing.T, email string) string {
	t.Helper()
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	require.NoError(t, s.db.Create(&model.Profile{
		Email:        email,
		PasswordHash: hash,
		FullName:     "Test Instructor",
		Role:         model.RoleInstructor,
	}).Error)

	status, env := s.do(t, http.MethodPost, "/api/v1/auth/login", "", fiber.Map{
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, fiber.StatusOK, status)

	var session struct {
		AccessToken string `json:"access_token"`
	}
	decode(t, env, &session)
	return session.AccessToken
}

func TestPing(t *testing.T) {
	s := setupServer(t)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRegisterAndProfile(t *testing.T) {
	s := setupServer(t)
	token := s.register(t, "student@example.com")

	status, env := s.do(t, http.MethodGet, "/api/v1/auth/profile", token, nil)
	require.Equal(t, fiber.StatusOK, status)

	var profile struct {
		Email string     `json:"email"`
		Role  model.Role `json:"role"`
	}
	decode(t, env, &profile)
	assert.Equal(t, "student@example.com", profile.Email)
	assert.Equal(t, model.RoleStudent, profile.Role)
}

func TestRegisterValidation(t *testing.T) {
	s := setupServer(t)

	status, env := s.do(t, http.MethodPost, "/api/v1/auth/register", "", fiber.Map{
		"email":    "not-an-email",
		"password": "password123",
	})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := setupServer(t)

	status, _ := s.do(t, http.MethodGet, "/api/v1/auth/profile", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodGet, "/api/v1/enrollments/me", "not-a-token", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestStudentCannotCreateCourse(t *testing.T) {
	s := setupServer(t)
	token := s.register(t, "student@example.com")

	status, _ := s.do(t, http.MethodPost, "/api/v1/courses", token, fiber.Map{
		"title":     "Not allowed",
		"first_run": fiber.Map{"access_start": "2024-01-01T00:00:00Z"},
	})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = s.do(t, http.MethodGet, "/api/v1/admin/users", token, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
}

func TestEnrollmentFlow(t *testing.T) {
	s := setupServer(t)
	owner := s.instructor(t, "instructor@example.com")
	student := s.register(t, "student@example.com")

	// Instructor publishes a course with an open-ended run
	status, env := s.do(t, http.MethodPost, "/api/v1/courses", owner, fiber.Map{
		"title":        "Cell Biology",
		"is_published": true,
		"first_run": fiber.Map{
			"label":        "Open",
			"access_start": "2020-01-01T00:00:00Z",
		},
	})
	require.Equal(t, fiber.StatusCreated, status)
	var course model.Course
	decode(t, env, &course)
	require.NotEmpty(t, course.Sections)

	status, env = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/courses/%d/runs", course.ID), "", nil)
	require.Equal(t, fiber.StatusOK, status)
	var runs []model.CourseRun
	decode(t, env, &runs)
	require.Len(t, runs, 1)
	run := runs[0]

	status, env = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/courses/%d/lessons", course.ID), owner, fiber.Map{
		"section_id":   course.Sections[0].ID,
		"title":        "Mitosis",
		"video_url":    "https://drive.google.com/open?id=abc123",
		"is_published": true,
	})
	require.Equal(t, fiber.StatusCreated, status)
	var lesson model.Lesson
	decode(t, env, &lesson)
	assert.Equal(t, "https://drive.google.com/file/d/abc123/preview", lesson.VideoURL)

	lessonPath := fmt.Sprintf("/api/v1/lessons/%d?run_id=%d", lesson.ID, run.ID)

	// Not enrolled yet
	status, _ = s.do(t, http.MethodGet, lessonPath, student, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, env = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/courses/%d/runs/%d/apply", course.ID, run.ID), student, fiber.Map{
		"receipt_no": "R-001",
	})
	require.Equal(t, fiber.StatusOK, status)
	var enrollment model.Enrollment
	decode(t, env, &enrollment)
	assert.Equal(t, model.EnrollmentRequested, enrollment.Status)

	// Still pending
	status, _ = s.do(t, http.MethodGet, lessonPath, student, nil)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, env = s.do(t, http.MethodGet, "/api/v1/enrollments/pending", owner, nil)
	require.Equal(t, fiber.StatusOK, status)
	var pending []model.Enrollment
	decode(t, env, &pending)
	require.Len(t, pending, 1)
	assert.Equal(t, enrollment.ID, pending[0].ID)

	status, _ = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/enrollments/%d/decision", enrollment.ID), student, fiber.Map{
		"status": "approved",
	})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/enrollments/%d/decision", enrollment.ID), owner, fiber.Map{
		"status": "maybe",
	})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	status, _ = s.do(t, http.MethodPut, fmt.Sprintf("/api/v1/enrollments/%d/decision", enrollment.ID), owner, fiber.Map{
		"status": "approved",
	})
	require.Equal(t, fiber.StatusOK, status)

	status, env = s.do(t, http.MethodGet, lessonPath, student, nil)
	require.Equal(t, fiber.StatusOK, status)
	var view struct {
		Lesson model.Lesson `json:"lesson"`
	}
	decode(t, env, &view)
	assert.Equal(t, lesson.ID, view.Lesson.ID)

	status, env = s.do(t, http.MethodGet, "/api/v1/notifications/unread-count", student, nil)
	require.Equal(t, fiber.StatusOK, status)
	var unread struct {
		UnreadCount int64 `json:"unread_count"`
	}
	decode(t, env, &unread)
	assert.Equal(t, int64(1), unread.UnreadCount)
}

func TestCatalogIsPublic(t *testing.T) {
	s := setupServer(t)
	owner := s.instructor(t, "instructor@example.com")

	status, _ := s.do(t, http.MethodPost, "/api/v1/courses", owner, fiber.Map{
		"title":        "Histology",
		"is_published": true,
		"first_run":    fiber.Map{"access_start": "2020-01-01T00:00:00Z"},
	})
	require.Equal(t, fiber.StatusCreated, status)

	status, env := s.do(t, http.MethodGet, "/api/v1/catalog", "", nil)
	require.Equal(t, fiber.StatusOK, status)

	var partition struct {
		Open []model.Course `json:"open"`
	}
	decode(t, env, &partition)
	require.Len(t, partition.Open, 1)
	assert.Equal(t, "Histology", partition.Open[0].Title)
}
