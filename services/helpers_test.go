package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/ogzhnbygl/vivolearn/database"
	"github.com/ogzhnbygl/vivolearn/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ====================================================================
// TEST ENVIRONMENT
// ====================================================================

// testEnv wires every core service against one in-memory database
type testEnv struct {
	db  *gorm.DB
	ctx context.Context

	catalog       *CatalogService
	curriculum    *CurriculumService
	enrollments   *EnrollmentService
	progress      *ProgressService
	quizzes       *QuizService
	notifications *NotificationService
	audit         *AuditService

	admin      *Caller
	instructor *Caller
}

// newTestDB opens a private in-memory SQLite database with the full schema
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

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
	// One connection serializes transactions the way row locks do on PostgreSQL
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

// setupTestEnv creates the services plus an admin and an instructor
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	views := NoopViewInvalidator{}
	audit := NewAuditService(db)
	notifications := NewNotificationService(db)

	env := &testEnv{
		db:            db,
		ctx:           context.Background(),
		catalog:       NewCatalogService(db, views),
		curriculum:    NewCurriculumService(db, views),
		enrollments:   NewEnrollmentService(db, views, notifications, audit),
		progress:      NewProgressService(db, views),
		quizzes:       NewQuizService(db, views),
		notifications: notifications,
		audit:         audit,
	}
	env.admin = env.createProfile(t, "admin@example.com", model.RoleAdmin)
	env.instructor = env.createProfile(t, "instructor@example.com", model.RoleInstructor)
	return env
}

// setClock pins the current time seen by every service
func (e *testEnv) setClock(now time.Time) {
	clock := func() time.Time { return now }
	e.catalog.clock = clock
	e.enrollments.clock = clock
	e.progress.clock = clock
	e.quizzes.clock = clock
}

// ====================================================================
// FIXTURES
// ====================================================================

func (e *testEnv) createProfile(t *testing.T, email string, role model.Role) *Caller {
	t.Helper()

	profile := model.Profile{
		Email:        email,
		PasswordHash: "not-a-real-hash",
		FullName:     strings.Split(email, "@")[0],
		Role:         role,
	}
	require.NoError(t, e.db.Create(&profile).Error)
	return NewCaller(&profile)
}

func (e *testEnv) createStudent(t *testing.T, name string) *Caller {
	t.Helper()
	return e.createProfile(t, name+"@example.com", model.RoleStudent)
}

// createCourse creates a published course owned by owner with one run
func (e *testEnv) createCourse(t *testing.T, owner *Caller, title string, run RunInput) (*model.Course, *model.CourseRun) {
	t.Helper()

	course, err := e.catalog.CreateCourse(e.ctx, owner, CreateCourseInput{
		Title:       title,
		Summary:     title + " summary",
		IsPublished: true,
		FirstRun:    run,
	})
	require.NoError(t, err)
	require.Len(t, course.Runs, 1)
	require.Len(t, course.Sections, 1)
	return course, &course.Runs[0]
}

// createLesson adds a published lesson to a section
func (e *testEnv) createLesson(t *testing.T, owner *Caller, course *model.Course, sectionID uint, title string) *model.Lesson {
	t.Helper()

	lesson, err := e.curriculum.CreateLesson(e.ctx, owner, course.ID, LessonInput{
		SectionID:   sectionID,
		Title:       title,
		VideoURL:    "https://drive.google.com/file/d/abc123/view",
		IsPublished: true,
	})
	require.NoError(t, err)
	return lesson
}

// enroll applies and approves student on run; the clock must be inside the application window
func (e *testEnv) enroll(t *testing.T, student *Caller, run *model.CourseRun) *model.Enrollment {
	t.Helper()

	applied, err := e.enrollments.Apply(e.ctx, student, ApplyInput{
		CourseID:    run.CourseID,
		CourseRunID: run.ID,
		ReceiptNo:   "R-" + student.Email,
	})
	require.NoError(t, err)

	approved, err := e.enrollments.Decide(e.ctx, e.instructor, DecideInput{
		EnrollmentID: applied.ID,
		Status:       model.EnrollmentApproved,
	})
	require.NoError(t, err)
	return approved
}

// openRun is a run whose windows are open from 2024-01-01 onwards
func openRun() RunInput {
	return RunInput{Label: "Open", AccessStart: timePtr(date(2024, 1, 1))}
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

func timePtr(t time.Time) *time.Time { return &t }

func intPtr(n int) *int { return &n }
