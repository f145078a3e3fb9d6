package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/ogzhnbygl/vivolearn/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EnrollmentService is the enrollment rule engine: applications, decisions
// and the enrollment-based access checks used by lessons, quizzes and progress
type EnrollmentService struct {
	db            *gorm.DB
	views         ViewInvalidator
	notifications *NotificationService
	audit         *AuditService
	clock         func() time.Time
}

// NewEnrollmentService creates a new enrollment service
func NewEnrollmentService(db *gorm.DB, views ViewInvalidator, notifications *NotificationService, audit *AuditService) *EnrollmentService {
	return &EnrollmentService{
		db:            db,
		views:         views,
		notifications: notifications,
		audit:         audit,
		clock:         time.Now,
	}
}

// ApplyInput is the input for Apply
type ApplyInput struct {
	CourseID    uint
	CourseRunID uint
	ReceiptNo   string
	Note        string
}

// DecideInput is the input for Decide
type DecideInput struct {
	EnrollmentID uint
	Status       model.EnrollmentStatus
}

// lockRun loads a course run holding a row lock until the transaction ends.
// Every capacity check runs behind this lock, which makes count-then-write
// atomic with respect to other applications and decisions on the same run.
func lockRun(tx *gorm.DB, runID uint) (*model.CourseRun, error) {
	var run model.CourseRun
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&run, runID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("course run not found")
		}
		return nil, err
	}
	return &run, nil
}

func countEnrollments(tx *gorm.DB, runID uint, query string, status model.EnrollmentStatus) (int64, error) {
	var count int64
	err := tx.Model(&model.Enrollment{}).
		Where("course_run_id = ?", runID).
		Where(query, status).
		Count(&count).Error
	return count, err
}

// Apply records (or re-records) the caller's application to a course run
func (s *EnrollmentService) Apply(ctx context.Context, caller *Caller, in ApplyInput) (*model.Enrollment, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	receipt := strings.TrimSpace(in.ReceiptNo)
	if receipt == "" {
		return nil, validationError("receipt number is required")
	}
	note := strings.TrimSpace(in.Note)
	now := s.clock().UTC()

	var enrollment model.Enrollment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		run, err := lockRun(tx, in.CourseRunID)
		if err != nil {
			return err
		}
		if run.CourseID != in.CourseID {
			return notFoundError("course run not found")
		}

		window := run.ApplicationWindow()
		if now.Before(window.Start) {
			return windowClosedError("applications for this run have not opened yet")
		}
		if window.End != nil && now.After(*window.End) {
			return windowClosedError("the application period for this run has ended")
		}

		var existing model.Enrollment
		found := true
		if err := tx.Where("student_id = ? AND course_run_id = ?", caller.ProfileID, run.ID).Take(&existing).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			found = false
		}
		// An active application already counts against the cap, so
		// re-confirming it must not be blocked by that same cap.
		if run.HasLimit() && !(found && existing.Status.IsActive()) {
			active, err := countEnrollments(tx, run.ID, "status <> ?", model.EnrollmentRejected)
			if err != nil {
				return err
			}
			if active >= int64(*run.EnrollmentLimit) {
				return capacityError("this run has no seats left")
			}
		}

		enrollment = model.Enrollment{
			StudentID:   caller.ProfileID,
			CourseRunID: run.ID,
			Status:      model.EnrollmentRequested,
			ReceiptNo:   receipt,
			Note:        note,
		}
		err = tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "student_id"}, {Name: "course_run_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"status":     model.EnrollmentRequested,
				"receipt_no": receipt,
				"note":       note,
				"decided_at": gorm.Expr("NULL"),
				"updated_at": now,
			}),
		}).Create(&enrollment).Error
		if err != nil {
			return err
		}

		return tx.Where("student_id = ? AND course_run_id = ?", caller.ProfileID, run.ID).First(&enrollment).Error
	})
	if err != nil {
		return nil, persistenceError("failed to save application", err)
	}

	log.Printf("[ENROLLMENT] Profile %d applied to run %d (enrollment %d)", caller.ProfileID, enrollment.CourseRunID, enrollment.ID)
	signalViews(s.views, ViewCourse(in.CourseID), ViewProfile(caller.ProfileID), ViewApplications)

	return &enrollment, nil
}

// Decide approves or rejects an application. Approvals never push the
// number of approved enrollments of a run above its limit.
func (s *EnrollmentService) Decide(ctx context.Context, caller *Caller, in DecideInput) (*model.Enrollment, error) {
	if err := requireRole(caller, model.RoleInstructor, model.RoleAdmin); err != nil {
		return nil, err
	}
	if in.Status != model.EnrollmentApproved && in.Status != model.EnrollmentRejected {
		return nil, validationError("status must be approved or rejected")
	}

	now := s.clock().UTC()
	var (
		enrollment model.Enrollment
		previous   model.EnrollmentStatus
		course     model.Course
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&enrollment, in.EnrollmentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundError("enrollment not found")
			}
			return err
		}

		run, err := lockRun(tx, enrollment.CourseRunID)
		if err != nil {
			return err
		}

		// Re-read under the run lock; an application may have been re-submitted meanwhile
		if err := tx.First(&enrollment, enrollment.ID).Error; err != nil {
			return err
		}

		if err := tx.Unscoped().First(&course, run.CourseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundError("course not found")
			}
			return err
		}
		if err := requireCourseOwner(caller, &course); err != nil {
			return err
		}

		previous = enrollment.Status
		if in.Status == model.EnrollmentApproved && previous != model.EnrollmentApproved && run.HasLimit() {
			approved, err := countEnrollments(tx, run.ID, "status = ?", model.EnrollmentApproved)
			if err != nil {
				return err
			}
			if approved >= int64(*run.EnrollmentLimit) {
				return capacityError("the run is full, no more approvals are possible")
			}
		}

		result := tx.Model(&model.Enrollment{}).
			Where("id = ? AND status = ?", enrollment.ID, previous).
			Updates(map[string]interface{}{
				"status":     in.Status,
				"decided_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errors.New("enrollment changed concurrently, please retry")
		}

		enrollment.Status = in.Status
		enrollment.DecidedAt = &now
		return nil
	})
	if err != nil {
		return nil, persistenceError("failed to record decision", err)
	}

	log.Printf("[ENROLLMENT] Enrollment %d %s -> %s by profile %d", enrollment.ID, previous, in.Status, caller.ProfileID)

	s.notifyDecision(ctx, &enrollment, &course)
	if s.audit != nil {
		s.audit.Record(ctx, AuditEntry{
			ActorID:    caller.ProfileID,
			Action:     "enrollment_" + string(in.Status),
			Resource:   "enrollments",
			ResourceID: enrollment.ID,
			OldValue:   map[string]interface{}{"status": previous},
			NewValue:   map[string]interface{}{"status": in.Status},
		})
	}
	signalViews(s.views, ViewCourse(course.ID), ViewProfile(enrollment.StudentID), ViewApplications, ViewInstructor(course.InstructorID))

	return &enrollment, nil
}

func (s *EnrollmentService) notifyDecision(ctx context.Context, enrollment *model.Enrollment, course *model.Course) {
	if s.notifications == nil {
		return
	}

	notification := CreateNotificationRequest{
		ProfileID: enrollment.StudentID,
		Category:  model.NotificationCategoryEnrollment,
		Metadata:  &model.NotificationMetadata{
			CourseID:     course.ID,
			CourseTitle:  course.Title,
			CourseRunID:  enrollment.CourseRunID,
			EnrollmentID: enrollment.ID,
		},
	}
	if enrollment.Status == model.EnrollmentApproved {
		notification.Type = model.NotificationTypeSuccess
		notification.Title = "Application approved"
		notification.Message = fmt.Sprintf("Your application to %s was approved.", course.Title)
	} else {
		notification.Type = model.NotificationTypeWarning
		notification.Title = "Application rejected"
		notification.Message = fmt.Sprintf("Your application to %s was rejected.", course.Title)
	}

	if _, err := s.notifications.CreateNotification(ctx, notification); err != nil {
		log.Printf("[ENROLLMENT] Failed to notify profile %d: %v", enrollment.StudentID, err)
	}
}

// ListPending returns requested applications the caller may decide on,
// oldest first
func (s *EnrollmentService) ListPending(ctx context.Context, caller *Caller) ([]model.Enrollment, error) {
	if err := requireRole(caller, model.RoleInstructor, model.RoleAdmin); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).
		Joins("JOIN course_runs ON course_runs.id = enrollments.course_run_id").
		Joins("JOIN courses ON courses.id = course_runs.course_id").
		Preload("Student").
		Preload("CourseRun.Course").
		Where("enrollments.status = ?", model.EnrollmentRequested).
		Order("enrollments.created_at ASC")
	if !caller.IsAdmin() {
		query = query.Where("courses.instructor_id = ?", caller.ProfileID)
	}

	var enrollments []model.Enrollment
	if err := query.Find(&enrollments).Error; err != nil {
		return nil, persistenceError("failed to list applications", err)
	}
	return enrollments, nil
}

// ListForStudent returns the caller's own enrollments
func (s *EnrollmentService) ListForStudent(ctx context.Context, caller *Caller) ([]model.Enrollment, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	var enrollments []model.Enrollment
	err := s.db.WithContext(ctx).
		Preload("CourseRun.Course").
		Where("student_id = ?", caller.ProfileID).
		Order("created_at DESC").
		Find(&enrollments).Error
	if err != nil {
		return nil, persistenceError("failed to list enrollments", err)
	}
	return enrollments, nil
}

// requireApprovedEnrollment checks that the student holds an approved
// enrollment on the run
func requireApprovedEnrollment(tx *gorm.DB, studentID, runID uint) error {
	var count int64
	err := tx.Model(&model.Enrollment{}).
		Where("student_id = ? AND course_run_id = ? AND status = ?", studentID, runID, model.EnrollmentApproved).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return authError("an approved enrollment for this run is required")
	}
	return nil
}

// AuthorizeLessonView checks that the caller may watch the lesson within the
// given run and returns that run. Course managers always may and may omit
// the run, in which case the returned run is nil; students need an approved
// enrollment and an open access window. The lesson must have its Course loaded.
func (s *EnrollmentService) AuthorizeLessonView(ctx context.Context, caller *Caller, lesson *model.Lesson, runID uint) (*model.CourseRun, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if lesson.Course == nil {
		return nil, notFoundError("course not found")
	}
	manager := canManageCourse(caller, lesson.Course)
	if manager && runID == 0 {
		return nil, nil
	}
	if !manager && (!lesson.IsPublished || !lesson.Course.IsPublished) {
		return nil, notFoundError("lesson not found")
	}

	db := s.db.WithContext(ctx)

	var run model.CourseRun
	if err := db.Where("id = ? AND course_id = ?", runID, lesson.CourseID).First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("course run not found")
		}
		return nil, persistenceError("failed to load course run", err)
	}
	if manager {
		return &run, nil
	}

	if err := requireApprovedEnrollment(db, caller.ProfileID, run.ID); err != nil {
		return nil, persistenceError("failed to check enrollment", err)
	}

	if !run.AccessWindow().Contains(s.clock()) {
		return nil, windowClosedError("the access period of this run is not active")
	}
	return &run, nil
}
