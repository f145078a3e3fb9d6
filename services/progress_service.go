package services

import (
	"context"
	"errors"
	"time"

	"github.com/ogzhnbygl/vivolearn/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProgressService records lesson completion per student and run
type ProgressService struct {
	db    *gorm.DB
	views ViewInvalidator
	clock func() time.Time
}

// NewProgressService creates a new progress service
func NewProgressService(db *gorm.DB, views ViewInvalidator) *ProgressService {
	return &ProgressService{
		db:    db,
		views: views,
		clock: time.Now,
	}
}

// SetProgressInput is the input for SetLessonProgress
type SetProgressInput struct {
	LessonID    uint
	CourseRunID uint
	Completed   bool
}

// SetLessonProgress marks a lesson viewed, and completed or not, for the
// caller within a run. Students need an approved enrollment on the run.
func (s *ProgressService) SetLessonProgress(ctx context.Context, caller *Caller, in SetProgressInput) (*model.Progress, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	now := s.clock().UTC()
	var progress model.Progress

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lesson model.Lesson
		if err := tx.Preload("Course").First(&lesson, in.LessonID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFoundError("lesson not found")
			}
			return err
		}
		if lesson.Course == nil {
			return notFoundError("lesson not found")
		}

		if !canManageCourse(caller, lesson.Course) {
			var runs int64
			if err := tx.Model(&model.CourseRun{}).Where("id = ? AND course_id = ?", in.CourseRunID, lesson.CourseID).Count(&runs).Error; err != nil {
				return err
			}
			if runs == 0 {
				return authError("this run does not belong to the lesson's course")
			}
			if err := requireApprovedEnrollment(tx, caller.ProfileID, in.CourseRunID); err != nil {
				return err
			}
		}

		progress = model.Progress{
			StudentID:    caller.ProfileID,
			CourseRunID:  in.CourseRunID,
			LessonID:     lesson.ID,
			IsCompleted:  in.Completed,
			LastViewedAt: now,
		}
		if in.Completed {
			progress.CompletedAt = &now
		}

		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "student_id"}, {Name: "course_run_id"}, {Name: "lesson_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_completed", "last_viewed_at", "completed_at", "updated_at"}),
		}).Create(&progress).Error
		if err != nil {
			return err
		}

		return tx.Where("student_id = ? AND course_run_id = ? AND lesson_id = ?", caller.ProfileID, in.CourseRunID, lesson.ID).
			First(&progress).Error
	})
	if err != nil {
		return nil, persistenceError("failed to save progress", err)
	}

	signalViews(s.views, ViewLesson(in.LessonID), ViewRunProgress(in.CourseRunID))
	return &progress, nil
}

// ListRunProgress returns the caller's progress rows for a run
func (s *ProgressService) ListRunProgress(ctx context.Context, caller *Caller, runID uint) ([]model.Progress, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	var rows []model.Progress
	err := s.db.WithContext(ctx).
		Where("student_id = ? AND course_run_id = ?", caller.ProfileID, runID).
		Order("lesson_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, persistenceError("failed to load progress", err)
	}
	return rows, nil
}
