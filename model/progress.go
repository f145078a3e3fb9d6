package model

import (
	"time"
)

// Progress tracks one student's completion of one lesson within one run
type Progress struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	StudentID    uint       `gorm:"not null;uniqueIndex:idx_progress_student_run_lesson,priority:1" json:"student_id"`
	CourseRunID  uint       `gorm:"not null;uniqueIndex:idx_progress_student_run_lesson,priority:2" json:"course_run_id"`
	LessonID     uint       `gorm:"not null;uniqueIndex:idx_progress_student_run_lesson,priority:3;index" json:"lesson_id"`
	IsCompleted  bool       `gorm:"default:false" json:"is_completed"`
	LastViewedAt time.Time  `gorm:"not null" json:"last_viewed_at"`
	CompletedAt  *time.Time `json:"completed_at"`
}

// TableName specifies the table name for Progress
func (Progress) TableName() string {
	return "lesson_progress"
}
