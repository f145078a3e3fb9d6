package model

import (
	"time"
)

// EnrollmentStatus is the state of a student's application to a run
type EnrollmentStatus string

const (
	EnrollmentRequested EnrollmentStatus = "requested"
	EnrollmentApproved  EnrollmentStatus = "approved"
	EnrollmentRejected  EnrollmentStatus = "rejected"
)

// IsActive reports whether the status occupies a seat for request-time capacity checks
func (s EnrollmentStatus) IsActive() bool {
	return s != EnrollmentRejected
}

// Enrollment is a student's application/membership record against one run
type Enrollment struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	StudentID   uint             `gorm:"not null;uniqueIndex:idx_enrollment_student_run,priority:1" json:"student_id"`
	CourseRunID uint             `gorm:"not null;uniqueIndex:idx_enrollment_student_run,priority:2;index" json:"course_run_id"`
	Status      EnrollmentStatus `gorm:"type:varchar(20);not null;default:'requested';index" json:"status"`
	ReceiptNo   string           `gorm:"type:varchar(255);not null" json:"receipt_no"`
	Note        string           `gorm:"type:text" json:"note,omitempty"`
	DecidedAt   *time.Time       `json:"decided_at"`

	// Relationships
	Student   *Profile   `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	CourseRun *CourseRun `gorm:"foreignKey:CourseRunID" json:"course_run,omitempty"`
}

// TableName specifies the table name for Enrollment
func (Enrollment) TableName() string {
	return "enrollments"
}
