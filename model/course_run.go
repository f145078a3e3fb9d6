package model

import (
	"time"
)

// CourseRun is a scheduled offering of a course with its own application
// window, access window and optional seat cap
type CourseRun struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	CourseID         uint       `gorm:"not null;index" json:"course_id"`
	Label            string     `gorm:"type:varchar(255)" json:"label"`
	AccessStart      time.Time  `gorm:"not null" json:"access_start"`
	AccessEnd        *time.Time `json:"access_end,omitempty"`
	ApplicationStart *time.Time `json:"application_start,omitempty"`
	ApplicationEnd   *time.Time `json:"application_end,omitempty"`
	EnrollmentLimit  *int       `json:"enrollment_limit,omitempty"` // nil means unlimited

	// Relationships
	Course      *Course      `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	Enrollments []Enrollment `gorm:"foreignKey:CourseRunID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for CourseRun
func (CourseRun) TableName() string {
	return "course_runs"
}

// Window is a time range; a nil End is open-ended
type Window struct {
	Start time.Time
	End   *time.Time
}

// Contains reports whether t falls inside the window, bounds inclusive
func (w Window) Contains(t time.Time) bool {
	if t.Before(w.Start) {
		return false
	}
	return w.End == nil || !t.After(*w.End)
}

// ApplicationWindow returns the effective application window. Missing
// application dates fall back to the access dates; a missing end on both
// leaves the window open-ended.
func (r *CourseRun) ApplicationWindow() Window {
	w := Window{Start: r.AccessStart, End: r.AccessEnd}
	if r.ApplicationStart != nil {
		w.Start = *r.ApplicationStart
	}
	if r.ApplicationEnd != nil {
		w.End = r.ApplicationEnd
	}
	return w
}

// AccessWindow returns the window in which approved students may view lessons
func (r *CourseRun) AccessWindow() Window {
	return Window{Start: r.AccessStart, End: r.AccessEnd}
}

// HasLimit reports whether the run caps its enrollments
func (r *CourseRun) HasLimit() bool {
	return r.EnrollmentLimit != nil
}
