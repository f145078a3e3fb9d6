package model

import (
	"time"

	"gorm.io/gorm"
)

// Course represents a course published by an instructor
type Course struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
	InstructorID  uint           `gorm:"not null;index" json:"instructor_id"`
	Title         string         `gorm:"not null" json:"title"`
	Slug          string         `gorm:"uniqueIndex;not null" json:"slug"`
	Summary       string         `gorm:"type:text" json:"summary"`
	Description   string         `gorm:"type:text" json:"description"`
	CoverImageURL string         `gorm:"type:text" json:"cover_image_url,omitempty"`
	IsPublished   bool           `gorm:"default:false;index" json:"is_published"`

	// Relationships
	Instructor *Profile        `gorm:"foreignKey:InstructorID" json:"instructor,omitempty"`
	Runs       []CourseRun     `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course_runs,omitempty"`
	Sections   []CourseSection `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"sections,omitempty"`
	Lessons    []Lesson        `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"lessons,omitempty"`
}

// TableName specifies the table name for Course
func (Course) TableName() string {
	return "courses"
}

// CourseSection groups lessons inside a course. Rows are hard-deleted so a
// removed section never keeps its order slot.
type CourseSection struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	CourseID   uint      `gorm:"not null;uniqueIndex:idx_section_course_order,priority:1" json:"course_id"`
	Title      string    `gorm:"not null" json:"title"`
	OrderIndex int       `gorm:"not null;default:0;uniqueIndex:idx_section_course_order,priority:2" json:"order_index"`

	// Relationships
	Lessons []Lesson `gorm:"foreignKey:SectionID;constraint:OnDelete:CASCADE" json:"lessons,omitempty"`
}

// TableName specifies the table name for CourseSection
func (CourseSection) TableName() string {
	return "course_sections"
}

// Lesson is a single unit of content within a section
type Lesson struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	CourseID    uint      `gorm:"not null;index" json:"course_id"`
	SectionID   uint      `gorm:"not null;uniqueIndex:idx_lesson_section_order,priority:1" json:"section_id"`
	Title       string    `gorm:"not null" json:"title"`
	VideoURL    string    `gorm:"type:text" json:"video_url"`
	Content     string    `gorm:"type:text" json:"content"`
	OrderIndex  int       `gorm:"not null;default:0;uniqueIndex:idx_lesson_section_order,priority:2" json:"order_index"`
	IsPublished bool      `gorm:"default:false" json:"is_published"`

	// Relationships
	Course *Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	Quiz   *Quiz   `gorm:"foreignKey:LessonID;constraint:OnDelete:CASCADE" json:"quiz,omitempty"`
}

// TableName specifies the table name for Lesson
func (Lesson) TableName() string {
	return "lessons"
}
