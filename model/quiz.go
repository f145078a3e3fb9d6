package model

import (
	"time"

	"gorm.io/datatypes"
)

// Quiz is the optional assessment attached to a lesson (at most one per lesson)
type Quiz struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	LessonID        uint      `gorm:"not null;index" json:"lesson_id"`
	Title           string    `gorm:"not null" json:"title"`
	Description     string    `gorm:"type:text" json:"description"`
	PassingScore    int       `gorm:"not null;default:0" json:"passing_score"`
	DurationSeconds *int      `json:"duration_seconds,omitempty"` // Display only, not enforced

	// Relationships
	Questions []QuizQuestion `gorm:"foreignKey:QuizID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
}

// TableName specifies the table name for Quiz
func (Quiz) TableName() string {
	return "quizzes"
}

// QuizQuestion is a single prompt inside a quiz
type QuizQuestion struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	QuizID     uint      `gorm:"not null;index" json:"quiz_id"`
	Prompt     string    `gorm:"type:text;not null" json:"prompt"`
	OrderIndex int       `gorm:"default:0" json:"order_index"`

	// Relationships
	Options []QuizOption `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"options,omitempty"`
}

// TableName specifies the table name for QuizQuestion
func (QuizQuestion) TableName() string {
	return "quiz_questions"
}

// QuizOption is a selectable answer; several options of one question may be correct
type QuizOption struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	QuestionID uint      `gorm:"not null;index" json:"question_id"`
	Text       string    `gorm:"type:text;not null" json:"text"`
	IsCorrect  bool      `gorm:"default:false" json:"is_correct"`
}

// TableName specifies the table name for QuizOption
func (QuizOption) TableName() string {
	return "quiz_options"
}

// QuizAttemptStatus is the lifecycle state of an attempt
type QuizAttemptStatus string

const (
	AttemptInProgress QuizAttemptStatus = "in_progress"
	AttemptSubmitted  QuizAttemptStatus = "submitted"
	AttemptGraded     QuizAttemptStatus = "graded"
)

// AttemptAnswers maps question ID to the chosen option ID
type AttemptAnswers map[uint]uint

// QuizAttempt is a student's latest submission for a quiz
type QuizAttempt struct {
	ID          uint                               `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time                          `json:"created_at"`
	UpdatedAt   time.Time                          `json:"updated_at"`
	QuizID      uint                               `gorm:"not null;uniqueIndex:idx_attempt_quiz_student,priority:1" json:"quiz_id"`
	StudentID   uint                               `gorm:"not null;uniqueIndex:idx_attempt_quiz_student,priority:2;index" json:"student_id"`
	Status      QuizAttemptStatus                  `gorm:"type:varchar(20);not null;default:'in_progress'" json:"status"`
	Answers     datatypes.JSONType[AttemptAnswers] `json:"answers"`
	Score       int                                `gorm:"default:0" json:"score"`
	StartedAt   time.Time                          `json:"started_at"`
	SubmittedAt *time.Time                         `json:"submitted_at"`
	GradedAt    *time.Time                         `json:"graded_at,omitempty"`
}

// TableName specifies the table name for QuizAttempt
func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}
