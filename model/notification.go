package model

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationType represents the severity of a notification
type NotificationType string

const (
	NotificationTypeInfo    NotificationType = "info"
	NotificationTypeSuccess NotificationType = "success"
	NotificationTypeWarning NotificationType = "warning"
)

// NotificationCategory groups notifications by what triggered them
type NotificationCategory string

const (
	NotificationCategoryEnrollment NotificationCategory = "enrollment"
	NotificationCategoryAccount    NotificationCategory = "account"
	NotificationCategoryGeneral    NotificationCategory = "general"
)

// UserNotification is an in-app message for a profile
type UserNotification struct {
	ID        uint                 `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
	ProfileID uint                 `gorm:"index;not null" json:"profile_id"`
	Type      NotificationType     `gorm:"type:varchar(20);not null" json:"type"`
	Category  NotificationCategory `gorm:"type:varchar(30);not null" json:"category"`
	Title     string               `gorm:"type:varchar(255);not null" json:"title"`
	Message   string               `gorm:"type:text" json:"message"`
	Read      bool                 `gorm:"default:false" json:"read"`
	Metadata  datatypes.JSON       `json:"metadata,omitempty"`

	Profile *Profile `gorm:"foreignKey:ProfileID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for UserNotification
func (UserNotification) TableName() string {
	return "notifications"
}

// NotificationMetadata links a notification to the records it is about
type NotificationMetadata struct {
	CourseID     uint   `json:"course_id,omitempty"`
	CourseTitle  string `json:"course_title,omitempty"`
	CourseRunID  uint   `json:"course_run_id,omitempty"`
	EnrollmentID uint   `json:"enrollment_id,omitempty"`
	Role         Role   `json:"role,omitempty"`
}
