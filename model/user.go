package model

import (
	"time"

	"gorm.io/gorm"
)

// Role is the platform role carried by a profile
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// Profile represents a registered person on the platform
type Profile struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"` // Never expose password in JSON
	FullName     string         `gorm:"type:varchar(255)" json:"full_name"`
	AvatarURL    string         `gorm:"type:text" json:"avatar_url,omitempty"`
	Role         Role           `gorm:"type:varchar(20);not null;default:'student'" json:"role"`
	TokenVersion int            `gorm:"default:0" json:"-"` // Increment to invalidate all profile tokens

	// Relationships
	Courses     []Course     `gorm:"foreignKey:InstructorID" json:"-"`
	Enrollments []Enrollment `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for Profile
func (Profile) TableName() string {
	return "profiles"
}

// DisplayName returns the full name, falling back to the email
func (p *Profile) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	return p.Email
}

// ProfileSummary is the public projection of a profile embedded in other responses
type ProfileSummary struct {
	ID       uint   `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// Summary returns the public projection of the profile
func (p *Profile) Summary() ProfileSummary {
	return ProfileSummary{ID: p.ID, FullName: p.FullName, Email: p.Email}
}
