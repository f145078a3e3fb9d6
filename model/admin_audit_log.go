package model

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog records privileged actions: role changes, enrollment decisions
// and admin requests
type AuditLog struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ActorID     uint           `gorm:"not null;index" json:"actor_id"`
	Action      string         `gorm:"type:varchar(100);not null;index" json:"action"` // e.g. "role_update", "enrollment_approved"
	Resource    string         `gorm:"type:varchar(100)" json:"resource"`              // e.g. "profiles", "enrollments"
	ResourceID  uint           `json:"resource_id"`
	OldValue    datatypes.JSON `json:"old_value,omitempty"`
	NewValue    datatypes.JSON `json:"new_value,omitempty"`
	IPAddress   string         `gorm:"type:varchar(45)" json:"ip_address,omitempty"`
	UserAgent   string         `gorm:"type:text" json:"user_agent,omitempty"`
	Description string         `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`

	Actor *Profile `gorm:"foreignKey:ActorID;constraint:OnDelete:CASCADE" json:"actor,omitempty"`
}

// TableName specifies the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}
