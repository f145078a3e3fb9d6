package model

import (
	"time"
)

// JWTTokenBlacklist stores revoked access and refresh tokens until they expire
type JWTTokenBlacklist struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Token     string    `gorm:"uniqueIndex;not null;type:varchar(512)" json:"-"`
	ProfileID uint      `gorm:"index" json:"profile_id"`
	Reason    string    `gorm:"type:varchar(100)" json:"reason"` // logout, role_change
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for JWTTokenBlacklist
func (JWTTokenBlacklist) TableName() string {
	return "jwt_token_blacklist"
}
