package auth

import (
	"context"
	"time"

	"github.com/ogzhnbygl/vivolearn/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BlacklistService handles JWT token revocation
type BlacklistService struct {
	db *gorm.DB
}

// NewBlacklistService creates a new blacklist service
func NewBlacklistService(db *gorm.DB) *BlacklistService {
	return &BlacklistService{db: db}
}

// RevokeToken adds a token ID to the blacklist; revoking twice is a no-op
func (s *BlacklistService) RevokeToken(ctx context.Context, jti string, profileID uint, expiresAt time.Time, reason string) error {
	entry := model.JWTTokenBlacklist{
		Token:     jti,
		ProfileID: profileID,
		Reason:    reason,
		ExpiresAt: expiresAt.UTC(),
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error
}

// IsTokenRevoked checks if a token is in the blacklist
func (s *BlacklistService) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.JWTTokenBlacklist{}).
		Where("token = ? AND expires_at > ?", jti, time.Now().UTC()).
		Count(&count).
		Error

	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// RevokeAllProfileTokens increments the profile's token version so every
// token issued before is rejected
func (s *BlacklistService) RevokeAllProfileTokens(ctx context.Context, db *gorm.DB, profileID uint) error {
	if db == nil {
		db = s.db
	}
	return db.WithContext(ctx).
		Model(&model.Profile{}).
		Where("id = ?", profileID).
		UpdateColumn("token_version", gorm.Expr("token_version + ?", 1)).
		Error
}

// CleanupExpiredTokens removes expired entries from the blacklist
func (s *BlacklistService) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at < ?", time.Now().UTC()).
		Delete(&model.JWTTokenBlacklist{})
	return result.RowsAffected, result.Error
}
