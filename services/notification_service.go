package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/ogzhnbygl/vivolearn/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationService handles in-app notifications
type NotificationService struct {
	db *gorm.DB
}

// NewNotificationService creates a new notification service
func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// CreateNotificationRequest represents a request to create a notification
type CreateNotificationRequest struct {
	ProfileID uint
	Type      model.NotificationType
	Category  model.NotificationCategory
	Title     string
	Message   string
	Metadata  *model.NotificationMetadata
}

// ListNotificationsOptions represents options for listing notifications
type ListNotificationsOptions struct {
	ProfileID  uint
	UnreadOnly bool
	Category   string
	Limit      int
	Offset     int
}

// CreateNotification creates a new notification for a profile
func (s *NotificationService) CreateNotification(ctx context.Context, req CreateNotificationRequest) (*model.UserNotification, error) {
	notification := &model.UserNotification{
		ProfileID: req.ProfileID,
		Type:      req.Type,
		Category:  req.Category,
		Title:     req.Title,
		Message:   req.Message,
	}

	if req.Metadata != nil {
		metadataJSON, err := json.Marshal(req.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal metadata: %w", err)
		}
		notification.Metadata = datatypes.JSON(metadataJSON)
	}

	if err := s.db.WithContext(ctx).Create(notification).Error; err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	log.Printf("[NOTIFY] Created notification %d for profile %d: %s", notification.ID, req.ProfileID, req.Title)
	return notification, nil
}

// List returns the caller's notifications, most recent first
func (s *NotificationService) List(ctx context.Context, caller *Caller, opts ListNotificationsOptions) ([]model.UserNotification, int64, error) {
	if err := requireCaller(caller); err != nil {
		return nil, 0, err
	}

	var notifications []model.UserNotification
	var total int64

	query := s.db.WithContext(ctx).Model(&model.UserNotification{}).
		Where("profile_id = ?", caller.ProfileID)

	if opts.UnreadOnly {
		query = query.Where("read = ?", false)
	}
	if opts.Category != "" {
		query = query.Where("category = ?", opts.Category)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, persistenceError("failed to count notifications", err)
	}

	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	} else {
		query = query.Limit(50)
	}
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}

	if err := query.Order("created_at DESC").Order("id DESC").Find(&notifications).Error; err != nil {
		return nil, 0, persistenceError("failed to fetch notifications", err)
	}

	return notifications, total, nil
}

// MarkAsRead marks one of the caller's notifications as read
func (s *NotificationService) MarkAsRead(ctx context.Context, caller *Caller, notificationID uint) error {
	if err := requireCaller(caller); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Model(&model.UserNotification{}).
		Where("id = ? AND profile_id = ?", notificationID, caller.ProfileID).
		Update("read", true)
	if result.Error != nil {
		return persistenceError("failed to mark notification as read", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFoundError("notification not found")
	}
	return nil
}

// MarkAllAsRead marks all of the caller's notifications as read
func (s *NotificationService) MarkAllAsRead(ctx context.Context, caller *Caller) (int64, error) {
	if err := requireCaller(caller); err != nil {
		return 0, err
	}

	result := s.db.WithContext(ctx).Model(&model.UserNotification{}).
		Where("profile_id = ? AND read = ?", caller.ProfileID, false).
		Update("read", true)
	if result.Error != nil {
		return 0, persistenceError("failed to mark all notifications as read", result.Error)
	}
	return result.RowsAffected, nil
}

// GetUnreadCount returns the number of unread notifications of the caller
func (s *NotificationService) GetUnreadCount(ctx context.Context, caller *Caller) (int64, error) {
	if err := requireCaller(caller); err != nil {
		return 0, err
	}

	var count int64
	err := s.db.WithContext(ctx).Model(&model.UserNotification{}).
		Where("profile_id = ? AND read = ?", caller.ProfileID, false).
		Count(&count).Error
	if err != nil {
		return 0, persistenceError("failed to count unread notifications", err)
	}
	return count, nil
}

// CleanupOldNotifications removes read notifications older than the given age
func (s *NotificationService) CleanupOldNotifications(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	result := s.db.WithContext(ctx).
		Where("created_at < ? AND read = ?", cutoff, true).
		Delete(&model.UserNotification{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to cleanup old notifications: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		log.Printf("[NOTIFY] Cleaned up %d old notifications", result.RowsAffected)
	}
	return result.RowsAffected, nil
}
