package services

import (
	"context"
	"encoding/json"
	"log"

	"github.com/ogzhnbygl/vivolearn/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditService keeps the trail of privileged actions
type AuditService struct {
	db *gorm.DB
}

// NewAuditService creates a new audit service
func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// AuditEntry describes one privileged action
type AuditEntry struct {
	ActorID     uint
	Action      string
	Resource    string
	ResourceID  uint
	OldValue    interface{}
	NewValue    interface{}
	IPAddress   string
	UserAgent   string
	Description string
}

// AuditQuery filters ListAuditLogs
type AuditQuery struct {
	Action   string
	Resource string
	ActorID  uint
	Page     int
	Limit    int
}

func toJSON(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

// Record writes an audit entry. Failures are logged and never surface to
// the action being audited.
func (s *AuditService) Record(ctx context.Context, entry AuditEntry) {
	row := model.AuditLog{
		ActorID:     entry.ActorID,
		Action:      entry.Action,
		Resource:    entry.Resource,
		ResourceID:  entry.ResourceID,
		OldValue:    toJSON(entry.OldValue),
		NewValue:    toJSON(entry.NewValue),
		IPAddress:   entry.IPAddress,
		UserAgent:   entry.UserAgent,
		Description: entry.Description,
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		log.Printf("[AUDIT] Failed to record %s on %s %d: %v", entry.Action, entry.Resource, entry.ResourceID, err)
	}
}

// ListAuditLogs returns a page of audit entries, newest first
func (s *AuditService) ListAuditLogs(ctx context.Context, caller *Caller, q AuditQuery) ([]model.AuditLog, int64, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, 0, err
	}

	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 100 {
		q.Limit = 20
	}

	query := s.db.WithContext(ctx).Model(&model.AuditLog{})
	if q.Action != "" {
		query = query.Where("action = ?", q.Action)
	}
	if q.Resource != "" {
		query = query.Where("resource = ?", q.Resource)
	}
	if q.ActorID != 0 {
		query = query.Where("actor_id = ?", q.ActorID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, persistenceError("failed to count audit logs", err)
	}

	var logs []model.AuditLog
	err := query.Preload("Actor").
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Order("created_at DESC").Order("id DESC").
		Find(&logs).Error
	if err != nil {
		return nil, 0, persistenceError("failed to fetch audit logs", err)
	}
	return logs, total, nil
}

