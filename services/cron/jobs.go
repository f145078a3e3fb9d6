package cron

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ogzhnbygl/vivolearn/model"
	"github.com/ogzhnbygl/vivolearn/services"
)

// Retention periods for CleanupOldData
const (
	NotificationRetention = 90 * 24 * time.Hour
	CronLogRetention      = 90 * 24 * time.Hour
	AuditLogRetention     = 365 * 24 * time.Hour
)

// warmCatalogLock keeps several instances from rebuilding the catalog at once
const warmCatalogLock = "lock:cron:warm_catalog"

// CleanupExpiredTokens removes blacklist entries whose token expired anyway
// Runs every hour
func (m *CronManager) CleanupExpiredTokens() {
	m.run("cleanup_expired_tokens", time.Minute, func(ctx context.Context) (string, map[string]interface{}, error) {
		removed, err := m.blacklist.CleanupExpiredTokens(ctx)
		if err != nil {
			return "", nil, fmt.Errorf("failed to clean token blacklist: %w", err)
		}
		return fmt.Sprintf("Removed %d expired tokens", removed), map[string]interface{}{"removed": removed}, nil
	})
}

// WarmCatalog recomputes the open/upcoming/past partition and stores it in
// the view cache. Runs every 5 minutes so run windows opening or closing are
// reflected without a write to invalidate the cache.
func (m *CronManager) WarmCatalog() {
	if m.cache == nil {
		return
	}

	m.run("warm_catalog", time.Minute, func(ctx context.Context) (string, map[string]interface{}, error) {
		acquired, err := m.cache.SetNX(ctx, warmCatalogLock, time.Now().Unix(), time.Minute)
		if err != nil {
			return "", nil, fmt.Errorf("failed to take catalog lock: %w", err)
		}
		if !acquired {
			return "Skipped, another instance holds the lock", nil, nil
		}
		defer func() {
			if err := m.cache.Delete(context.Background(), warmCatalogLock); err != nil {
				log.Printf("[CRON] Failed to release catalog lock: %v", err)
			}
		}()

		partition, err := m.catalog.Catalog(ctx)
		if err != nil {
			return "", nil, err
		}
		key := services.ViewCacheKey(services.ViewCatalog)
		if err := m.cache.SetJSON(ctx, key, partition, services.CatalogCacheTTL); err != nil {
			return "", nil, fmt.Errorf("failed to cache catalog: %w", err)
		}

		return "Catalog cached", map[string]interface{}{
			"open":     len(partition.Open),
			"upcoming": len(partition.Upcoming),
			"past":     len(partition.Past),
		}, nil
	})
}

// CleanupOldData applies the retention periods
// Runs daily at 2 AM
func (m *CronManager) CleanupOldData() {
	m.run("cleanup_old_data", 10*time.Minute, func(ctx context.Context) (string, map[string]interface{}, error) {
		totalCleaned := int64(0)
		stats := map[string]interface{}{}

		// 1. Read notifications
		removed, err := m.notifications.CleanupOldNotifications(ctx, NotificationRetention)
		if err != nil {
			log.Printf("[CRON] Failed to clean notifications: %v", err)
		} else {
			stats["notifications"] = removed
			totalCleaned += removed
		}

		// 2. Cron job logs
		result := m.db.WithContext(ctx).Where("created_at < ?", time.Now().UTC().Add(-CronLogRetention)).Delete(&model.CronJobLog{})
		if result.Error != nil {
			log.Printf("[CRON] Failed to clean cron logs: %v", result.Error)
		} else {
			log.Printf("[CRON] Cleaned %d old cron logs", result.RowsAffected)
			stats["cron_logs"] = result.RowsAffected
			totalCleaned += result.RowsAffected
		}

		// 3. Audit logs
		result = m.db.WithContext(ctx).Where("created_at < ?", time.Now().UTC().Add(-AuditLogRetention)).Delete(&model.AuditLog{})
		if result.Error != nil {
			log.Printf("[CRON] Failed to clean audit logs: %v", result.Error)
		} else {
			log.Printf("[CRON] Cleaned %d old audit logs", result.RowsAffected)
			stats["audit_logs"] = result.RowsAffected
			totalCleaned += result.RowsAffected
		}

		return fmt.Sprintf("Cleaned up %d total records", totalCleaned), stats, nil
	})
}
