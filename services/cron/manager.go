package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/ogzhnbygl/vivolearn/model"
	"github.com/ogzhnbygl/vivolearn/services"
	"github.com/ogzhnbygl/vivolearn/utils/auth"
	"github.com/ogzhnbygl/vivolearn/utils/cache"
	"github.com/robfig/cron/v3"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CronManager manages all scheduled maintenance jobs
type CronManager struct {
	cron          *cron.Cron
	db            *gorm.DB
	blacklist     *auth.BlacklistService
	notifications *services.NotificationService
	catalog       *services.CatalogService
	cache         *cache.RedisCache
}

// NewCronManager creates a new cron manager. redisCache may be nil, in
// which case the catalog warmup job is not registered.
func NewCronManager(db *gorm.DB, blacklist *auth.BlacklistService, notifications *services.NotificationService, catalog *services.CatalogService, redisCache *cache.RedisCache) *CronManager {
	// Create cron with seconds precision
	c := cron.New(cron.WithSeconds())

	return &CronManager{
		cron:          c,
		db:            db,
		blacklist:     blacklist,
		notifications: notifications,
		catalog:       catalog,
		cache:         redisCache,
	}
}

// Start starts all cron jobs
func (m *CronManager) Start() error {
	log.Println("[CRON] Starting cron jobs...")

	if err := m.registerJobs(); err != nil {
		return err
	}

	m.cron.Start()

	log.Println("[CRON] Cron jobs started successfully")
	return nil
}

// Stop stops all cron jobs and waits for running ones to finish
func (m *CronManager) Stop() {
	log.Println("[CRON] Stopping cron jobs...")
	ctx := m.cron.Stop()
	<-ctx.Done()
	log.Println("[CRON] Cron jobs stopped")
}

// registerJobs registers all cron jobs with their schedules
func (m *CronManager) registerJobs() error {
	// 1. Every hour: drop expired entries from the token blacklist
	if _, err := m.cron.AddFunc("0 0 * * * *", m.CleanupExpiredTokens); err != nil {
		return err
	}

	// 2. Every 5 minutes: rebuild the cached catalog partition
	if m.cache != nil {
		if _, err := m.cron.AddFunc("0 */5 * * * *", m.WarmCatalog); err != nil {
			return err
		}
	}

	// 3. Daily at 2 AM: retention cleanup
	if _, err := m.cron.AddFunc("0 0 2 * * *", m.CleanupOldData); err != nil {
		return err
	}

	log.Println("[CRON] All cron jobs registered successfully")
	return nil
}

// run executes one job and records it in cron_job_logs
func (m *CronManager) run(jobName string, timeout time.Duration, job func(ctx context.Context) (string, map[string]interface{}, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	entry := m.logJobStart(jobName)
	message, metadata, err := job(ctx)
	if err != nil {
		m.logJobError(entry, err)
		return
	}
	m.logJobComplete(entry, message, metadata)
}

// logJobStart logs the start of a cron job
func (m *CronManager) logJobStart(jobName string) *model.CronJobLog {
	log.Printf("[CRON] Starting job: %s at %s", jobName, time.Now().Format(time.RFC3339))

	entry := &model.CronJobLog{
		JobName:   jobName,
		Status:    model.CronStatusStarted,
		StartedAt: time.Now().UTC(),
	}
	if err := m.db.Create(entry).Error; err != nil {
		log.Printf("[CRON] Failed to record start of %s: %v", jobName, err)
	}
	return entry
}

// logJobComplete logs successful completion of a cron job
func (m *CronManager) logJobComplete(entry *model.CronJobLog, message string, metadata map[string]interface{}) {
	log.Printf("[CRON] Completed job: %s - %s", entry.JobName, message)

	updates := map[string]interface{}{
		"status":       model.CronStatusCompleted,
		"completed_at": time.Now().UTC(),
		"duration":     time.Since(entry.StartedAt).Milliseconds(),
		"message":      message,
	}
	if len(metadata) > 0 {
		if b, err := json.Marshal(metadata); err == nil {
			updates["metadata"] = datatypes.JSON(b)
		}
	}
	m.updateEntry(entry, updates)
}

// logJobError logs a cron job error
func (m *CronManager) logJobError(entry *model.CronJobLog, err error) {
	log.Printf("[CRON] Error in job: %s - %v", entry.JobName, err)

	m.updateEntry(entry, map[string]interface{}{
		"status":       model.CronStatusFailed,
		"completed_at": time.Now().UTC(),
		"duration":     time.Since(entry.StartedAt).Milliseconds(),
		"error_msg":    err.Error(),
	})
}

func (m *CronManager) updateEntry(entry *model.CronJobLog, updates map[string]interface{}) {
	if entry.ID == 0 {
		return
	}
	if err := m.db.Model(&model.CronJobLog{}).Where("id = ?", entry.ID).Updates(updates).Error; err != nil {
		log.Printf("[CRON] Failed to update log of %s: %v", entry.JobName, err)
	}
}
