package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ogzhnbygl/vivolearn/utils/cache"
)

// ViewsChannel is the Redis channel that carries stale view names
const ViewsChannel = "vivolearn:views"

// CatalogCacheTTL bounds how long a cached catalog may be served
const CatalogCacheTTL = 5 * time.Minute

// Named views whose cached rendering depends on rule-engine state
const (
	ViewCatalog      = "catalog"
	ViewApplications = "applications"
)

func ViewCourse(courseID uint) string { return fmt.Sprintf("course:%d", courseID) }
func ViewProfile(profileID uint) string { return fmt.Sprintf("profile:%d", profileID) }
func ViewInstructor(profileID uint) string { return fmt.Sprintf("instructor:%d", profileID) }
func ViewLesson(lessonID uint) string { return fmt.Sprintf("lesson:%d", lessonID) }
func ViewQuiz(lessonID uint) string { return fmt.Sprintf("quiz:%d", lessonID) }
func ViewRunProgress(runID uint) string { return fmt.Sprintf("progress:run:%d", runID) }
func ViewCacheKey(view string) string { return "view:" + view }

// ViewInvalidator tells cached views that their data changed
type ViewInvalidator interface {
	Invalidate(ctx context.Context, views ...string) error
}

// NoopViewInvalidator is used when no cache is configured
type NoopViewInvalidator struct{}

func (NoopViewInvalidator) Invalidate(ctx context.Context, views ...string) error { return nil }

// RedisViewInvalidator drops cached view payloads and announces the stale
// view names on ViewsChannel
type RedisViewInvalidator struct {
	cache *cache.RedisCache
}

// NewRedisViewInvalidator creates a Redis-backed invalidator
func NewRedisViewInvalidator(redisCache *cache.RedisCache) *RedisViewInvalidator {
	return &RedisViewInvalidator{cache: redisCache}
}

// Invalidate deletes the cached payload of each view and publishes its name
func (r *RedisViewInvalidator) Invalidate(ctx context.Context, views ...string) error {
	if len(views) == 0 {
		return nil
	}

	keys := make([]string, 0, len(views))
	for _, v := range views {
		keys = append(keys, ViewCacheKey(v))
	}

	if err := r.cache.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("failed to delete view cache: %w", err)
	}

	for _, v := range views {
		if err := r.cache.Publish(ctx, ViewsChannel, v); err != nil {
			return fmt.Errorf("failed to publish view %s: %w", v, err)
		}
	}
	return nil
}

// signalViews is fire-and-forget: failures are logged, never returned
func signalViews(inv ViewInvalidator, views ...string) {
	if inv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := inv.Invalidate(ctx, views...); err != nil {
		log.Printf("[VIEWS] Failed to invalidate %v: %v", views, err)
	}
}
