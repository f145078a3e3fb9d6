package services

import (
	"testing"
	"time"

	"github.com/ogzhnbygl/vivolearn/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func notify(t *testing.T, env *testEnv, to *Caller, title string) *model.UserNotification {
	t.Helper()
	n, err := env.notifications.CreateNotification(env.ctx, CreateNotificationRequest{
		ProfileID: to.ProfileID,
		Type:      model.NotificationTypeInfo,
		Category:  model.NotificationCategoryGeneral,
		Title:     title,
	})
	require.NoError(t, err)
	return n
}

func TestNotificationsAreScopedToCaller(t *testing.T) {
	env := setupTestEnv(t)
	alice := env.createStudent(t, "alice")
	bob := env.createStudent(t, "bob")

	first := notify(t, env, alice, "first")
	notify(t, env, alice, "second")
	notify(t, env, bob, "for bob")

	list, total, err := env.notifications.List(env.ctx, alice, ListNotificationsOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "second", list[0].Title)

	err = env.notifications.MarkAsRead(env.ctx, bob, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, env.notifications.MarkAsRead(env.ctx, alice, first.ID))
	unread, err := env.notifications.GetUnreadCount(env.ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	marked, err := env.notifications.MarkAllAsRead(env.ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked)

	unreadOnly, _, err := env.notifications.List(env.ctx, alice, ListNotificationsOptions{UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unreadOnly)

	bobUnread, err := env.notifications.GetUnreadCount(env.ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(1), bobUnread)

	_, _, err = env.notifications.List(env.ctx, nil, ListNotificationsOptions{})
	assert.ErrorIs(t, err, ErrAuth)
}

func TestCleanupOldNotificationsKeepsUnread(t *testing.T) {
	env := setupTestEnv(t)
	student := env.createStudent(t, "archivist")

	oldRead := notify(t, env, student, "old read")
	oldUnread := notify(t, env, student, "old unread")
	notify(t, env, student, "recent")

	past := time.Now().UTC().Add(-100 * 24 * time.Hour)
	require.NoError(t, env.db.Model(&model.UserNotification{}).
		Where("id IN ?", []uint{oldRead.ID, oldUnread.ID}).
		UpdateColumn("created_at", past).Error)
	require.NoError(t, env.notifications.MarkAsRead(env.ctx, student, oldRead.ID))

	removed, err := env.notifications.CleanupOldNotifications(env.ctx, 90*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, total, err := env.notifications.List(env.ctx, student, ListNotificationsOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}
