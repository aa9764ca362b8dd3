package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudsync/cloudsync/internal/model"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := NewCache(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNewCacheRunsMigrations(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")

	c, err := NewCache(dbPath)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	// Reopening the same file must not reapply migrations.
	c, err = NewCache(dbPath)
	require.NoError(t, err)
	defer c.Close()

	var version int
	require.NoError(t, c.db.Get(&version, "SELECT MAX(version) FROM schema_version"))
	assert.Equal(t, 1, version)
}

func TestDeviceIDIsStable(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	c, err := NewCache(dbPath)
	require.NoError(t, err)

	first, err := c.DeviceID(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	again, err := c.DeviceID(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, again)
	require.NoError(t, c.Close())

	// The identity survives reopening the database.
	c, err = NewCache(dbPath)
	require.NoError(t, err)
	defer c.Close()

	reopened, err := c.DeviceID(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, reopened)
}

func TestDeviceRegistration(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	registered, err := c.IsDeviceRegistered(ctx)
	require.NoError(t, err)
	assert.False(t, registered)

	_, err = c.DeviceID(ctx)
	require.NoError(t, err)
	require.NoError(t, c.MarkDeviceRegistered(ctx))

	registered, err = c.IsDeviceRegistered(ctx)
	require.NoError(t, err)
	assert.True(t, registered)
}

func TestReplaceAndGetNotifications(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	batch := []model.Notification{
		{ID: "old", Type: model.TypeFileUploaded, Title: "Old", CreatedAt: now.Add(-time.Hour)},
		{ID: "new", Type: model.TypeFileShared, Title: "New", IsRead: true, CreatedAt: now},
	}
	require.NoError(t, c.ReplaceNotifications(ctx, batch))

	got, err := c.GetNotifications(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].ID, "newest first")
	assert.True(t, got[0].IsRead)
	assert.Equal(t, "old", got[1].ID)

	count, err := c.UnreadNotificationCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// A second replace fully supersedes the first.
	require.NoError(t, c.ReplaceNotifications(ctx, batch[:1]))
	got, err = c.GetNotifications(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestReplaceNotificationsUsesPushFrameID(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.ReplaceNotifications(ctx, []model.Notification{
		{NotificationID: "push-1", Type: model.TypeQuotaChanged, CreatedAt: time.Now()},
	}))

	got, err := c.GetNotifications(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "push-1", got[0].ID)
}

func TestUpsertAndGetFiles(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	files := []model.FileInfo{
		{ID: "f1", Name: "beta.txt", ParentFolderID: "root", Size: 10, CreatedAt: now, UpdatedAt: now},
		{ID: "d1", Name: "alpha", ParentFolderID: "root", IsFolder: true, CreatedAt: now, UpdatedAt: now},
		{ID: "f2", Name: "other.txt", ParentFolderID: "elsewhere", CreatedAt: now, UpdatedAt: now},
	}
	require.NoError(t, c.UpsertFiles(ctx, files))

	got, err := c.GetFiles(ctx, "root")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "d1", got[0].ID, "folders sort first")
	assert.Equal(t, "f1", got[1].ID)

	// Upsert with the same id replaces the record.
	files[0].Name = "beta-renamed.txt"
	files[0].Version = 2
	require.NoError(t, c.UpsertFiles(ctx, files[:1]))

	got, err = c.GetFiles(ctx, "root")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "beta-renamed.txt", got[1].Name)
	assert.Equal(t, 2, got[1].Version)
}

func TestDeleteFileEvictsRecord(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.UpsertFiles(ctx, []model.FileInfo{{ID: "f1", Name: "a", ParentFolderID: ""}}))
	require.NoError(t, c.DeleteFile(ctx, "f1"))

	got, err := c.GetFiles(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSyncCursorRoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	cursor, err := c.GetSyncCursor(ctx, "dev-1")
	require.NoError(t, err)
	assert.Empty(t, cursor, "never-pulled device has no cursor")

	require.NoError(t, c.SaveSyncCursor(ctx, "dev-1", "cursor-1"))
	require.NoError(t, c.SaveSyncCursor(ctx, "dev-1", "cursor-2"))
	require.NoError(t, c.SaveSyncCursor(ctx, "dev-2", "other"))

	cursor, err = c.GetSyncCursor(ctx, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, "cursor-2", cursor, "latest cursor wins")

	cursor, err = c.GetSyncCursor(ctx, "dev-2")
	require.NoError(t, err)
	assert.Equal(t, "other", cursor)
}
