package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/cloudsync/cloudsync/internal/model"
)

// Cache is a local SQLite mirror of server-side metadata so views render
// instantly on startup and between fetches. It is never authoritative:
// every record in it is a copy of something the server returned, and no
// file content is stored.
type Cache struct {
	db *sqlx.DB
}

// NewCache opens (or creates) a SQLite database at dbPath, enables WAL
// mode, and runs any pending schema migrations.
func NewCache(dbPath string) (*Cache, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	c := &Cache{db: db}
	if err := c.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return c, nil
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (c *Cache) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := c.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = c.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := c.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// DeviceID returns this client's stable device identifier, minting and
// persisting a new UUID on first run.
func (c *Cache) DeviceID(ctx context.Context) (string, error) {
	var deviceID string
	err := c.db.GetContext(ctx, &deviceID, "SELECT device_id FROM device_identity WHERE id = 1")
	if err == nil {
		return deviceID, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("reading device identity: %w", err)
	}

	deviceID = uuid.NewString()
	_, err = c.db.ExecContext(ctx,
		"INSERT INTO device_identity (id, device_id) VALUES (1, ?)", deviceID)
	if err != nil {
		return "", fmt.Errorf("storing device identity: %w", err)
	}
	return deviceID, nil
}

// MarkDeviceRegistered records that the backend accepted this device's
// registration, so startup can skip re-registering.
func (c *Cache) MarkDeviceRegistered(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, "UPDATE device_identity SET registered = 1 WHERE id = 1")
	if err != nil {
		return fmt.Errorf("marking device registered: %w", err)
	}
	return nil
}

// IsDeviceRegistered reports whether the device has completed backend
// registration.
func (c *Cache) IsDeviceRegistered(ctx context.Context) (bool, error) {
	var registered bool
	err := c.db.GetContext(ctx, &registered, "SELECT registered FROM device_identity WHERE id = 1")
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading device registration: %w", err)
	}
	return registered, nil
}

// ReplaceNotifications replaces the cached notification feed with a
// freshly fetched page.
func (c *Cache) ReplaceNotifications(ctx context.Context, notifications []model.Notification) error {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM notifications"); err != nil {
		return fmt.Errorf("clearing notification cache: %w", err)
	}

	const query = `
		INSERT OR REPLACE INTO notifications (
			id, user_id, type, title, message, priority,
			resource_id, resource_type, is_read, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, n := range notifications {
		_, err := stmt.ExecContext(ctx,
			n.Key(), n.UserID, string(n.Type), n.Title, n.Message, n.Priority,
			n.ResourceID, n.ResourceType, n.IsRead, n.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("caching notification %s: %w", n.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetNotifications returns the cached feed, newest first.
func (c *Cache) GetNotifications(ctx context.Context, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	var notifications []model.Notification
	err := c.db.SelectContext(ctx, &notifications,
		"SELECT id, user_id, type, title, message, priority, resource_id, resource_type, is_read, created_at FROM notifications ORDER BY created_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("reading notification cache: %w", err)
	}
	return notifications, nil
}

// UnreadNotificationCount returns the unread count of the cached feed.
func (c *Cache) UnreadNotificationCount(ctx context.Context) (int, error) {
	var count int
	err := c.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM notifications WHERE is_read = 0")
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return count, nil
}

// UpsertFiles inserts or replaces a batch of cached file metadata records.
func (c *Cache) UpsertFiles(ctx context.Context, files []model.FileInfo) error {
	if len(files) == 0 {
		return nil
	}

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT OR REPLACE INTO files (
			id, name, path, size, mime_type, hash, version,
			is_folder, parent_folder_id, owner_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing upsert statement: %w", err)
	}
	defer stmt.Close()

	for _, f := range files {
		_, err := stmt.ExecContext(ctx,
			f.ID, f.Name, f.Path, f.Size, f.MimeType, f.Hash, f.Version,
			f.IsFolder, f.ParentFolderID, f.OwnerID, f.CreatedAt, f.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("caching file %s: %w", f.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetFiles returns cached file metadata under the given parent folder
// ("" means the root listing), folders first, then by name.
func (c *Cache) GetFiles(ctx context.Context, parentFolderID string) ([]model.FileInfo, error) {
	var files []model.FileInfo
	err := c.db.SelectContext(ctx, &files,
		"SELECT id, name, path, size, mime_type, hash, version, is_folder, parent_folder_id, owner_id, created_at, updated_at FROM files WHERE parent_folder_id = ? ORDER BY is_folder DESC, name",
		parentFolderID,
	)
	if err != nil {
		return nil, fmt.Errorf("reading file cache: %w", err)
	}
	return files, nil
}

// DeleteFile removes one file from the cache.
func (c *Cache) DeleteFile(ctx context.Context, fileID string) error {
	if _, err := c.db.ExecContext(ctx, "DELETE FROM files WHERE id = ?", fileID); err != nil {
		return fmt.Errorf("evicting file %s: %w", fileID, err)
	}
	return nil
}

// SaveSyncCursor appends the latest pull cursor for a device.
func (c *Cache) SaveSyncCursor(ctx context.Context, deviceID, cursor string) error {
	_, err := c.db.ExecContext(ctx,
		"INSERT INTO sync_log (device_id, cursor) VALUES (?, ?)", deviceID, cursor)
	if err != nil {
		return fmt.Errorf("saving sync cursor: %w", err)
	}
	return nil
}

// GetSyncCursor returns the most recent pull cursor for a device, or ""
// when the device has never pulled.
func (c *Cache) GetSyncCursor(ctx context.Context, deviceID string) (string, error) {
	var cursor string
	err := c.db.GetContext(ctx, &cursor,
		"SELECT cursor FROM sync_log WHERE device_id = ? ORDER BY id DESC LIMIT 1", deviceID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading sync cursor: %w", err)
	}
	return cursor, nil
}
