package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS device_identity (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	device_id  TEXT NOT NULL,
	registered INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS notifications (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL DEFAULT '',
	type          TEXT NOT NULL,
	title         TEXT NOT NULL DEFAULT '',
	message       TEXT NOT NULL DEFAULT '',
	priority      TEXT NOT NULL DEFAULT '',
	resource_id   TEXT NOT NULL DEFAULT '',
	resource_type TEXT NOT NULL DEFAULT '',
	is_read       INTEGER NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
	id               TEXT PRIMARY KEY,
	name             TEXT NOT NULL,
	path             TEXT NOT NULL DEFAULT '',
	size             INTEGER NOT NULL DEFAULT 0,
	mime_type        TEXT NOT NULL DEFAULT '',
	hash             TEXT NOT NULL DEFAULT '',
	version          INTEGER NOT NULL DEFAULT 1,
	is_folder        INTEGER NOT NULL DEFAULT 0,
	parent_folder_id TEXT NOT NULL DEFAULT '',
	owner_id         TEXT NOT NULL DEFAULT '',
	created_at       DATETIME NOT NULL,
	updated_at       DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_log (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	device_id  TEXT NOT NULL,
	cursor     TEXT NOT NULL DEFAULT '',
	synced_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_notifications_created ON notifications(created_at);
CREATE INDEX IF NOT EXISTS idx_notifications_is_read ON notifications(is_read);
CREATE INDEX IF NOT EXISTS idx_files_parent ON files(parent_folder_id);
CREATE INDEX IF NOT EXISTS idx_sync_log_device ON sync_log(device_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
