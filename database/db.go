package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"
)

// InitDB opens the SQLite database and creates the collections the dashboard
// uses: todos (plus the uid-keyed seenBy side table), onlineUsers, projects
// and shortcuts.
func InitDB(path string, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=ON", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows a single writer; serializing through one connection
	// keeps concurrent handler goroutines from tripping SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS todos (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'todo',
			price REAL,
			attachments TEXT NOT NULL DEFAULT '[]',
			created_by TEXT,
			archived_by TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_todos_status ON todos(status, updated_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_todos_project ON todos(project_id)`,
		`CREATE TABLE IF NOT EXISTS todo_seen_by (
			todo_id TEXT NOT NULL,
			uid TEXT NOT NULL,
			display_name TEXT NOT NULL DEFAULT '',
			photo_url TEXT NOT NULL DEFAULT '',
			seen_at TIMESTAMP NOT NULL,
			PRIMARY KEY (todo_id, uid),
			FOREIGN KEY (todo_id) REFERENCES todos(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS online_users (
			uid TEXT PRIMARY KEY,
			display_name TEXT NOT NULL DEFAULT '',
			photo_url TEXT NOT NULL DEFAULT '',
			last_active TIMESTAMP NOT NULL,
			access INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			logo_url TEXT NOT NULL DEFAULT '',
			archived INTEGER NOT NULL DEFAULT 0,
			deleted INTEGER NOT NULL DEFAULT 0,
			archived_by TEXT,
			deleted_by TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS shortcuts (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			url TEXT NOT NULL,
			color TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migration: %w", err)
		}
	}

	logger.Info("database initialized", "path", path)
	return db, nil
}
