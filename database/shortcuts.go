package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ShortcutStore handles the shortcuts collection: the pinned link grid on
// the dashboard home screen.
type ShortcutStore struct {
	db *sql.DB

	Now func() time.Time
}

func NewShortcutStore(db *sql.DB) *ShortcutStore {
	return &ShortcutStore{db: db, Now: func() time.Time { return time.Now().UTC() }}
}

func (s *ShortcutStore) Create(ctx context.Context, sc Shortcut) (Shortcut, error) {
	sc.Title = strings.TrimSpace(sc.Title)
	sc.URL = strings.TrimSpace(sc.URL)
	if sc.Title == "" || sc.URL == "" {
		return Shortcut{}, fmt.Errorf("shortcut title and url must not be empty")
	}
	sc.ID = uuid.NewString()
	sc.CreatedAt = s.Now()

	_, err := s.db.ExecContext(ctx, `INSERT INTO shortcuts (id, title, url, color, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		sc.ID, sc.Title, sc.URL, sc.Color, sc.CreatedAt)
	if err != nil {
		return Shortcut{}, fmt.Errorf("failed to insert shortcut: %w", err)
	}
	return sc, nil
}

func (s *ShortcutStore) List(ctx context.Context) ([]Shortcut, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, url, color, created_at
		FROM shortcuts ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query shortcuts: %w", err)
	}
	defer rows.Close()

	var shortcuts []Shortcut
	for rows.Next() {
		var sc Shortcut
		if err := rows.Scan(&sc.ID, &sc.Title, &sc.URL, &sc.Color, &sc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan shortcut: %w", err)
		}
		shortcuts = append(shortcuts, sc)
	}
	return shortcuts, rows.Err()
}

func (s *ShortcutStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM shortcuts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete shortcut: %w", err)
	}
	return affectedOrNotFound(res)
}
