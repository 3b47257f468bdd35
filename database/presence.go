package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PresenceStore handles the onlineUsers collection: per-identity liveness
// plus the admin-controlled access flag.
type PresenceStore struct {
	db *sql.DB

	Now func() time.Time
}

func NewPresenceStore(db *sql.DB) *PresenceStore {
	return &PresenceStore{db: db, Now: func() time.Time { return time.Now().UTC() }}
}

// Heartbeat upserts {lastActive: now} merged into the identity's record.
// Merge semantics are mandatory: the statement never touches the access
// column, so a heartbeat can never revoke an accumulated grant.
func (s *PresenceStore) Heartbeat(ctx context.Context, uid, displayName, photoURL string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO online_users (uid, display_name, photo_url, last_active)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(uid) DO UPDATE SET
			display_name = excluded.display_name,
			photo_url = excluded.photo_url,
			last_active = excluded.last_active`,
		uid, displayName, photoURL, s.Now())
	if err != nil {
		return fmt.Errorf("failed to upsert presence: %w", err)
	}
	return nil
}

// Get fetches one presence record, or ErrNotFound.
func (s *PresenceStore) Get(ctx context.Context, uid string) (OnlineUser, error) {
	var (
		u      OnlineUser
		access sql.NullBool
	)
	err := s.db.QueryRowContext(ctx, `SELECT uid, display_name, photo_url, last_active, access
		FROM online_users WHERE uid = ?`, uid).
		Scan(&u.UID, &u.DisplayName, &u.PhotoURL, &u.LastActive, &access)
	if err == sql.ErrNoRows {
		return OnlineUser{}, ErrNotFound
	}
	if err != nil {
		return OnlineUser{}, fmt.Errorf("failed to query presence: %w", err)
	}
	if access.Valid {
		u.Access = &access.Bool
	}
	return u, nil
}

// List returns all presence records, most recently active first.
func (s *PresenceStore) List(ctx context.Context) ([]OnlineUser, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT uid, display_name, photo_url, last_active, access
		FROM online_users ORDER BY last_active DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query presence records: %w", err)
	}
	defer rows.Close()

	var users []OnlineUser
	for rows.Next() {
		var (
			u      OnlineUser
			access sql.NullBool
		)
		if err := rows.Scan(&u.UID, &u.DisplayName, &u.PhotoURL, &u.LastActive, &access); err != nil {
			return nil, fmt.Errorf("failed to scan presence record: %w", err)
		}
		if access.Valid {
			u.Access = &access.Bool
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CreatePending creates a record for a direct sign-in awaiting admin
// approval. Existing records are left untouched.
func (s *PresenceStore) CreatePending(ctx context.Context, uid, displayName, photoURL string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO online_users (uid, display_name, photo_url, last_active, access)
		VALUES (?, ?, ?, ?, 0)
		ON CONFLICT(uid) DO NOTHING`,
		uid, displayName, photoURL, s.Now())
	if err != nil {
		return fmt.Errorf("failed to create pending presence: %w", err)
	}
	return nil
}

// SetAccess flips the admin approval flag, creating the record if the user
// has meanwhile gone offline.
func (s *PresenceStore) SetAccess(ctx context.Context, uid string, access bool) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO online_users (uid, last_active, access)
		VALUES (?, ?, ?)
		ON CONFLICT(uid) DO UPDATE SET access = excluded.access`,
		uid, s.Now(), access)
	if err != nil {
		return fmt.Errorf("failed to set access: %w", err)
	}
	return nil
}

// Delete removes a presence record. Deleting an absent record is not an
// error: the offline beacon is fire-and-forget and may race the sweep.
func (s *PresenceStore) Delete(ctx context.Context, uid string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM online_users WHERE uid = ?`, uid)
	if err != nil {
		return fmt.Errorf("failed to delete presence: %w", err)
	}
	return nil
}

// Sweep deletes records whose lastActive is older than the staleness window
// and returns how many were removed.
func (s *PresenceStore) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.Now().Add(-olderThan)
	res, err := s.db.ExecContext(ctx, `DELETE FROM online_users WHERE last_active < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep stale presence: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return int(n), nil
}
