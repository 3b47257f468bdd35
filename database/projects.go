package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProjectStore handles the projects collection. Projects are soft-deleted:
// archive and delete flip flags with actor attribution rather than removing
// rows, so a project board can always be recovered by an operator.
type ProjectStore struct {
	db *sql.DB

	Now func() time.Time
}

func NewProjectStore(db *sql.DB) *ProjectStore {
	return &ProjectStore{db: db, Now: func() time.Time { return time.Now().UTC() }}
}

// Create inserts a new project. The name must be non-empty.
func (s *ProjectStore) Create(ctx context.Context, p Project) (Project, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return Project{}, fmt.Errorf("project name must not be empty")
	}
	p.ID = uuid.NewString()
	now := s.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `INSERT INTO projects
		(id, name, description, logo_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.LogoURL, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return Project{}, fmt.Errorf("failed to insert project: %w", err)
	}
	return p, nil
}

// Get fetches one project, or ErrNotFound. Soft-deleted projects are
// reported as not found.
func (s *ProjectStore) Get(ctx context.Context, id string) (Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, description, logo_url,
		archived, deleted, archived_by, deleted_by, created_at, updated_at
		FROM projects WHERE id = ? AND deleted = 0`, id)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return Project{}, ErrNotFound
	}
	if err != nil {
		return Project{}, fmt.Errorf("failed to query project: %w", err)
	}
	return p, nil
}

// List returns all live projects, newest first.
func (s *ProjectStore) List(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, description, logo_url,
		archived, deleted, archived_by, deleted_by, created_at, updated_at
		FROM projects WHERE deleted = 0 ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// Update renames a project or changes its description/logo.
func (s *ProjectStore) Update(ctx context.Context, id string, name, description, logoURL string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("project name must not be empty")
	}
	res, err := s.db.ExecContext(ctx, `UPDATE projects SET name = ?, description = ?,
		logo_url = ?, updated_at = ? WHERE id = ? AND deleted = 0`,
		name, description, logoURL, s.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	return affectedOrNotFound(res)
}

// SetArchived flips the archive flag, recording who did it.
func (s *ProjectStore) SetArchived(ctx context.Context, id string, archived bool, actor Actor) error {
	now := s.Now()
	if actor.Timestamp.IsZero() {
		actor.Timestamp = now
	}
	var archivedBy sql.NullString
	if archived {
		var err error
		if archivedBy, err = marshalActor(&actor); err != nil {
			return err
		}
	}
	res, err := s.db.ExecContext(ctx, `UPDATE projects SET archived = ?, archived_by = ?,
		updated_at = ? WHERE id = ? AND deleted = 0`,
		archived, archivedBy, now, id)
	if err != nil {
		return fmt.Errorf("failed to archive project: %w", err)
	}
	return affectedOrNotFound(res)
}

// Delete soft-deletes a project, recording who did it.
func (s *ProjectStore) Delete(ctx context.Context, id string, actor Actor) error {
	now := s.Now()
	if actor.Timestamp.IsZero() {
		actor.Timestamp = now
	}
	deletedBy, err := marshalActor(&actor)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE projects SET deleted = 1, deleted_by = ?,
		updated_at = ? WHERE id = ? AND deleted = 0`,
		deletedBy, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return affectedOrNotFound(res)
}

func scanProject(row rowScanner) (Project, error) {
	var (
		p          Project
		archivedBy sql.NullString
		deletedBy  sql.NullString
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.LogoURL,
		&p.Archived, &p.Deleted, &archivedBy, &deletedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Project{}, err
	}
	if p.ArchivedBy, err = unmarshalActor(archivedBy); err != nil {
		return Project{}, err
	}
	if p.DeletedBy, err = unmarshalActor(deletedBy); err != nil {
		return Project{}, err
	}
	return p, nil
}
