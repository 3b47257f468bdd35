package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStore handles database operations for the todos collection.
type TaskStore struct {
	db *sql.DB

	// Now stamps createdAt/updatedAt on mutations. Overridable in tests.
	Now func() time.Time
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db, Now: func() time.Time { return time.Now().UTC() }}
}

// Create inserts a new task and returns it with its assigned id. The title
// must be non-empty; createdAt and updatedAt are stamped server-side.
func (s *TaskStore) Create(ctx context.Context, t Task) (Task, error) {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return Task{}, fmt.Errorf("title must not be empty")
	}
	if t.Status == "" {
		t.Status = StatusTodo
	}
	if !ValidColumn(t.Status) {
		return Task{}, fmt.Errorf("invalid initial status %q", t.Status)
	}
	if t.Price != nil && *t.Price < 0 {
		return Task{}, fmt.Errorf("price must not be negative")
	}

	t.ID = uuid.NewString()
	now := s.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.CreatedBy != nil && t.CreatedBy.Timestamp.IsZero() {
		t.CreatedBy.Timestamp = now
	}

	attachments, err := json.Marshal(t.Attachments)
	if err != nil {
		return Task{}, fmt.Errorf("failed to marshal attachments: %w", err)
	}
	createdBy, err := marshalActor(t.CreatedBy)
	if err != nil {
		return Task{}, err
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO todos
		(id, project_id, title, description, status, price, attachments, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ProjectID, t.Title, t.Description, string(t.Status), t.Price,
		string(attachments), createdBy, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return Task{}, fmt.Errorf("failed to insert task: %w", err)
	}
	return t, nil
}

// Get fetches a single task with its seenBy set, or ErrNotFound.
func (s *TaskStore) Get(ctx context.Context, id string) (Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, project_id, title, description, status,
		price, attachments, created_by, archived_by, created_at, updated_at
		FROM todos WHERE id = ?`, id)

	t, err := scanTask(row)
	if err == sql.ErrNoRows {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, fmt.Errorf("failed to query task: %w", err)
	}

	seen, err := s.seenBy(ctx, []string{t.ID})
	if err != nil {
		return Task{}, err
	}
	t.SeenBy = seen[t.ID]
	return t, nil
}

// List returns the tasks matching the filtered view, ordered by status and
// most recently updated first. The archived exclusion is pushed into the
// query as an inequality on status; SQL supports ordering on the same field,
// so no client-side fallback filtering is needed.
func (s *TaskStore) List(ctx context.Context, filter TaskFilter) ([]Task, error) {
	var (
		where []string
		args  []any
	)
	if filter.Archived {
		where = append(where, "status = ?")
	} else {
		where = append(where, "status != ?")
	}
	args = append(args, string(StatusArchived))
	if filter.ProjectID != "" {
		where = append(where, "project_id = ?")
		args = append(args, filter.ProjectID)
	}

	query := fmt.Sprintf(`SELECT id, project_id, title, description, status,
		price, attachments, created_by, archived_by, created_at, updated_at
		FROM todos WHERE %s ORDER BY status, updated_at DESC`, strings.Join(where, " AND "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	var ids []string
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
		ids = append(ids, t.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tasks: %w", err)
	}

	seen, err := s.seenBy(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		tasks[i].SeenBy = seen[tasks[i].ID]
	}
	return tasks, nil
}

// SetStatus moves a task to another column, bumping updatedAt. Archived is
// not a legal target; only Archive may park a task there, because it must
// stamp archivedBy. Returns ErrNotFound when the document was deleted or
// archived away concurrently; callers report this rather than retry.
func (s *TaskStore) SetStatus(ctx context.Context, id string, status TaskStatus) error {
	if !ValidColumn(status) {
		return fmt.Errorf("cannot move task to %q", status)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE todos SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), s.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return affectedOrNotFound(res)
}

// Archive stamps archivedBy and parks the task in the archived list.
func (s *TaskStore) Archive(ctx context.Context, id string, actor Actor) error {
	now := s.Now()
	if actor.Timestamp.IsZero() {
		actor.Timestamp = now
	}
	archivedBy, err := marshalActor(&actor)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE todos SET status = ?, archived_by = ?, updated_at = ? WHERE id = ?`,
		string(StatusArchived), archivedBy, now, id)
	if err != nil {
		return fmt.Errorf("failed to archive task: %w", err)
	}
	return affectedOrNotFound(res)
}

// Restore reverses an archive: back to the todo column with archivedBy
// cleared.
func (s *TaskStore) Restore(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE todos SET status = ?, archived_by = NULL, updated_at = ? WHERE id = ?`,
		string(StatusTodo), s.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to restore task: %w", err)
	}
	return affectedOrNotFound(res)
}

// AddSeen appends the viewer to the task's seenBy set. The primary key on
// (todo_id, uid) makes this a set-union: repeated appends for the same uid
// are no-ops, and the first write wins the timestamp.
func (s *TaskStore) AddSeen(ctx context.Context, id string, viewer Actor) error {
	if viewer.Timestamp.IsZero() {
		viewer.Timestamp = s.Now()
	}
	// Guarding the insert with the existence check in one statement keeps a
	// concurrent delete from surfacing as a constraint error.
	res, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO todo_seen_by
		(todo_id, uid, display_name, photo_url, seen_at)
		SELECT ?, ?, ?, ?, ? WHERE EXISTS (SELECT 1 FROM todos WHERE id = ?)`,
		id, viewer.UID, viewer.DisplayName, viewer.PhotoURL, viewer.Timestamp, id)
	if err != nil {
		return fmt.Errorf("failed to append seenBy: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to append seenBy: %w", err)
	}
	if n > 0 {
		return nil
	}

	// Zero rows is either a repeated viewer or a vanished task.
	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM todos WHERE id = ?`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check task: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *TaskStore) seenBy(ctx context.Context, ids []string) (map[string][]Actor, error) {
	out := make(map[string][]Actor, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT todo_id, uid, display_name, photo_url, seen_at
		FROM todo_seen_by WHERE todo_id IN (%s) ORDER BY seen_at`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query seenBy: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var todoID string
		var a Actor
		if err := rows.Scan(&todoID, &a.UID, &a.DisplayName, &a.PhotoURL, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan seenBy: %w", err)
		}
		out[todoID] = append(out[todoID], a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (Task, error) {
	var (
		t           Task
		status      string
		price       sql.NullFloat64
		attachments string
		createdBy   sql.NullString
		archivedBy  sql.NullString
	)
	err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &status,
		&price, &attachments, &createdBy, &archivedBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return Task{}, err
	}
	t.Status = TaskStatus(status)
	if price.Valid {
		t.Price = &price.Float64
	}
	if err := json.Unmarshal([]byte(attachments), &t.Attachments); err != nil {
		return Task{}, fmt.Errorf("failed to unmarshal attachments: %w", err)
	}
	if t.CreatedBy, err = unmarshalActor(createdBy); err != nil {
		return Task{}, err
	}
	if t.ArchivedBy, err = unmarshalActor(archivedBy); err != nil {
		return Task{}, err
	}
	return t, nil
}

func marshalActor(a *Actor) (sql.NullString, error) {
	if a == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal actor: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func unmarshalActor(s sql.NullString) (*Actor, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var a Actor
	if err := json.Unmarshal([]byte(s.String), &a); err != nil {
		return nil, fmt.Errorf("failed to unmarshal actor: %w", err)
	}
	return &a, nil
}

func affectedOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
