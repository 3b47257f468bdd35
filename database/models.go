package database

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a document no longer exists, typically because
// another client deleted or archived it concurrently.
var ErrNotFound = errors.New("document not found")

// TaskStatus is the board column a task belongs to.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in-progress"
	StatusDone       TaskStatus = "done"
	StatusArchived   TaskStatus = "archived"
)

// ValidColumn reports whether s is a column a task can be created in or
// moved to. Archived is deliberately excluded: a task only enters the
// archived list through Archive, which stamps archivedBy.
func ValidColumn(s TaskStatus) bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// AttachmentKind distinguishes uploaded images from plain links.
type AttachmentKind string

const (
	AttachmentImage AttachmentKind = "image"
	AttachmentLink  AttachmentKind = "link"
)

// Attachment is a file or link pinned to a task.
type Attachment struct {
	Kind AttachmentKind `json:"type"`
	URL  string         `json:"url"`
}

// Actor records who performed an action and when. The same shape is used for
// createdBy, archivedBy and seenBy entries.
type Actor struct {
	UID         string    `json:"uid"`
	DisplayName string    `json:"displayName"`
	PhotoURL    string    `json:"photoURL"`
	Timestamp   time.Time `json:"timestamp"`
}

// Task is a card on the team board.
type Task struct {
	ID          string       `json:"id"`
	ProjectID   string       `json:"projectID,omitempty"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Status      TaskStatus   `json:"status"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Price       *float64     `json:"price,omitempty"`
	CreatedBy   *Actor       `json:"createdBy,omitempty"`
	ArchivedBy  *Actor       `json:"archivedBy,omitempty"`
	SeenBy      []Actor      `json:"seenBy,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// SeenByContains reports whether uid already appears in the task's seenBy set.
func (t *Task) SeenByContains(uid string) bool {
	for _, a := range t.SeenBy {
		if a.UID == uid {
			return true
		}
	}
	return false
}

// OnlineUser is a presence record: one per signed-in identity.
// Access semantics: nil means the field was never set (pending, same as
// false); only an explicit true grants entry past the access gate.
type OnlineUser struct {
	UID         string    `json:"uid"`
	DisplayName string    `json:"displayName"`
	PhotoURL    string    `json:"photoURL"`
	LastActive  time.Time `json:"lastActive"`
	Access      *bool     `json:"access,omitempty"`
}

// Approved reports whether the record carries an explicit access grant.
func (u *OnlineUser) Approved() bool {
	return u.Access != nil && *u.Access
}

// Project groups tasks on a dedicated board.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	LogoURL     string    `json:"logoURL,omitempty"`
	Archived    bool      `json:"archived"`
	Deleted     bool      `json:"deleted"`
	ArchivedBy  *Actor    `json:"archivedBy,omitempty"`
	DeletedBy   *Actor    `json:"deletedBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Shortcut is a pinned team link shown on the dashboard.
type Shortcut struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// TaskFilter narrows a board subscription. Archived selects the archived
// list instead of the active board; ProjectID, when set, scopes either view
// to a single project.
type TaskFilter struct {
	ProjectID string
	Archived  bool
}

// Matches reports whether the task belongs to the filtered view.
func (f TaskFilter) Matches(t *Task) bool {
	if f.Archived != (t.Status == StatusArchived) {
		return false
	}
	if f.ProjectID != "" && f.ProjectID != t.ProjectID {
		return false
	}
	return true
}
