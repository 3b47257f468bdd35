package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/teamboard/teamboard/database"
)

// ErrEmptyTitle rejects task creation before any write reaches the store.
var ErrEmptyTitle = errors.New("title must not be empty")

// TodoSync is the live view over the todos collection. Consumers subscribe
// to filtered snapshots and receive a fresh copy of the matching document
// set after every successful mutation; the subscription stream, not the
// mutation call, is the source of truth for rendered state.
type TodoSync struct {
	store  *database.TaskStore
	logger *slog.Logger

	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
}

type subscriber struct {
	filter database.TaskFilter
	snaps  chan []database.Task
	errs   chan error
}

// Subscription is a cancellable live sequence of board snapshots. Cancel
// must be called when the owning scope goes away; the channels are closed
// afterwards and no further snapshots are delivered.
type Subscription struct {
	// C delivers full snapshots of the filtered document set. Delivery is
	// latest-wins: a slow consumer sees the newest state, not every
	// intermediate one.
	C <-chan []database.Task
	// Err reports snapshot refresh failures. An error never terminates the
	// stream; the previously delivered snapshot remains valid.
	Err <-chan error

	cancel func()
}

// Cancel tears the subscription down. Safe to call more than once.
func (s *Subscription) Cancel() { s.cancel() }

func NewTodoSync(store *database.TaskStore, logger *slog.Logger) *TodoSync {
	return &TodoSync{
		store:  store,
		logger: logger,
		subs:   make(map[int]*subscriber),
	}
}

// Subscribe opens a live sequence over the filtered view and delivers the
// current snapshot immediately.
func (s *TodoSync) Subscribe(ctx context.Context, filter database.TaskFilter) (*Subscription, error) {
	initial, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	sub := &subscriber{
		filter: filter,
		snaps:  make(chan []database.Task, 1),
		errs:   make(chan error, 1),
	}
	sub.snaps <- initial

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = sub
	s.mu.Unlock()

	var once sync.Once
	return &Subscription{
		C:   sub.snaps,
		Err: sub.errs,
		cancel: func() {
			once.Do(func() {
				s.mu.Lock()
				delete(s.subs, id)
				s.mu.Unlock()
				close(sub.snaps)
				close(sub.errs)
			})
		},
	}, nil
}

// Create adds a task to the board. The title must be non-empty; createdAt,
// updatedAt and the document id are assigned by the store.
func (s *TodoSync) Create(ctx context.Context, draft database.Task) (database.Task, error) {
	if strings.TrimSpace(draft.Title) == "" {
		return database.Task{}, ErrEmptyTitle
	}
	task, err := s.store.Create(ctx, draft)
	if err != nil {
		return database.Task{}, err
	}
	s.logger.Info("task created", "id", task.ID, "title", task.Title)
	s.publish(ctx)
	return task, nil
}

// SetStatus moves a task between columns. A vanished document is reported,
// not retried: the next snapshot will show the board without it.
func (s *TodoSync) SetStatus(ctx context.Context, id string, status database.TaskStatus) error {
	err := s.store.SetStatus(ctx, id, status)
	if errors.Is(err, database.ErrNotFound) {
		s.logger.Warn("status change on missing task", "id", id, "status", status)
		return err
	}
	if err != nil {
		return err
	}
	s.publish(ctx)
	return nil
}

// Archive stamps archivedBy and removes the task from the active board.
func (s *TodoSync) Archive(ctx context.Context, id string, actor database.Actor) error {
	if err := s.store.Archive(ctx, id, actor); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.logger.Warn("archive on missing task", "id", id)
		}
		return err
	}
	s.logger.Info("task archived", "id", id, "by", actor.UID)
	s.publish(ctx)
	return nil
}

// Restore reverses an archive: the task returns to the todo column with
// archivedBy cleared.
func (s *TodoSync) Restore(ctx context.Context, id string) error {
	if err := s.store.Restore(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			s.logger.Warn("restore on missing task", "id", id)
		}
		return err
	}
	s.logger.Info("task restored", "id", id)
	s.publish(ctx)
	return nil
}

// AddSeen appends a viewer to a task's seenBy set (used by the seen-by
// tracker). The append is idempotent per uid.
func (s *TodoSync) AddSeen(ctx context.Context, id string, viewer database.Actor) error {
	if err := s.store.AddSeen(ctx, id, viewer); err != nil {
		return err
	}
	s.publish(ctx)
	return nil
}

// Store exposes the underlying task store for point reads (the seen-by
// tracker's re-fetch guard).
func (s *TodoSync) Store() *database.TaskStore { return s.store }

// publish refreshes every live subscription after a successful mutation.
// Refresh failures go to the subscriber's error channel and never tear the
// stream down.
func (s *TodoSync) publish(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sub := range s.subs {
		snap, err := s.store.List(ctx, sub.filter)
		if err != nil {
			s.logger.Error("snapshot refresh failed", "error", err)
			select {
			case sub.errs <- err:
			default:
			}
			continue
		}
		// Latest-wins delivery: replace a pending snapshot the consumer
		// has not picked up yet.
		select {
		case sub.snaps <- snap:
		default:
			select {
			case <-sub.snaps:
			default:
			}
			sub.snaps <- snap
		}
	}
}
