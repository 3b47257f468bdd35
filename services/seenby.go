package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/teamboard/teamboard/database"
)

// SeenTracker appends the viewer to each observed task's seenBy set exactly
// once. A per-session processed set stops it from rechecking a task on every
// snapshot re-delivery; the store-level uid key stops duplicate writes from
// other tabs racing the same append.
type SeenTracker struct {
	sync   *TodoSync
	viewer Identity
	logger *slog.Logger

	Now func() time.Time

	mu        sync.Mutex
	processed map[string]struct{}
}

func NewSeenTracker(sync *TodoSync, viewer Identity, logger *slog.Logger) *SeenTracker {
	return &SeenTracker{
		sync:      sync,
		viewer:    viewer,
		logger:    logger,
		Now:       func() time.Time { return time.Now().UTC() },
		processed: make(map[string]struct{}),
	}
}

// Observe walks a snapshot and marks unseen tasks as seen by the viewer.
// Before appending it re-fetches the task: the snapshot copy may be stale,
// and another tab may already have appended this viewer.
func (t *SeenTracker) Observe(ctx context.Context, tasks []database.Task) {
	for i := range tasks {
		task := &tasks[i]

		t.mu.Lock()
		_, done := t.processed[task.ID]
		t.mu.Unlock()
		if done {
			continue
		}

		if !task.SeenByContains(t.viewer.UID) {
			t.markSeen(ctx, task.ID)
		}

		t.mu.Lock()
		t.processed[task.ID] = struct{}{}
		t.mu.Unlock()
	}
}

func (t *SeenTracker) markSeen(ctx context.Context, taskID string) {
	fresh, err := t.sync.Store().Get(ctx, taskID)
	if errors.Is(err, database.ErrNotFound) {
		return
	}
	if err != nil {
		t.logger.Error("seen-by refetch failed", "id", taskID, "error", err)
		return
	}
	// Another tab may have won the race between snapshot and refetch.
	if fresh.SeenByContains(t.viewer.UID) {
		return
	}
	if err := t.sync.AddSeen(ctx, taskID, t.viewer.Actor(t.Now())); err != nil {
		t.logger.Error("seen-by append failed", "id", taskID, "error", err)
	}
}
