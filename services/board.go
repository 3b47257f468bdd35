package services

import (
	"context"
	"log/slog"
	"sync"

	"github.com/teamboard/teamboard/database"
)

// BoardColumns is the three-column projection of the active board.
type BoardColumns struct {
	Todo       []database.Task `json:"todo"`
	InProgress []database.Task `json:"in-progress"`
	Done       []database.Task `json:"done"`
}

// Board derives the column view from the live sequence and turns drops into
// status mutations. It is a pure projection: Apply rebuilds the columns from
// each snapshot, so remote edits are always reflected and a rejected drop
// simply leaves the task where the authoritative stream says it is. No local
// shadow state is held between snapshots.
type Board struct {
	sync   *TodoSync
	logger *slog.Logger

	mu       sync.Mutex
	columns  BoardColumns
	inflight map[string]bool
}

func NewBoard(sync *TodoSync, logger *slog.Logger) *Board {
	return &Board{
		sync:     sync,
		logger:   logger,
		inflight: make(map[string]bool),
	}
}

// Apply replaces the column view with a projection of the given snapshot.
// Snapshot order (status, then updatedAt descending) is preserved within
// each column.
func (b *Board) Apply(tasks []database.Task) {
	var cols BoardColumns
	for _, t := range tasks {
		switch t.Status {
		case database.StatusTodo:
			cols.Todo = append(cols.Todo, t)
		case database.StatusInProgress:
			cols.InProgress = append(cols.InProgress, t)
		case database.StatusDone:
			cols.Done = append(cols.Done, t)
		}
	}
	b.mu.Lock()
	b.columns = cols
	b.mu.Unlock()
}

// Columns returns the current projection.
func (b *Board) Columns() BoardColumns {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.columns
}

// OnDrop handles a drag gesture ending over a column. A drop within the
// source column is visual only and issues no mutation. A cross-column drop
// issues exactly one SetStatus; the column membership updates when the live
// sequence delivers the accepted write. At most one mutation is in flight
// per task at a time.
func (b *Board) OnDrop(ctx context.Context, taskID string, from, to database.TaskStatus) error {
	if from == to {
		return nil
	}

	b.mu.Lock()
	if b.inflight[taskID] {
		b.mu.Unlock()
		b.logger.Debug("drop ignored, mutation in flight", "id", taskID)
		return nil
	}
	b.inflight[taskID] = true
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.inflight, taskID)
		b.mu.Unlock()
	}()

	return b.sync.SetStatus(ctx, taskID, to)
}
