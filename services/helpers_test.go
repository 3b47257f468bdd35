package services

import (
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teamboard/teamboard/database"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.InitDB(":memory:", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestSync(t *testing.T) (*TodoSync, *database.TaskStore) {
	t.Helper()
	store := database.NewTaskStore(openTestDB(t))
	store.Now = tickingClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	return NewTodoSync(store, testLogger()), store
}

func tickingClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}
