package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teamboard/teamboard/database"
)

func TestPresenceTracker_HeartbeatUpserts(t *testing.T) {
	store := database.NewPresenceStore(openTestDB(t))
	tracker := NewPresenceTracker(store, Identity{UID: "u1", DisplayName: "Amina"}, testLogger())
	ctx := context.Background()

	require.NoError(t, tracker.Heartbeat(ctx))

	rec, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "Amina", rec.DisplayName)
	require.Nil(t, rec.Access, "a liveness tick must not set the access field")
}

func TestPresenceTracker_RunBeatsOnStartAndWake(t *testing.T) {
	store := database.NewPresenceStore(openTestDB(t))
	beats := make(chan time.Time, 16)
	store.Now = func() time.Time {
		now := time.Now().UTC()
		select {
		case beats <- now:
		default:
		}
		return now
	}

	tracker := NewPresenceTracker(store, Identity{UID: "u1"}, testLogger())
	tracker.interval = time.Hour // only the initial beat and explicit wakes

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tracker.Run(ctx)

	select {
	case <-beats:
	case <-time.After(2 * time.Second):
		t.Fatal("no heartbeat on start")
	}

	tracker.Wake()
	select {
	case <-beats:
	case <-time.After(2 * time.Second):
		t.Fatal("no heartbeat after wake")
	}

	cancel()
	select {
	case <-tracker.done:
	case <-time.After(2 * time.Second):
		t.Fatal("tracker did not stop on cancel")
	}
}

func TestPresenceTracker_WakeCoalesces(t *testing.T) {
	store := database.NewPresenceStore(openTestDB(t))
	tracker := NewPresenceTracker(store, Identity{UID: "u1"}, testLogger())

	// Without a running loop the signals pile into a buffer of one; extra
	// wakes must not block the caller.
	for i := 0; i < 10; i++ {
		tracker.Wake()
	}
}

func TestPresenceTracker_GoOffline(t *testing.T) {
	store := database.NewPresenceStore(openTestDB(t))
	tracker := NewPresenceTracker(store, Identity{UID: "u1"}, testLogger())
	ctx := context.Background()

	require.NoError(t, tracker.Heartbeat(ctx))
	tracker.GoOffline(ctx)

	_, err := store.Get(ctx, "u1")
	require.ErrorIs(t, err, database.ErrNotFound)

	// Best effort: a second beacon for an already-deleted record is fine.
	tracker.GoOffline(ctx)
}
