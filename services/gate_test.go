package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/teamboard/teamboard/database"
)

func newTestGate(t *testing.T) (*AccessGate, *database.PresenceStore) {
	t.Helper()
	store := database.NewPresenceStore(openTestDB(t))
	return NewAccessGate(store, testLogger()), store
}

func TestAccessGate_DirectSignInCreatesPendingRecord(t *testing.T) {
	gate, store := newTestGate(t)
	ctx := context.Background()

	state, err := gate.Evaluate(ctx, Identity{UID: "u1", DisplayName: "Amina"})
	require.NoError(t, err)
	require.Equal(t, GatePendingApproval, state)
	require.False(t, state.Allowed())

	rec, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, rec.Access)
	require.False(t, *rec.Access)
}

func TestAccessGate_FederatedBypassCreatesNoRecord(t *testing.T) {
	gate, store := newTestGate(t)
	ctx := context.Background()

	state, err := gate.Evaluate(ctx, Identity{UID: "u1", Federated: true})
	require.NoError(t, err)
	require.Equal(t, GateFederatedBypass, state)
	require.True(t, state.Allowed())

	_, err = store.Get(ctx, "u1")
	require.ErrorIs(t, err, database.ErrNotFound)
}

func TestAccessGate_ExistingRecordDecides(t *testing.T) {
	gate, store := newTestGate(t)
	ctx := context.Background()

	require.NoError(t, store.CreatePending(ctx, "u1", "Amina", ""))

	state, err := gate.Evaluate(ctx, Identity{UID: "u1"})
	require.NoError(t, err)
	require.Equal(t, GatePendingApproval, state)

	// Even a federated identity obeys an existing record.
	state, err = gate.Evaluate(ctx, Identity{UID: "u1", Federated: true})
	require.NoError(t, err)
	require.Equal(t, GatePendingApproval, state)
}

func TestAccessGate_GrantApproves(t *testing.T) {
	gate, _ := newTestGate(t)
	ctx := context.Background()

	state, err := gate.Evaluate(ctx, Identity{UID: "u1"})
	require.NoError(t, err)
	require.Equal(t, GatePendingApproval, state)

	require.NoError(t, gate.Grant(ctx, "u1"))

	// The gate does not poll; the next evaluation re-derives the state.
	state, err = gate.Evaluate(ctx, Identity{UID: "u1"})
	require.NoError(t, err)
	require.Equal(t, GateApproved, state)
	require.True(t, state.Allowed())
}

func TestAccessGate_HeartbeatOnlyRecordStaysPending(t *testing.T) {
	gate, store := newTestGate(t)
	ctx := context.Background()

	// A record created by a bare activity tick has no access field at all;
	// that still means pending.
	require.NoError(t, store.Heartbeat(ctx, "u1", "Amina", ""))

	state, err := gate.Evaluate(ctx, Identity{UID: "u1"})
	require.NoError(t, err)
	require.Equal(t, GatePendingApproval, state)
}
