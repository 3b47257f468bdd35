package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/teamboard/teamboard/database"
)

// GateState is where an identity stands with the access gate.
type GateState string

const (
	GateUnknown         GateState = "unknown"
	GatePendingApproval GateState = "pending"
	GateApproved        GateState = "approved"
	// GateFederatedBypass marks identities from a federated provider, which
	// skip approval entirely and never create a presence record at sign-in.
	GateFederatedBypass GateState = "federated"
)

// Allowed reports whether the state lets the identity into the application.
func (s GateState) Allowed() bool {
	return s == GateApproved || s == GateFederatedBypass
}

// AccessGate decides whether a signed-in identity may proceed or must wait
// for admin approval. State is always re-derived from the presence record;
// the gate holds nothing an admin's out-of-band grant could invalidate.
type AccessGate struct {
	store  *database.PresenceStore
	logger *slog.Logger
}

func NewAccessGate(store *database.PresenceStore, logger *slog.Logger) *AccessGate {
	return &AccessGate{store: store, logger: logger}
}

// Evaluate runs the gate for an identity. With an existing record, its
// access flag decides. Without one: federated identities bypass approval
// without creating a record; direct sign-ins get a pending record and wait.
func (g *AccessGate) Evaluate(ctx context.Context, id Identity) (GateState, error) {
	rec, err := g.store.Get(ctx, id.UID)
	switch {
	case err == nil:
		if rec.Approved() {
			return GateApproved, nil
		}
		return GatePendingApproval, nil

	case errors.Is(err, database.ErrNotFound):
		if id.Federated {
			return GateFederatedBypass, nil
		}
		if err := g.store.CreatePending(ctx, id.UID, id.DisplayName, id.PhotoURL); err != nil {
			return GateUnknown, fmt.Errorf("failed to create pending record: %w", err)
		}
		g.logger.Info("identity awaiting approval", "uid", id.UID)
		return GatePendingApproval, nil

	default:
		return GateUnknown, err
	}
}

// Grant flips an identity's access flag to true. Authorization is enforced
// by the caller (admin-only route); the mutation itself is unconditional.
func (g *AccessGate) Grant(ctx context.Context, uid string) error {
	if err := g.store.SetAccess(ctx, uid, true); err != nil {
		return err
	}
	g.logger.Info("access granted", "uid", uid)
	return nil
}
