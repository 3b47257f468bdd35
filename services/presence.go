package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/teamboard/teamboard/database"
)

// StalenessWindow is how long a presence record stays valid without a
// heartbeat. Records older than this are considered offline and are removed
// by the cleanup sweep.
const StalenessWindow = 15 * time.Minute

// HeartbeatInterval is the fixed period between presence refreshes.
const HeartbeatInterval = 5 * time.Minute

// PresenceTracker keeps one identity's presence record fresh. Beyond the
// fixed interval it beats when the client reports becoming visible or
// regaining network, mirroring the tab lifecycle events browsers expose.
type PresenceTracker struct {
	store    *database.PresenceStore
	identity Identity
	interval time.Duration
	logger   *slog.Logger

	wake chan struct{}
	done chan struct{}
}

func NewPresenceTracker(store *database.PresenceStore, id Identity, logger *slog.Logger) *PresenceTracker {
	return &PresenceTracker{
		store:    store,
		identity: id,
		interval: HeartbeatInterval,
		logger:   logger,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Heartbeat refreshes lastActive once. The upsert merges into the existing
// record and never touches the access flag.
func (t *PresenceTracker) Heartbeat(ctx context.Context) error {
	err := t.store.Heartbeat(ctx, t.identity.UID, t.identity.DisplayName, t.identity.PhotoURL)
	if err != nil {
		t.logger.Error("heartbeat failed", "uid", t.identity.UID, "error", err)
	}
	return err
}

// Run beats immediately, then on every interval tick and every wake signal,
// until the context is cancelled.
func (t *PresenceTracker) Run(ctx context.Context) {
	defer close(t.done)

	_ = t.Heartbeat(ctx)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = t.Heartbeat(ctx)
		case <-t.wake:
			_ = t.Heartbeat(ctx)
		}
	}
}

// Wake requests an out-of-cycle heartbeat (tab became visible, network came
// back). Coalesces when one is already pending.
func (t *PresenceTracker) Wake() {
	select {
	case t.wake <- struct{}{}:
	default:
	}
}

// GoOffline deletes the presence record, best effort. Fired from the unload
// beacon path; delivery is never guaranteed and failure is only logged.
func (t *PresenceTracker) GoOffline(ctx context.Context) {
	if err := t.store.Delete(ctx, t.identity.UID); err != nil {
		t.logger.Warn("offline delete failed", "uid", t.identity.UID, "error", err)
	}
}
