package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/teamboard/teamboard/database"
	"github.com/teamboard/teamboard/services"
)

// PresenceHandler exposes the onlineUsers collection: heartbeats, the
// offline beacon, the stale sweep and the admin access grant.
type PresenceHandler struct {
	store  *database.PresenceStore
	gate   *services.AccessGate
	logger *slog.Logger
}

func NewPresenceHandler(store *database.PresenceStore, gate *services.AccessGate, logger *slog.Logger) *PresenceHandler {
	return &PresenceHandler{
		store:  store,
		gate:   gate,
		logger: logger,
	}
}

// Heartbeat refreshes the caller's lastActive. Merge semantics: the access
// flag is never touched.
func (h *PresenceHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r)
	if !ok {
		http.Error(w, "user not found", http.StatusUnauthorized)
		return
	}

	if err := h.store.Heartbeat(r.Context(), identity.UID, identity.DisplayName, identity.PhotoURL); err != nil {
		h.logger.Error("heartbeat failed", "uid", identity.UID, "error", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"success": true})
}

// ListOnline returns the presence records, most recently active first.
func (h *PresenceHandler) ListOnline(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list presence", "error", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"success": true, "users": users})
}

// Offline is the unload beacon: best-effort presence deletion. The client
// fires and forgets; anything but a missing userId answers 200.
func (h *PresenceHandler) Offline(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return
	}

	if err := h.store.Delete(r.Context(), userID); err != nil {
		h.logger.Error("offline delete failed", "uid", userID, "error", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"success": true})
}

// Cleanup sweeps presence records older than the staleness window and
// reports how many were removed.
func (h *PresenceHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	removed, err := h.store.Sweep(r.Context(), services.StalenessWindow)
	if err != nil {
		h.logger.Error("presence sweep failed", "error", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	h.logger.Info("stale presence swept", "removed", removed)
	writeJSON(w, map[string]any{"success": true, "removed": removed})
}

// GrantAccess approves a pending identity. The route is admin-only; the
// middleware enforces that before we get here.
func (h *PresenceHandler) GrantAccess(w http.ResponseWriter, r *http.Request) {
	uid := mux.Vars(r)["uid"]
	if uid == "" {
		http.Error(w, "uid is required", http.StatusBadRequest)
		return
	}

	if err := h.gate.Grant(r.Context(), uid); err != nil {
		h.logger.Error("grant failed", "uid", uid, "error", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"success": true})
}
