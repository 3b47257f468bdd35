package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/teamboard/teamboard/services"
)

// AuthHandler exchanges identity assertions from the external auth provider
// for session tokens, running each sign-in through the access gate.
type AuthHandler struct {
	authService *services.AuthService
	gate        *services.AccessGate
	logger      *slog.Logger
}

func NewAuthHandler(authService *services.AuthService, gate *services.AccessGate, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		gate:        gate,
		logger:      logger,
	}
}

// Login accepts {uid, displayName, photoURL, federated}, evaluates the
// access gate and returns a JWT plus the gate state. Pending identities
// still get a token so the client can poll verify from the waiting screen.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var identity services.Identity
	if err := json.NewDecoder(r.Body).Decode(&identity); err != nil {
		http.Error(w, "invalid request format", http.StatusBadRequest)
		return
	}
	if identity.UID == "" {
		http.Error(w, "uid is required", http.StatusBadRequest)
		return
	}

	state, err := h.gate.Evaluate(r.Context(), identity)
	if err != nil {
		h.logger.Error("gate evaluation failed", "uid", identity.UID, "error", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	token, err := h.authService.CreateJWT(identity)
	if err != nil {
		h.logger.Error("failed to create token", "uid", identity.UID, "error", err)
		http.Error(w, "authentication error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"token":   token,
		"gate":    state,
		"allowed": state.Allowed(),
	})
}

// Verify validates the session token and re-derives the gate state, so the
// waiting screen can discover an out-of-band access grant.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r)
	if !ok {
		http.Error(w, "user not found", http.StatusUnauthorized)
		return
	}

	state, err := h.gate.Evaluate(r.Context(), identity)
	if err != nil {
		h.logger.Error("gate evaluation failed", "uid", identity.UID, "error", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"identity": identity,
		"gate":     state,
		"allowed":  state.Allowed(),
	})
}
