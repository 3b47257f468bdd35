package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/teamboard/teamboard/services"
)

// NotifyHandler sends one-off email notifications to the team address.
type NotifyHandler struct {
	notifier *services.EmailNotifier
	logger   *slog.Logger
}

func NewNotifyHandler(notifier *services.EmailNotifier, logger *slog.Logger) *NotifyHandler {
	return &NotifyHandler{notifier: notifier, logger: logger}
}

// EmailNotification accepts {subject, message} and sends one email. Both
// fields are required.
func (h *NotifyHandler) EmailNotification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subject string `json:"subject"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request format", http.StatusBadRequest)
		return
	}
	if req.Subject == "" || req.Message == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"error": "subject and message are required"})
		return
	}

	if err := h.notifier.Send(req.Subject, req.Message); err != nil {
		h.logger.Error("failed to send notification", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{"error": "failed to send email"})
		return
	}

	writeJSON(w, map[string]any{"success": true})
}
