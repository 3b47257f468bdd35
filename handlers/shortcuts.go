package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/teamboard/teamboard/database"
)

// ShortcutHandler manages the dashboard's pinned link grid.
type ShortcutHandler struct {
	store  *database.ShortcutStore
	logger *slog.Logger
}

func NewShortcutHandler(store *database.ShortcutStore, logger *slog.Logger) *ShortcutHandler {
	return &ShortcutHandler{store: store, logger: logger}
}

func (h *ShortcutHandler) List(w http.ResponseWriter, r *http.Request) {
	shortcuts, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list shortcuts", "error", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"success": true, "shortcuts": shortcuts})
}

func (h *ShortcutHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
		URL   string `json:"url"`
		Color string `json:"color"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request format", http.StatusBadRequest)
		return
	}

	shortcut, err := h.store.Create(r.Context(), database.Shortcut{
		Title: req.Title,
		URL:   req.URL,
		Color: req.Color,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"success": true, "shortcut": shortcut})
}

func (h *ShortcutHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.store.Delete(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, database.ErrNotFound) {
		http.Error(w, "shortcut not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to delete shortcut", "error", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"success": true})
}
