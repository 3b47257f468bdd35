package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/teamboard/teamboard/database"
)

// ProjectHandler exposes project CRUD with soft archive/delete.
type ProjectHandler struct {
	store  *database.ProjectStore
	logger *slog.Logger
}

func NewProjectHandler(store *database.ProjectStore, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{store: store, logger: logger}
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list projects", "error", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"success": true, "projects": projects})
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	project, err := h.store.Get(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, database.ErrNotFound) {
		http.Error(w, "project not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to get project", "error", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"success": true, "project": project})
}

type projectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	LogoURL     string `json:"logoURL"`
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request format", http.StatusBadRequest)
		return
	}

	project, err := h.store.Create(r.Context(), database.Project{
		Name:        req.Name,
		Description: req.Description,
		LogoURL:     req.LogoURL,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"success": true, "project": project})
}

func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request format", http.StatusBadRequest)
		return
	}

	err := h.store.Update(r.Context(), mux.Vars(r)["id"], req.Name, req.Description, req.LogoURL)
	if h.writeResult(w, err, "failed to update project") {
		writeJSON(w, map[string]any{"success": true})
	}
}

func (h *ProjectHandler) SetArchived(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r)
	if !ok {
		http.Error(w, "user not found", http.StatusUnauthorized)
		return
	}

	var req struct {
		Archived bool `json:"archived"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request format", http.StatusBadRequest)
		return
	}

	err := h.store.SetArchived(r.Context(), mux.Vars(r)["id"], req.Archived,
		identity.Actor(h.store.Now()))
	if h.writeResult(w, err, "failed to archive project") {
		writeJSON(w, map[string]any{"success": true})
	}
}

func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r)
	if !ok {
		http.Error(w, "user not found", http.StatusUnauthorized)
		return
	}

	err := h.store.Delete(r.Context(), mux.Vars(r)["id"], identity.Actor(h.store.Now()))
	if h.writeResult(w, err, "failed to delete project") {
		writeJSON(w, map[string]any{"success": true})
	}
}

func (h *ProjectHandler) writeResult(w http.ResponseWriter, err error, msg string) bool {
	if errors.Is(err, database.ErrNotFound) {
		http.Error(w, "project not found", http.StatusNotFound)
		return false
	}
	if err != nil {
		h.logger.Error(msg, "error", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return false
	}
	return true
}
