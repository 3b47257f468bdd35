package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/teamboard/teamboard/database"
	"github.com/teamboard/teamboard/services"
)

// TodoHandler exposes the board: snapshot reads, mutations, and the
// WebSocket live stream.
type TodoHandler struct {
	sync   *services.TodoSync
	hub    *services.Hub
	logger *slog.Logger
}

func NewTodoHandler(sync *services.TodoSync, hub *services.Hub, logger *slog.Logger) *TodoHandler {
	return &TodoHandler{
		sync:   sync,
		hub:    hub,
		logger: logger,
	}
}

// List returns the active board (archived excluded), optionally scoped to a
// project.
func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, database.TaskFilter{ProjectID: r.URL.Query().Get("projectId")})
}

// ListArchived returns the archived list, newest first.
func (h *TodoHandler) ListArchived(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, database.TaskFilter{ProjectID: r.URL.Query().Get("projectId"), Archived: true})
}

func (h *TodoHandler) list(w http.ResponseWriter, r *http.Request, filter database.TaskFilter) {
	tasks, err := h.sync.Store().List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list tasks", "error", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"success": true, "tasks": tasks})
}

type createTodoRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Status      database.TaskStatus   `json:"status"`
	Attachments []database.Attachment `json:"attachments"`
	Price       *float64              `json:"price"`
	ProjectID   string                `json:"projectID"`
}

// Create adds a task, attributed to the signed-in identity.
func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r)
	if !ok {
		http.Error(w, "user not found", http.StatusUnauthorized)
		return
	}

	var req createTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request format", http.StatusBadRequest)
		return
	}

	createdBy := identity.Actor(h.sync.Store().Now())
	task, err := h.sync.Create(r.Context(), database.Task{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Attachments: req.Attachments,
		Price:       req.Price,
		ProjectID:   req.ProjectID,
		CreatedBy:   &createdBy,
	})
	if errors.Is(err, services.ErrEmptyTitle) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		h.logger.Error("failed to create task", "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{"success": true, "task": task})
}

// SetStatus moves a task between columns.
func (h *TodoHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status database.TaskStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request format", http.StatusBadRequest)
		return
	}
	if !database.ValidColumn(req.Status) {
		http.Error(w, "invalid status", http.StatusBadRequest)
		return
	}

	err := h.sync.SetStatus(r.Context(), mux.Vars(r)["id"], req.Status)
	if h.writeMutationResult(w, err, "failed to update status") {
		writeJSON(w, map[string]any{"success": true})
	}
}

// Archive stamps archivedBy and parks the task.
func (h *TodoHandler) Archive(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r)
	if !ok {
		http.Error(w, "user not found", http.StatusUnauthorized)
		return
	}

	err := h.sync.Archive(r.Context(), mux.Vars(r)["id"], identity.Actor(h.sync.Store().Now()))
	if h.writeMutationResult(w, err, "failed to archive task") {
		writeJSON(w, map[string]any{"success": true})
	}
}

// Restore brings an archived task back to the todo column.
func (h *TodoHandler) Restore(w http.ResponseWriter, r *http.Request) {
	err := h.sync.Restore(r.Context(), mux.Vars(r)["id"])
	if h.writeMutationResult(w, err, "failed to restore task") {
		writeJSON(w, map[string]any{"success": true})
	}
}

// writeMutationResult maps store errors onto the response and reports
// whether the caller should write the success body.
func (h *TodoHandler) writeMutationResult(w http.ResponseWriter, err error, msg string) bool {
	if errors.Is(err, database.ErrNotFound) {
		http.Error(w, "task not found", http.StatusNotFound)
		return false
	}
	if err != nil {
		h.logger.Error(msg, "error", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return false
	}
	return true
}

// HandleWebSocket upgrades the connection and streams board snapshots. The
// client may send drop messages to move tasks between columns.
func (h *TodoHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r)
	if !ok {
		http.Error(w, "user not found", http.StatusUnauthorized)
		return
	}

	filter := database.TaskFilter{
		ProjectID: r.URL.Query().Get("projectId"),
		Archived:  r.URL.Query().Get("view") == "archived",
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	// The subscription outlives the HTTP request: the request context dies
	// when this handler returns, but the hijacked connection does not. It
	// is torn down when the connection unregisters.
	ctx := context.Background()
	client, err := services.NewClient(ctx, h.hub, conn, identity, filter)
	if err != nil {
		h.logger.Error("failed to open subscription", "error", err)
		conn.Close()
		return
	}

	h.hub.Register(client)

	go client.WritePump()
	go client.StreamPump(ctx)
	go client.ReadPump(ctx)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
