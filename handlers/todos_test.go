package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/teamboard/teamboard/database"
	"github.com/teamboard/teamboard/services"
)

func newTodoHandler(t *testing.T) (*TodoHandler, *database.TaskStore) {
	t.Helper()
	db := openTestDB(t)
	store := database.NewTaskStore(db)
	clock := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store.Now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	todoSync := services.NewTodoSync(store, testLogger())
	hub := services.NewHub(todoSync, database.NewPresenceStore(db), testLogger())
	return NewTodoHandler(todoSync, hub, testLogger()), store
}

func postJSON(t *testing.T, target string, body any, id services.Identity) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(raw))
	return withIdentity(req, id)
}

func TestCreateTodo_RequiresTitle(t *testing.T) {
	handler, _ := newTodoHandler(t)

	req := postJSON(t, "/api/todos", map[string]string{"title": "   "}, services.Identity{UID: "u1"})
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateTodo_StampsCreator(t *testing.T) {
	handler, store := newTodoHandler(t)

	req := postJSON(t, "/api/todos", map[string]any{
		"title":  "Ship v1",
		"status": "todo",
	}, services.Identity{UID: "u1", DisplayName: "Amina"})
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var body struct {
		Task database.Task `json:"task"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Task.ID)
	require.NotNil(t, body.Task.CreatedBy)
	require.Equal(t, "u1", body.Task.CreatedBy.UID)

	got, err := store.Get(req.Context(), body.Task.ID)
	require.NoError(t, err)
	require.Equal(t, "Ship v1", got.Title)
}

// End-to-end board lifecycle: create sorts first in its column, archive
// moves it to the archived list with attribution, restore brings it back.
func TestTodoLifecycle(t *testing.T) {
	handler, store := newTodoHandler(t)
	identity := services.Identity{UID: "u1", DisplayName: "Amina"}

	// An older task to order against.
	older, err := store.Create(httptest.NewRequest("GET", "/", nil).Context(),
		database.Task{Title: "older todo"})
	require.NoError(t, err)

	req := postJSON(t, "/api/todos", map[string]string{"title": "Ship v1"}, identity)
	rec := httptest.NewRecorder()
	handler.Create(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Task database.Task `json:"task"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// Newer task first within the todo column.
	rec = httptest.NewRecorder()
	handler.List(rec, withIdentity(httptest.NewRequest(http.MethodGet, "/api/todos", nil), identity))
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Tasks []database.Task `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Tasks, 2)
	require.Equal(t, created.Task.ID, listed.Tasks[0].ID)
	require.Equal(t, older.ID, listed.Tasks[1].ID)

	// Archive: gone from the board, present in the archived list.
	req = postJSON(t, "/api/todos/"+created.Task.ID+"/archive", nil, identity)
	req = mux.SetURLVars(req, map[string]string{"id": created.Task.ID})
	rec = httptest.NewRecorder()
	handler.Archive(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.List(rec, withIdentity(httptest.NewRequest(http.MethodGet, "/api/todos", nil), identity))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Tasks, 1)

	rec = httptest.NewRecorder()
	handler.ListArchived(rec, withIdentity(httptest.NewRequest(http.MethodGet, "/api/todos/archived", nil), identity))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Tasks, 1)
	require.NotNil(t, listed.Tasks[0].ArchivedBy)
	require.Equal(t, "u1", listed.Tasks[0].ArchivedBy.UID)

	// Restore: back in the todo column, attribution cleared.
	req = postJSON(t, "/api/todos/"+created.Task.ID+"/restore", nil, identity)
	req = mux.SetURLVars(req, map[string]string{"id": created.Task.ID})
	rec = httptest.NewRecorder()
	handler.Restore(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := store.Get(req.Context(), created.Task.ID)
	require.NoError(t, err)
	require.Equal(t, database.StatusTodo, got.Status)
	require.Nil(t, got.ArchivedBy)
}

func TestSetStatus_Validation(t *testing.T) {
	handler, _ := newTodoHandler(t)
	identity := services.Identity{UID: "u1"}

	req := postJSON(t, "/api/todos/x/status", map[string]string{"status": "bogus"}, identity)
	req = mux.SetURLVars(req, map[string]string{"id": "x"})
	rec := httptest.NewRecorder()
	handler.SetStatus(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Archiving goes through the archive endpoint so archivedBy gets set;
	// the status endpoint must not accept it.
	req = postJSON(t, "/api/todos/x/status", map[string]string{"status": "archived"}, identity)
	req = mux.SetURLVars(req, map[string]string{"id": "x"})
	rec = httptest.NewRecorder()
	handler.SetStatus(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	req = postJSON(t, "/api/todos/x/status", map[string]string{"status": "done"}, identity)
	req = mux.SetURLVars(req, map[string]string{"id": "x"})
	rec = httptest.NewRecorder()
	handler.SetStatus(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
