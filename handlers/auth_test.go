package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/teamboard/teamboard/database"
	"github.com/teamboard/teamboard/services"
)

func newAuthHandler(t *testing.T) (*AuthHandler, *database.PresenceStore) {
	t.Helper()
	store := database.NewPresenceStore(openTestDB(t))
	gate := services.NewAccessGate(store, testLogger())
	auth := services.NewAuthService("test-secret")
	return NewAuthHandler(auth, gate, testLogger()), store
}

func login(t *testing.T, handler *AuthHandler, id services.Identity) (int, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(id)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	handler.Login(rec, req)

	var body map[string]any
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec.Code, body
}

func TestLogin_DirectSignInPendsApproval(t *testing.T) {
	handler, store := newAuthHandler(t)

	code, body := login(t, handler, services.Identity{UID: "u1", DisplayName: "Amina"})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "pending", body["gate"])
	require.Equal(t, false, body["allowed"])
	require.NotEmpty(t, body["token"])

	rec, err := store.Get(httptest.NewRequest("GET", "/", nil).Context(), "u1")
	require.NoError(t, err)
	require.NotNil(t, rec.Access)
	require.False(t, *rec.Access)
}

func TestLogin_FederatedBypasses(t *testing.T) {
	handler, store := newAuthHandler(t)

	code, body := login(t, handler, services.Identity{UID: "sso-1", Federated: true})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "federated", body["gate"])
	require.Equal(t, true, body["allowed"])

	_, err := store.Get(httptest.NewRequest("GET", "/", nil).Context(), "sso-1")
	require.ErrorIs(t, err, database.ErrNotFound)
}

func TestLogin_RequiresUID(t *testing.T) {
	handler, _ := newAuthHandler(t)

	code, _ := login(t, handler, services.Identity{})
	require.Equal(t, http.StatusBadRequest, code)
}

func TestVerify_SeesOutOfBandGrant(t *testing.T) {
	handler, store := newAuthHandler(t)

	code, _ := login(t, handler, services.Identity{UID: "u1"})
	require.Equal(t, http.StatusOK, code)

	// Admin grants access out of band; the next verify re-derives the state.
	require.NoError(t, store.SetAccess(httptest.NewRequest("GET", "/", nil).Context(), "u1", true))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/verify", nil)
	req = withIdentity(req, services.Identity{UID: "u1"})
	rec := httptest.NewRecorder()
	handler.Verify(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "approved", body["gate"])
	require.Equal(t, true, body["allowed"])
}
