package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bearerFor(t *testing.T, username string) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":                "sub-" + username,
		"preferred_username": username,
		"email":              username + "@x.com",
		"exp":                time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return "Bearer " + raw
}

func TestRemoveRejectsMalformedBody(t *testing.T) {
	r, store := newTestServer(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/users/alice",
		strings.NewReader(`{"password":`))
	req.Header.Set("Authorization", bearerFor(t, "alice"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request")

	// The record the middleware provisioned must survive the bad request.
	_, err := store.FindByUsername(req.Context(), "alice", false)
	assert.NoError(t, err)
}

func TestRemoveAcceptsEmptyBody(t *testing.T) {
	r, store := newTestServer(t)

	// The caller is provisioned externally-managed by the auth middleware,
	// so deletion needs no secret and no body.
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/users/alice", nil)
	req.Header.Set("Authorization", bearerFor(t, "alice"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)

	all, err := store.FindByUsername(req.Context(), "alice", true)
	require.NoError(t, err)
	assert.True(t, all.Deleted)
}
