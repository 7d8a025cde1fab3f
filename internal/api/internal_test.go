package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"identity-service/internal/auth/reconcile"
	"identity-service/internal/auth/token"
	"identity-service/internal/event"
	"identity-service/internal/idp"
	"identity-service/internal/lifecycle"
	"identity-service/internal/middleware"
	"identity-service/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubGateway struct{}

func (stubGateway) CreateAccount(_ context.Context, _ idp.NewAccount) (string, error) {
	return "kc-stub", nil
}
func (stubGateway) DeleteAccount(_ context.Context, _ string) error          { return nil }
func (stubGateway) UsernameExists(_ context.Context, _ string) (bool, error) { return false, nil }
func (stubGateway) AssignRealmRole(_ context.Context, _, _ string) error     { return nil }

type noopQueue struct{}

func (noopQueue) Enqueue(event.Envelope) {}

func newTestServer(t *testing.T) (*gin.Engine, *user.MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, RegisterValidations())

	store := user.NewMemoryStore()
	verifier, err := token.NewStaticVerifier("test-signing-key")
	require.NoError(t, err)

	auth := middleware.NewAuthMiddleware(verifier, reconcile.NewEngine(store, zap.NewNop()), zap.NewNop())
	orch := lifecycle.NewOrchestrator(store, stubGateway{}, noopQueue{}, zap.NewNop())

	h := NewHandler(orch, nil, zap.NewNop())
	r := gin.New()
	h.RegisterRoutes(r, auth)
	return r, store
}

func seedInternalFixtures(t *testing.T, store *user.MemoryStore) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Save(ctx, &user.Record{
		Username:     "alice",
		Email:        "alice@x.com",
		SubjectID:    "kc-1",
		Role:         user.RoleUser,
		Active:       true,
		PasswordHash: user.ExternallyManagedHash,
	})
	require.NoError(t, err)

	gone, err := store.Save(ctx, &user.Record{
		Username:     "bob",
		Email:        "bob@x.com",
		PasswordHash: "x",
	})
	require.NoError(t, err)
	gone.MarkDeleted()
	_, err = store.Save(ctx, gone)
	require.NoError(t, err)

	_, err = store.Save(ctx, &user.Record{
		Username:     "carol",
		Email:        "carol@x.com",
		Role:         user.RoleUser,
		Active:       true,
		PasswordHash: "$2a$10$hash",
	})
	require.NoError(t, err)
}

func TestInternalUserServesOwnRecords(t *testing.T) {
	r, store := newTestServer(t)
	seedInternalFixtures(t, store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/internal/users/1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)
}

func TestInternalUserHidesDeletedRecords(t *testing.T) {
	r, store := newTestServer(t)
	seedInternalFixtures(t, store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/internal/users/2", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInternalUserRejectsBadID(t *testing.T) {
	r, _ := newTestServer(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/internal/users/abc", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInternalBatchSkipsMissingAndDeleted(t *testing.T) {
	r, store := newTestServer(t)
	seedInternalFixtures(t, store)

	req := httptest.NewRequest(http.MethodPost, "/internal/users/batch",
		strings.NewReader(`{"ids":[1,2,3,99]}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"found":2`)
	assert.Contains(t, w.Body.String(), `"username":"alice"`)
	assert.Contains(t, w.Body.String(), `"username":"carol"`)
	assert.NotContains(t, w.Body.String(), `"username":"bob"`)
}

func TestInternalExists(t *testing.T) {
	r, store := newTestServer(t)
	seedInternalFixtures(t, store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/internal/users/1/exists", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"exists":true`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/internal/users/99/exists", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"exists":false`)
}

func TestInternalKeycloakCheck(t *testing.T) {
	r, store := newTestServer(t)
	seedInternalFixtures(t, store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/internal/users/username/alice/keycloak", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"keycloak_user":true`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/internal/users/username/carol/keycloak", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"keycloak_user":false`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/internal/users/username/ghost/keycloak", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
