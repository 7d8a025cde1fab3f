package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"identity-service/internal/auth/reconcile"
	"identity-service/internal/auth/token"
	"identity-service/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testKey = "test-signing-key"

func newTestRouter(t *testing.T, store *user.MemoryStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	verifier, err := token.NewStaticVerifier(testKey)
	require.NoError(t, err)

	engine := reconcile.NewEngine(store, zap.NewNop())
	auth := NewAuthMiddleware(verifier, engine, zap.NewNop())

	r := gin.New()
	protected := r.Group("/")
	protected.Use(auth.RequireAuth())
	protected.GET("/whoami", func(c *gin.Context) {
		rec, ok := RecordFromContext(c.Request.Context())
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"username": rec.Username})
	})
	return r
}

func signedToken(t *testing.T) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":                "sub-1",
		"preferred_username": "alice",
		"email":              "alice@x.com",
		"exp":                time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testKey))
	require.NoError(t, err)
	return raw
}

func TestRequireAuthProvisionsAndAttachesRecord(t *testing.T) {
	store := user.NewMemoryStore()
	r := newTestRouter(t, store)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice")

	rec, err := store.FindBySubjectID(req.Context(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", rec.Username)
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	r := newTestRouter(t, user.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthRejectsGarbageToken(t *testing.T) {
	r := newTestRouter(t, user.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuthFailsClosedOnStoreFailure(t *testing.T) {
	store := user.NewMemoryStore()
	store.SaveErr = assert.AnError
	r := newTestRouter(t, store)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
