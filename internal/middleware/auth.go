package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"identity-service/internal/apperr"
	"identity-service/internal/auth/reconcile"
	"identity-service/internal/auth/token"
	"identity-service/internal/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// unexported, collision-proof context key
type recordContextKeyType struct{}

var recordKey = recordContextKeyType{}

// RecordFromContext extracts the reconciled user record from context.
func RecordFromContext(ctx context.Context) (*user.Record, bool) {
	rec, ok := ctx.Value(recordKey).(*user.Record)
	return rec, ok
}

type AuthMiddleware struct {
	verifier token.Verifier
	engine   *reconcile.Engine
	log      *zap.Logger
}

func NewAuthMiddleware(verifier token.Verifier, engine *reconcile.Engine, log *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		engine:   engine,
		log:      log,
	}
}

// RequireAuth verifies the bearer token, reconciles the asserted identity
// against the local store and attaches the resulting record to the request
// context. Reconciliation runs before any business logic; its failure
// fails the request, since there is no safe default identity.
func (a *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Extract the bearer token
		rawToken := bearerToken(c.Request)
		if rawToken == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		// 2. Verify signature and expiry
		claims, err := a.verifier.Verify(c.Request.Context(), rawToken)
		if err != nil {
			a.log.Warn("token rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		// 3. Reconcile the verified identity with the local store
		rec, err := a.engine.Reconcile(c.Request.Context(), claims)
		if err != nil {
			a.log.Error("reconciliation failed",
				zap.String("subject_id", claims.SubjectID),
				zap.Error(err),
			)
			status := http.StatusServiceUnavailable
			if errors.Is(err, apperr.ErrValidationFailed) {
				status = http.StatusUnauthorized
			}
			c.AbortWithStatusJSON(status, gin.H{"error": "authentication infrastructure error"})
			return
		}

		// 4. Attach the record and continue
		ctx := context.WithValue(c.Request.Context(), recordKey, rec)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return header[len(prefix):]
	}
	return ""
}
