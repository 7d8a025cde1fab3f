package api

import (
	"errors"
	"net/http"
	"regexp"

	"identity-service/internal/apperr"
	"identity-service/internal/lifecycle"
	"identity-service/internal/lookup"
	"identity-service/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{3,30}$`)

// RegisterValidations installs the custom binding rules used by the
// request payloads below.
func RegisterValidations() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected gin validator engine")
	}
	return v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
}

type Handler struct {
	lifecycle *lifecycle.Orchestrator
	lookups   *lookup.Gateway
	log       *zap.Logger
}

func NewHandler(lc *lifecycle.Orchestrator, lookups *lookup.Gateway, log *zap.Logger) *Handler {
	return &Handler{
		lifecycle: lc,
		lookups:   lookups,
		log:       log,
	}
}

// RegisterRoutes mounts the public endpoints and returns the group the
// caller should protect with the auth middleware.
func (h *Handler) RegisterRoutes(r *gin.Engine, auth *middleware.AuthMiddleware) {
	v1 := r.Group("/api/v1")

	v1.POST("/users", h.register)
	v1.GET("/users/check/username", h.checkUsername)
	v1.GET("/users/check/email", h.checkEmail)

	secured := v1.Group("/")
	secured.Use(auth.RequireAuth())

	secured.GET("/auth/me", h.me)
	secured.GET("/users/:username", h.profile)
	secured.DELETE("/users/:username", h.remove)

	secured.GET("/lookup/users/:id", h.lookupUser)
	secured.GET("/lookup/users/:id/exists", h.lookupExists)
	secured.POST("/lookup/users/batch", h.lookupUsers)

	// Private service-to-service surface; see internal.go.
	internal := r.Group("/internal")
	internal.GET("/users/:id", h.internalUser)
	internal.POST("/users/batch", h.internalUsers)
	internal.GET("/users/:id/exists", h.internalExists)
	internal.GET("/users/username/:username/keycloak", h.internalKeycloak)
}

// fail maps error kinds to HTTP statuses.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrDuplicateIdentity):
		c.JSON(http.StatusConflict, gin.H{"error": "identity already exists"})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	case errors.Is(err, apperr.ErrValidationFailed):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrAuthenticationFailed):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
	case errors.Is(err, apperr.ErrAccessDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
	default:
		h.log.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
