package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"identity-service/internal/lifecycle"
	"identity-service/internal/middleware"
	"identity-service/internal/user"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Username      string `json:"username" binding:"required,username"`
	Email         string `json:"email" binding:"required,email"`
	Password      string `json:"password" binding:"required"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	PhoneNumber   string `json:"phone_number"`
	Country       string `json:"country"`
	City          string `json:"city"`
	State         string `json:"state"`
	StreetAddress string `json:"street_address"`
	PostalCode    string `json:"postal_code"`
}

type deleteRequest struct {
	Password string `json:"password"`
}

type userResponse struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Role        string     `json:"role"`
	Active      bool       `json:"active"`
	Verified    bool       `json:"verified"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toUserResponse(r *user.Record) userResponse {
	return userResponse{
		ID:          r.ID,
		Username:    r.Username,
		Email:       r.Email,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Role:        string(r.Role),
		Active:      r.Active,
		Verified:    r.Verified,
		LastLoginAt: r.LastLoginAt,
		CreatedAt:   r.CreatedAt,
	}
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	rec, err := h.lifecycle.Register(c.Request.Context(), lifecycle.Registration{
		Username:      req.Username,
		Email:         req.Email,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		PhoneNumber:   req.PhoneNumber,
		Country:       req.Country,
		City:          req.City,
		State:         req.State,
		StreetAddress: req.StreetAddress,
		PostalCode:    req.PostalCode,
	}, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, toUserResponse(rec))
}

func (h *Handler) checkUsername(c *gin.Context) {
	value := c.Query("value")
	if value == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value query parameter required"})
		return
	}

	taken, err := h.lifecycle.UsernameTaken(c.Request.Context(), value)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"value": value, "taken": taken})
}

func (h *Handler) checkEmail(c *gin.Context) {
	value := c.Query("value")
	if value == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value query parameter required"})
		return
	}

	taken, err := h.lifecycle.EmailTaken(c.Request.Context(), value)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"value": value, "taken": taken})
}

func (h *Handler) me(c *gin.Context) {
	rec, ok := middleware.RecordFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, toUserResponse(rec))
}

func (h *Handler) profile(c *gin.Context) {
	caller, ok := middleware.RecordFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	username := c.Param("username")
	if caller.Username != username && !caller.Role.AtLeast(user.RoleAdmin) {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	rec, err := h.lifecycle.GetByUsername(c.Request.Context(), username)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(rec))
}

func (h *Handler) remove(c *gin.Context) {
	caller, ok := middleware.RecordFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	username := c.Param("username")
	if caller.Username != username && !caller.Role.AtLeast(user.RoleAdmin) {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	// The body is optional: externally-managed accounts carry no secret.
	// A present but malformed body is still a client error.
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.lifecycle.Delete(c.Request.Context(), username, req.Password); err != nil {
		h.fail(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
