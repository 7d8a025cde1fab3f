package api

import (
	"net/http"
	"strconv"

	"identity-service/internal/user"

	"github.com/gin-gonic/gin"
)

// The /internal endpoints serve this service's own records to peer
// services over the private network, the same contract the lookup client
// consumes from its downstream. They carry no bearer auth; exposure is a
// deployment concern.

type internalUserResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

func toInternalUserResponse(r *user.Record) internalUserResponse {
	return internalUserResponse{
		ID:        r.ID,
		Username:  r.Username,
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Role:      string(r.Role),
	}
}

func (h *Handler) internalUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	rec, err := h.lifecycle.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, toInternalUserResponse(rec))
}

type internalBatchRequest struct {
	IDs []int64 `json:"ids" binding:"required"`
}

func (h *Handler) internalUsers(c *gin.Context) {
	var req internalBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	recs, err := h.lifecycle.GetByIDs(c.Request.Context(), req.IDs)
	if err != nil {
		h.fail(c, err)
		return
	}

	users := make([]internalUserResponse, 0, len(recs))
	for i := range recs {
		users = append(users, toInternalUserResponse(&recs[i]))
	}

	c.JSON(http.StatusOK, gin.H{"users": users, "found": len(users)})
}

func (h *Handler) internalExists(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	exists, err := h.lifecycle.ExistsByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"exists": exists})
}

func (h *Handler) internalKeycloak(c *gin.Context) {
	username := c.Param("username")

	managed, err := h.lifecycle.ExternallyManaged(c.Request.Context(), username)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"username": username, "keycloak_user": managed})
}
