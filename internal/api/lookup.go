package api

import (
	"net/http"
	"strconv"

	"identity-service/internal/lookup"

	"github.com/gin-gonic/gin"
)

// Cross-service queries are answered through the resilient downstream
// gateway, never by reaching into the other service's storage. Degraded
// answers look like "absent", so these endpoints never 5xx on downstream
// failure.

func (h *Handler) lookupUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	profile, found := h.lookups.GetByID(c.Request.Context(), id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, profile)
}

type lookupBatchRequest struct {
	IDs []int64 `json:"ids" binding:"required"`
}

func (h *Handler) lookupUsers(c *gin.Context) {
	var req lookupBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	profiles := h.lookups.GetByIDs(c.Request.Context(), req.IDs)
	if profiles == nil {
		profiles = []lookup.Profile{}
	}

	c.JSON(http.StatusOK, gin.H{"users": profiles, "found": len(profiles)})
}

func (h *Handler) lookupExists(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"exists": h.lookups.ExistsByID(c.Request.Context(), id)})
}
