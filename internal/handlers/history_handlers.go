package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/voxcraft/voxcraft-golang/internal/history"
	"github.com/voxcraft/voxcraft-golang/internal/models"
)

// GetHistory is the handler for GET /v1/history/:service. It returns
// the user's ten most recent clips for that service, each with a fresh
// presigned URL (or none, if signing failed).
func (h *Handlers) GetHistory(c *gin.Context) {
	userID_raw, _ := c.Get("userID")
	userID := userID_raw.(int64)

	service := models.ServiceKind(c.Param("service"))
	if !service.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown service"})
		return
	}

	items, err := h.History.List(c.Request.Context(), userID, service)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
		return
	}
	if items == nil {
		items = []history.Item{} // empty list, not null, in the JSON
	}

	c.JSON(http.StatusOK, gin.H{
		"items":  items,
		"groups": history.GroupByDate(items),
	})
}
