package handlers

import (
	"net/http"
	"strconv"

	"github.com/broker-one/core/internal/services"
	"github.com/gin-gonic/gin"
)

// LogHandler handles system log queries
type LogHandler struct {
	logService *services.LogService
}

// NewLogHandler creates a new LogHandler instance
func NewLogHandler(logService *services.LogService) *LogHandler {
	return &LogHandler{logService: logService}
}

// ListLogs returns log entries with pagination and optional filters
// GET /api/logs
func (h *LogHandler) ListLogs(c *gin.Context) {
	userID, _ := strconv.ParseUint(c.Query("user_id"), 10, 32)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	result, err := h.logService.ListLogs(services.LogListOptions{
		UserID: uint(userID),
		Level:  c.Query("level"),
		Module: c.Query("module"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to retrieve logs",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"logs":  result.Logs,
			"total": result.Total,
			"page":  result.Page,
			"limit": result.Limit,
		},
	})
}
