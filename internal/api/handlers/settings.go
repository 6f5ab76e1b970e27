package handlers

import (
	"net/http"

	"github.com/broker-one/core/internal/api/middleware"
	"github.com/broker-one/core/internal/database/models"
	"github.com/broker-one/core/internal/services"
	"github.com/gin-gonic/gin"
)

// SettingsHandler handles user settings related requests
type SettingsHandler struct {
	userService *services.UserService
	logService  *services.LogService
}

// NewSettingsHandler creates a new SettingsHandler instance
func NewSettingsHandler(userService *services.UserService, logService *services.LogService) *SettingsHandler {
	return &SettingsHandler{
		userService: userService,
		logService:  logService,
	}
}

// UserSettingsResponse represents the response for user settings
type UserSettingsResponse struct {
	ValidateDrafts bool   `json:"validate_drafts"`
	AgentName      string `json:"agent_name"`
	Theme          string `json:"theme"`
	Font           string `json:"font"`
}

// UpdateSettingsRequest represents the request to update user settings
type UpdateSettingsRequest struct {
	ValidateDrafts *bool   `json:"validate_drafts"`
	AgentName      *string `json:"agent_name"`
	Theme          *string `json:"theme"`
	Font           *string `json:"font"`
}

// toSettingsResponse converts UserSettings model to UserSettingsResponse
func toSettingsResponse(settings *models.UserSettings) UserSettingsResponse {
	return UserSettingsResponse{
		ValidateDrafts: settings.ValidateDrafts,
		AgentName:      settings.AgentName,
		Theme:          settings.Theme,
		Font:           settings.Font,
	}
}

// GetSettings returns the current user's settings
// GET /api/settings
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "AUTH_FAILED",
				"message": "User not authenticated",
			},
		})
		return
	}

	settings, err := h.userService.GetSettings(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to retrieve settings",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    toSettingsResponse(settings),
	})
}

// UpdateSettings updates the current user's settings
// PUT /api/settings
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "AUTH_FAILED",
				"message": "User not authenticated",
			},
		})
		return
	}

	var req UpdateSettingsRequest
	if !bindJSON(c, &req) {
		return
	}

	current, err := h.userService.GetSettings(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to retrieve settings",
			},
		})
		return
	}

	// Update only provided fields
	update := *current
	if req.ValidateDrafts != nil {
		update.ValidateDrafts = *req.ValidateDrafts
	}
	if req.AgentName != nil {
		update.AgentName = *req.AgentName
	}
	if req.Theme != nil {
		update.Theme = *req.Theme
	}
	if req.Font != nil {
		update.Font = *req.Font
	}

	settings, err := h.userService.UpdateSettings(userID, update)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to update settings",
			},
		})
		return
	}

	h.logService.LogInfo(userID, models.LogModuleUser, "settings_update", "User settings updated", map[string]interface{}{
		"validate_drafts": settings.ValidateDrafts,
		"agent_name":      settings.AgentName,
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    toSettingsResponse(settings),
	})
}
