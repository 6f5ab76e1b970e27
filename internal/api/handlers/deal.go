package handlers

import (
	"net/http"
	"strconv"

	"github.com/broker-one/core/internal/services"
	"github.com/gin-gonic/gin"
)

// DealHandler handles deal and email-thread requests
type DealHandler struct {
	dealService *services.DealService
	logService  *services.LogService
}

// NewDealHandler creates a new DealHandler instance
func NewDealHandler(dealService *services.DealService, logService *services.LogService) *DealHandler {
	return &DealHandler{
		dealService: dealService,
		logService:  logService,
	}
}

// dealIDParam parses the :id path parameter
func dealIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid deal id",
			},
		})
		return 0, false
	}
	return uint(id), true
}

// ListDeals returns all deals
// GET /api/deals
func (h *DealHandler) ListDeals(c *gin.Context) {
	deals, err := h.dealService.ListDeals()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to retrieve deals",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    deals,
	})
}

// GetDeal returns a single deal
// GET /api/deals/:id
func (h *DealHandler) GetDeal(c *gin.Context) {
	id, ok := dealIDParam(c)
	if !ok {
		return
	}

	deal, err := h.dealService.GetDeal(id)
	if err != nil {
		respondDraftError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    deal,
	})
}

// GetDealSpaces returns the spaces attached to a deal
// GET /api/deals/:id/spaces
func (h *DealHandler) GetDealSpaces(c *gin.Context) {
	id, ok := dealIDParam(c)
	if !ok {
		return
	}

	if _, err := h.dealService.GetDeal(id); err != nil {
		respondDraftError(c, err)
		return
	}

	spaces, err := h.dealService.GetDealSpaces(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to retrieve spaces",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    spaces,
	})
}

// GetDealEmails returns a deal's email thread in chronological order
// GET /api/deals/:id/emails
func (h *DealHandler) GetDealEmails(c *gin.Context) {
	id, ok := dealIDParam(c)
	if !ok {
		return
	}

	if _, err := h.dealService.GetDeal(id); err != nil {
		respondDraftError(c, err)
		return
	}

	emails, err := h.dealService.GetEmailThread(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to retrieve emails",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    emails,
	})
}
