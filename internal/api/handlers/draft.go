package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/broker-one/core/internal/api/middleware"
	"github.com/broker-one/core/internal/database/models"
	"github.com/broker-one/core/internal/drafting"
	"github.com/broker-one/core/internal/functions/ai"
	"github.com/broker-one/core/internal/functions/mail"
	"github.com/broker-one/core/internal/services"
	"github.com/gin-gonic/gin"
)

// DraftHandler handles draft lifecycle requests
type DraftHandler struct {
	draftService *services.DraftService
	logService   *services.LogService
}

// NewDraftHandler creates a new DraftHandler instance
func NewDraftHandler(draftService *services.DraftService, logService *services.LogService) *DraftHandler {
	return &DraftHandler{
		draftService: draftService,
		logService:   logService,
	}
}

// CreateDraftRequest represents the request to generate a draft
type CreateDraftRequest struct {
	DealID         uint `json:"deal_id" binding:"required"`
	InboundEmailID uint `json:"inbound_email_id" binding:"required"`
}

// UpdateDraftRequest represents the request to edit a draft body
type UpdateDraftRequest struct {
	Body string `json:"body" binding:"required"`
}

// RegenerateDraftRequest represents the request to regenerate a draft
type RegenerateDraftRequest struct {
	Instruction string `json:"instruction" binding:"required"`
}

// SwitchVersionRequest represents the request to switch the active version
type SwitchVersionRequest struct {
	Version *int `json:"version" binding:"required"`
}

// ApproveDraftRequest represents the request to approve a draft
type ApproveDraftRequest struct {
	FinalBody string `json:"final_body"`
}

// ReasonRequest carries an optional reason for reject and archive
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// SendDraftRequest represents the request to send a draft
type SendDraftRequest struct {
	Confirmed bool `json:"confirmed"`
}

// respondDraftError maps service errors to HTTP responses
func respondDraftError(c *gin.Context, err error) {
	var cooldownErr *services.CooldownError
	switch {
	case errors.Is(err, services.ErrDraftNotFound),
		errors.Is(err, services.ErrDealNotFound),
		errors.Is(err, services.ErrEmailNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": err.Error(),
			},
		})
	case errors.Is(err, services.ErrVersionNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VERSION_NOT_FOUND",
				"message": err.Error(),
			},
		})
	case errors.Is(err, services.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_STATE",
				"message": err.Error(),
			},
		})
	case errors.As(err, &cooldownErr):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"success": false,
			"error": gin.H{
				"code":            "REGENERATION_LIMIT",
				"message":         cooldownErr.Error(),
				"hours_remaining": cooldownErr.HoursRemaining,
			},
		})
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrEmailDealMismatch),
		errors.Is(err, mail.ErrInvalidRecipient):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": err.Error(),
			},
		})
	case errors.Is(err, services.ErrSendNotConfirmed):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "CONFIRMATION_REQUIRED",
				"message": err.Error(),
			},
		})
	case errors.Is(err, drafting.ErrGenerationFailed),
		errors.Is(err, ai.ErrAPICallFailed),
		errors.Is(err, ai.ErrEmptyCompletion),
		errors.Is(err, mail.ErrSendFailed):
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPSTREAM_ERROR",
				"message": err.Error(),
			},
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "An internal error occurred",
			},
		})
	}
}

// draftIDParam parses the :id path parameter
func draftIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid draft id",
			},
		})
		return 0, false
	}
	return uint(id), true
}

// bindJSON binds the request body or writes a validation error response
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request body",
				"details": err.Error(),
			},
		})
		return false
	}
	return true
}

// CreateDraft generates a new draft for a deal's inbound email
// POST /api/drafts
func (h *DraftHandler) CreateDraft(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req CreateDraftRequest
	if !bindJSON(c, &req) {
		return
	}

	draft, err := h.draftService.Create(userID, req.DealID, req.InboundEmailID)
	if err != nil {
		respondDraftError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    draft,
	})
}

// ListDrafts returns drafts filtered by deal and status
// GET /api/drafts
func (h *DraftHandler) ListDrafts(c *gin.Context) {
	dealID, _ := strconv.ParseUint(c.Query("deal_id"), 10, 32)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	result, err := h.draftService.List(services.DraftListOptions{
		DealID: uint(dealID),
		Status: c.Query("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		respondDraftError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"drafts": result.Drafts,
			"total":  result.Total,
			"limit":  result.Limit,
			"offset": result.Offset,
		},
	})
}

// GetDraft returns a single draft with its deal and inbound email
// GET /api/drafts/:id
func (h *DraftHandler) GetDraft(c *gin.Context) {
	id, ok := draftIDParam(c)
	if !ok {
		return
	}

	draft, err := h.draftService.GetByID(id)
	if err != nil {
		respondDraftError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    draft,
	})
}

// UpdateDraft applies a human edit to the draft body
// PUT /api/drafts/:id
func (h *DraftHandler) UpdateDraft(c *gin.Context) {
	id, ok := draftIDParam(c)
	if !ok {
		return
	}

	var req UpdateDraftRequest
	if !bindJSON(c, &req) {
		return
	}

	draft, err := h.draftService.Update(id, req.Body)
	if err != nil {
		respondDraftError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    draft,
	})
}

// RegenerateDraft produces a new draft version from an instruction
// POST /api/drafts/:id/regenerate
func (h *DraftHandler) RegenerateDraft(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	id, ok := draftIDParam(c)
	if !ok {
		return
	}

	var req RegenerateDraftRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.draftService.Regenerate(userID, id, req.Instruction)
	if err != nil {
		respondDraftError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"draft":              result.Draft,
			"new_version":        result.NewVersion,
			"versions_remaining": result.VersionsRemaining,
		},
	})
}

// SwitchDraftVersion makes an existing version the active one
// PUT /api/drafts/:id/version
func (h *DraftHandler) SwitchDraftVersion(c *gin.Context) {
	id, ok := draftIDParam(c)
	if !ok {
		return
	}

	var req SwitchVersionRequest
	if !bindJSON(c, &req) {
		return
	}

	draft, err := h.draftService.SwitchVersion(id, *req.Version)
	if err != nil {
		respondDraftError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    draft,
	})
}

// UndoDraftVersion steps the draft back one version
// POST /api/drafts/:id/undo
func (h *DraftHandler) UndoDraftVersion(c *gin.Context) {
	id, ok := draftIDParam(c)
	if !ok {
		return
	}

	draft, err := h.draftService.Undo(id)
	if err != nil {
		respondDraftError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    draft,
	})
}

// RedoDraftVersion steps the draft forward one version
// POST /api/drafts/:id/redo
func (h *DraftHandler) RedoDraftVersion(c *gin.Context) {
	id, ok := draftIDParam(c)
	if !ok {
		return
	}

	draft, err := h.draftService.Redo(id)
	if err != nil {
		respondDraftError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    draft,
	})
}

// ApproveDraft marks a pending draft as approved
// POST /api/drafts/:id/approve
func (h *DraftHandler) ApproveDraft(c *gin.Context) {
	username, _ := middleware.GetUsernameFromContext(c)

	id, ok := draftIDParam(c)
	if !ok {
		return
	}

	var req ApproveDraftRequest
	if c.Request.ContentLength > 0 {
		if !bindJSON(c, &req) {
			return
		}
	}

	draft, err := h.draftService.Approve(id, req.FinalBody, username)
	if err != nil {
		respondDraftError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    draft,
	})
}

// UnapproveDraft reverts an approved draft to pending
// POST /api/drafts/:id/unapprove
func (h *DraftHandler) UnapproveDraft(c *gin.Context) {
	id, ok := draftIDParam(c)
	if !ok {
		return
	}

	draft, err := h.draftService.Unapprove(id)
	if err != nil {
		respondDraftError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    draft,
	})
}

// RejectDraft marks a pending or approved draft as rejected
// POST /api/drafts/:id/reject
func (h *DraftHandler) RejectDraft(c *gin.Context) {
	username, _ := middleware.GetUsernameFromContext(c)

	id, ok := draftIDParam(c)
	if !ok {
		return
	}

	var req ReasonRequest
	if c.Request.ContentLength > 0 {
		if !bindJSON(c, &req) {
			return
		}
	}

	draft, err := h.draftService.Reject(id, req.Reason, username)
	if err != nil {
		respondDraftError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    draft,
	})
}

// ArchiveDraft soft-retires a draft
// POST /api/drafts/:id/archive
func (h *DraftHandler) ArchiveDraft(c *gin.Context) {
	username, _ := middleware.GetUsernameFromContext(c)

	id, ok := draftIDParam(c)
	if !ok {
		return
	}

	var req ReasonRequest
	if c.Request.ContentLength > 0 {
		if !bindJSON(c, &req) {
			return
		}
	}

	draft, err := h.draftService.Archive(id, req.Reason, username)
	if err != nil {
		respondDraftError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    draft,
	})
}

// SendDraft delivers the draft to the seeker
// POST /api/drafts/:id/send
func (h *DraftHandler) SendDraft(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	id, ok := draftIDParam(c)
	if !ok {
		return
	}

	var req SendDraftRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.draftService.Send(userID, id, req.Confirmed)
	if err != nil {
		respondDraftError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"draft":      result.Draft,
			"email":      toEmailResponse(result.Email),
			"message_id": result.MessageID,
		},
	})
}

// toEmailResponse shapes an outbound email row for API responses
func toEmailResponse(email *models.Email) gin.H {
	return gin.H{
		"id":           email.ID,
		"deal_id":      email.DealID,
		"from":         email.FromAddr,
		"to":           email.ToAddr,
		"subject":      email.Subject,
		"sent_at":      email.SentAt.Unix(),
		"ai_generated": email.AIGenerated,
	}
}
