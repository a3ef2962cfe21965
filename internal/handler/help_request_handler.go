package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/carecollective/care-api/internal/domain/repository"
	"github.com/carecollective/care-api/internal/middleware"
	"github.com/carecollective/care-api/internal/service"
)

// HelpRequestHandler serves the community help request board.
type HelpRequestHandler struct {
	helpRequestService *service.HelpRequestService
}

func NewHelpRequestHandler(helpRequestService *service.HelpRequestService) *HelpRequestHandler {
	return &HelpRequestHandler{helpRequestService: helpRequestService}
}

type createHelpRequestRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Category    string `json:"category" binding:"required"`
	Urgency     string `json:"urgency"`
}

// Create posts a new help request.
func (h *HelpRequestHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req createHelpRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	request, err := h.helpRequestService.Create(c.Request.Context(), userID, service.CreateHelpRequestInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Urgency:     req.Urgency,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, request)
}

// List returns the board with optional status/category/urgency filters.
func (h *HelpRequestHandler) List(c *gin.Context) {
	limit, offset := paginationParams(c, 20, 100)
	filter := repository.HelpRequestFilter{
		Status:   c.Query("status"),
		Category: c.Query("category"),
		Urgency:  c.Query("urgency"),
	}

	requests, total, err := h.helpRequestService.List(c.Request.Context(), filter, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests, "total": total})
}

// Get returns one help request.
func (h *HelpRequestHandler) Get(c *gin.Context) {
	requestID, ok := middleware.GetUintParam(c, "request_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	request, err := h.helpRequestService.Get(c.Request.Context(), requestID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, request)
}

// ListMine returns the caller's own requests.
func (h *HelpRequestHandler) ListMine(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	limit, offset := paginationParams(c, 20, 100)
	requests, total, err := h.helpRequestService.ListMine(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests, "total": total})
}

// ListHelping returns requests the caller offered to help with.
func (h *HelpRequestHandler) ListHelping(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	limit, offset := paginationParams(c, 20, 100)
	requests, total, err := h.helpRequestService.ListHelping(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": requests, "total": total})
}

// OfferHelp claims an open request for the caller.
func (h *HelpRequestHandler) OfferHelp(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	requestID, ok := middleware.GetUintParam(c, "request_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	if err := h.helpRequestService.OfferHelp(c.Request.Context(), requestID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "you are now helping with this request"})
}

// Complete marks the caller's request as completed.
func (h *HelpRequestHandler) Complete(c *gin.Context) {
	h.close(c, h.helpRequestService.Complete)
}

// Cancel withdraws the caller's request.
func (h *HelpRequestHandler) Cancel(c *gin.Context) {
	h.close(c, h.helpRequestService.Cancel)
}

func (h *HelpRequestHandler) close(c *gin.Context, op func(ctx context.Context, requestID, userID uint) error) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	requestID, ok := middleware.GetUintParam(c, "request_id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request id"})
		return
	}

	if err := op(c.Request.Context(), requestID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "request closed"})
}
