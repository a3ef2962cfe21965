package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/carecollective/care-api/internal/service"
)

// MemberHandler serves the member's own profile and email confirmation flow.
type MemberHandler struct {
	authService         *service.AuthService
	confirmationService *service.EmailConfirmationService
	verificationService *service.VerificationService
}

func NewMemberHandler(
	authService *service.AuthService,
	confirmationService *service.EmailConfirmationService,
	verificationService *service.VerificationService,
) *MemberHandler {
	return &MemberHandler{
		authService:         authService,
		confirmationService: confirmationService,
		verificationService: verificationService,
	}
}

// Me returns the caller's profile.
func (h *MemberHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	profile, err := h.authService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

type updateProfileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Location  string `json:"location"`
	Phone     string `json:"phone"`
}

// UpdateProfile updates the caller's editable fields.
func (h *MemberHandler) UpdateProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.authService.UpdateProfile(c.Request.Context(), userID, req.FirstName, req.LastName, req.Location, req.Phone)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// SendConfirmationCode (re)sends the email confirmation code.
func (h *MemberHandler) SendConfirmationCode(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.confirmationService.SendCode(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "confirmation code sent"})
}

type confirmEmailRequest struct {
	Code string `json:"code" binding:"required"`
}

// ConfirmEmail verifies the submitted confirmation code.
func (h *MemberHandler) ConfirmEmail(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req confirmEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.confirmationService.ConfirmCode(c.Request.Context(), userID, req.Code); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "email confirmed"})
}

// ConfirmationStatus reports the state of the active confirmation code.
func (h *MemberHandler) ConfirmationStatus(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	status, err := h.confirmationService.Status(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Reapply returns a rejected member to the pending queue.
func (h *MemberHandler) Reapply(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.verificationService.ReapplyAfterRejection(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "application resubmitted; status is pending again"})
}

// History returns the caller's own verification transition history.
func (h *MemberHandler) History(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	limit, offset := paginationParams(c, 20, 100)
	history, err := h.verificationService.MemberHistory(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}
