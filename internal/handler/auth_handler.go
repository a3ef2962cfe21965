package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/carecollective/care-api/internal/service"
	"github.com/carecollective/care-api/pkg/auth/manager"
)

// AuthHandler serves registration, login and session endpoints.
type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type registerRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name"`
	Location  string `json:"location"`
	Phone     string `json:"phone"`
}

// Register creates a pending member application.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Location:  req.Location,
		Phone:     req.Phone,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"profile": profile,
		"message": "application received; confirm your email while you wait for approval",
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	DeviceID string `json:"device_id"`
}

// Login authenticates a member and sets the auth cookies. Rejected members
// receive a session too; the access gate confines them to the access-denied
// page.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, tokens, err := h.authService.Login(
		c.Request.Context(),
		req.Email, req.Password, req.DeviceID,
		c.ClientIP(), c.Request.UserAgent(),
		c.Writer,
	)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"profile": profile,
		"tokens":  tokens,
	})
}

// Refresh rotates the token pair from the refresh cookie.
func (h *AuthHandler) Refresh(c *gin.Context) {
	tokens, err := h.authService.Refresh(c.Writer, c.Request)
	if err != nil {
		var tokenErr *manager.TokenError
		if errors.As(err, &tokenErr) {
			status := http.StatusUnauthorized
			if tokenErr.Type == manager.DatabaseError {
				status = http.StatusInternalServerError
			}
			c.JSON(status, gin.H{"error": string(tokenErr.Type)})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// Logout revokes the current session and clears cookies.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Writer, c.Request); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// ChangePassword updates the member's password and revokes other sessions.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.authService.ChangePassword(c.Request.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password changed; other sessions were signed out"})
}
