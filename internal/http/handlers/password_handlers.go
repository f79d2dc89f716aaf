package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lakshman-nanchari/ai-fitness-tracker/domain"
	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/http/middleware"
)

// ChangePasswordRequest carries old_password only for non-elevated tokens
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password" binding:"required"`
}

// PasswordResetRequest starts the reset flow
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// PasswordResetConfirmRequest completes the reset flow
type PasswordResetConfirmRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Code        string `json:"code" binding:"required,numeric"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ChangePassword handles password change for the authenticated user
func (h *AuthHandlers) ChangePassword(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		WriteError(c, h.log, domain.ErrUnauthorized)
		return
	}

	var req ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authSvc.ChangePassword(c.Request.Context(), claims, req.OldPassword, req.NewPassword); err != nil {
		WriteError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"message": "Password changed successfully",
		},
	})
}

// RequestPasswordReset sends a reset code; no token is needed
func (h *AuthHandlers) RequestPasswordReset(c *gin.Context) {
	var req PasswordResetRequest
	if !bindJSON(c, &req) {
		return
	}

	issue, err := h.authSvc.RequestPasswordReset(c.Request.Context(), req.Email)
	if err != nil {
		WriteError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": otpResponse("Password reset code sent to your email", issue)})
}

// ConfirmPasswordReset sets a new password using the emailed code
func (h *AuthHandlers) ConfirmPasswordReset(c *gin.Context) {
	var req PasswordResetConfirmRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.authSvc.ConfirmPasswordReset(c.Request.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		WriteError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"message": "Password has been reset successfully",
		},
	})
}
