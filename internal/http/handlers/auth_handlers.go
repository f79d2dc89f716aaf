package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lakshman-nanchari/ai-fitness-tracker/domain"
	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/http/middleware"
	"github.com/sirupsen/logrus"
)

// AuthHandlers handles authentication HTTP requests
type AuthHandlers struct {
	authSvc domain.AuthService
	log     *logrus.Logger
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authSvc domain.AuthService, log *logrus.Logger) *AuthHandlers {
	return &AuthHandlers{authSvc: authSvc, log: log}
}

// RegisterRequest represents registration request
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,max=150"`
	Phone    string `json:"phone,omitempty" binding:"omitempty,e164"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest represents login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// OTPRequest asks for a code to be sent to an address
type OTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// OTPVerifyRequest represents OTP verification request
type OTPVerifyRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,numeric"`
}

// RefreshRequest represents token refresh request
type RefreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

type userResponse struct {
	ID                 uint       `json:"id"`
	Email              string     `json:"email"`
	Username           string     `json:"username"`
	Phone              string     `json:"phone,omitempty"`
	IsActive           bool       `json:"is_active"`
	LastPasswordChange *time.Time `json:"last_password_change"`
	CreatedAt          time.Time  `json:"created_at"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:                 u.ID,
		Email:              u.Email,
		Username:           u.Username,
		Phone:              u.Phone,
		IsActive:           u.IsActive,
		LastPasswordChange: u.LastPasswordChange,
		CreatedAt:          u.CreatedAt,
	}
}

func tokenResponse(message string, result *domain.AuthResult) gin.H {
	return gin.H{
		"message":      message,
		"access":       result.Tokens.AccessToken,
		"refresh":      result.Tokens.RefreshToken,
		"token_type":   "Bearer",
		"expires_in":   result.Tokens.ExpiresIn,
		"otp_verified": result.OTPVerified,
		"user":         toUserResponse(result.User),
	}
}

func otpResponse(message string, issue *domain.OTPIssue) gin.H {
	data := gin.H{
		"message":    message,
		"expires_at": issue.ExpiresAt,
		"delivered":  issue.Delivered,
	}
	if !issue.Delivered {
		data["message"] = "Code created but not delivered"
		data["warning"] = "The code was created but could not be delivered: " + issue.DeliveryError
	}
	return data
}

// Register handles user registration
func (h *AuthHandlers) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.authSvc.Register(c.Request.Context(), req.Email, req.Username, req.Phone, req.Password)
	if err != nil {
		WriteError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data": gin.H{
			"message": "User registered successfully. Please log in.",
			"user":    toUserResponse(user),
		},
	})
}

// Login handles user login
func (h *AuthHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		WriteError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tokenResponse("Login successful", result)})
}

// RequestOTP handles OTP generation and sending
func (h *AuthHandlers) RequestOTP(c *gin.Context) {
	var req OTPRequest
	if !bindJSON(c, &req) {
		return
	}

	issue, err := h.authSvc.RequestOTP(c.Request.Context(), req.Email)
	if err != nil {
		WriteError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": otpResponse("OTP sent to your email", issue)})
}

// VerifyOTP exchanges a code for an OTP-verified token pair
func (h *AuthHandlers) VerifyOTP(c *gin.Context) {
	var req OTPVerifyRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authSvc.VerifyOTP(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		WriteError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": tokenResponse("OTP verified successfully", result)})
}

// Refresh handles token refresh
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req RefreshRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.authSvc.RefreshToken(c.Request.Context(), req.Refresh)
	if err != nil {
		WriteError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"access":     result.Tokens.AccessToken,
			"token_type": "Bearer",
			"expires_in": result.Tokens.ExpiresIn,
		},
	})
}

// Me returns the authenticated user
func (h *AuthHandlers) Me(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		WriteError(c, h.log, domain.ErrUnauthorized)
		return
	}

	user, err := h.authSvc.GetUser(c.Request.Context(), claims.UserID)
	if err != nil {
		WriteError(c, h.log, err)
		return
	}

	data := toUserResponse(user)
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"user":         data,
			"otp_verified": claims.OTPVerified,
		},
	})
}

// Logout ends the session of the presented token
func (h *AuthHandlers) Logout(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		WriteError(c, h.log, domain.ErrUnauthorized)
		return
	}

	if err := h.authSvc.Logout(c.Request.Context(), claims.SessionID); err != nil {
		WriteError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"message": "Logged out successfully",
		},
	})
}
