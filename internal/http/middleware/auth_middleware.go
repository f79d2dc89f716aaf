package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lakshman-nanchari/ai-fitness-tracker/domain"
)

// Context keys set by AuthMiddleware
const (
	ContextClaims    = "claims"
	ContextUserID    = "user_id"
	ContextSessionID = "session_id"
)

// ClaimsFrom returns the claims stored by AuthMiddleware
func ClaimsFrom(c *gin.Context) (*domain.TokenClaims, bool) {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*domain.TokenClaims)
	return claims, ok && claims != nil
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message, "code": code})
}

// AuthMiddleware creates authentication middleware
func AuthMiddleware(tokenSvc domain.TokenService, sessionRepo domain.SessionRepository) gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		// Get Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "unauthorized", "Authorization header required")
			return
		}

		// Check Bearer token format
		tokenParts := strings.SplitN(authHeader, " ", 2)
		if len(tokenParts) != 2 || !strings.EqualFold(tokenParts[0], "Bearer") || tokenParts[1] == "" {
			abortUnauthorized(c, "unauthorized", "Invalid authorization header format")
			return
		}

		// Validate token
		claims, err := tokenSvc.ValidateAccessToken(tokenParts[1])
		if err != nil {
			if errors.Is(err, domain.ErrTokenExpired) {
				abortUnauthorized(c, "token_expired", "Token expired")
				return
			}
			abortUnauthorized(c, "invalid_token", "Invalid token")
			return
		}

		// The session must still exist; logout deletes it
		if claims.SessionID == "" {
			abortUnauthorized(c, "invalid_token", "Invalid token")
			return
		}
		session, err := sessionRepo.FindByID(c.Request.Context(), claims.SessionID)
		if err != nil || session == nil {
			abortUnauthorized(c, "session_expired", "Session invalid or expired")
			return
		}
		if session.UserID != claims.UserID {
			abortUnauthorized(c, "invalid_token", "Session user mismatch")
			return
		}

		c.Set(ContextClaims, claims)
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextSessionID, claims.SessionID)

		c.Next()
	})
}
