package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lakshman-nanchari/ai-fitness-tracker/domain"
	"github.com/sirupsen/logrus"
)

// AccessMW checks the caller's access level against the route policies
type AccessMW struct {
	policySvc domain.PolicyService
	log       *logrus.Logger
}

// NewAccessMW creates new access middleware wrapper
func NewAccessMW(policySvc domain.PolicyService, log *logrus.Logger) *AccessMW {
	return &AccessMW{policySvc: policySvc, log: log}
}

// Enforce returns the casbin authorization middleware. It must run after
// AuthMiddleware.
func (mw *AccessMW) Enforce() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			abortUnauthorized(c, "unauthorized", "Authentication required")
			return
		}

		// Match against the route pattern, not the concrete URL
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method

		allowed, err := mw.policySvc.CheckPermission(claims.AccessRole(), path, method)
		if err != nil {
			mw.log.WithError(err).WithFields(logrus.Fields{
				"path":   path,
				"method": method,
			}).Error("authorization check failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Authorization check failed", "code": "internal_error"})
			return
		}

		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied", "code": "access_denied"})
			return
		}

		c.Next()
	})
}
