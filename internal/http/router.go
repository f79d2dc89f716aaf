package httpx

import (
	"github.com/gin-gonic/gin"
	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/http/handlers"
	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/http/middleware"
	"github.com/lakshman-nanchari/ai-fitness-tracker/internal/infrastructure/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Observability bundles the cross-cutting pieces the router installs
type Observability struct {
	Log      *logrus.Logger
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
	Health   map[string]handlers.HealthCheck
}

func BuildRouter(ah *handlers.AuthHandlers, ph *handlers.ProfileHandlers, jwtmw *middleware.AuthMW, access *middleware.AccessMW, obs Observability) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(obs.Log), middleware.ClientContext(), middleware.RequestLogger(obs.Log))
	if obs.Metrics != nil {
		r.Use(middleware.Metrics(obs.Metrics))
	}

	r.GET("/health", handlers.Health(obs.Health))
	if obs.Registry != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(obs.Registry)))
	}

	users := r.Group("/api/users")
	users.POST("/register", ah.Register)
	users.POST("/login", ah.Login)
	users.POST("/otp/request", ah.RequestOTP)
	users.POST("/otp/verify", ah.VerifyOTP)
	users.POST("/password/reset", ah.RequestPasswordReset)
	users.POST("/password/reset/confirm", ah.ConfirmPasswordReset)
	users.POST("/token/refresh", ah.Refresh)

	v := users.Group("").Use(jwtmw.WithJWT(), access.Enforce())
	v.POST("/password/change", ah.ChangePassword)
	v.POST("/logout", ah.Logout)
	v.GET("/me", ah.Me)
	v.GET("/profile", ph.Get)
	v.PUT("/profile", ph.Update)

	return r
}
