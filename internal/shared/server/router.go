package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jobpilot-backend/internal/applications"
	"jobpilot-backend/internal/matching"
	"jobpilot-backend/internal/shared/config"
	"jobpilot-backend/internal/shared/metrics"
	"jobpilot-backend/internal/shared/server/middleware"
	"jobpilot-backend/internal/shared/server/respond"
)

// RouterDeps carries the handlers the router wires up.
type RouterDeps struct {
	Config             config.Config
	MatchHandler       *matching.Handler
	ApplicationHandler *applications.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Identity("/metrics", "/api/v1/health", "/api/v1/tracking/"),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				"MUTATE": {Rate: deps.Config.APIRateLimit, Burst: deps.Config.APIRateBurst},
			},
			GroupFor: func(c *gin.Context) string {
				if c.Request.Method == http.MethodGet {
					return ""
				}
				return "MUTATE"
			},
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	registerMeRoutes(api)

	if deps.MatchHandler != nil {
		deps.MatchHandler.RegisterRoutes(api)
	}
	if deps.ApplicationHandler != nil {
		deps.ApplicationHandler.RegisterRoutes(api)
		deps.ApplicationHandler.RegisterTrackingRoutes(api)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
