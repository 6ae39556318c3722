package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"photoreq-backend/internal/agent"
	googleauth "photoreq-backend/internal/auth"
	"photoreq-backend/internal/intake"
	"photoreq-backend/internal/services/health"
	"photoreq-backend/internal/sessions"
	"photoreq-backend/internal/shared/auth"
	"photoreq-backend/internal/shared/config"
	"photoreq-backend/internal/shared/metrics"
	"photoreq-backend/internal/shared/server/middleware"
	"photoreq-backend/internal/shared/server/respond"
)

// Rate limit groups.
const (
	rateGroupLogin   = "LOGIN"
	rateGroupPolling = "POLLING"
	rateGroupDefault = "DEFAULT"
	rateGroupUpload  = "UPLOAD"
)

// RouterDeps are the handlers mounted by NewRouter. Nil handlers are skipped.
type RouterDeps struct {
	Config         config.Config
	Signer         *auth.Signer
	SessionHandler *sessions.Handler
	AgentHandler   *agent.Handler
	IntakeHandler  *intake.Handler
	GoogleAuth     *googleauth.GoogleService
	Health         *health.Service
	Limiter        *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	limit := middleware.RateLimit(middleware.RateLimitConfig{
		Rules:        defaultRateLimits(),
		DefaultGroup: rateGroupDefault,
		GroupFor:     rateGroupFor,
		Limiter:      deps.Limiter,
	})

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	if deps.Health != nil {
		api.GET("/health", deps.Health.Handler())
	} else {
		api.GET("/health", func(c *gin.Context) {
			respond.JSON(c, http.StatusOK, gin.H{"ok": true})
		})
	}

	public := api.Group("", limit)
	if deps.SessionHandler != nil {
		deps.SessionHandler.RegisterRoutes(public)
	}
	if deps.IntakeHandler != nil {
		deps.IntakeHandler.RegisterRoutes(public)
	}
	if deps.AgentHandler != nil {
		deps.AgentHandler.RegisterPublicRoutes(public)
	}
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(public)
	}

	protected := api.Group("", middleware.AgentAuth(deps.Signer), limit)
	registerMeRoutes(protected)
	if deps.AgentHandler != nil {
		deps.AgentHandler.RegisterRoutes(protected)
	}
	if deps.IntakeHandler != nil {
		deps.IntakeHandler.RegisterAgentRoutes(protected)
	}

	return r
}

func defaultRateLimits() map[string]middleware.RateLimitRule {
	return map[string]middleware.RateLimitRule{
		rateGroupLogin:   {Rate: 5.0 / 60.0, Burst: 5},
		rateGroupPolling: {Rate: 5, Burst: 20},
		rateGroupUpload:  {Rate: 2, Burst: 30},
		rateGroupDefault: {Rate: 1, Burst: 30},
	}
}

func rateGroupFor(c *gin.Context) string {
	route := c.FullPath()
	switch {
	case strings.HasSuffix(route, "/agent/login"), strings.Contains(route, "/agent/google/"):
		return rateGroupLogin
	case c.Request.Method == http.MethodGet && strings.Contains(route, "/sessions/"):
		return rateGroupPolling
	case c.Request.Method == http.MethodPut && strings.Contains(route, "/photos/"):
		return rateGroupUpload
	default:
		return rateGroupDefault
	}
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
