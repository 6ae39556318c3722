package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"photoreq-backend/internal/shared/auth"
	"photoreq-backend/internal/shared/server/respond"
)

const (
	agentEmailKey  = "agentEmail"
	agentNameKey   = "agentName"
	agentMethodKey = "agentMethod"
)

// AgentAuth requires a valid agent bearer token and stores the agent identity
// in context. Requests without one are rejected; there is no guest fallback.
func AgentAuth(signer *auth.Signer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		claims, err := signer.Verify(token)
		if err != nil {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		email := claims.Email
		if email == "" {
			email = claims.Subject
		}
		c.Set(agentEmailKey, email)
		if claims.Name != "" {
			c.Set(agentNameKey, claims.Name)
		}
		if claims.Method != "" {
			c.Set(agentMethodKey, claims.Method)
		}
		c.Next()
	}
}

// AgentEmailFromContext fetches the agent email set by AgentAuth.
func AgentEmailFromContext(c *gin.Context) string {
	return contextString(c, agentEmailKey)
}

// AgentNameFromContext fetches the agent display name set by AgentAuth.
func AgentNameFromContext(c *gin.Context) string {
	return contextString(c, agentNameKey)
}

// AgentMethodFromContext reports how the agent signed in.
func AgentMethodFromContext(c *gin.Context) string {
	return contextString(c, agentMethodKey)
}

func contextString(c *gin.Context, key string) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(key)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
