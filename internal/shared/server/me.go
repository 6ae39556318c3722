package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"photoreq-backend/internal/shared/server/middleware"
	"photoreq-backend/internal/shared/server/respond"
)

// registerMeRoutes attaches the signed-in agent endpoint.
func registerMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/agent/me", meHandler)
}

func meHandler(c *gin.Context) {
	email := middleware.AgentEmailFromContext(c)
	if email == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
		return
	}

	response := gin.H{
		"email":  email,
		"method": middleware.AgentMethodFromContext(c),
	}
	if name := middleware.AgentNameFromContext(c); name != "" {
		response["name"] = name
	}

	respond.JSON(c, http.StatusOK, response)
}
