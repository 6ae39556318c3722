package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"photoreq-backend/internal/shared/auth"
)

func agentRouter(signer *auth.Signer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(AgentAuth(signer))
	router.GET("/agent/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"email": AgentEmailFromContext(c), "method": AgentMethodFromContext(c)})
	})
	router.OPTIONS("/agent/whoami", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func TestAgentAuthAllowsOptionsWithoutIdentity(t *testing.T) {
	router := agentRouter(auth.NewSigner("s", time.Hour))

	req := httptest.NewRequest(http.MethodOptions, "/agent/whoami", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}

func TestAgentAuth(t *testing.T) {
	signer := auth.NewSigner("s", time.Hour)
	token, err := signer.Sign(auth.Claims{
		Method:           "code",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "agent@example.com"},
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{name: "valid", header: "Bearer " + token, want: http.StatusOK},
		{name: "missing", header: "", want: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic " + token, want: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer nope", want: http.StatusUnauthorized},
	}
	router := agentRouter(signer)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/agent/whoami", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			if resp.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, resp.Code, resp.Body.String())
			}
			if tt.want == http.StatusOK && resp.Body.String() != `{"email":"agent@example.com","method":"code"}` {
				t.Fatalf("unexpected body %s", resp.Body.String())
			}
		})
	}
}
