package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"photoreq-backend/internal/shared/telemetry"
)

func TestLoggingIncludesRequiredFields(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	prev := telemetry.SetOutput(&buf)
	t.Cleanup(func() { telemetry.SetOutput(prev) })

	router := gin.New()
	router.Use(RequestID(), Logging())
	router.PUT("/api/v1/sessions/:id/photos/:requirementId", func(c *gin.Context) {
		c.Set("sessionId", c.Param("id"))
		c.Set("requirementId", c.Param("requirementId"))
		c.JSON(http.StatusAccepted, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodPut, "/api/v1/sessions/s-1/photos/r-2", nil)
	req.Header.Set("X-Request-Id", "req-123")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	last := lines[len(lines)-1]
	var payload map[string]any
	if err := json.Unmarshal([]byte(last), &payload); err != nil {
		t.Fatalf("decode log json %q: %v", last, err)
	}

	for _, key := range []string{"request_id", "route", "status", "duration_ms", "session_id", "requirement_id"} {
		if _, ok := payload[key]; !ok {
			t.Fatalf("missing log field: %s in %s", key, last)
		}
	}
	if payload["request_id"] != "req-123" {
		t.Fatalf("unexpected request_id: %v", payload["request_id"])
	}
	if payload["route"] != "/api/v1/sessions/:id/photos/:requirementId" {
		t.Fatalf("unexpected route: %v", payload["route"])
	}
	if payload["session_id"] != "s-1" || payload["requirement_id"] != "r-2" {
		t.Fatalf("unexpected ids: %v %v", payload["session_id"], payload["requirement_id"])
	}
	if payload["status"] != float64(http.StatusAccepted) {
		t.Fatalf("unexpected status: %v", payload["status"])
	}
}
