package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func serve(t *testing.T, s *Service) (int, map[string]any) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", s.Handler())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rec.Code, body
}

func TestHealthWithoutChecks(t *testing.T) {
	s := NewService()
	s.SetInfo("receiver", "local")
	code, body := serve(t, s)
	if code != http.StatusOK || body["ok"] != true || body["receiver"] != "local" {
		t.Fatalf("unexpected %d %v", code, body)
	}
	if _, ok := body["checks"]; ok {
		t.Fatalf("no checks expected in payload")
	}
}

func TestHealthFailingCheck(t *testing.T) {
	s := NewService()
	s.AddCheck("database", func(ctx context.Context) error { return errors.New("connection refused") })
	s.AddCheck("cache", func(ctx context.Context) error { return nil })

	code, body := serve(t, s)
	if code != http.StatusServiceUnavailable || body["ok"] != false {
		t.Fatalf("unexpected %d %v", code, body)
	}
	checks := body["checks"].(map[string]any)
	if checks["database"] != "connection refused" || checks["cache"] != "ok" {
		t.Fatalf("unexpected checks %v", checks)
	}
}
