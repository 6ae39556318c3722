// Package health reports whether the service and its hard dependencies are up.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"photoreq-backend/internal/shared/server/respond"
	"photoreq-backend/internal/shared/telemetry"
)

const checkTimeout = 2 * time.Second

// Check returns nil when a dependency is usable.
type Check func(ctx context.Context) error

// Service runs registered checks.
type Service struct {
	mu     sync.RWMutex
	checks map[string]Check
	info   map[string]any
}

// NewService constructs a health service with no checks.
func NewService() *Service {
	return &Service{checks: map[string]Check{}, info: map[string]any{}}
}

// AddCheck registers a dependency check. A failing check makes Status report
// not ok.
func (s *Service) AddCheck(name string, c Check) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks[name] = c
}

// SetInfo adds a static field to the payload, such as which receiver is used.
func (s *Service) SetInfo(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info[key] = value
}

// Status runs every check and returns the payload.
func (s *Service) Status(ctx context.Context) (bool, map[string]any) {
	s.mu.RLock()
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	checks := make(map[string]Check, len(s.checks))
	for k, v := range s.checks {
		checks[k] = v
	}
	payload := make(map[string]any, len(s.info)+2)
	for k, v := range s.info {
		payload[k] = v
	}
	s.mu.RUnlock()
	sort.Strings(names)

	ok := true
	results := make(map[string]string, len(names))
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := checks[name](checkCtx)
		cancel()
		if err != nil {
			ok = false
			results[name] = err.Error()
			telemetry.Warn("health.check_failed", map[string]any{"check": name, "error": err.Error()})
			continue
		}
		results[name] = "ok"
	}
	payload["ok"] = ok
	if len(results) > 0 {
		payload["checks"] = results
	}
	return ok, payload
}

// Handler serves Status as JSON, with 503 when a check fails.
func (s *Service) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, payload := s.Status(c.Request.Context())
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, payload)
	}
}
