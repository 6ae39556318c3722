package intake

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"photoreq-backend/internal/receiver"
	"photoreq-backend/internal/shared/metrics"
	"photoreq-backend/internal/shared/server/middleware"
	"photoreq-backend/internal/shared/server/respond"
	"photoreq-backend/internal/shared/telemetry"
)

const maxPayloadSize = 64 << 20 // 64MB

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches the public intake endpoint.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/intake", h.receive)
}

// RegisterAgentRoutes attaches the submission log for signed-in agents.
func (h *Handler) RegisterAgentRoutes(rg *gin.RouterGroup) {
	rg.GET("/agent/submissions", h.list)
}

// receive always answers 200 with a result envelope, as upload clients only
// read the body.
func (h *Handler) receive(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPayloadSize)
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.fail(c, "request body too large or unreadable", err)
		return
	}

	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.fail(c, "SyntaxError: invalid JSON", err)
		return
	}

	sub, err := h.Svc.Receive(c.Request.Context(), p, middleware.RequestIDFromContext(c))
	if err != nil {
		msg := "Error: could not save submission"
		var invalid bool
		if errors.Is(err, ErrInvalidFile) || errors.Is(err, ErrInvalidPayload) {
			msg = "Error: " + err.Error()
			invalid = true
		}
		fields := map[string]any{"error": err.Error(), "invalid": invalid}
		telemetry.Error("intake.failed", fields)
		metrics.IncIntakeFailed()
		respond.OK(c, receiver.Response{Result: receiver.ResultError, Error: msg})
		return
	}

	c.Set("submissionId", sub.ID)
	metrics.IncIntakeReceived()
	respond.OK(c, receiver.Response{Result: receiver.ResultSuccess, ID: sub.ID})
}

func (h *Handler) fail(c *gin.Context, msg string, err error) {
	telemetry.Warn("intake.rejected", map[string]any{"error": err.Error()})
	metrics.IncIntakeFailed()
	respond.OK(c, receiver.Response{Result: receiver.ResultError, Error: msg})
}

func (h *Handler) list(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}

	subs, err := h.Svc.Recent(c.Request.Context(), limit)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list submissions", nil)
		return
	}
	if subs == nil {
		subs = []Submission{}
	}
	respond.OK(c, gin.H{"submissions": subs})
}
