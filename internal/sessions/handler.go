package sessions

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"photoreq-backend/internal/linkcodec"
	"photoreq-backend/internal/receiver"
	"photoreq-backend/internal/requests"
	"photoreq-backend/internal/shared/server/respond"
	"photoreq-backend/internal/shared/telemetry"
	"photoreq-backend/internal/upload"
)

const maxPhotoSize = 10 << 20 // 10MB

// Handler exposes client upload sessions over HTTP.
type Handler struct {
	Store *Store
}

// NewHandler constructs a Handler.
func NewHandler(store *Store) *Handler {
	return &Handler{Store: store}
}

// RegisterRoutes attaches session routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sessions", h.open)
	rg.GET("/sessions/:id", h.get)
	rg.DELETE("/sessions/:id", h.remove)
	rg.PUT("/sessions/:id/photos/:requirementId", h.capture)
	rg.GET("/sessions/:id/photos/:requirementId/preview", h.preview)
	rg.POST("/sessions/:id/submit", h.submit)
}

type openRequest struct {
	Link  string `json:"link"`
	Token string `json:"token"`
}

type requirementView struct {
	ID          string            `json:"id"`
	Label       string            `json:"label"`
	Description string            `json:"description"`
	IsMandatory bool              `json:"isMandatory"`
	Status      upload.Status     `json:"status,omitempty"`
	Feedback    string            `json:"feedback,omitempty"`
	HasPhoto    bool              `json:"hasPhoto"`
	Guidance    requests.Guidance `json:"guidance"`
}

type sessionView struct {
	SessionID      string                `json:"sessionId"`
	Request        requests.PhotoRequest `json:"request"`
	Requirements   []requirementView     `json:"requirements"`
	Progress       int                   `json:"progress"`
	CanSubmit      bool                  `json:"canSubmit"`
	Submitted      bool                  `json:"submitted"`
	ConfirmationID string                `json:"confirmationId,omitempty"`
}

func (h *Handler) open(c *gin.Context) {
	var body openRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	token := strings.TrimSpace(body.Token)
	if token == "" {
		extracted, ok := linkcodec.ExtractToken(body.Link)
		if !ok {
			respond.Error(c, http.StatusBadRequest, "invalid_link", "Invalid Link", nil)
			return
		}
		token = extracted
	}

	req, err := linkcodec.Decode(token)
	if err != nil {
		var decErr *linkcodec.DecodeError
		details := map[string]any{}
		if errors.As(err, &decErr) {
			details["stage"] = decErr.Stage
		}
		respond.Error(c, http.StatusBadRequest, "invalid_link", "Invalid Link", details)
		return
	}

	id, orch, err := h.Store.Open(req)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to open session", nil)
		return
	}
	c.Set("sessionId", id)
	telemetry.Info("sessions.opened", map[string]any{"session_id": id, "requirements": len(req.Requirements)})
	respond.Created(c, buildView(id, orch))
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	orch, ok := h.lookup(c, id)
	if !ok {
		return
	}
	respond.JSON(c, http.StatusOK, buildView(id, orch))
}

func (h *Handler) remove(c *gin.Context) {
	id := c.Param("id")
	c.Set("sessionId", id)
	err := h.Store.Delete(id)
	if errors.Is(err, ErrNotFound) {
		respond.Error(c, http.StatusNotFound, "not_found", "session not found", nil)
		return
	}
	if err != nil {
		telemetry.Warn("sessions.release_failed", map[string]any{"session_id": id, "err": err})
	}
	respond.NoContent(c)
}

func (h *Handler) capture(c *gin.Context) {
	orch, ok := h.lookup(c, c.Param("id"))
	if !ok {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxPhotoSize+1<<20)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	if fileHeader.Size > maxPhotoSize {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "photo exceeds 10MB", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}

	mimeType := strings.TrimSpace(fileHeader.Header.Get("Content-Type"))
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}

	rec, err := orch.Capture(c.Param("requirementId"), upload.SourceImage{
		FileName: fileHeader.Filename,
		MimeType: mimeType,
		Data:     data,
	})
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrUnknownRequirement):
			respond.Error(c, http.StatusNotFound, "not_found", "requirement not found", nil)
		case errors.Is(err, upload.ErrEmptyImage):
			respond.Error(c, http.StatusBadRequest, "validation_error", "file is empty", nil)
		case errors.Is(err, upload.ErrImageTooLarge):
			respond.Error(c, http.StatusRequestEntityTooLarge, "image_too_large", upload.UserMessage(err), nil)
		case errors.Is(err, upload.ErrClosed):
			respond.Error(c, http.StatusNotFound, "not_found", "session not found", nil)
		case errors.Is(err, upload.ErrSubmitting):
			respond.Error(c, http.StatusConflict, "submit_in_progress", upload.UserMessage(err), nil)
		case errors.Is(err, upload.ErrAlreadySubmitted):
			respond.Error(c, http.StatusConflict, "already_submitted", upload.UserMessage(err), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to store photo", nil)
		}
		return
	}

	requirement, _ := orch.Request().Requirement(rec.RequirementID)
	respond.JSON(c, http.StatusAccepted, toRequirementView(requirement, rec, true))
}

func (h *Handler) preview(c *gin.Context) {
	orch, ok := h.lookup(c, c.Param("id"))
	if !ok {
		return
	}
	rec, found := orch.Record(c.Param("requirementId"))
	if !found {
		respond.Error(c, http.StatusNotFound, "not_found", "no photo for requirement", nil)
		return
	}
	if path := rec.PreviewPath(); path != "" {
		c.Header("Cache-Control", "no-store")
		c.File(path)
		return
	}
	c.Data(http.StatusOK, rec.Source.MimeType, rec.Source.Data)
}

func (h *Handler) submit(c *gin.Context) {
	orch, ok := h.lookup(c, c.Param("id"))
	if !ok {
		return
	}
	receipt, err := orch.Submit(c.Request.Context())
	if err != nil {
		msg := upload.UserMessage(err)
		switch {
		case errors.Is(err, receiver.ErrNotConfigured):
			respond.Error(c, http.StatusServiceUnavailable, "not_configured", msg, nil)
		case errors.Is(err, upload.ErrNothingToSubmit):
			respond.Error(c, http.StatusConflict, "nothing_to_submit", msg, nil)
		case errors.Is(err, upload.ErrSubmitting):
			respond.Error(c, http.StatusConflict, "submit_in_progress", msg, nil)
		case errors.Is(err, upload.ErrAlreadySubmitted):
			respond.Error(c, http.StatusConflict, "already_submitted", msg, nil)
		case errors.Is(err, upload.ErrClosed):
			respond.Error(c, http.StatusNotFound, "not_found", "session not found", nil)
		default:
			respond.Error(c, http.StatusBadGateway, "upload_failed", msg, gin.H{"reason": err.Error()})
		}
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"success": true, "id": receipt.ConfirmationID})
}

func (h *Handler) lookup(c *gin.Context, id string) (*upload.Orchestrator, bool) {
	c.Set("sessionId", id)
	if reqID := c.Param("requirementId"); reqID != "" {
		c.Set("requirementId", reqID)
	}
	orch, err := h.Store.Get(id)
	if err != nil {
		respond.Error(c, http.StatusNotFound, "not_found", "session not found", nil)
		return nil, false
	}
	return orch, true
}

func buildView(id string, orch *upload.Orchestrator) sessionView {
	req := orch.Request()
	view := sessionView{
		SessionID:    id,
		Request:      req,
		Requirements: make([]requirementView, 0, len(req.Requirements)),
		Progress:     orch.Progress(),
	}
	for _, r := range req.Requirements {
		rec, ok := orch.Record(r.ID)
		view.Requirements = append(view.Requirements, toRequirementView(r, rec, ok))
	}
	if receipt, ok := orch.Receipt(); ok {
		view.Submitted = true
		view.ConfirmationID = receipt.ConfirmationID
	} else {
		view.CanSubmit = orch.HasUploads()
	}
	return view
}

func toRequirementView(r requests.PhotoRequirement, rec upload.Record, hasPhoto bool) requirementView {
	v := requirementView{
		ID:          r.ID,
		Label:       r.Label,
		Description: r.Description,
		IsMandatory: r.IsMandatory,
		HasPhoto:    hasPhoto,
		Guidance:    requests.GuidanceFor(r.Label),
	}
	if hasPhoto {
		v.Status = rec.Status
		v.Feedback = rec.Feedback
	}
	return v
}
