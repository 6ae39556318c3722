package agent

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"photoreq-backend/internal/extract"
	"photoreq-backend/internal/llm"
	"photoreq-backend/internal/requests"
	"photoreq-backend/internal/shared/auth"
	"photoreq-backend/internal/shared/server/middleware"
	"photoreq-backend/internal/shared/server/respond"
)

const maxDocumentSize = 10 << 20 // 10MB

// Handler exposes dashboard routes.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterPublicRoutes attaches the routes reachable without an agent token.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/agent/login", h.login)
}

// RegisterRoutes attaches routes that expect AgentAuth in front of them.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/agent/presets", h.presets)
	rg.POST("/agent/links", h.createLink)
	rg.POST("/agent/autofill", h.autofill)
}

type loginRequest struct {
	Code string `json:"code"`
}

func (h *Handler) login(c *gin.Context) {
	var body loginRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	token, err := h.Svc.Login(body.Code)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCode):
			respond.Error(c, http.StatusUnauthorized, "invalid_code", "Invalid access code", nil)
		case errors.Is(err, ErrLoginDisabled), errors.Is(err, auth.ErrMissingSecret):
			respond.Error(c, http.StatusServiceUnavailable, "login_disabled", "Access code login is not configured", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to issue token", nil)
		}
		return
	}
	respond.OK(c, gin.H{"token": token, "agentEmail": h.Svc.AgentEmail})
}

func (h *Handler) presets(c *gin.Context) {
	respond.OK(c, gin.H{
		"requirements": requests.Presets(),
		"carriers":     requests.Carriers,
		"otherCarrier": requests.OtherCarrier,
	})
}

func (h *Handler) createLink(c *gin.Context) {
	var form LinkForm
	if err := c.ShouldBindJSON(&form); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	result, err := h.Svc.CreateLink(form, googleEmail(c))
	if err != nil {
		switch {
		case errors.Is(err, requests.ErrClientNameRequired):
			respond.Error(c, http.StatusBadRequest, "validation_error", "Please enter a client name.", nil)
		case errors.Is(err, requests.ErrNoRequirements):
			respond.Error(c, http.StatusBadRequest, "validation_error", "Please add at least one photo requirement.", nil)
		case errors.Is(err, requests.ErrRequirementIDRequired), errors.Is(err, requests.ErrDuplicateRequirementID):
			respond.Error(c, http.StatusBadRequest, "validation_error", "Each photo requirement needs a unique id.", gin.H{"reason": err.Error()})
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to generate link", nil)
		}
		return
	}
	respond.Created(c, result)
}

type autofillRequest struct {
	Text string   `json:"text"`
	Form LinkForm `json:"form"`
}

func (h *Handler) autofill(c *gin.Context) {
	body, ok := readAutofill(c)
	if !ok {
		return
	}
	parsed, form, err := h.Svc.Autofill(c.Request.Context(), body.form, body.input)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyDocument):
			respond.Error(c, http.StatusBadRequest, "validation_error", "Please enter text or upload a PDF/Image.", nil)
		case errors.Is(err, llm.ErrNotConfigured):
			respond.Error(c, http.StatusServiceUnavailable, "ai_not_configured", "AI auto-fill is not configured.", nil)
		case errors.Is(err, extract.ErrUnsupported):
			respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_file", "Unsupported file type.", nil)
		default:
			respond.Error(c, http.StatusBadGateway, "autofill_failed",
				"Failed to analyze document. Please ensure the file is a valid PDF or Image.", gin.H{"reason": err.Error()})
		}
		return
	}
	respond.OK(c, gin.H{"parsed": parsed, "form": form})
}

type autofillInput struct {
	form  LinkForm
	input llm.DocumentInput
}

// readAutofill accepts either a JSON body or a multipart upload with a "file"
// part and an optional JSON "form" field.
func readAutofill(c *gin.Context) (autofillInput, bool) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		var body autofillRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
			return autofillInput{}, false
		}
		return autofillInput{form: body.Form, input: llm.DocumentInput{Text: body.Text}}, true
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxDocumentSize+1<<20)
	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return autofillInput{}, false
	}
	if fileHeader.Size > maxDocumentSize {
		respond.Error(c, http.StatusRequestEntityTooLarge, "file_too_large", "document exceeds 10MB", nil)
		return autofillInput{}, false
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return autofillInput{}, false
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return autofillInput{}, false
	}

	var form LinkForm
	if raw := c.PostForm("form"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &form); err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid form field", nil)
			return autofillInput{}, false
		}
	}
	mimeType := strings.TrimSpace(fileHeader.Header.Get("Content-Type"))
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	return autofillInput{
		form: form,
		input: llm.DocumentInput{
			Text:     c.PostForm("text"),
			Data:     data,
			MimeType: mimeType,
			FileName: fileHeader.Filename,
		},
	}, true
}

// googleEmail is the verified email of an agent who signed in with Google.
func googleEmail(c *gin.Context) string {
	if middleware.AgentMethodFromContext(c) != "google" {
		return ""
	}
	return middleware.AgentEmailFromContext(c)
}
