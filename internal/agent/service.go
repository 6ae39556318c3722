package agent

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"photoreq-backend/internal/linkcodec"
	"photoreq-backend/internal/llm"
	"photoreq-backend/internal/requests"
	sharedauth "photoreq-backend/internal/shared/auth"
	"photoreq-backend/internal/shared/telemetry"
)

var (
	ErrLoginDisabled = errors.New("access code login is disabled")
	ErrInvalidCode   = errors.New("invalid access code")
	ErrEmptyDocument = errors.New("text or file is required")
)

// Service implements the dashboard operations.
type Service struct {
	Signer     *sharedauth.Signer
	Parser     llm.DocumentParser
	AccessCode string
	AgentEmail string
	AppOrigin  string
	Branding   Branding
	Now        func() time.Time
}

// LinkResult is everything the dashboard needs to send a request.
type LinkResult struct {
	Link      string                `json:"link"`
	Token     string                `json:"token"`
	Request   requests.PhotoRequest `json:"request"`
	EmailHTML string                `json:"emailHtml"`
	Subject   string                `json:"subject"`
	SMSLink   string                `json:"smsLink"`
	GmailURL  string                `json:"gmailUrl"`
}

// Login exchanges the shared access code for an agent token. The code is a
// convenience gate for the dashboard; it does not protect client links.
func (s *Service) Login(code string) (string, error) {
	expected := strings.TrimSpace(s.AccessCode)
	if expected == "" {
		return "", ErrLoginDisabled
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(code)), []byte(expected)) != 1 {
		return "", ErrInvalidCode
	}
	token, err := s.Signer.Sign(sharedauth.Claims{
		Email:            s.AgentEmail,
		Method:           "code",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "agent:" + strings.ToLower(s.AgentEmail)},
	})
	if err != nil {
		return "", fmt.Errorf("issue agent token: %w", err)
	}
	return token, nil
}

// CreateLink validates the form and produces the link plus its email and SMS
// renditions. The agent email on the link is the form's, else the signed-in
// agent's, else the configured default.
func (s *Service) CreateLink(form LinkForm, signedInEmail string) (LinkResult, error) {
	agentEmail := firstNonEmpty(form.AgentEmail, signedInEmail, s.AgentEmail)
	req, err := form.Request(agentEmail)
	if err != nil {
		return LinkResult{}, err
	}
	token, err := linkcodec.Encode(req)
	if err != nil {
		return LinkResult{}, err
	}
	link := linkcodec.BuildLink(s.AppOrigin, token)

	branding := s.Branding
	if branding.Agency == "" {
		branding = DefaultBranding
	}
	html, err := EmailTemplate(branding, req, link)
	if err != nil {
		return LinkResult{}, err
	}
	subject := EmailSubject(req)

	telemetry.Info("agent.link.created", map[string]any{
		"agent":        agentEmail,
		"requirements": len(req.Requirements),
		"token_bytes":  len(token),
	})
	return LinkResult{
		Link:      link,
		Token:     token,
		Request:   req,
		EmailHTML: html,
		Subject:   subject,
		SMSLink:   SMSLink(form.ClientPhone, SMSBody(req, link)),
		GmailURL:  GmailComposeURL(strings.TrimSpace(form.ClientEmail), subject),
	}, nil
}

// Autofill parses a policy document and merges what it found into the form.
func (s *Service) Autofill(ctx context.Context, form LinkForm, in llm.DocumentInput) (llm.ParsedDocument, LinkForm, error) {
	if strings.TrimSpace(in.Text) == "" && len(in.Data) == 0 {
		return llm.ParsedDocument{}, form, ErrEmptyDocument
	}
	parser := s.Parser
	if parser == nil {
		parser = llm.Disabled{}
	}
	parsed, err := parser.ParseDocument(ctx, in)
	if err != nil {
		return llm.ParsedDocument{}, form, err
	}
	return parsed, Merge(form, parsed, s.now()), nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
