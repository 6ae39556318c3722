// Package receiver talks to the external endpoint that stores submitted photos,
// logs the submission and notifies the agency.
package receiver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// ContentType avoids a CORS preflight when the endpoint is called from a browser.
	ContentType = "text/plain;charset=utf-8"

	ResultSuccess = "success"
	ResultError   = "error"

	maxResponseBytes = 1 << 20
)

// ErrNotConfigured is returned before any network work when no endpoint is set.
var ErrNotConfigured = errors.New("receiver endpoint not configured")

// File is one photo in a submission.
type File struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
	Label    string `json:"label"`
}

// Payload is the single request body sent per submission.
type Payload struct {
	ClientName       string `json:"clientName"`
	PolicyNumber     string `json:"policyNumber"`
	InsuranceCompany string `json:"insuranceCompany"`
	Address          string `json:"address"`
	AgentEmail       string `json:"agentEmail"`
	Files            []File `json:"files"`
}

// Response is what the endpoint answers.
type Response struct {
	Result string `json:"result"`
	ID     string `json:"id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// RemoteError is a well-formed {result:"error"} answer.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return "receiver error: " + e.Message
}

// TransportError covers network failures, bad status codes and bodies that do
// not match Response.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("receiver transport (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("receiver transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Sender is what the upload orchestrator depends on.
type Sender interface {
	Send(ctx context.Context, p Payload) (string, error)
	Configured() bool
}

// Client posts payloads to one endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient builds a client. A blank endpoint produces a client whose Send
// always fails with ErrNotConfigured.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		endpoint:   strings.TrimSpace(endpoint),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether an endpoint is set.
func (c *Client) Configured() bool {
	return c != nil && c.endpoint != ""
}

// Send performs exactly one POST and returns the endpoint's submission id.
func (c *Client) Send(ctx context.Context, p Payload) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}
	body, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", &TransportError{Err: err}
	}
	req.Header.Set("Content-Type", ContentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &TransportError{StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode >= 400 {
		return "", &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status: %s", strings.TrimSpace(string(raw)))}
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	switch out.Result {
	case ResultSuccess:
		return out.ID, nil
	case ResultError:
		msg := strings.TrimSpace(out.Error)
		if msg == "" {
			msg = "unknown error"
		}
		return "", &RemoteError{Message: msg}
	default:
		return "", &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected result %q", out.Result)}
	}
}

var _ Sender = (*Client)(nil)
