package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"photoreq-backend/internal/extract"
	"photoreq-backend/internal/llm"
	"photoreq-backend/internal/shared/telemetry"
)

var apiURL = "https://api.openai.com/v1/chat/completions"

const defaultModel = "gpt-4o-mini"

// Client implements llm.Classifier and llm.DocumentParser using OpenAI Chat Completions.
type Client struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient constructs a new OpenAI client. A blank key yields llm.ErrNotConfigured.
func NewClient(apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required: %w", llm.ErrNotConfigured)
	}
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	timeout := 120 * time.Second
	if raw := strings.TrimSpace(os.Getenv("OPENAI_TIMEOUT_SECONDS")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			timeout = time.Duration(parsed) * time.Second
		}
	}
	return &Client{
		apiKey: apiKey,
		model:  model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    *float32       `json:"temperature,omitempty"`
	ResponseFormat responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Classify sends the image as a data URI next to the evaluation prompt.
func (c *Client) Classify(ctx context.Context, img llm.Image, label string) (llm.Verdict, error) {
	parts := []contentPart{
		{Type: "text", Text: llm.ClassificationPrompt(label)},
		{Type: "image_url", ImageURL: &imageURL{URL: dataURI(img.MimeType, img.Data)}},
	}
	raw, err := c.complete(ctx, "classify", []chatMessage{{Role: "user", Content: parts}})
	if err != nil {
		return llm.Verdict{}, err
	}
	verdict, err := llm.ParseVerdict(raw)
	if err != nil {
		telemetry.Warn("llm.classify.unparseable", map[string]any{
			"provider": "openai",
			"model":    c.model,
			"err":      err,
		})
		return llm.UnavailableVerdict(), nil
	}
	return verdict, nil
}

// ParseDocument extracts request fields. Text documents are flattened with
// the extract package; photos of documents go as images.
func (c *Client) ParseDocument(ctx context.Context, in llm.DocumentInput) (llm.ParsedDocument, error) {
	var parts []contentPart
	switch {
	case strings.TrimSpace(in.Text) != "":
		parts = append(parts, contentPart{Type: "text", Text: in.Text})
	case len(in.Data) > 0 && strings.HasPrefix(in.MimeType, "image/"):
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageURL{URL: dataURI(in.MimeType, in.Data)}})
	case len(in.Data) > 0:
		text, err := extract.Text(ctx, in.Data, in.MimeType, in.FileName)
		if err != nil {
			return llm.ParsedDocument{}, fmt.Errorf("openai parse: %w", err)
		}
		parts = append(parts, contentPart{Type: "text", Text: text})
	default:
		return llm.ParsedDocument{}, fmt.Errorf("openai parse: %w", llm.ErrEmptyResponse)
	}
	parts = append(parts, contentPart{Type: "text", Text: llm.DocumentPrompt})

	raw, err := c.complete(ctx, "parse_document", []chatMessage{{Role: "user", Content: parts}})
	if err != nil {
		return llm.ParsedDocument{}, err
	}
	doc, err := llm.ParseDocumentJSON(raw)
	if err != nil {
		return llm.ParsedDocument{}, fmt.Errorf("openai parse: %w", err)
	}
	return doc, nil
}

func (c *Client) complete(ctx context.Context, op string, messages []chatMessage) (string, error) {
	reqBody := chatRequest{
		Model:    c.model,
		Messages: messages,
		ResponseFormat: responseFormat{
			Type: "json_object",
		},
	}
	if !isGPT5(c.model) {
		temp := float32(0)
		reqBody.Temperature = &temp
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return "", fmt.Errorf("openai request timeout: %w", err)
		}
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode >= 400 {
			return "", fmt.Errorf("openai http status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		return "", fmt.Errorf("openai response parse: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("openai http status %d: %s (%s)", resp.StatusCode, parsed.Error.Message, parsed.Error.Type)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("openai http status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("openai response missing choices")
	}
	if parsed.Usage != nil {
		log.Printf("llm response model=%s op=%s prompt_tokens=%d completion_tokens=%d total_tokens=%d",
			c.model, op, parsed.Usage.PromptTokens, parsed.Usage.CompletionTokens, parsed.Usage.TotalTokens)
	}

	// An empty message is handed to the parser, which degrades it.
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func dataURI(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}

var (
	_ llm.Classifier     = (*Client)(nil)
	_ llm.DocumentParser = (*Client)(nil)
)
