// Package gemini implements the llm interfaces with Google's Gemini API.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"photoreq-backend/internal/llm"
	"photoreq-backend/internal/shared/telemetry"
)

const defaultModel = "gemini-2.5-flash"

type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client grades photos and parses documents with a single Gemini model.
type Client struct {
	models generator
	model  string
}

// NewClient builds a Gemini client. A blank key yields llm.ErrNotConfigured so
// callers can fall back to llm.Disabled.
func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required: %w", llm.ErrNotConfigured)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return newWithGenerator(client.Models, model), nil
}

func newWithGenerator(g generator, model string) *Client {
	if strings.TrimSpace(model) == "" {
		model = defaultModel
	}
	return &Client{models: g, model: model}
}

// Classify sends the original image bytes with the evaluation prompt.
func (c *Client) Classify(ctx context.Context, img llm.Image, label string) (llm.Verdict, error) {
	mime := img.MimeType
	if mime == "" {
		mime = "image/jpeg"
	}
	parts := []*genai.Part{
		genai.NewPartFromBytes(img.Data, mime),
		genai.NewPartFromText(llm.ClassificationPrompt(label)),
	}
	raw, err := c.generate(ctx, parts)
	if err != nil {
		return llm.Verdict{}, fmt.Errorf("gemini classify: %w", err)
	}
	verdict, err := llm.ParseVerdict(raw)
	if err != nil {
		telemetry.Warn("llm.classify.unparseable", map[string]any{
			"provider": "gemini",
			"model":    c.model,
			"err":      err,
		})
		return llm.UnavailableVerdict(), nil
	}
	return verdict, nil
}

// ParseDocument extracts request fields from notes or an uploaded document.
func (c *Client) ParseDocument(ctx context.Context, in llm.DocumentInput) (llm.ParsedDocument, error) {
	var parts []*genai.Part
	switch {
	case strings.TrimSpace(in.Text) != "":
		parts = append(parts, genai.NewPartFromText(in.Text))
	case len(in.Data) > 0:
		mime := in.MimeType
		if mime == "" {
			mime = "application/pdf"
		}
		parts = append(parts, genai.NewPartFromBytes(in.Data, mime))
	default:
		return llm.ParsedDocument{}, fmt.Errorf("gemini parse: %w", llm.ErrEmptyResponse)
	}
	parts = append(parts, genai.NewPartFromText(llm.DocumentPrompt))

	raw, err := c.generate(ctx, parts)
	if err != nil {
		return llm.ParsedDocument{}, fmt.Errorf("gemini parse: %w", err)
	}
	doc, err := llm.ParseDocumentJSON(raw)
	if err != nil {
		return llm.ParsedDocument{}, fmt.Errorf("gemini parse: %w", err)
	}
	return doc, nil
}

func (c *Client) generate(ctx context.Context, parts []*genai.Part) (string, error) {
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	resp, err := c.models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", llm.ErrEmptyResponse
	}
	return resp.Text(), nil
}

var (
	_ llm.Classifier     = (*Client)(nil)
	_ llm.DocumentParser = (*Client)(nil)
)
