package gemini

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"

	"photoreq-backend/internal/llm"
)

type fakeGenerator struct {
	text     string
	err      error
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: f.text}}},
		}},
	}, nil
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		err     error
		want    llm.Verdict
		wantErr bool
	}{
		{
			name: "verified",
			text: `{"isValid":true,"feedback":"Front of the house is clearly visible."}`,
			want: llm.Verdict{IsValid: true, Feedback: "Front of the house is clearly visible."},
		},
		{
			name: "rejected",
			text: `{"isValid":false,"feedback":"This looks like a kitchen, not a roof."}`,
			want: llm.Verdict{Feedback: "This looks like a kitchen, not a roof."},
		},
		{
			name: "malformed degrades",
			text: "I think it is fine",
			want: llm.UnavailableVerdict(),
		},
		{
			name:    "transport failure surfaces",
			err:     errors.New("connection reset"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fake := &fakeGenerator{text: tt.text, err: tt.err}
			c := newWithGenerator(fake, "")
			got, err := c.Classify(context.Background(), llm.Image{Data: []byte{0xff, 0xd8}, MimeType: "image/png"}, "Roof")
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Classify = %+v, want %+v", got, tt.want)
			}
			if fake.model != defaultModel {
				t.Fatalf("model = %q", fake.model)
			}
			if fake.config == nil || fake.config.ResponseMIMEType != "application/json" {
				t.Fatalf("expected JSON response mime type")
			}
			parts := fake.contents[0].Parts
			if len(parts) != 2 || parts[0].InlineData == nil || parts[0].InlineData.MIMEType != "image/png" {
				t.Fatalf("expected inline image then prompt, got %+v", parts)
			}
		})
	}
}

func TestParseDocument(t *testing.T) {
	fake := &fakeGenerator{text: "```json\n{\"clientName\":\"Ann\",\"requirements\":[{\"label\":\"Pool\"}]}\n```"}
	c := newWithGenerator(fake, "gemini-test")

	doc, err := c.ParseDocument(context.Background(), llm.DocumentInput{Data: []byte("%PDF-1.4")})
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	if doc.ClientName != "Ann" || len(doc.Requirements) != 1 {
		t.Fatalf("unexpected doc %+v", doc)
	}
	if got := fake.contents[0].Parts[0].InlineData.MIMEType; got != "application/pdf" {
		t.Fatalf("default mime = %q", got)
	}

	if _, err := c.ParseDocument(context.Background(), llm.DocumentInput{}); err == nil {
		t.Fatalf("expected error for empty input")
	}

	fake.text = "not json"
	if _, err := c.ParseDocument(context.Background(), llm.DocumentInput{Text: "notes"}); !errors.Is(err, llm.ErrInvalidResponse) {
		t.Fatalf("expected ErrInvalidResponse, got %v", err)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(context.Background(), " ", ""); !errors.Is(err, llm.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
