// Package llm defines the AI boundary: grading captured photos and pulling a
// photo request out of a policy document. Providers live in subpackages.
package llm

import (
	"context"
	"errors"
)

const (
	skippedFeedback     = "AI verification skipped (API Key missing)"
	unavailableFeedback = "AI verification unavailable."
)

// ErrNotConfigured is returned when a provider has no credentials.
var ErrNotConfigured = errors.New("llm provider not configured")

// Image is a captured photo as sent to a classifier.
type Image struct {
	Data     []byte
	MimeType string
}

// Verdict is a classifier's pass/fail grade plus short feedback for the client.
type Verdict struct {
	IsValid  bool   `json:"isValid"`
	Feedback string `json:"feedback"`
}

// Classifier grades whether an image matches a requirement label.
// An error means the call itself failed; callers degrade to manual review.
type Classifier interface {
	Classify(ctx context.Context, img Image, label string) (Verdict, error)
}

// DocumentInput is either free text or a document file (PDF or image).
type DocumentInput struct {
	Text     string
	Data     []byte
	MimeType string
	FileName string
}

// ParsedRequirement is a photo the model thinks the policy needs.
type ParsedRequirement struct {
	Label       string `json:"label"`
	Description string `json:"description"`
	IsMandatory bool   `json:"isMandatory"`
}

// ParsedDocument holds whatever fields the model could extract. Empty strings
// mean "not found".
type ParsedDocument struct {
	ClientName   string              `json:"clientName,omitempty"`
	PolicyNumber string              `json:"policyNumber,omitempty"`
	Address      string              `json:"address,omitempty"`
	ClientEmail  string              `json:"clientEmail,omitempty"`
	ClientPhone  string              `json:"clientPhone,omitempty"`
	Requirements []ParsedRequirement `json:"requirements,omitempty"`
}

// DocumentParser extracts request fields from a policy document or notes.
type DocumentParser interface {
	ParseDocument(ctx context.Context, in DocumentInput) (ParsedDocument, error)
}

// SkippedVerdict is used when no provider is configured.
func SkippedVerdict() Verdict {
	return Verdict{IsValid: true, Feedback: skippedFeedback}
}

// UnavailableVerdict is used when a provider answered with something unusable.
func UnavailableVerdict() Verdict {
	return Verdict{IsValid: true, Feedback: unavailableFeedback}
}

// Disabled stands in for a provider when credentials are missing.
type Disabled struct{}

// Classify accepts every image without calling out.
func (Disabled) Classify(ctx context.Context, img Image, label string) (Verdict, error) {
	return SkippedVerdict(), nil
}

// ParseDocument always fails with ErrNotConfigured.
func (Disabled) ParseDocument(ctx context.Context, in DocumentInput) (ParsedDocument, error) {
	return ParsedDocument{}, ErrNotConfigured
}

var (
	_ Classifier     = Disabled{}
	_ DocumentParser = Disabled{}
)
