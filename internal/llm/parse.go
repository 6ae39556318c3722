package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyResponse   = errors.New("empty model response")
	ErrMissingVerdict  = errors.New("model response missing isValid")
	ErrInvalidResponse = errors.New("model response is not valid JSON")
)

// StripCodeFence removes a surrounding ```json or ``` fence that models add
// despite being told not to.
func StripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseVerdict decodes a classifier response body.
func ParseVerdict(raw string) (Verdict, error) {
	body := StripCodeFence(raw)
	if body == "" {
		return Verdict{}, ErrEmptyResponse
	}
	var parsed struct {
		IsValid  *bool  `json:"isValid"`
		Feedback string `json:"feedback"`
	}
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if parsed.IsValid == nil {
		return Verdict{}, ErrMissingVerdict
	}
	return Verdict{IsValid: *parsed.IsValid, Feedback: strings.TrimSpace(parsed.Feedback)}, nil
}

// ParseDocumentJSON decodes a document parser response body. Requirements
// without a label are dropped.
func ParseDocumentJSON(raw string) (ParsedDocument, error) {
	body := StripCodeFence(raw)
	if body == "" {
		return ParsedDocument{}, ErrEmptyResponse
	}
	var doc ParsedDocument
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return ParsedDocument{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	doc.ClientName = strings.TrimSpace(doc.ClientName)
	doc.PolicyNumber = strings.TrimSpace(doc.PolicyNumber)
	doc.Address = strings.TrimSpace(doc.Address)
	doc.ClientEmail = strings.TrimSpace(doc.ClientEmail)
	doc.ClientPhone = strings.TrimSpace(doc.ClientPhone)

	kept := doc.Requirements[:0]
	for _, r := range doc.Requirements {
		r.Label = strings.TrimSpace(r.Label)
		if r.Label == "" {
			continue
		}
		r.Description = strings.TrimSpace(r.Description)
		kept = append(kept, r)
	}
	doc.Requirements = kept
	if len(doc.Requirements) == 0 {
		doc.Requirements = nil
	}
	return doc, nil
}
