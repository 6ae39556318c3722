// Package linkcodec turns a photo request into the opaque token carried by a
// client link and back. The token is obfuscated, not encrypted: anything placed
// in the request is readable by whoever holds the link.
package linkcodec

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"photoreq-backend/internal/requests"
)

// ErrInvalidToken is matched by every decode failure.
var ErrInvalidToken = errors.New("invalid link data")

// DecodeError reports which decode stage rejected a token.
type DecodeError struct {
	Stage string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return "decode token: " + e.Stage
	}
	return "decode token: " + e.Stage + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidToken}
	}
	return []error{ErrInvalidToken, e.Err}
}

// Encode serializes a request into a URL-safe token. On failure it returns an
// empty token; callers must treat that as "cannot generate link".
func Encode(req requests.PhotoRequest) (string, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}
	escaped := escapeComponent(string(raw))
	return base64.RawURLEncoding.EncodeToString([]byte(escaped)), nil
}

// Decode inverts Encode. Tokens produced by the browser dashboard (standard
// alphabet, padded) are accepted as well.
func Decode(token string) (requests.PhotoRequest, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return requests.PhotoRequest{}, &DecodeError{Stage: "empty"}
	}

	escaped, err := decodeBase64(token)
	if err != nil {
		return requests.PhotoRequest{}, &DecodeError{Stage: "base64", Err: err}
	}

	plain, err := url.PathUnescape(string(escaped))
	if err != nil {
		return requests.PhotoRequest{}, &DecodeError{Stage: "unescape", Err: err}
	}

	dec := json.NewDecoder(strings.NewReader(plain))
	var req requests.PhotoRequest
	if err := dec.Decode(&req); err != nil {
		return requests.PhotoRequest{}, &DecodeError{Stage: "json", Err: err}
	}
	if dec.More() {
		return requests.PhotoRequest{}, &DecodeError{Stage: "json", Err: errors.New("trailing data")}
	}

	if err := requests.Validate(req); err != nil {
		return requests.PhotoRequest{}, &DecodeError{Stage: "validate", Err: err}
	}
	return req, nil
}

func decodeBase64(token string) ([]byte, error) {
	normalized := strings.NewReplacer("+", "-", "/", "_").Replace(token)
	normalized = strings.TrimRight(normalized, "=")
	return base64.RawURLEncoding.Strict().DecodeString(normalized)
}

// escapeComponent percent-encodes everything outside the unreserved set that
// JavaScript's encodeURIComponent leaves alone.
func escapeComponent(s string) string {
	var buf bytes.Buffer
	buf.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			buf.WriteByte(c)
			continue
		}
		fmt.Fprintf(&buf, "%%%02X", c)
	}
	return buf.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
