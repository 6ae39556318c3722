package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func TestWriteProducesJSONLine(t *testing.T) {
	var buf bytes.Buffer
	prev := SetOutput(&buf)
	defer SetOutput(prev)

	Warn("upload.classify.discarded", map[string]any{
		"requirementId": "1",
		"err":           errors.New("boom"),
		"msg":           "ignored",
	})

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if got["level"] != "warn" || got["msg"] != "upload.classify.discarded" {
		t.Fatalf("unexpected entry %v", got)
	}
	if got["err"] != "boom" {
		t.Fatalf("expected error flattened to string, got %v", got["err"])
	}
	if got["requirementId"] != "1" {
		t.Fatalf("missing field: %v", got)
	}
}
