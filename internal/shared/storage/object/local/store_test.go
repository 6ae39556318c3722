package local

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"photoreq-backend/internal/shared/storage/object"
)

func TestPutOpen(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	ctx := context.Background()

	n, err := s.Put(ctx, "Jane - 1 Main - 2026-03-01/1_front.jpg", "image/jpeg", strings.NewReader("jpeg-bytes"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if n != int64(len("jpeg-bytes")) {
		t.Fatalf("Put size = %d", n)
	}
	if _, err := s.Put(ctx, "Jane - 1 Main - 2026-03-01/1_front.jpg", "image/jpeg", strings.NewReader("v2")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	rc, err := s.Open(ctx, "Jane - 1 Main - 2026-03-01/1_front.jpg")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	if string(got) != "v2" {
		t.Fatalf("Open returned %q", got)
	}

	entries, _ := os.ReadDir(filepath.Join(dir, "Jane - 1 Main - 2026-03-01"))
	if len(entries) != 1 {
		t.Fatalf("expected no temp files left behind, got %d entries", len(entries))
	}
	if loc := s.Location("Jane - 1 Main - 2026-03-01"); !filepath.IsAbs(loc) || !strings.HasSuffix(loc, "Jane - 1 Main - 2026-03-01") {
		t.Fatalf("unexpected location %q", loc)
	}
}

func TestRejectsEscapingKeys(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()
	if _, err := s.Put(ctx, "../outside.jpg", "", strings.NewReader("x")); !errors.Is(err, object.ErrInvalidKey) {
		t.Fatalf("Put escaping key = %v", err)
	}
	if _, err := s.Open(ctx, "/etc/passwd"); !errors.Is(err, object.ErrInvalidKey) {
		t.Fatalf("Open absolute key = %v", err)
	}
}

func TestPutHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(t.TempDir()).Put(ctx, "a.jpg", "", strings.NewReader("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
