package upload

import (
	"fmt"
	"os"
	"sync"

	"photoreq-backend/internal/imaging"
)

const previewEdge = 480

// Preview is a temporary local rendition of a captured photo.
type Preview interface {
	Path() string
	Release() error
}

// PreviewStore creates previews for captured photos.
type PreviewStore interface {
	Create(requirementID string, img SourceImage) (Preview, error)
}

// TempPreviews writes JPEG thumbnails to temporary files under Dir
// (os.TempDir when empty). Photos that cannot be decoded are stored as-is.
type TempPreviews struct {
	Dir string
}

// Create writes the preview file.
func (t TempPreviews) Create(requirementID string, img SourceImage) (Preview, error) {
	data := img.Data
	if thumb, err := imaging.Thumbnail(img.Data, previewEdge); err == nil {
		data = thumb.Data
	}
	f, err := os.CreateTemp(t.Dir, "preview-*")
	if err != nil {
		return nil, fmt.Errorf("create preview: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("write preview: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("close preview: %w", err)
	}
	return &fileHandle{path: f.Name()}, nil
}

type fileHandle struct {
	path string
	once sync.Once
	err  error
}

func (h *fileHandle) Path() string { return h.path }

// Release removes the file; later calls are no-ops.
func (h *fileHandle) Release() error {
	h.once.Do(func() {
		if err := os.Remove(h.path); err != nil && !os.IsNotExist(err) {
			h.err = err
		}
	})
	return h.err
}

// NopPreviews keeps no previews.
type NopPreviews struct{}

func (NopPreviews) Create(string, SourceImage) (Preview, error) { return nil, nil }

func releasePreview(p Preview) error {
	if p == nil {
		return nil
	}
	return p.Release()
}
