// Package imaging downsamples captured photos and re-encodes them as JPEG.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// MaxDimension bounds the long edge of every compressed image.
	MaxDimension = 1280
	// DefaultQuality is used for small batches and previews.
	DefaultQuality = 0.7
	// BatchQuality is used once a batch exceeds BatchThreshold images.
	BatchQuality   = 0.6
	BatchThreshold = 10
	// MaxPixels bounds width*height of any image this package will decode.
	MaxPixels = 50_000_000

	jpegMime = "image/jpeg"
)

var (
	ErrEmptyImage       = errors.New("image is empty")
	ErrUnsupportedImage = errors.New("unsupported image format")
	ErrImageTooLarge    = errors.New("image dimensions exceed limit")
)

// Compressed is a re-encoded image.
type Compressed struct {
	Data     []byte
	MimeType string
	Width    int
	Height   int
}

// QualityForBatch picks the JPEG quality for a submission of n images.
func QualityForBatch(n int) float64 {
	if n > BatchThreshold {
		return BatchQuality
	}
	return DefaultQuality
}

// FitWithin scales (w, h) so neither side exceeds max, preserving aspect ratio.
// Sizes already inside the bound are returned unchanged.
func FitWithin(w, h, max int) (int, int) {
	if w <= 0 || h <= 0 || max <= 0 {
		return w, h
	}
	if w <= max && h <= max {
		return w, h
	}
	if w >= h {
		return max, scaleSide(h, max, w)
	}
	return scaleSide(w, max, h), max
}

func scaleSide(side, target, long int) int {
	v := int(math.Round(float64(side) * float64(target) / float64(long)))
	if v < 1 {
		return 1
	}
	return v
}

// Compress decodes src, bounds it to MaxDimension and encodes it as JPEG at
// the given quality (0..1]. The output is deterministic for a given input.
func Compress(src []byte, quality float64) (Compressed, error) {
	return compress(src, MaxDimension, quality)
}

// Thumbnail produces a small JPEG preview whose long edge is at most edge.
func Thumbnail(src []byte, edge int) (Compressed, error) {
	if edge <= 0 || edge > MaxDimension {
		edge = MaxDimension
	}
	return compress(src, edge, DefaultQuality)
}

// CheckDimensions reads only the header of src. It returns ErrImageTooLarge
// when the declared size exceeds MaxPixels and ErrUnsupportedImage when no
// registered decoder recognises the format.
func CheckDimensions(src []byte) (image.Config, error) {
	if len(src) == 0 {
		return image.Config{}, ErrEmptyImage
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return image.Config{}, ErrUnsupportedImage
		}
		return image.Config{}, fmt.Errorf("decode image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return image.Config{}, fmt.Errorf("decode %s header: %w", format, ErrEmptyImage)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return image.Config{}, fmt.Errorf("%s %dx%d: %w", format, cfg.Width, cfg.Height, ErrImageTooLarge)
	}
	return cfg, nil
}

func compress(src []byte, bound int, quality float64) (Compressed, error) {
	if _, err := CheckDimensions(src); err != nil {
		return Compressed{}, err
	}
	img, format, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return Compressed{}, ErrUnsupportedImage
		}
		return Compressed{}, fmt.Errorf("decode image: %w", err)
	}

	b := img.Bounds()
	w, h := FitWithin(b.Dx(), b.Dy(), bound)
	if w <= 0 || h <= 0 {
		return Compressed{}, fmt.Errorf("decode %s: %w", format, ErrEmptyImage)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	// JPEG has no alpha channel; transparent regions become white.
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality(quality)}); err != nil {
		return Compressed{}, fmt.Errorf("encode jpeg: %w", err)
	}
	return Compressed{Data: buf.Bytes(), MimeType: jpegMime, Width: w, Height: h}, nil
}

func jpegQuality(q float64) int {
	if q <= 0 || math.IsNaN(q) {
		q = DefaultQuality
	}
	if q > 1 {
		q = 1
	}
	v := int(math.Round(q * 100))
	if v < 1 {
		v = 1
	}
	return v
}
