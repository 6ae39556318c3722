package imaging

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

func encodePNG(t *testing.T, w, h int, fill color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, fill)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func TestFitWithin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{name: "landscape", w: 4000, h: 3000, wantW: 1280, wantH: 960},
		{name: "portrait", w: 3000, h: 4000, wantW: 960, wantH: 1280},
		{name: "square", w: 2560, h: 2560, wantW: 1280, wantH: 1280},
		{name: "inside bound", w: 800, h: 600, wantW: 800, wantH: 600},
		{name: "exactly bound", w: 1280, h: 1280, wantW: 1280, wantH: 1280},
		{name: "thin strip", w: 1, h: 5000, wantW: 1, wantH: 1280},
		{name: "panorama", w: 10000, h: 3, wantW: 1280, wantH: 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			w, h := FitWithin(tt.w, tt.h, MaxDimension)
			if w != tt.wantW || h != tt.wantH {
				t.Fatalf("FitWithin(%d,%d) = %dx%d, want %dx%d", tt.w, tt.h, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestFitWithinPreservesAspect(t *testing.T) {
	for w := 1; w <= 6000; w += 397 {
		for h := 1; h <= 6000; h += 419 {
			gotW, gotH := FitWithin(w, h, MaxDimension)
			if gotW > MaxDimension || gotH > MaxDimension {
				t.Fatalf("FitWithin(%d,%d) = %dx%d exceeds bound", w, h, gotW, gotH)
			}
			if gotW > w || gotH > h {
				t.Fatalf("FitWithin(%d,%d) = %dx%d upscaled", w, h, gotW, gotH)
			}
			// Rounding the short side moves it by at most half a pixel.
			skew := gotW*h - gotH*w
			if skew < 0 {
				skew = -skew
			}
			limit := max(w, h)/2 + 1
			if gotW == 1 || gotH == 1 {
				limit = max(w, h)
			}
			if skew > limit {
				t.Fatalf("FitWithin(%d,%d) = %dx%d distorts aspect (skew %d)", w, h, gotW, gotH, skew)
			}
		}
	}
}

func TestCompressBoundsOutput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{name: "large landscape", w: 2000, h: 1000, wantW: 1280, wantH: 640},
		{name: "large portrait", w: 900, h: 1800, wantW: 640, wantH: 1280},
		{name: "small unchanged", w: 320, h: 240, wantW: 320, wantH: 240},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			src := encodePNG(t, tt.w, tt.h, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
			out, err := Compress(src, DefaultQuality)
			if err != nil {
				t.Fatalf("Compress: %v", err)
			}
			if out.MimeType != "image/jpeg" {
				t.Fatalf("MimeType = %q", out.MimeType)
			}
			cfg, err := jpeg.DecodeConfig(bytes.NewReader(out.Data))
			if err != nil {
				t.Fatalf("output is not jpeg: %v", err)
			}
			if cfg.Width != tt.wantW || cfg.Height != tt.wantH {
				t.Fatalf("decoded %dx%d, want %dx%d", cfg.Width, cfg.Height, tt.wantW, tt.wantH)
			}
			if out.Width != cfg.Width || out.Height != cfg.Height {
				t.Fatalf("reported %dx%d, encoded %dx%d", out.Width, out.Height, cfg.Width, cfg.Height)
			}
		})
	}
}

func TestCompressIsDeterministic(t *testing.T) {
	src := encodePNG(t, 1500, 700, color.NRGBA{R: 10, G: 120, B: 200, A: 255})
	a, err := Compress(src, 0.6)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	b, err := Compress(src, 0.6)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if !bytes.Equal(a.Data, b.Data) {
		t.Fatalf("compress output differs between runs")
	}
}

func TestCompressFlattensTransparencyOntoWhite(t *testing.T) {
	src := encodePNG(t, 16, 16, color.NRGBA{})
	out, err := Compress(src, 1)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(out.Data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	r, g, b, _ := img.At(8, 8).RGBA()
	if r>>8 < 245 || g>>8 < 245 || b>>8 < 245 {
		t.Fatalf("expected white pixel, got %d,%d,%d", r>>8, g>>8, b>>8)
	}
}

// pngHeader returns a PNG that declares w x h grayscale pixels but carries no
// image data.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8] = 8 // bit depth; color type, compression, filter and interlace stay 0

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestCompressRejectsBadInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		src     []byte
		wantErr error
	}{
		{name: "empty", src: nil, wantErr: ErrEmptyImage},
		{name: "not an image", src: []byte("definitely not an image"), wantErr: ErrUnsupportedImage},
		{name: "oversized dimensions", src: pngHeader(16000, 16000), wantErr: ErrImageTooLarge},
		{name: "just over budget", src: pngHeader(MaxPixels/1000+1, 1000), wantErr: ErrImageTooLarge},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Compress(tt.src, DefaultQuality); !errors.Is(err, tt.wantErr) {
				t.Fatalf("Compress: expected %v, got %v", tt.wantErr, err)
			}
			if _, err := Thumbnail(tt.src, 480); !errors.Is(err, tt.wantErr) {
				t.Fatalf("Thumbnail: expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCheckDimensions(t *testing.T) {
	cfg, err := CheckDimensions(pngHeader(10000, 5000))
	if err != nil {
		t.Fatalf("image at the pixel budget should pass, got %v", err)
	}
	if cfg.Width != 10000 || cfg.Height != 5000 {
		t.Fatalf("CheckDimensions = %dx%d", cfg.Width, cfg.Height)
	}

	// The header alone is rejected; nothing past it is read.
	_, err = CheckDimensions(pngHeader(60000, 60000))
	if !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("expected ErrImageTooLarge, got %v", err)
	}
	if !strings.Contains(err.Error(), "60000x60000") {
		t.Fatalf("error should name the dimensions, got %q", err)
	}

	if _, err := CheckDimensions(encodePNG(t, 4, 4, color.Black)); err != nil {
		t.Fatalf("small image: %v", err)
	}
}

func TestThumbnail(t *testing.T) {
	src := encodePNG(t, 1000, 500, color.NRGBA{G: 255, A: 255})
	out, err := Thumbnail(src, 200)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	if out.Width != 200 || out.Height != 100 {
		t.Fatalf("Thumbnail = %dx%d", out.Width, out.Height)
	}
}

func TestQualityForBatch(t *testing.T) {
	tests := map[int]float64{0: 0.7, 1: 0.7, 10: 0.7, 11: 0.6, 40: 0.6}
	for n, want := range tests {
		if got := QualityForBatch(n); got != want {
			t.Fatalf("QualityForBatch(%d) = %v, want %v", n, got, want)
		}
	}
}

func TestJPEGQualityClamps(t *testing.T) {
	tests := map[float64]int{-1: 70, 0: 70, 0.004: 1, 0.6: 60, 1: 100, 3: 100}
	for in, want := range tests {
		if got := jpegQuality(in); got != want {
			t.Fatalf("jpegQuality(%v) = %d, want %d", in, got, want)
		}
	}
}
