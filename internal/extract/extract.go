// Package extract flattens policy documents (declarations pages, agent notes)
// into plain text for the auto-fill parser.
package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// Kind is a document format this package can read.
type Kind string

const (
	KindPDF         Kind = "application/pdf"
	KindDOCX        Kind = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	KindText        Kind = "text/plain"
	KindUnsupported Kind = ""
)

// MaxChars bounds the text handed to a model. Declarations pages run a few
// thousand characters; anything past this is boilerplate.
const MaxChars = 60000

// ErrUnsupported marks payloads that carry no extractable text, such as photos.
var ErrUnsupported = errors.New("unsupported document type")

// Supported reports whether Text can read the given type.
func Supported(mimeType, fileName string) bool {
	return Detect(mimeType, fileName, nil) != KindUnsupported
}

// Detect resolves the document kind from the declared type, falling back to
// the file extension and, for zip payloads, the archive layout.
func Detect(mimeType, fileName string, data []byte) Kind {
	declared := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	switch Kind(declared) {
	case KindPDF, KindDOCX, KindText:
		return Kind(declared)
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	switch declared {
	case "", "application/octet-stream":
		switch ext {
		case ".pdf":
			return KindPDF
		case ".docx":
			return KindDOCX
		case ".txt":
			return KindText
		}
	case "application/zip":
		if isDOCX(data) || (len(data) == 0 && ext == ".docx") {
			return KindDOCX
		}
	}
	return KindUnsupported
}

// Text extracts normalized text from a PDF, DOCX or plain-text payload,
// truncated to MaxChars.
func Text(ctx context.Context, data []byte, mimeType, fileName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var (
		text string
		err  error
	)
	switch kind := Detect(mimeType, fileName, data); kind {
	case KindPDF:
		text, err = pdfText(data)
	case KindDOCX:
		text, err = docxText(data)
	case KindText:
		text = string(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupported, displayType(mimeType))
	}
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", fileName, err)
	}
	return truncate(normalize(text), MaxChars), nil
}

func displayType(mimeType string) string {
	if t := strings.TrimSpace(strings.Split(mimeType, ";")[0]); t != "" {
		return t
	}
	return "unknown"
}

func pdfText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func docxText(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty docx")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	doc := findEntry(zr, "word/document.xml")
	if doc == nil {
		return "", errors.New("word/document.xml not found")
	}
	rc, err := doc.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return paragraphs(rc)
}

// paragraphs keeps character data and breaks lines at paragraph and break
// elements.
func paragraphs(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var b strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return b.String(), nil
		}
		if err != nil {
			return "", fmt.Errorf("docx xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				b.WriteByte('\n')
			}
		}
	}
}

func isDOCX(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	return findEntry(zr, "word/document.xml") != nil
}

func findEntry(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if strings.ReplaceAll(f.Name, "\\", "/") == name {
			return f
		}
	}
	return nil
}

// normalize trims each line, collapses runs of blank lines and drops invalid
// UTF-8 left behind by PDF font maps.
func normalize(s string) string {
	s = strings.ToValidUTF8(s, "")
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
