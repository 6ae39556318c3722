package main

// Try the configured AI provider against local files:
//   go run ./cmd/classify --image front.jpg --label "Front of House"
//   go run ./cmd/classify --document policy.pdf

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"photoreq-backend/internal/bootstrap"
	"photoreq-backend/internal/extract"
	"photoreq-backend/internal/imaging"
	"photoreq-backend/internal/llm"
	"photoreq-backend/internal/shared/config"
)

func main() {
	cfg := config.Load()

	imagePath := flag.String("image", "", "Photo to grade")
	label := flag.String("label", "", "Requirement label the photo should show")
	documentPath := flag.String("document", "", "Policy document (pdf, docx, txt or image) to parse into a request")
	provider := flag.String("provider", cfg.LLMProvider, "AI provider: gemini, openai or none")
	model := flag.String("model", cfg.LLMModel, "Model override")
	compress := flag.Bool("compress", true, "Downsample the photo the way submissions are")
	timeout := flag.Duration("timeout", 2*time.Minute, "Request timeout")
	flag.Parse()

	cfg.LLMProvider = *provider
	cfg.LLMModel = *model

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ai := bootstrap.BuildAI(ctx, cfg)

	var (
		out any
		err error
	)
	switch {
	case *imagePath != "":
		if strings.TrimSpace(*label) == "" {
			exitErr("--label is required with --image")
		}
		out, err = classify(ctx, ai, *imagePath, *label, *compress)
	case *documentPath != "":
		out, err = parse(ctx, ai, *documentPath)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		exitErr(err.Error())
	}

	pretty, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		exitErr(fmt.Sprintf("format json: %v", err))
	}
	fmt.Println(string(pretty))
}

func classify(ctx context.Context, c llm.Classifier, path, label string, compress bool) (llm.Verdict, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return llm.Verdict{}, fmt.Errorf("read image: %w", err)
	}
	img := llm.Image{Data: data, MimeType: http.DetectContentType(data)}
	if compress {
		small, err := imaging.Compress(data, imaging.QualityForBatch(1))
		if err != nil {
			return llm.Verdict{}, fmt.Errorf("compress: %w", err)
		}
		img = llm.Image{Data: small.Data, MimeType: small.MimeType}
	}
	return c.Classify(ctx, img, label)
}

func parse(ctx context.Context, p llm.DocumentParser, path string) (llm.ParsedDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return llm.ParsedDocument{}, fmt.Errorf("read document: %w", err)
	}
	name := filepath.Base(path)
	mimeType := http.DetectContentType(data)
	if extract.Supported(mimeType, name) {
		text, err := extract.Text(ctx, data, mimeType, name)
		if err != nil {
			return llm.ParsedDocument{}, fmt.Errorf("extract text: %w", err)
		}
		return p.ParseDocument(ctx, llm.DocumentInput{Text: text})
	}
	return p.ParseDocument(ctx, llm.DocumentInput{Data: data, MimeType: mimeType, FileName: name})
}

func exitErr(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
