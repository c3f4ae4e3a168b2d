package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract implements the Engine interface using the Tesseract library
type Tesseract struct {
	language string
	dpi      float64
}

// NewTesseract creates a new Tesseract Engine instance
func NewTesseract(language string, dpi float64) *Tesseract {
	if language == "" {
		language = "eng"
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Tesseract{language: language, dpi: dpi}
}

// RecognizeText renders each page and runs Tesseract over it. A fresh client is
// used per document because gosseract clients are not safe for concurrent use.
func (t *Tesseract) RecognizeText(ctx context.Context, data []byte, contentType string) (string, error) {
	pages, err := renderPages(data, contentType, t.dpi)
	if err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.language); err != nil {
		return "", fmt.Errorf("setting tesseract language: %w", err)
	}

	var b strings.Builder
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		if err := client.SetImageFromBytes(page); err != nil {
			return "", fmt.Errorf("loading page %d: %w", i+1, err)
		}
		text, err := client.Text()
		if err != nil {
			return "", fmt.Errorf("recognizing page %d: %w", i+1, err)
		}

		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(text)
	}

	slog.Debug("Tesseract recognition finished", "pages", len(pages), "text_length", b.Len())
	return b.String(), nil
}

// Close is a no-op; clients are released after each document
func (t *Tesseract) Close() error {
	return nil
}
