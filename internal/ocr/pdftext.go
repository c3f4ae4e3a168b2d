package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// PDFText reads the embedded text layer of born-digital PDFs without rendering.
// Scanned PDFs and images yield no text.
type PDFText struct{}

// NewPDFText creates a new PDFText Engine instance
func NewPDFText() *PDFText {
	return &PDFText{}
}

func (p *PDFText) RecognizeText(ctx context.Context, data []byte, contentType string) (string, error) {
	if normalizeMimeType(contentType) != "application/pdf" {
		return "", fmt.Errorf("pdftext engine cannot read %q", contentType)
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	pages := make([]string, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := doc.Text(i)
		if err != nil {
			return "", fmt.Errorf("reading text of page %d: %w", i+1, err)
		}
		pages = append(pages, text)
	}

	return strings.Join(pages, "\n"), nil
}

func (p *PDFText) Close() error {
	return nil
}
