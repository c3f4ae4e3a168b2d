// Package validity decides whether a stored document is structurally
// well-formed enough to attempt OCR on it.
package validity

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"strings"

	"github.com/gen2brain/heic"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Verdict is the outcome of a single structural parse attempt
type Verdict struct {
	Valid bool
	// Reason is the parser's diagnostic, verbatim. Empty when Valid.
	Reason string
}

// Checker validates document bytes against their declared content type
type Checker interface {
	Check(data []byte, contentType string) Verdict
}

// Gate implements Checker with pdfcpu for PDFs and header decoding for images
type Gate struct {
	pdfConf *model.Configuration
}

// NewGate creates a Gate that validates PDFs in relaxed mode
func NewGate() *Gate {
	api.DisableConfigDir()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Gate{pdfConf: conf}
}

// Check parses data once with the parser for contentType. It says nothing about
// whether the pages carry readable text: a blank but well-formed PDF is valid.
func (g *Gate) Check(data []byte, contentType string) (v Verdict) {
	defer func() {
		if r := recover(); r != nil {
			v = Verdict{Reason: fmt.Sprint(r)}
		}
	}()

	if len(data) == 0 {
		return Verdict{Reason: "empty file"}
	}

	var err error
	switch normalizeContentType(contentType) {
	case "application/pdf":
		// api.Validate writes to its configuration; checks may run concurrently
		conf := *g.pdfConf
		err = api.Validate(bytes.NewReader(data), &conf)
	case "image/heic", "image/heif":
		_, err = heic.DecodeConfig(bytes.NewReader(data))
	case "image/png", "image/jpeg", "image/gif":
		_, _, err = image.DecodeConfig(bytes.NewReader(data))
	default:
		err = fmt.Errorf("unsupported content type: %q", contentType)
	}

	if err != nil {
		return Verdict{Reason: err.Error()}
	}
	return Verdict{Valid: true}
}

func normalizeContentType(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == "image/jpg" {
		ct = "image/jpeg"
	}
	return ct
}
