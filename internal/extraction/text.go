package extraction

import (
	"errors"
	"strings"
)

// ErrEmptyText is returned when OCR output contains no non-blank lines
var ErrEmptyText = errors.New("no text to extract from")

// Text is the OCR output for one document, prepared for the field extractors
type Text struct {
	// Raw is the untouched OCR output. Regex extractors run against it so matches
	// may span line boundaries.
	Raw string
	// Lines holds the trimmed, non-empty lines of Raw in their original order.
	Lines []string
}

// Normalize splits raw OCR output into trimmed, non-empty lines
func Normalize(raw string) (Text, error) {
	lines := make([]string, 0)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}

	if len(lines) == 0 {
		return Text{}, ErrEmptyText
	}

	return Text{Raw: raw, Lines: lines}, nil
}

// FirstLine returns the first non-empty line, or "" when there are none
func (t Text) FirstLine() string {
	if len(t.Lines) == 0 {
		return ""
	}
	return t.Lines[0]
}
