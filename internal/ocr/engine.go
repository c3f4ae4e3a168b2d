// Package ocr turns stored receipt documents into raw text. Engines are black
// boxes to the rest of the system: they never interpret the text they produce.
package ocr

import "context"

// Engine defines the interface for text recognition
type Engine interface {
	// RecognizeText returns the text of every page of the document, concatenated
	// in page order
	RecognizeText(ctx context.Context, data []byte, contentType string) (string, error)
	// Close releases the engine's resources
	Close() error
}
