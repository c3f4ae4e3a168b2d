package receipt

import (
	"errors"
	"fmt"
)

var (
	// ErrDocumentNotFound is returned when no document has the requested name or ID
	ErrDocumentNotFound = errors.New("document not found")
	// ErrReceiptNotFound is returned when no receipt has the requested ID
	ErrReceiptNotFound = errors.New("receipt not found")
	// ErrOCREmpty is returned when the OCR engine produced no usable text
	ErrOCREmpty = errors.New("no text extracted from document")
	// ErrUnsupportedContentType is returned for uploads that are neither PDFs nor images
	ErrUnsupportedContentType = errors.New("unsupported content type")
)

// InvalidDocumentError is returned when a document failed the validity check.
// Reason is the parser diagnostic recorded by the check.
type InvalidDocumentError struct {
	Reason string
}

func (e *InvalidDocumentError) Error() string {
	return fmt.Sprintf("invalid document: %s", e.Reason)
}
