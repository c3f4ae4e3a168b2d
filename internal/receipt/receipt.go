package receipt

import (
	"time"

	"github.com/shopspring/decimal"
)

// Document is an uploaded file awaiting, or having gone through, extraction
type Document struct {
	ID            string     `json:"id"`
	FileName      string     `json:"file_name"`
	FilePath      string     `json:"file_path"`
	FileSize      int64      `json:"file_size"`
	ContentType   string     `json:"content_type"`
	IsValid       bool       `json:"is_valid"`
	InvalidReason string     `json:"invalid_reason,omitempty"` // Only set when IsValid is false
	ValidatedAt   *time.Time `json:"validated_at,omitempty"`   // Nil until the validity check has run
	IsProcessed   bool       `json:"is_processed"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Validated reports whether the validity check has ever run for the document
func (d *Document) Validated() bool {
	return d.ValidatedAt != nil
}

// Receipt holds the fields extracted from one processing run of a document
type Receipt struct {
	ID            string          `json:"id"`
	DocumentID    string          `json:"document_id"`
	FilePath      string          `json:"file_path"`
	MerchantName  string          `json:"merchant_name"`
	TotalAmount   decimal.Decimal `json:"total_amount"` // Two decimal places, never negative
	PurchasedAt   *time.Time      `json:"purchased_at"`
	Currency      string          `json:"currency"`
	PaymentMethod string          `json:"payment_method"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
