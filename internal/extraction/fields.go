// Package extraction recovers receipt fields from OCR text with fixed, ordered
// pattern tables. Every extractor is a pure function of its input and returns a
// documented sentinel instead of failing.
package extraction

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fields is the result of running every extractor over one document's text.
// Sentinel values (Unknown, zero total, nil date) mark low-confidence fields.
type Fields struct {
	Merchant      string
	Total         decimal.Decimal
	PurchasedAt   *time.Time
	Currency      string
	PaymentMethod string
}

// Extract runs all field extractors over t
func Extract(t Text) Fields {
	return Fields{
		Merchant:      ExtractMerchant(t),
		Total:         ExtractTotal(t.Raw),
		PurchasedAt:   ExtractPurchaseDate(t.Raw),
		Currency:      ExtractCurrency(t.Raw),
		PaymentMethod: ExtractPaymentMethod(t.Raw),
	}
}

// Defaulted returns the names of the fields that fell back to their sentinel value
func (f Fields) Defaulted() []string {
	var names []string
	if f.Merchant == Unknown {
		names = append(names, "merchant")
	}
	if f.Total.IsZero() {
		names = append(names, "total")
	}
	if f.PurchasedAt == nil {
		names = append(names, "purchased_at")
	}
	if f.Currency == Unknown {
		names = append(names, "currency")
	}
	if f.PaymentMethod == Unknown {
		names = append(names, "payment_method")
	}
	return names
}
