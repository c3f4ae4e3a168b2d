package extraction

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// paymentKeywords is matched by substring in this order, so "credit card" has to
// stay ahead of "credit" and "cash" ahead of "cash on delivery".
var paymentKeywords = []string{
	"credit card",
	"debit card",
	"cash",
	"upi",
	"google pay",
	"phonepe",
	"paytm",
	"wallet",
	"net banking",
	"bank transfer",
	"cheque",
	"paypal",
	"credit",
	"debit",
	"cash on delivery",
	"cod",
	"emi",
	"installment",
	"cash",
	"gift card",
	"voucher",
	"loyalty points",
	"rewards points",
	"cryptocurrency",
}

// ExtractPaymentMethod returns the first keyword, in priority order, found
// anywhere in text, title-cased. Unknown when none match.
func ExtractPaymentMethod(text string) string {
	lower := strings.ToLower(text)
	for _, keyword := range paymentKeywords {
		if strings.Contains(lower, keyword) {
			return cases.Title(language.Und).String(keyword)
		}
	}
	return Unknown
}
