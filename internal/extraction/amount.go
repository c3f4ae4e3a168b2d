package extraction

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// reTotal captures the numeric token after the first Total/Amount label.
// Only the first textual occurrence is used, so a "Subtotal" line above the
// grand total wins.
var reTotal = regexp.MustCompile(`(?i)(?:Total|Amount)[:\-]?\s*[$€₹£]?\s*([\d.,]+)`)

// ExtractTotal returns the labelled total amount, or zero when no label is found
// or the captured token is not a number
func ExtractTotal(text string) decimal.Decimal {
	m := reTotal.FindStringSubmatch(text)
	if m == nil {
		return decimal.Zero
	}

	// thousands separators
	token := strings.ReplaceAll(m[1], ",", "")

	amount, err := decimal.NewFromString(token)
	if err != nil || amount.IsNegative() {
		return decimal.Zero
	}

	return amount
}
