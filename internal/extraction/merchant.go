package extraction

import (
	"regexp"
	"strings"
)

// Unknown is the sentinel returned by string extractors that found nothing
const Unknown = "Unknown"

// reMerchant matches a Merchant/Store/Vendor label and captures the rest of its line.
// \s* may cross a line break, so a label alone on its line picks up the next line.
var reMerchant = regexp.MustCompile(`(?i)(?:Merchant|Store|Vendor)[:\-]?\s*(.*)`)

// ExtractMerchant returns the labelled merchant name, falling back to the first
// line of the receipt and then to Unknown. The value is not checked for plausibility.
func ExtractMerchant(t Text) string {
	if m := reMerchant.FindStringSubmatch(t.Raw); m != nil {
		if name := strings.TrimSpace(m[1]); name != "" {
			return name
		}
	}

	if line := t.FirstLine(); line != "" {
		return line
	}

	return Unknown
}
