package extraction

import "regexp"

// reCurrency matches the supported currency glyphs: $, €, ₹, £
var reCurrency = regexp.MustCompile(`[$€₹£]`)

// ExtractCurrency returns the leftmost currency glyph in text, or Unknown
func ExtractCurrency(text string) string {
	if glyph := reCurrency.FindString(text); glyph != "" {
		return glyph
	}
	return Unknown
}
