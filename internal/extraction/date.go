package extraction

import (
	"regexp"
	"time"
)

// reDate finds the first date-shaped substring in the text
var reDate = regexp.MustCompile(
	`(\d{2}[/-]\d{2}[/-]\d{4}` + // DD/MM/YYYY, MM-DD-YYYY ...
		`|\d{4}[/-]\d{2}[/-]\d{2}` + // YYYY-MM-DD, YYYY/MM/DD
		`|\d{2}-[A-Za-z]{3}-\d{4}` + // DD-Mon-YYYY
		`|\d{2}\.\d{2}\.\d{4}` + // DD.MM.YYYY
		`|[A-Za-z]{3,9} \d{1,2}, \d{4})`, // Mon DD, YYYY / Month DD, YYYY
)

// dateLayouts is the trial order for a date candidate. Day-first layouts come
// before month-first ones, so an ambiguous 03/10/2023 reads as 3 October.
// Reordering this list changes which date ambiguous receipts resolve to.
var dateLayouts = []string{
	"02/01/2006",      // %d/%m/%Y
	"01/02/2006",      // %m/%d/%Y
	"02-01-2006",      // %d-%m-%Y
	"01-02-2006",      // %m-%d-%Y
	"02-Jan-2006",     // %d-%b-%Y
	"2006-01-02",      // %Y-%m-%d
	"02.01.2006",      // %d.%m.%Y
	"Jan 2, 2006",     // %b %d, %Y
	"January 2, 2006", // %B %d, %Y
}

// ExtractPurchaseDate parses the first date-shaped substring of text. It returns
// nil when there is no candidate or the candidate fits none of the layouts; a
// real date appearing after an unparseable candidate is not considered.
func ExtractPurchaseDate(text string) *time.Time {
	candidate := reDate.FindString(text)
	if candidate == "" {
		return nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, candidate); err == nil {
			return &t
		}
	}

	return nil
}
