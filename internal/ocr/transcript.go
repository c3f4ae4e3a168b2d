package ocr

import "strings"

const transcriptionPrompt = `Transcribe every piece of text visible in the attached document pages.

Rules:
- Reproduce the text exactly as printed, line by line, in reading order.
- Keep labels, punctuation and currency symbols as they appear (e.g. "Total: $45.99").
- Separate pages with a blank line.
- Do not summarize, translate, correct or explain anything.
- Do not wrap the output in markdown or code fences.
- If no text is visible, return nothing.`

// cleanTranscript strips wrapping code fences that vision models add despite
// being told not to
func cleanTranscript(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	// Drop the opening fence together with any language tag
	if i := strings.Index(text, "\n"); i >= 0 {
		text = text[i+1:]
	} else {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
