package tokens

import "strings"

// PruneLinesFromTop drops whole lines from the start of text until the
// remainder fits in maxTokens.
func PruneLinesFromTop(c Counter, text string, maxTokens int, model string) string {
	total := c.Count(text, model)
	if total <= maxTokens {
		return text
	}
	lines := strings.Split(text, "\n")
	for total > maxTokens && len(lines) > 0 {
		total -= c.Count(lines[0], model)
		lines = lines[1:]
	}
	return strings.Join(lines, "\n")
}

// PruneLinesFromBottom drops whole lines from the end of text until the
// remainder fits in maxTokens.
func PruneLinesFromBottom(c Counter, text string, maxTokens int, model string) string {
	total := c.Count(text, model)
	if total <= maxTokens {
		return text
	}
	lines := strings.Split(text, "\n")
	for total > maxTokens && len(lines) > 0 {
		total -= c.Count(lines[len(lines)-1], model)
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
