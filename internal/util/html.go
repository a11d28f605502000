package util

import "strings"

// ExtractHTML returns the HTML document contained in a model reply. Models
// frequently wrap code in markdown fences (```html ... ```); the first fenced
// block is unwrapped. Replies without fences are returned trimmed.
func ExtractHTML(reply string) string {
	s := strings.TrimSpace(reply)
	start := strings.Index(s, "```")
	if start < 0 {
		return s
	}
	body := s[start+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		// drop the info string (e.g. "html")
		body = body[nl+1:]
	}
	if end := strings.Index(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}
