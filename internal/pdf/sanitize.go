package pdf

import (
	stdhtml "html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	stripPolicy = bluemonday.StrictPolicy()

	brTag      = regexp.MustCompile(`(?i)<br\s*/?>`)
	pOpenTag   = regexp.MustCompile(`(?i)<p[^>]*>`)
	pCloseTag  = regexp.MustCompile(`(?i)</p>`)
	liOpenTag  = regexp.MustCompile(`(?i)<li[^>]*>`)
	liCloseTag = regexp.MustCompile(`(?i)</li>`)
)

// typographicReplacer maps characters the PDF fonts render poorly (or not at
// all) onto their ASCII equivalents.
var typographicReplacer = strings.NewReplacer(
	"“", `"`, // left curly double quote
	"”", `"`, // right curly double quote
	"‘", "'", // left curly single quote
	"’", "'", // right curly single quote
	"″", `"`, // double prime
	" ", " ", // non-breaking space
)

// SanitizeDescription converts product description HTML into plain text
// suitable for the description column. Break and paragraph tags become
// newlines, list items become bullet lines, every remaining tag is stripped,
// and HTML entities are decoded.
func SanitizeDescription(raw string) string {
	s := brTag.ReplaceAllString(raw, "\n")
	s = pOpenTag.ReplaceAllString(s, "")
	s = pCloseTag.ReplaceAllString(s, "\n")
	s = liOpenTag.ReplaceAllString(s, "• ")
	s = liCloseTag.ReplaceAllString(s, "\n")

	s = stripPolicy.Sanitize(s)
	s = stdhtml.UnescapeString(s)
	s = typographicReplacer.Replace(s)

	return strings.TrimSpace(s)
}

// Paragraphs splits sanitized text on newlines and drops blank segments.
func Paragraphs(s string) []string {
	var out []string
	for _, part := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
