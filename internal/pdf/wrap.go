package pdf

import "strings"

// WidthFunc measures the rendered width of a string in page units. It must
// reflect the metrics of the font the text will actually be drawn with; a
// fixed-width approximation causes overlap.
type WidthFunc func(s string) float64

// WrapText greedily breaks text into lines whose measured width stays within
// maxWidth. Words are never split: a single word wider than the budget gets a
// line of its own and overflows. Word order is preserved and no words are
// dropped; this is the line-breaking primitive shared by the title block and
// the description column.
func WrapText(width WidthFunc, text string, maxWidth float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	var line string
	for _, word := range words {
		test := line + word + " "
		if line != "" && width(test) > maxWidth {
			lines = append(lines, strings.TrimSpace(line))
			line = word + " "
			continue
		}
		line = test
	}
	if trimmed := strings.TrimSpace(line); trimmed != "" {
		lines = append(lines, trimmed)
	}
	return lines
}
