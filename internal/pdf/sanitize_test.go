package pdf

import (
	"strings"
	"testing"
)

func TestSanitizeDescriptionStripsTags(t *testing.T) {
	got := SanitizeDescription(`<div><strong>Heavy</strong> duty <em>steel</em></div>`)
	want := "Heavy duty steel"
	if got != want {
		t.Errorf("SanitizeDescription = %q, want %q", got, want)
	}
}

func TestSanitizeDescriptionBreaksAndParagraphs(t *testing.T) {
	got := SanitizeDescription(`<p>First paragraph.</p><p>Second<br/>line.</p>`)
	paragraphs := Paragraphs(got)

	if len(paragraphs) != 3 {
		t.Fatalf("expected 3 text segments, got %d: %v", len(paragraphs), paragraphs)
	}
	if paragraphs[0] != "First paragraph." {
		t.Errorf("first segment = %q", paragraphs[0])
	}
	if paragraphs[1] != "Second" || paragraphs[2] != "line." {
		t.Errorf("br did not split segments: %v", paragraphs[1:])
	}
}

func TestSanitizeDescriptionListItems(t *testing.T) {
	got := SanitizeDescription(`<ul><li>One</li><li>Two</li></ul>`)
	paragraphs := Paragraphs(got)

	if len(paragraphs) != 2 {
		t.Fatalf("expected 2 bullet lines, got %v", paragraphs)
	}
	for _, p := range paragraphs {
		if !strings.HasPrefix(p, "• ") {
			t.Errorf("list item %q is missing its bullet", p)
		}
	}
}

func TestSanitizeDescriptionEntitiesAndQuotes(t *testing.T) {
	got := SanitizeDescription("Rack &amp; Pinion “Pro” 36″ bar set")
	want := `Rack & Pinion "Pro" 36" bar set`
	if got != want {
		t.Errorf("SanitizeDescription = %q, want %q", got, want)
	}
}

func TestParagraphsDropsBlankSegments(t *testing.T) {
	got := Paragraphs("one\n\n  \ntwo\n")
	if len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Errorf("Paragraphs = %v, want [one two]", got)
	}
}
