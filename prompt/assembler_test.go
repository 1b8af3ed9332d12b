package prompt

import (
	"strings"
	"testing"

	"metagen/content"
)

func sampleContext() content.ContentContext {
	return content.ContentContext{
		Title:           "Hiking in Colorado",
		Subtitle:        "Trails for every season",
		Categories:      []string{"Travel", "Outdoors"},
		ContentSummary:  "Drive west from Denver to reach the trailheads.",
		ExtractedThemes: []string{"Getting there", "Gear"},
	}
}

func TestAltTag_PrimerFirstAndConstraint(t *testing.T) {
	p := AltTag(AltTagConfig{SystemPrimer: "  Describe images.  ", MaxLength: 125})

	if !strings.HasPrefix(p, "Describe images.") {
		t.Errorf("Prompt should start with the primer:\n%s", p)
	}
	if !strings.Contains(p, "≤ 125 characters") {
		t.Errorf("Prompt should carry the length constraint:\n%s", p)
	}
	if strings.Contains(p, "Context:") {
		t.Errorf("No context expected:\n%s", p)
	}
	if !strings.HasSuffix(p, altTagAnswer) {
		t.Errorf("Prompt should end with the answer instruction:\n%s", p)
	}
}

func TestAltTag_ContextOnlyWhenIncluded(t *testing.T) {
	pageCtx := &PageContext{PageTitle: "Trail Guide", Category: "Travel", Tags: []string{"hiking", " ", "maps"}}

	excluded := AltTag(AltTagConfig{SystemPrimer: "P", MaxLength: 100, Context: pageCtx})
	if strings.Contains(excluded, "Trail Guide") {
		t.Errorf("Context should be omitted when not included:\n%s", excluded)
	}

	included := AltTag(AltTagConfig{SystemPrimer: "P", MaxLength: 100, IncludeContext: true, Context: pageCtx})
	for _, want := range []string{"Page title: Trail Guide", "Category: Travel", "Tags: hiking, maps"} {
		if !strings.Contains(included, want) {
			t.Errorf("Expected %q in:\n%s", want, included)
		}
	}
}

// The keywords priority moves the keyword line to the head of the context
// section only. The primer and length constraint still open the prompt.
func TestContextLines_KeywordsFirstWithinContextSection(t *testing.T) {
	lines := ContextLines(sampleContext(), []string{"colorado hikes", "trails"}, PriorityKeywords)

	if len(lines) != 4 {
		t.Fatalf("Expected 4 lines, got %d: %v", len(lines), lines)
	}
	if lines[0] != "Target keywords: colorado hikes, trails" {
		t.Errorf("Keyword line should open the context section, got %q", lines[0])
	}

	p := SeoTitle(SeoTitleConfig{
		SystemPrimer: "Write titles.",
		MaxLength:    52,
		Keywords:     []string{"colorado hikes", "trails"},
		Priority:     PriorityKeywords,
		Context:      sampleContext(),
	})
	if !strings.HasPrefix(p, "Write titles.") {
		t.Errorf("Primer should stay first in the prompt:\n%s", p)
	}
	if strings.Index(p, "≤ 52 characters") > strings.Index(p, lines[0]) {
		t.Errorf("Length constraint should precede the keyword line:\n%s", p)
	}
}

func TestContextLines_KeywordsLastOtherwise(t *testing.T) {
	for _, priority := range []Priority{PriorityBalanced, PriorityContent, ""} {
		lines := ContextLines(sampleContext(), []string{"trails"}, priority)
		if lines[0] != "Title: Hiking in Colorado" {
			t.Errorf("%q: expected title first, got %q", priority, lines[0])
		}
		if lines[len(lines)-1] != "Target keywords: trails" {
			t.Errorf("%q: expected keywords last, got %q", priority, lines[len(lines)-1])
		}
	}
}

func TestContextLines_NoKeywords(t *testing.T) {
	lines := ContextLines(sampleContext(), []string{" ", ""}, PriorityKeywords)
	for _, l := range lines {
		if strings.HasPrefix(l, "Target keywords") {
			t.Errorf("Blank keywords should not produce a line: %v", lines)
		}
	}
}

func TestSeoTitle_SectionOrder(t *testing.T) {
	p := SeoTitle(SeoTitleConfig{
		SystemPrimer: "Write titles.",
		MaxLength:    52,
		Keywords:     []string{"colorado hikes"},
		Priority:     PriorityKeywords,
		Guidance:     "Mention beginners",
		Context:      sampleContext(),
	})

	order := []string{
		"Write titles.",
		"≤ 52 characters",
		"Target keywords: colorado hikes",
		"Title: Hiking in Colorado",
		"Page-specific guidance: Mention beginners",
		"Content summary:\nDrive west",
		"Key themes: Getting there, Gear",
		titleAnswer,
	}
	pos := -1
	for _, want := range order {
		i := strings.Index(p, want)
		if i < 0 {
			t.Fatalf("Expected %q in:\n%s", want, p)
		}
		if i < pos {
			t.Errorf("%q is out of order in:\n%s", want, p)
		}
		pos = i
	}
}

func TestSeoDescription_Bounds(t *testing.T) {
	p := SeoDescription(SeoDescriptionConfig{SystemPrimer: "Write descriptions.", MinLength: 120, MaxLength: 160})
	if !strings.Contains(p, "between 120 and 160 characters") {
		t.Errorf("Expected bounds in:\n%s", p)
	}
	if strings.Contains(p, "Content summary") || strings.Contains(p, "Key themes") {
		t.Errorf("Empty sections should be omitted:\n%s", p)
	}
}

func TestIconMetadata(t *testing.T) {
	p := IconMetadata(IconMetadataConfig{
		SystemPrimer: "Label icons.",
		MaxLength:    60,
		IconName:     "download",
		Keywords:     []string{"report", "pdf"},
		Usage:        "toolbar button",
	})
	for _, want := range []string{"Icon: download", "Keywords: report, pdf", "Used for: toolbar button", "≤ 60 characters"} {
		if !strings.Contains(p, want) {
			t.Errorf("Expected %q in:\n%s", want, p)
		}
	}
}

func TestAssembly_Deterministic(t *testing.T) {
	cfg := SeoDescriptionConfig{SystemPrimer: "P", MinLength: 1, MaxLength: 2, Keywords: []string{"a", "b"}, Context: sampleContext()}
	if SeoDescription(cfg) != SeoDescription(cfg) {
		t.Error("Same inputs must produce the same prompt")
	}
}
