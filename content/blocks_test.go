package content

import (
	"encoding/json"
	"strings"
	"testing"
)

func decodeBlocks(t *testing.T, data string) []Block {
	t.Helper()
	var blocks []Block
	if err := json.Unmarshal([]byte(data), &blocks); err != nil {
		t.Fatalf("Failed to decode blocks: %v", err)
	}
	return blocks
}

func TestExtractBlocks_KnownTypes(t *testing.T) {
	blocks := decodeBlocks(t, `[
		{"blockType": "hero", "richText": {"root": {"type": "root", "children": [
			{"type": "heading", "children": [{"type": "text", "text": "Welcome"}]}
		]}}},
		{"blockType": "content", "columns": [
			{"richText": {"root": {"type": "paragraph", "children": [{"type": "text", "text": "Left column"}]}}},
			{"richText": null},
			{"richText": {"root": {"type": "paragraph", "children": [{"type": "text", "text": "Right column"}]}}}
		]},
		{"blockType": "cta", "richText": {"root": {"type": "paragraph", "children": [{"type": "text", "text": "Ready?"}]}},
		 "links": [{"link": {"label": "Sign up"}}, {"link": {"label": " "}}]},
		{"blockType": "featureCards", "heading": "Features", "cards": [
			{"title": "Fast", "description": "Under a second"},
			{"title": "Safe"},
			{"text": "Works offline"}
		]},
		{"blockType": "accordion", "heading": "FAQ", "items": [
			{"question": "Is it free?", "answer": {"root": {"type": "paragraph", "children": [{"type": "text", "text": "Yes."}]}}}
		]}
	]`)

	text := ExtractBlocks(blocks)

	for _, want := range []string{
		"Welcome",
		"Left column\n\nRight column",
		"Ready?\nSign up",
		"Features\nFast: Under a second\nSafe\nWorks offline",
		"FAQ\nQ: Is it free?\nA: Yes.",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in:\n%s", want, text)
		}
	}
	if strings.Index(text, "Welcome") > strings.Index(text, "FAQ") {
		t.Error("Blocks out of order")
	}
}

func TestExtractBlocks_Markdown(t *testing.T) {
	blocks := []Block{NewBlock("markdown", map[string]any{
		"markdown": "# Guide\n\nSome *bold* text\nacross lines.\n\n```\nsecret code\n```\n\n- first item\n- second item\n",
	})}

	var x extractor
	text := x.blocks(blocks)

	if !strings.Contains(text, "Guide\nSome bold text across lines.") {
		t.Errorf("Unexpected markdown text:\n%s", text)
	}
	if strings.Contains(text, "secret code") {
		t.Error("Code blocks should be skipped")
	}
	if !strings.Contains(text, "first item\nsecond item") {
		t.Errorf("Expected list items, got:\n%s", text)
	}
	if len(x.headings) != 1 || x.headings[0] != "Guide" {
		t.Errorf("Expected markdown heading recorded, got %v", x.headings)
	}
}

func TestExtractBlocks_HTMLSanitized(t *testing.T) {
	blocks := []Block{NewBlock("html", map[string]any{
		"html": `<div><p>Hello <b>there</b></p><script>alert("x")</script><style>p{}</style></div>`,
	})}

	text := ExtractBlocks(blocks)
	if text != "Hello there" {
		t.Errorf("Expected sanitized text, got %q", text)
	}
}

func TestExtractBlocks_UnknownAndMalformed(t *testing.T) {
	blocks := decodeBlocks(t, `[
		{"blockType": "banner", "heading": "Sale", "text": "Half price"},
		{"blockType": "spacer", "height": 40},
		{"blockType": "hero", "richText": "not a tree"},
		{"blockType": "banner", "heading": 5}
	]`)

	text := ExtractBlocks(blocks)
	if text != "Sale\nHalf price" {
		t.Errorf("Expected only the generic banner text, got %q", text)
	}
}

func TestBlockNodeInsideRichText(t *testing.T) {
	var rt RichText
	err := json.Unmarshal([]byte(`{"root": {"type": "root", "children": [
		{"type": "paragraph", "children": [{"type": "text", "text": "Before"}]},
		{"type": "block", "fields": {"blockType": "cta", "links": [{"link": {"label": "Book now"}}]}}
	]}}`), &rt)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if got := ExtractRichText(&rt); got != "Before Book now" {
		t.Errorf("Expected embedded block text, got %q", got)
	}
}

func TestBlock_MarshalRoundTrip(t *testing.T) {
	b := NewBlock("cta", map[string]any{"links": []any{}})
	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var back Block
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if back.BlockType != "cta" {
		t.Errorf("Expected cta, got %s", back.BlockType)
	}
}

func TestExtractBlocks_BlockNestedInHero(t *testing.T) {
	blocks := decodeBlocks(t, `[
		{"blockType": "hero", "richText": {"root": {"type": "root", "children": [
			{"type": "paragraph", "children": [{"type": "text", "text": "Spring sale"}]},
			{"type": "block", "fields": {"blockType": "accordion", "items": [
				{"question": "Ends when?", "answer": {"root": {"type": "paragraph", "children": [
					{"type": "block", "fields": {"blockType": "cta", "links": [{"link": {"label": "Shop now"}}]}}
				]}}}
			]}}
		]}}}
	]`)

	text := ExtractBlocks(blocks)
	if !strings.Contains(text, "Spring sale") || !strings.Contains(text, "Q: Ends when?") {
		t.Errorf("Expected hero and nested accordion text, got %q", text)
	}
}

func TestExtractRichText_StripsInlineMarkup(t *testing.T) {
	var rt RichText
	err := json.Unmarshal([]byte(`{"root": {"type": "root", "children": [
		{"type": "paragraph", "children": [{"type": "text", "text": "Fish & <b>chips</b><script>x()</script>"}]},
		{"type": "heading", "children": [{"type": "text", "text": "<em>Menu</em>"}]}
	]}}`), &rt)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	got := ExtractRichText(&rt)
	if !strings.Contains(got, "Fish & chips") {
		t.Errorf("Expected markup removed and entities kept, got %q", got)
	}
	if strings.ContainsAny(got, "<>") || strings.Contains(got, "x()") {
		t.Errorf("Markup left in %q", got)
	}
	if !strings.Contains(got, "Menu") {
		t.Errorf("Expected heading text, got %q", got)
	}
}
