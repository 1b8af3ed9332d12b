package content

import (
	"strings"

	"metagen/utils"
)

// Summary budget limits, in characters
const (
	charsPerToken    = 4
	maxSummaryLength = 10000
	maxThemes        = 8
)

// SummaryBudget returns the character budget of a content summary for a
// backend configured with maxTokens
func SummaryBudget(maxTokens int) int {
	if maxTokens <= 0 {
		return maxSummaryLength
	}
	budget := maxTokens * charsPerToken
	if budget > maxSummaryLength {
		return maxSummaryLength
	}
	return budget
}

// extractor accumulates heading texts while walking trees and blocks
type extractor struct {
	headings []string
}

// ExtractRichText flattens a rich-text tree into plain text
func ExtractRichText(rt *RichText) string {
	if rt == nil {
		return ""
	}
	var x extractor
	return x.tree(rt.Root)
}

// ExtractBlocks flattens a page layout into plain text, one paragraph per block
func ExtractBlocks(blocks []Block) string {
	var x extractor
	return x.blocks(blocks)
}

// ExtractMetadata lifts title, subtitle, categories, hero image and table of
// contents straight from the document's fields
func ExtractMetadata(doc *Document) ContentContext {
	var ctx ContentContext
	if doc == nil {
		return ctx
	}

	ctx.Title = strings.TrimSpace(doc.Title)
	ctx.Subtitle = strings.TrimSpace(doc.Subtitle)

	for _, c := range doc.Categories {
		if name, ok := categoryName(c); ok {
			ctx.Categories = append(ctx.Categories, name)
		}
	}

	if doc.HeroImage != nil && (doc.HeroImage.Alt != "" || doc.HeroImage.URL != "") {
		ctx.HeroImage = &ImageRef{Alt: doc.HeroImage.Alt, URL: doc.HeroImage.URL}
	}

	for _, entry := range doc.TableOfContents {
		if strings.TrimSpace(entry.Title) == "" {
			continue
		}
		ctx.TableOfContents = append(ctx.TableOfContents, entry)
	}

	return ctx
}

// Analyze produces the full context of a document: its metadata, a summary
// bounded by SummaryBudget(maxTokens) and the themes named by its headings.
// Layout blocks take precedence over the rich-text body when both exist.
func Analyze(doc *Document, maxTokens int) ContentContext {
	ctx := ExtractMetadata(doc)
	if doc == nil {
		return ctx
	}

	var x extractor
	var text string
	switch {
	case len(doc.Layout) > 0:
		text = x.blocks(doc.Layout)
	case doc.Content != nil:
		text = x.tree(doc.Content.Root)
	}

	ctx.ContentSummary = utils.TruncateAtWordBoundary(text, SummaryBudget(maxTokens))
	ctx.ExtractedThemes = x.themes()
	return ctx
}

// tree walks a rich-text tree in pre-order and joins the emitted fragments
// with single spaces
func (x *extractor) tree(root Node) string {
	var fragments []string
	x.emit(root, &fragments)
	return strings.TrimSpace(strings.Join(fragments, " "))
}

func (x *extractor) emit(n Node, out *[]string) {
	switch n.Kind() {
	case KindText:
		*out = append(*out, leafText(n.Text))
	case KindHeading:
		text := textOf(n)
		x.addHeading(text)
		*out = append(*out, "\n"+text+"\n")
	case KindParagraph:
		*out = append(*out, textOf(n))
	case KindList:
		for _, item := range n.Children {
			*out = append(*out, "• "+textOf(item))
		}
	case KindQuote:
		*out = append(*out, `"`+textOf(n)+`"`)
	case KindBlock:
		var b Block
		if err := b.UnmarshalJSON(n.Fields); err == nil {
			if text := x.block(b); text != "" {
				*out = append(*out, text)
			}
		}
	default:
		// unknown kinds contribute whatever their children contain
		for _, child := range n.Children {
			x.emit(child, out)
		}
	}
}

// textOf concatenates every text leaf under n
func textOf(n Node) string {
	if n.Kind() == KindText {
		return leafText(n.Text)
	}
	var sb strings.Builder
	for _, child := range n.Children {
		sb.WriteString(textOf(child))
	}
	return sb.String()
}

// blocks extracts each block in order, joined by blank lines
func (x *extractor) blocks(blocks []Block) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if text := strings.TrimSpace(x.block(b)); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}

func (x *extractor) addHeading(text string) {
	text = strings.TrimSpace(text)
	if text != "" {
		x.headings = append(x.headings, text)
	}
}

// themes returns the distinct headings seen, in order of appearance
func (x *extractor) themes() []string {
	seen := make(map[string]bool, len(x.headings))
	var out []string
	for _, h := range x.headings {
		key := strings.ToLower(h)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, h)
		if len(out) == maxThemes {
			break
		}
	}
	return out
}
