package content

import (
	"bytes"
	"encoding/json"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// block extracts one block, never failing: payloads that do not decode
// contribute nothing. Unknown block types go through genericBlock.
func (x *extractor) block(b Block) string {
	var text string
	switch b.BlockType {
	case "hero":
		text = heroBlock(x, b)
	case "content":
		text = contentBlock(x, b)
	case "cta", "callToAction":
		text = ctaBlock(x, b)
	case "featureCards", "cardGrid":
		text = cardsBlock(x, b)
	case "accordion", "faq":
		text = accordionBlock(x, b)
	case "markdown":
		text = markdownBlock(x, b)
	case "html", "embed":
		text = htmlBlock(x, b)
	default:
		text = genericBlock(x, b)
	}
	return strings.TrimSpace(text)
}

type linkField struct {
	Link struct {
		Label string `json:"label"`
	} `json:"link"`
}

func heroBlock(x *extractor, b Block) string {
	var hero struct {
		RichText *RichText `json:"richText"`
	}
	if err := b.Decode(&hero); err != nil || hero.RichText == nil {
		return ""
	}
	return x.tree(hero.RichText.Root)
}

func contentBlock(x *extractor, b Block) string {
	var payload struct {
		Columns []struct {
			RichText *RichText `json:"richText"`
		} `json:"columns"`
	}
	if err := b.Decode(&payload); err != nil {
		return ""
	}
	var parts []string
	for _, col := range payload.Columns {
		if col.RichText == nil {
			continue
		}
		if t := x.tree(col.RichText.Root); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}

func ctaBlock(x *extractor, b Block) string {
	var cta struct {
		RichText *RichText  `json:"richText"`
		Links    []linkField `json:"links"`
	}
	if err := b.Decode(&cta); err != nil {
		return ""
	}
	var lines []string
	if cta.RichText != nil {
		if t := x.tree(cta.RichText.Root); t != "" {
			lines = append(lines, t)
		}
	}
	for _, l := range cta.Links {
		if label := strings.TrimSpace(l.Link.Label); label != "" {
			lines = append(lines, label)
		}
	}
	return strings.Join(lines, "\n")
}

func cardsBlock(x *extractor, b Block) string {
	var payload struct {
		Heading string `json:"heading"`
		Cards   []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Text        string `json:"text"`
		} `json:"cards"`
	}
	if err := b.Decode(&payload); err != nil {
		return ""
	}
	var lines []string
	if h := strings.TrimSpace(payload.Heading); h != "" {
		x.addHeading(h)
		lines = append(lines, h)
	}
	for _, card := range payload.Cards {
		desc := card.Description
		if desc == "" {
			desc = card.Text
		}
		switch {
		case card.Title != "" && desc != "":
			lines = append(lines, card.Title+": "+desc)
		case card.Title != "":
			lines = append(lines, card.Title)
		case desc != "":
			lines = append(lines, desc)
		}
	}
	return strings.Join(lines, "\n")
}

func accordionBlock(x *extractor, b Block) string {
	var payload struct {
		Heading string `json:"heading"`
		Items   []struct {
			Question string    `json:"question"`
			Answer   *RichText `json:"answer"`
		} `json:"items"`
	}
	if err := b.Decode(&payload); err != nil {
		return ""
	}
	var lines []string
	if h := strings.TrimSpace(payload.Heading); h != "" {
		x.addHeading(h)
		lines = append(lines, h)
	}
	for _, item := range payload.Items {
		if q := strings.TrimSpace(item.Question); q != "" {
			lines = append(lines, "Q: "+q)
		}
		if item.Answer != nil {
			if a := x.tree(item.Answer.Root); a != "" {
				lines = append(lines, "A: "+a)
			}
		}
	}
	return strings.Join(lines, "\n")
}

// markdownBlock renders the text content of a markdown body, one line per
// paragraph, heading or list item
func markdownBlock(x *extractor, b Block) string {
	var payload struct {
		Markdown string `json:"markdown"`
	}
	if err := b.Decode(&payload); err != nil || strings.TrimSpace(payload.Markdown) == "" {
		return ""
	}

	src := []byte(payload.Markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var lines []string
	var current strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				current.Write(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					current.WriteByte(' ')
				}
			}
		case *ast.Paragraph, *ast.TextBlock, *ast.Heading:
			if entering {
				break
			}
			line := strings.TrimSpace(current.String())
			current.Reset()
			if line == "" {
				break
			}
			if _, ok := node.(*ast.Heading); ok {
				x.addHeading(line)
			}
			lines = append(lines, line)
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(lines, "\n")
}

// htmlPolicy removes scripts, styles and other unsafe markup from embeds
// before their text is read
var htmlPolicy = bluemonday.UGCPolicy()

// inlinePolicy drops every tag from rich-text leaves pasted with markup
var inlinePolicy = bluemonday.StrictPolicy()

// leafText returns a text leaf without inline markup
func leafText(s string) string {
	if !strings.ContainsRune(s, '<') {
		return s
	}
	return html.UnescapeString(inlinePolicy.Sanitize(s))
}

func htmlBlock(_ *extractor, b Block) string {
	var payload struct {
		HTML string `json:"html"`
	}
	if err := b.Decode(&payload); err != nil || strings.TrimSpace(payload.HTML) == "" {
		return ""
	}
	clean := htmlPolicy.Sanitize(payload.HTML)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(clean))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// genericBlock handles unknown block types by reading plain heading/text
// fields when present
func genericBlock(x *extractor, b Block) string {
	var fields map[string]json.RawMessage
	if err := b.Decode(&fields); err != nil {
		return ""
	}
	var lines []string
	if h, ok := stringField(fields, "heading"); ok {
		x.addHeading(h)
		lines = append(lines, h)
	}
	if t, ok := stringField(fields, "text"); ok {
		lines = append(lines, t)
	}
	return strings.Join(lines, "\n")
}

func stringField(fields map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := fields[key]
	if !ok || !bytes.HasPrefix(bytes.TrimSpace(raw), []byte(`"`)) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}
