// Package content turns page layouts and rich-text trees into bounded plain
// text plus the metadata a prompt needs.
package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Document is a page or post as read from the document store
type Document struct {
	Title           string     `json:"title"`
	Subtitle        string     `json:"subtitle,omitempty"`
	Categories      []any      `json:"categories,omitempty"`
	HeroImage       *Media     `json:"heroImage,omitempty"`
	TableOfContents []TOCEntry `json:"tableOfContents,omitempty"`
	Layout          []Block    `json:"layout,omitempty"`
	Content         *RichText  `json:"content,omitempty"`
}

// Media is an uploaded asset reference. Unpopulated relations (bare ids)
// decode to an empty value.
type Media struct {
	Alt      string `json:"alt,omitempty"`
	URL      string `json:"url,omitempty"`
	Filename string `json:"filename,omitempty"`
}

func (m *Media) UnmarshalJSON(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 || data[0] != '{' {
		*m = Media{}
		return nil
	}
	type plain Media
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*m = Media(p)
	return nil
}

// TOCEntry is one table-of-contents link
type TOCEntry struct {
	Title string `json:"title"`
	Href  string `json:"href"`
}

// ImageRef is the hero image projection kept in a ContentContext
type ImageRef struct {
	Alt string `json:"alt,omitempty"`
	URL string `json:"url,omitempty"`
}

// ContentContext is everything the prompt assembler learns about a document
type ContentContext struct {
	Title           string     `json:"title,omitempty"`
	Subtitle        string     `json:"subtitle,omitempty"`
	Categories      []string   `json:"categories,omitempty"`
	HeroImage       *ImageRef  `json:"heroImage,omitempty"`
	TableOfContents []TOCEntry `json:"tableOfContents,omitempty"`
	ContentSummary  string     `json:"contentSummary,omitempty"`
	ExtractedThemes []string   `json:"extractedThemes,omitempty"`
}

// categoryName reduces a category entry to its display name. Objects yield
// their title (or name), scalars are kept, falsy values are dropped.
func categoryName(v any) (string, bool) {
	switch c := v.(type) {
	case nil:
		return "", false
	case string:
		c = strings.TrimSpace(c)
		return c, c != ""
	case bool:
		if !c {
			return "", false
		}
		return "true", true
	case float64:
		if c == 0 {
			return "", false
		}
		return fmt.Sprint(c), true
	case int:
		if c == 0 {
			return "", false
		}
		return fmt.Sprint(c), true
	case map[string]any:
		for _, key := range []string{"title", "name"} {
			if s, ok := c[key].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s), true
			}
		}
		return "", false
	default:
		return fmt.Sprint(c), true
	}
}
