package prompt

import (
	"fmt"
	"strings"

	"metagen/content"
)

// Trailing instructions demanding a bare answer
const (
	altTagAnswer      = "Respond with only the alt text. Do not wrap it in quotes or add any prefix."
	titleAnswer       = "Respond with only the title. Do not wrap it in quotes or add any prefix."
	descriptionAnswer = "Respond with only the meta description. Do not wrap it in quotes or add any prefix."
	iconAnswer        = "Respond with only the label. Do not wrap it in quotes or add any prefix."
)

// AltTag assembles the instruction for an alt-tag request: primer, length
// constraint, optional page context, trailing instruction
func AltTag(cfg AltTagConfig) string {
	sections := []string{
		strings.TrimSpace(cfg.SystemPrimer),
		fmt.Sprintf("The alt text must be ≤ %d characters.", cfg.MaxLength),
	}

	if cfg.IncludeContext && cfg.Context != nil {
		var lines []string
		if cfg.Context.PageTitle != "" {
			lines = append(lines, "Page title: "+cfg.Context.PageTitle)
		}
		if cfg.Context.Category != "" {
			lines = append(lines, "Category: "+cfg.Context.Category)
		}
		if tags := nonEmpty(cfg.Context.Tags); len(tags) > 0 {
			lines = append(lines, "Tags: "+strings.Join(tags, ", "))
		}
		if len(lines) > 0 {
			sections = append(sections, "Context:\n"+strings.Join(lines, "\n"))
		}
	}

	sections = append(sections, altTagAnswer)
	return join(sections)
}

// SeoTitle assembles the instruction for an SEO title
func SeoTitle(cfg SeoTitleConfig) string {
	return seo(
		cfg.SystemPrimer,
		fmt.Sprintf("The title must be ≤ %d characters.", cfg.MaxLength),
		cfg.Context, cfg.Keywords, cfg.Priority, cfg.Guidance,
		titleAnswer,
	)
}

// SeoDescription assembles the instruction for an SEO meta description
func SeoDescription(cfg SeoDescriptionConfig) string {
	return seo(
		cfg.SystemPrimer,
		fmt.Sprintf("The description must be between %d and %d characters.", cfg.MinLength, cfg.MaxLength),
		cfg.Context, cfg.Keywords, cfg.Priority, cfg.Guidance,
		descriptionAnswer,
	)
}

// IconMetadata assembles the instruction for an icon label
func IconMetadata(cfg IconMetadataConfig) string {
	sections := []string{
		strings.TrimSpace(cfg.SystemPrimer),
		fmt.Sprintf("The label must be ≤ %d characters.", cfg.MaxLength),
	}
	lines := []string{"Icon: " + cfg.IconName}
	if kw := nonEmpty(cfg.Keywords); len(kw) > 0 {
		lines = append(lines, "Keywords: "+strings.Join(kw, ", "))
	}
	if u := strings.TrimSpace(cfg.Usage); u != "" {
		lines = append(lines, "Used for: "+u)
	}
	sections = append(sections, strings.Join(lines, "\n"), iconAnswer)
	return join(sections)
}

// seo lays out an SEO prompt in its fixed order: primer, constraint, context
// lines, guidance, content summary, themes, trailing instruction
func seo(primer, constraint string, ctx content.ContentContext, keywords []string, priority Priority, guidance, answer string) string {
	sections := []string{strings.TrimSpace(primer), constraint}

	if lines := ContextLines(ctx, keywords, priority); len(lines) > 0 {
		sections = append(sections, strings.Join(lines, "\n"))
	}
	if g := strings.TrimSpace(guidance); g != "" {
		sections = append(sections, "Page-specific guidance: "+g)
	}
	if s := strings.TrimSpace(ctx.ContentSummary); s != "" {
		sections = append(sections, "Content summary:\n"+s)
	}
	if themes := nonEmpty(ctx.ExtractedThemes); len(themes) > 0 {
		sections = append(sections, "Key themes: "+strings.Join(themes, ", "))
	}

	sections = append(sections, answer)
	return join(sections)
}

// ContextLines returns the context section of an SEO prompt. With the
// keywords priority the keyword line comes first; otherwise it follows
// title, subtitle and categories.
func ContextLines(ctx content.ContentContext, keywords []string, priority Priority) []string {
	var lines []string
	if ctx.Title != "" {
		lines = append(lines, "Title: "+ctx.Title)
	}
	if ctx.Subtitle != "" {
		lines = append(lines, "Subtitle: "+ctx.Subtitle)
	}
	if cats := nonEmpty(ctx.Categories); len(cats) > 0 {
		lines = append(lines, "Categories: "+strings.Join(cats, ", "))
	}

	kw := nonEmpty(keywords)
	if len(kw) == 0 {
		return lines
	}
	keywordLine := "Target keywords: " + strings.Join(kw, ", ")
	if priority == PriorityKeywords {
		return append([]string{keywordLine}, lines...)
	}
	return append(lines, keywordLine)
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func join(sections []string) string {
	parts := sections[:0:0]
	for _, s := range sections {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}
