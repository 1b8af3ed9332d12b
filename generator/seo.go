package generator

import (
	"context"
	"strings"

	"metagen/content"
	"metagen/llm"
	"metagen/prompt"
	"metagen/utils"
)

// SeoRequest asks for a meta title or description for a document
type SeoRequest struct {
	Document *content.Document `json:"document"`
	Keywords []string          `json:"keywords,omitempty"`
	Guidance string            `json:"guidance,omitempty"`
	Actor    string            `json:"actor,omitempty"`
}

// GenerateSeoTitle produces a meta title within the configured maximum,
// brand suffix included
func (g *Generator) GenerateSeoTitle(ctx context.Context, req SeoRequest) GenerationResult {
	keywords := cleanKeywords(req.Keywords)
	out := g.run(ctx, task{
		op:       llm.OpSeoTitle,
		actor:    req.Actor,
		keywords: keywords,
		enabled: func(s *utils.AISettings) bool {
			return s.SeoTitle.Enabled
		},
		invoke: func(ctx context.Context, p llm.Provider, s *utils.AISettings) (*llm.Completion, string, error) {
			maxLength := orDefault(s.SeoTitle.MaxLength, defaultTitleMaxLength)
			// the model only gets the room the suffix leaves
			if room := maxLength - utils.RuneLen(s.SeoTitle.BrandSuffix); s.SeoTitle.BrandSuffix != "" && room > 0 {
				maxLength = room
			}
			instruction := prompt.SeoTitle(prompt.SeoTitleConfig{
				SystemPrimer: primerOr(s.SeoTitle.SystemPrimer, utils.DefaultSeoTitlePrimer),
				MaxLength:    maxLength,
				Keywords:     keywords,
				Priority:     priorityFrom(s),
				Guidance:     req.Guidance,
				Context:      analyze(req.Document, s),
			})
			completion, err := p.GenerateText(ctx, instruction)
			return completion, instruction, err
		},
		finish: func(_ *call, text string, s *utils.AISettings) (string, error) {
			return cleanTitle(text, s.SeoTitle.BrandSuffix, orDefault(s.SeoTitle.MaxLength, defaultTitleMaxLength))
		},
	})
	return toGenerationResult(out)
}

// GenerateSeoDescription produces a meta description. Text shorter than
// the configured minimum is returned with a warning event.
func (g *Generator) GenerateSeoDescription(ctx context.Context, req SeoRequest) GenerationResult {
	keywords := cleanKeywords(req.Keywords)
	out := g.run(ctx, task{
		op:       llm.OpSeoDescription,
		actor:    req.Actor,
		keywords: keywords,
		enabled: func(s *utils.AISettings) bool {
			return s.SeoDescription.Enabled
		},
		invoke: func(ctx context.Context, p llm.Provider, s *utils.AISettings) (*llm.Completion, string, error) {
			minLength, maxLength := descriptionBounds(s)
			instruction := prompt.SeoDescription(prompt.SeoDescriptionConfig{
				SystemPrimer: primerOr(s.SeoDescription.SystemPrimer, utils.DefaultSeoDescriptionPrimer),
				MinLength:    minLength,
				MaxLength:    maxLength,
				Keywords:     keywords,
				Priority:     priorityFrom(s),
				Guidance:     req.Guidance,
				Context:      analyze(req.Document, s),
			})
			completion, err := p.GenerateText(ctx, instruction)
			return completion, instruction, err
		},
		finish: func(c *call, text string, s *utils.AISettings) (string, error) {
			minLength, maxLength := descriptionBounds(s)
			text = utils.CleanGeneratedText(text, nil)
			text = utils.TruncateAtWordBoundary(text, maxLength)
			if text == "" {
				return "", errEmptyAfterCleanup
			}
			if n := utils.RuneLen(text); n < minLength {
				c.warn(StagePostProcess, "description is %d characters, below the minimum of %d", n, minLength)
			}
			return text, nil
		},
	})
	return toGenerationResult(out)
}

func descriptionBounds(s *utils.AISettings) (int, int) {
	maxLength := orDefault(s.SeoDescription.MaxLength, defaultDescriptionMaxLength)
	minLength := orDefault(s.SeoDescription.MinLength, defaultDescriptionMinLength)
	if minLength > maxLength {
		minLength = maxLength
	}
	return minLength, maxLength
}

// analyze turns the document into prompt context using the provider's
// token budget
func analyze(doc *content.Document, s *utils.AISettings) content.ContentContext {
	if doc == nil {
		return content.ContentContext{}
	}
	return content.Analyze(doc, s.Provider.MaxTokens)
}

// cleanTitle unquotes and capitalizes the answer, drops a brand suffix the
// model added itself, then appends the configured one within maxLength
func cleanTitle(text, brandSuffix string, maxLength int) (string, error) {
	text = utils.CleanGeneratedText(text, nil)
	text = utils.StripTrailingPeriods(text)
	if brand := strings.TrimSpace(brandSuffix); brand != "" {
		text = strings.TrimSpace(strings.TrimSuffix(text, brand))
		text = strings.TrimRight(text, " |-–—:")
	}
	if text == "" {
		return "", errEmptyAfterCleanup
	}
	return utils.AppendSuffix(text, brandSuffix, maxLength), nil
}

func cleanKeywords(keywords []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		key := strings.ToLower(kw)
		if kw == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, kw)
	}
	return out
}

func toGenerationResult(out outcome) GenerationResult {
	if out.err != nil {
		return GenerationResult{Error: out.err.Error(), Metadata: out.meta}
	}
	return GenerationResult{Text: out.text, Success: true, Metadata: out.meta}
}
