package generator

import (
	"context"
	"strings"

	"metagen/llm"
	"metagen/prompt"
	"metagen/utils"
)

// IconRequest asks for an accessible label for a UI icon
type IconRequest struct {
	IconName string   `json:"iconName"`
	Keywords []string `json:"keywords,omitempty"`
	Usage    string   `json:"usage,omitempty"`
	Actor    string   `json:"actor,omitempty"`
}

// GenerateIconMetadata produces a short screen-reader label for an icon
func (g *Generator) GenerateIconMetadata(ctx context.Context, req IconRequest) GenerationResult {
	if strings.TrimSpace(req.IconName) == "" {
		return GenerationResult{Error: (&llm.ConfigurationError{Message: "icon name is required"}).Error()}
	}

	keywords := cleanKeywords(req.Keywords)
	out := g.run(ctx, task{
		op:       llm.OpIconMetadata,
		actor:    req.Actor,
		keywords: keywords,
		enabled: func(s *utils.AISettings) bool {
			return s.Icon.Enabled
		},
		invoke: func(ctx context.Context, p llm.Provider, s *utils.AISettings) (*llm.Completion, string, error) {
			instruction := prompt.IconMetadata(prompt.IconMetadataConfig{
				SystemPrimer: primerOr(s.Icon.SystemPrimer, utils.DefaultIconPrimer),
				MaxLength:    orDefault(s.Icon.MaxLength, defaultIconMaxLength),
				IconName:     strings.TrimSpace(req.IconName),
				Keywords:     keywords,
				Usage:        req.Usage,
			})
			completion, err := p.GenerateText(ctx, instruction)
			return completion, instruction, err
		},
		finish: func(_ *call, text string, s *utils.AISettings) (string, error) {
			return cleanAltText(text, orDefault(s.Icon.MaxLength, defaultIconMaxLength))
		},
	})
	return toGenerationResult(out)
}
