package generator

import (
	"context"
	"strings"

	"metagen/llm"
	"metagen/prompt"
	"metagen/utils"
)

// AltTagRequest asks for alt text for one image
type AltTagRequest struct {
	// ImageURL is a remote URL, a data URL or a local file path
	ImageURL string `json:"imageUrl"`
	// Filename feeds the fallback; derived from ImageURL when empty
	Filename string              `json:"filename,omitempty"`
	Context  *prompt.PageContext `json:"context,omitempty"`
	Actor    string              `json:"actor,omitempty"`
}

// GenerateAltTag produces alt text for an image. It never fails outright:
// when generation is disabled, misconfigured or fails, the Fallback
// Controller substitutes a filename-derived text or "".
func (g *Generator) GenerateAltTag(ctx context.Context, req AltTagRequest) AltTagResult {
	out := g.run(ctx, g.altTagTask(req))
	if out.err == nil {
		return AltTagResult{AltText: out.text, Success: true, Metadata: out.meta}
	}
	return g.fallback(req, out)
}

func (g *Generator) altTagTask(req AltTagRequest) task {
	return task{
		op:    llm.OpAltTag,
		actor: req.Actor,
		enabled: func(s *utils.AISettings) bool {
			return s.AltTag.Enabled
		},
		invoke: func(ctx context.Context, p llm.Provider, s *utils.AISettings) (*llm.Completion, string, error) {
			input := auditImageRef(req.ImageURL)
			if req.Context != nil && req.Context.PageTitle != "" {
				input += "\nPage title: " + req.Context.PageTitle
			}

			if !g.localImages && !utils.IsRemoteImage(strings.TrimSpace(req.ImageURL)) {
				return nil, input, &llm.ConfigurationError{Provider: p.Name(), Message: "image must be an http(s) or data URL"}
			}

			imageURL, err := utils.ResolveImageURL(req.ImageURL)
			if err != nil {
				return nil, input, &llm.BackendError{Provider: p.Name(), Message: "failed to load image: " + err.Error(), Err: err}
			}

			completion, err := p.GenerateAltTag(ctx, imageURL, altTagConfig(s, req.Context))
			return completion, input, err
		},
		finish: func(_ *call, text string, s *utils.AISettings) (string, error) {
			return cleanAltText(text, orDefault(s.AltTag.MaxLength, defaultAltTagMaxLength))
		},
	}
}

func altTagConfig(s *utils.AISettings, pageCtx *prompt.PageContext) prompt.AltTagConfig {
	detail := strings.ToLower(strings.TrimSpace(s.AltTag.Detail))
	switch detail {
	case prompt.DetailLow, prompt.DetailHigh, prompt.DetailAuto:
	default:
		detail = prompt.DetailLow
	}
	return prompt.AltTagConfig{
		SystemPrimer:   primerOr(s.AltTag.SystemPrimer, utils.DefaultAltTagPrimer),
		MaxLength:      orDefault(s.AltTag.MaxLength, defaultAltTagMaxLength),
		IncludeContext: s.AltTag.IncludeContext,
		Context:        pageCtx,
		Detail:         detail,
	}
}

// cleanAltText strips lead-in phrases and quotes, capitalizes, drops
// trailing periods and enforces maxLength
func cleanAltText(text string, maxLength int) (string, error) {
	text = utils.StripLeadInPhrases(text, utils.DefaultLeadInPhrases)
	text = utils.StripWrappingQuotes(text)
	text = utils.StripLeadInPhrases(text, utils.DefaultLeadInPhrases)
	text = utils.CapitalizeFirst(text)
	text = utils.StripTrailingPeriods(text)
	text = utils.TruncateAtWordBoundary(text, maxLength)
	if strings.TrimSpace(text) == "" {
		return "", errEmptyAfterCleanup
	}
	return text, nil
}

// auditImageRef keeps data URLs out of audit excerpts
func auditImageRef(ref string) string {
	if strings.HasPrefix(strings.ToLower(ref), "data:") {
		mimeType, _, _ := strings.Cut(strings.TrimPrefix(ref, "data:"), ";")
		return "inline image (" + mimeType + ")"
	}
	return ref
}
