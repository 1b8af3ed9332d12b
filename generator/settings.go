package generator

import (
	"context"
	"strings"

	"metagen/llm"
	"metagen/prompt"
	"metagen/utils"
)

// SettingsFunc reads the global settings record. It is called once per
// generation so that edits take effect without a restart.
type SettingsFunc func(ctx context.Context) (*utils.AISettings, error)

// StaticSettings returns a SettingsFunc that always yields a copy of s
func StaticSettings(s utils.AISettings) SettingsFunc {
	return func(context.Context) (*utils.AISettings, error) {
		copied := s
		return &copied, nil
	}
}

// Fallback values for settings left at zero
const (
	defaultAltTagMaxLength      = 125
	defaultTitleMaxLength       = 60
	defaultDescriptionMinLength = 120
	defaultDescriptionMaxLength = 160
	defaultIconMaxLength        = 60
)

// ProviderConfigFrom builds the per-call provider config from settings
func ProviderConfigFrom(s *utils.AISettings) llm.ProviderConfig {
	return llm.ProviderConfig{
		ProviderID:     strings.TrimSpace(s.Provider.ID),
		APIKey:         strings.TrimSpace(s.Provider.APIKey),
		Model:          strings.TrimSpace(s.Provider.Model),
		CustomEndpoint: strings.TrimSpace(s.Provider.CustomEndpoint),
		Temperature:    s.Provider.Temperature,
		MaxTokens:      s.Provider.MaxTokens,
		TimeoutSeconds: s.Provider.TimeoutSeconds,
	}
}

func priorityFrom(s *utils.AISettings) prompt.Priority {
	switch p := prompt.Priority(strings.ToLower(strings.TrimSpace(s.Priority))); p {
	case prompt.PriorityKeywords, prompt.PriorityContent:
		return p
	default:
		return prompt.PriorityBalanced
	}
}

func orDefault(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func primerOr(primer, fallback string) string {
	if strings.TrimSpace(primer) == "" {
		return fallback
	}
	return primer
}
