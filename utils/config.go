package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding config keys,
// e.g. METAGEN_AI_PROVIDER_API_KEY for ai.provider.api_key
const EnvPrefix = "METAGEN"

// Config represents the application configuration
type Config struct {
	AI      AISettings    `json:"ai" mapstructure:"ai"`
	Data    DataConfig    `json:"data" mapstructure:"data"`
	Server  ServerConfig  `json:"server" mapstructure:"server"`
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// AISettings is the global settings record read on every generation call
type AISettings struct {
	Provider       ProviderSettings       `json:"provider" mapstructure:"provider"`
	AltTag         AltTagSettings         `json:"alt_tag" mapstructure:"alt_tag"`
	SeoTitle       SeoTitleSettings       `json:"seo_title" mapstructure:"seo_title"`
	SeoDescription SeoDescriptionSettings `json:"seo_description" mapstructure:"seo_description"`
	Icon           IconSettings           `json:"icon" mapstructure:"icon"`
	// Priority is "keywords", "content" or "balanced"
	Priority string        `json:"priority" mapstructure:"priority"`
	Audit    AuditSettings `json:"audit" mapstructure:"audit"`
}

// ProviderSettings selects and configures the backend
type ProviderSettings struct {
	ID             string  `json:"id" mapstructure:"id"`
	APIKey         string  `json:"api_key" mapstructure:"api_key"`
	Model          string  `json:"model" mapstructure:"model"`
	CustomEndpoint string  `json:"custom_endpoint,omitempty" mapstructure:"custom_endpoint"`
	Temperature    float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens      int     `json:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSeconds int     `json:"timeout_seconds" mapstructure:"timeout_seconds"`
}

// AltTagSettings configures alt text generation
type AltTagSettings struct {
	Enabled            bool   `json:"enabled" mapstructure:"enabled"`
	SystemPrimer       string `json:"system_primer" mapstructure:"system_primer"`
	MaxLength          int    `json:"max_length" mapstructure:"max_length"`
	IncludeContext     bool   `json:"include_context" mapstructure:"include_context"`
	FallbackToFilename bool   `json:"fallback_to_filename" mapstructure:"fallback_to_filename"`
	Detail             string `json:"detail" mapstructure:"detail"`
}

// SeoTitleSettings configures meta title generation
type SeoTitleSettings struct {
	Enabled      bool   `json:"enabled" mapstructure:"enabled"`
	SystemPrimer string `json:"system_primer" mapstructure:"system_primer"`
	MaxLength    int    `json:"max_length" mapstructure:"max_length"`
	BrandSuffix  string `json:"brand_suffix,omitempty" mapstructure:"brand_suffix"`
}

// SeoDescriptionSettings configures meta description generation
type SeoDescriptionSettings struct {
	Enabled      bool   `json:"enabled" mapstructure:"enabled"`
	SystemPrimer string `json:"system_primer" mapstructure:"system_primer"`
	MinLength    int    `json:"min_length" mapstructure:"min_length"`
	MaxLength    int    `json:"max_length" mapstructure:"max_length"`
}

// IconSettings configures icon label generation
type IconSettings struct {
	Enabled      bool   `json:"enabled" mapstructure:"enabled"`
	SystemPrimer string `json:"system_primer" mapstructure:"system_primer"`
	MaxLength    int    `json:"max_length" mapstructure:"max_length"`
}

// AuditSettings decides which generations are written to the audit log
type AuditSettings struct {
	Enabled     bool `json:"enabled" mapstructure:"enabled"`
	LogFailures bool `json:"log_failures" mapstructure:"log_failures"`
}

// DataConfig represents data storage configuration
type DataConfig struct {
	DBPath        string `json:"db_path" mapstructure:"db_path"`
	RetentionDays int    `json:"retention_days" mapstructure:"retention_days"`
}

// ServerConfig represents the HTTP API configuration
type ServerConfig struct {
	Addr string `json:"addr" mapstructure:"addr"`
	// Mode is the gin mode: debug, release or test
	Mode string `json:"mode" mapstructure:"mode"`
}

// LoggingConfig represents logger configuration
type LoggingConfig struct {
	Path  string `json:"path,omitempty" mapstructure:"path"`
	Level string `json:"level" mapstructure:"level"`
}

// Default system primers
const (
	DefaultAltTagPrimer = "You write concise, descriptive alt text for images on a website. " +
		"Describe what is visually important for someone who cannot see the image. " +
		"Do not start with phrases like \"image of\" or \"picture of\"."
	DefaultSeoTitlePrimer = "You write SEO meta titles for web pages. " +
		"The title should be compelling, accurate and include the most important keywords naturally."
	DefaultSeoDescriptionPrimer = "You write SEO meta descriptions for web pages. " +
		"Summarize the page in an engaging way that encourages clicks from search results."
	DefaultIconPrimer = "You write short accessible labels for user interface icons. " +
		"The label is read by screen readers and must say what the icon does, not what it looks like."
)

// DefaultConfig returns the configuration used when no file exists
func DefaultConfig() *Config {
	return &Config{
		AI: AISettings{
			Provider: ProviderSettings{
				ID:             "openai",
				Model:          "gpt-4o-mini",
				Temperature:    0.3,
				MaxTokens:      300,
				TimeoutSeconds: 30,
			},
			AltTag: AltTagSettings{
				Enabled:            true,
				SystemPrimer:       DefaultAltTagPrimer,
				MaxLength:          125,
				IncludeContext:     true,
				FallbackToFilename: true,
				Detail:             "low",
			},
			SeoTitle: SeoTitleSettings{
				Enabled:      true,
				SystemPrimer: DefaultSeoTitlePrimer,
				MaxLength:    60,
			},
			SeoDescription: SeoDescriptionSettings{
				Enabled:      true,
				SystemPrimer: DefaultSeoDescriptionPrimer,
				MinLength:    120,
				MaxLength:    160,
			},
			Icon: IconSettings{
				Enabled:      true,
				SystemPrimer: DefaultIconPrimer,
				MaxLength:    60,
			},
			Priority: "balanced",
			Audit: AuditSettings{
				Enabled:     true,
				LogFailures: true,
			},
		},
		Data: DataConfig{
			DBPath:        "./data/metagen.db",
			RetentionDays: 90,
		},
		Server: ServerConfig{
			Addr: ":8080",
			Mode: "release",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from a JSON file, then applies METAGEN_*
// environment overrides. Keys missing from the file keep their defaults.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v, DefaultConfig())

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := v.ReadConfig(strings.NewReader(string(data))); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Expand paths
	if config.Data.DBPath != "" {
		config.Data.DBPath = expandPath(config.Data.DBPath)
	}
	if config.Logging.Path != "" {
		config.Logging.Path = expandPath(config.Logging.Path)
	}

	return &config, nil
}

// setDefaults registers every key of defaults with viper so that
// AutomaticEnv can override keys absent from the file
func setDefaults(v *viper.Viper, defaults *Config) {
	data, err := json.Marshal(defaults)
	if err != nil {
		return
	}
	var tree map[string]interface{}
	if err := json.Unmarshal(data, &tree); err != nil {
		return
	}
	setDefaultTree(v, "", tree)

	// omitempty fields never reach the tree but still need an env binding
	for _, key := range []string{"ai.provider.custom_endpoint", "ai.seo_title.brand_suffix", "logging.path"} {
		_ = v.BindEnv(key)
	}
}

func setDefaultTree(v *viper.Viper, prefix string, tree map[string]interface{}) {
	for key, value := range tree {
		if prefix != "" {
			key = prefix + "." + key
		}
		if sub, ok := value.(map[string]interface{}); ok {
			setDefaultTree(v, key, sub)
			continue
		}
		v.SetDefault(key, value)
	}
}

// SaveConfig saves configuration to file
func SaveConfig(configPath string, config *Config) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Ensure directory exists
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// expandPath expands ~ and relative paths
func expandPath(path string) string {
	if len(path) == 0 {
		return path
	}

	// Expand ~
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[1:])
		}
	}

	// Make absolute
	absPath, err := filepath.Abs(path)
	if err == nil {
		return absPath
	}

	return path
}

// GetConfigPath returns the default config path
func GetConfigPath() string {
	// Try to get user config directory
	configDir, err := os.UserConfigDir()
	if err != nil {
		// Fallback to current directory
		return "./config/default.json"
	}

	return filepath.Join(configDir, "metagen", "config.json")
}

// EnsureDefaultConfig creates a default config file at configPath if it
// doesn't exist. An empty configPath selects GetConfigPath().
func EnsureDefaultConfig(configPath string) (string, error) {
	if configPath == "" {
		configPath = GetConfigPath()
	}

	// Check if config exists
	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	}

	if err := SaveConfig(configPath, DefaultConfig()); err != nil {
		return "", err
	}

	return configPath, nil
}
