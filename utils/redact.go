package utils

import (
	"regexp"
	"strings"
)

// redactionPattern replaces every match of Regex with Replacement
type redactionPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
}

// Patterns are applied in order: tokens before the generic key rule so a
// bearer JWT is reported as a bearer token
var redactionPatterns = []redactionPattern{
	{
		Name:        "Bearer Token",
		Regex:       regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9_\-\.]{20,}`),
		Replacement: "Bearer [REDACTED_TOKEN]",
	},
	{
		Name:        "JWT Token",
		Regex:       regexp.MustCompile(`eyJ[a-zA-Z0-9_\-]+\.eyJ[a-zA-Z0-9_\-]+\.[a-zA-Z0-9_\-]+`),
		Replacement: "[REDACTED_JWT]",
	},
	{
		Name:        "OpenAI Key",
		Regex:       regexp.MustCompile(`\bsk-[a-zA-Z0-9_\-]{16,}`),
		Replacement: "[REDACTED_API_KEY]",
	},
	{
		Name:        "API Key",
		Regex:       regexp.MustCompile(`(?i)(api[_-]?key|apikey|access[_-]?key|secret[_-]?key)([\s:="']+)[a-zA-Z0-9_\-]{20,}`),
		Replacement: "${1}${2}[REDACTED_API_KEY]",
	},
	{
		Name:        "URL with Auth",
		Regex:       regexp.MustCompile(`(https?://)[^:/\s]+:[^@/\s]+@`),
		Replacement: "${1}[REDACTED_AUTH]@",
	},
	{
		Name:        "Email",
		Regex:       regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`),
		Replacement: "[REDACTED_EMAIL]",
	},
}

// Redact masks credentials and email addresses in text. It is one-way:
// audit excerpts never need the original back.
func Redact(text string) string {
	if text == "" {
		return text
	}
	for _, p := range redactionPatterns {
		text = p.Regex.ReplaceAllString(text, p.Replacement)
	}
	return text
}

// Excerpt redacts text and caps it at maxLength characters
func Excerpt(text string, maxLength int) string {
	text = strings.TrimSpace(Redact(text))
	return TruncateAtWordBoundary(text, maxLength)
}
