package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ConfigurationError reports settings that can never succeed as given:
// an unknown or unimplemented provider, or a config that fails validation.
// It is never retried.
type ConfigurationError struct {
	Provider string
	Message  string
}

func (e *ConfigurationError) Error() string {
	if e.Provider == "" {
		return "configuration error: " + e.Message
	}
	return fmt.Sprintf("configuration error (%s): %s", e.Provider, e.Message)
}

// BackendError covers transport failures, timeouts, non-2xx responses and
// empty content returned by a backend.
type BackendError struct {
	Provider   string
	StatusCode int
	Message    string
	Timeout    bool
	Err        error
}

func (e *BackendError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// ParseError reports a backend response that is missing expected fields or
// cannot be decoded. Callers treat it the same as a BackendError.
type ParseError struct {
	Provider string
	Message  string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// maxErrorBodyLength caps how much of an unparseable error body ends up in a message
const maxErrorBodyLength = 300

// errorMessageFromBody extracts a readable message from an error response body.
// It understands the common shapes {"error":{"message":..}}, {"error":".."}
// and {"message":..}, and falls back to the raw (trimmed) body.
func errorMessageFromBody(body []byte) string {
	var payload struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if len(payload.Error) > 0 {
			var nested struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(payload.Error, &nested); err == nil && nested.Message != "" {
				return nested.Message
			}
			var flat string
			if err := json.Unmarshal(payload.Error, &flat); err == nil && flat != "" {
				return flat
			}
		}
		if payload.Message != "" {
			return payload.Message
		}
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return "empty error response"
	}
	if runes := []rune(text); len(runes) > maxErrorBodyLength {
		text = string(runes[:maxErrorBodyLength]) + "..."
	}
	return text
}
