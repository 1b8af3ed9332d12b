package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
)

// postJSON sends body as JSON to url and decodes a 2xx response into out.
// Non-2xx responses become BackendErrors carrying the parsed error message;
// undecodable bodies become ParseErrors.
func (b *baseProvider) postJSON(ctx context.Context, url string, headers map[string]string, body, out interface{}) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := b.opts.httpClient.Do(httpReq)
	if err != nil {
		return b.transportError(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return b.transportError(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &BackendError{
			Provider:   b.config.ProviderID,
			StatusCode: resp.StatusCode,
			Message:    errorMessageFromBody(data),
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &ParseError{Provider: b.config.ProviderID, Message: "failed to decode response", Err: err}
	}
	return nil
}

// maxFetchedImageSize caps remote images downloaded for inline upload
const maxFetchedImageSize = 10 * 1024 * 1024

// fetchImage downloads a remote image for backends that only accept inline data
func (b *baseProvider) fetchImage(ctx context.Context, imageURL string) (mimeType string, data []byte, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create image request: %w", err)
	}
	resp, err := b.opts.httpClient.Do(req)
	if err != nil {
		return "", nil, b.transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, &BackendError{
			Provider:   b.config.ProviderID,
			StatusCode: resp.StatusCode,
			Message:    "failed to fetch image " + imageURL,
		}
	}

	data, err = io.ReadAll(io.LimitReader(resp.Body, maxFetchedImageSize+1))
	if err != nil {
		return "", nil, b.transportError(ctx, err)
	}
	if len(data) > maxFetchedImageSize {
		return "", nil, &BackendError{
			Provider: b.config.ProviderID,
			Message:  fmt.Sprintf("image %s is larger than %d bytes", imageURL, maxFetchedImageSize),
		}
	}

	mimeType = resp.Header.Get("Content-Type")
	if mimeType == "" || !strings.HasPrefix(mimeType, "image/") {
		mimeType = guessImageMime(imageURL)
	}
	return mimeType, data, nil
}

// inlineImage resolves imageURL to (mime type, base64 payload), downloading
// remote images when needed
func (b *baseProvider) inlineImage(ctx context.Context, imageURL string) (string, string, error) {
	if mimeType, payload, ok := parseDataURL(imageURL); ok {
		return mimeType, payload, nil
	}
	mimeType, data, err := b.fetchImage(ctx, imageURL)
	if err != nil {
		return "", "", err
	}
	return mimeType, base64.StdEncoding.EncodeToString(data), nil
}

// parseDataURL splits a base64 data URL into its mime type and payload
func parseDataURL(u string) (mimeType, payload string, ok bool) {
	if !strings.HasPrefix(u, "data:") {
		return "", "", false
	}
	header, data, found := strings.Cut(strings.TrimPrefix(u, "data:"), ",")
	if !found || !strings.HasSuffix(header, ";base64") {
		return "", "", false
	}
	return strings.TrimSuffix(header, ";base64"), data, true
}

// guessImageMime picks a mime type from the URL's file extension
func guessImageMime(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	if t := mime.TypeByExtension(strings.ToLower(path.Ext(u))); strings.HasPrefix(t, "image/") {
		return t
	}
	return "image/jpeg"
}
