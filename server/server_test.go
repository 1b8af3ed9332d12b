package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"metagen/db"
	"metagen/generator"
	"metagen/llm"
	"metagen/prompt"
	"metagen/utils"
)

// echoProvider answers alt-tag requests with a fixed text and text
// requests with a label
type echoProvider struct{}

func (echoProvider) Name() string { return "echo" }

func (echoProvider) GenerateAltTag(context.Context, string, prompt.AltTagConfig) (*llm.Completion, error) {
	return &llm.Completion{Text: "A lighthouse on a rocky coast", Model: "echo-1", TokensUsed: 50}, nil
}

func (echoProvider) GenerateText(context.Context, string) (*llm.Completion, error) {
	return &llm.Completion{Text: "Coastal Lighthouses of Maine", Model: "echo-1", TokensUsed: 30}, nil
}

func (echoProvider) ValidateConfig(llm.ProviderConfig) error { return nil }

func (echoProvider) EstimateCost(_ llm.OperationKind, tokens int) float64 {
	return float64(tokens) * 0.000001
}

func newTestGenerator(store generator.AuditStore) *generator.Generator {
	registry := llm.NewRegistry()
	registry.Register("echo", func(llm.ProviderConfig, ...llm.Option) (llm.Provider, error) {
		return echoProvider{}, nil
	})

	settings := utils.DefaultConfig().AI
	settings.Provider.ID = "echo"
	settings.Provider.APIKey = "test"

	opts := []generator.Option{generator.WithRegistry(registry)}
	if store != nil {
		opts = append(opts, generator.WithAuditStore(store))
	}
	return generator.New(generator.StaticSettings(settings), opts...)
}

func newTestServer(t *testing.T) (*Server, *db.DB) {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := utils.ServerConfig{Mode: "test"}
	return New(cfg, newTestGenerator(database), database, nil), database
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/health", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("Expected a request id header")
	}

	w = doJSON(t, s, http.MethodGet, "/health", nil, map[string]string{RequestIDHeader: "abc-123"})
	if got := w.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("Expected the caller's request id, got %q", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	doJSON(t, s, http.MethodGet, "/health", nil, nil)

	w := doJSON(t, s, http.MethodGet, "/metrics", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "metagen_http_requests_total") {
		t.Error("Expected HTTP request metrics")
	}
}

func TestAltTag_RequiresImageURL(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/alt-tag", map[string]string{"filename": "a.jpg"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}

	w = doJSON(t, s, http.MethodPost, "/api/v1/alt-tag", "{not json", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed JSON, got %d", w.Code)
	}
}

func TestAltTag_RejectsLocalPaths(t *testing.T) {
	s, database := newTestServer(t)

	for _, ref := range []string{"/etc/passwd", "file:///etc/passwd", "../uploads/scan.png"} {
		w := doJSON(t, s, http.MethodPost, "/api/v1/alt-tag", map[string]string{"imageUrl": ref}, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", ref, w.Code)
		}
		if !strings.Contains(w.Body.String(), "http(s) or data URL") {
			t.Errorf("%s: unexpected error body %s", ref, w.Body.String())
		}
	}

	entries, err := database.ListAuditEntries(db.AuditFilter{})
	if err != nil {
		t.Fatalf("ListAuditEntries failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Rejected requests should not be audited, got %+v", entries)
	}
}

func TestAltTag_Success(t *testing.T) {
	s, database := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/alt-tag",
		map[string]string{"imageUrl": "https://cdn.example.com/lighthouse.jpg"},
		map[string]string{ActorHeader: "editor"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var result generator.AltTagResult
	decode(t, w, &result)
	if !result.Success || result.AltText != "A lighthouse on a rocky coast" {
		t.Errorf("Unexpected result: %+v", result)
	}

	entries, err := database.ListAuditEntries(db.AuditFilter{})
	if err != nil {
		t.Fatalf("ListAuditEntries failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Actor != "editor" {
		t.Errorf("Expected one audit entry for editor, got %+v", entries)
	}
}

func TestAltTagBatch(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/alt-tag/batch", map[string]interface{}{
		"items": []map[string]string{
			{"imageUrl": "https://cdn.example.com/a.jpg"},
			{"imageUrl": "https://cdn.example.com/b.jpg"},
		},
		"concurrency": 2,
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp batchResponse
	decode(t, w, &resp)
	if len(resp.Results) != 2 || resp.Succeeded != 2 || resp.Failed != 0 {
		t.Errorf("Unexpected batch response: %+v", resp)
	}
}

func TestAltTagBatch_Limits(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/alt-tag/batch", map[string]interface{}{"items": []interface{}{}}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty batch, got %d", w.Code)
	}

	items := make([]map[string]string, maxBatchSize+1)
	for i := range items {
		items[i] = map[string]string{"imageUrl": "https://cdn.example.com/x.jpg"}
	}
	w = doJSON(t, s, http.MethodPost, "/api/v1/alt-tag/batch", map[string]interface{}{"items": items}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for oversized batch, got %d", w.Code)
	}
}

func TestAltTagBatch_RejectsLocalPaths(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/alt-tag/batch", map[string]interface{}{
		"items": []map[string]string{
			{"imageUrl": "https://cdn.example.com/a.jpg"},
			{"imageUrl": "/var/lib/metagen/metagen.db"},
		},
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "items[1]") {
		t.Errorf("Expected the offending item to be named, got %s", w.Body.String())
	}
}

func TestSeoTitle(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/seo/title", map[string]interface{}{
		"document": map[string]interface{}{"title": "Lighthouses"},
		"keywords": []string{"maine lighthouses"},
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var result generator.GenerationResult
	decode(t, w, &result)
	if !result.Success || result.Text != "Coastal Lighthouses of Maine" {
		t.Errorf("Unexpected result: %+v", result)
	}
	if result.Metadata == nil || len(result.Metadata.KeywordsUsed) != 1 {
		t.Errorf("Expected keywords in metadata, got %+v", result.Metadata)
	}
}

func TestIcon_RequiresName(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/v1/icon", map[string]string{"usage": "toolbar"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

func TestAuditRoutes_WithoutStore(t *testing.T) {
	s := New(utils.ServerConfig{Mode: "test"}, newTestGenerator(nil), nil, nil)

	for _, path := range []string{"/api/v1/audit", "/api/v1/audit/search?q=x", "/api/v1/usage"} {
		w := doJSON(t, s, http.MethodGet, path, nil, nil)
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: expected 503, got %d", path, w.Code)
		}
	}
}

func TestListAudit(t *testing.T) {
	s, _ := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/api/v1/alt-tag", map[string]string{"imageUrl": "https://cdn.example.com/a.jpg"}, nil)
	doJSON(t, s, http.MethodPost, "/api/v1/icon", map[string]string{"iconName": "download"}, nil)

	w := doJSON(t, s, http.MethodGet, "/api/v1/audit?operation=alt_tag", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var resp struct {
		Entries []*db.AuditEntry `json:"entries"`
	}
	decode(t, w, &resp)
	if len(resp.Entries) != 1 || resp.Entries[0].Operation != "alt_tag" {
		t.Errorf("Expected one alt_tag entry, got %+v", resp.Entries)
	}

	w = doJSON(t, s, http.MethodGet, "/api/v1/audit?success=maybe", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad success filter, got %d", w.Code)
	}
}

func TestSearchAudit(t *testing.T) {
	s, _ := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/api/v1/alt-tag", map[string]string{"imageUrl": "https://cdn.example.com/a.jpg"}, nil)

	w := doJSON(t, s, http.MethodGet, "/api/v1/audit/search", nil, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without q, got %d", w.Code)
	}

	w = doJSON(t, s, http.MethodGet, "/api/v1/audit/search?q=lighthouse", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var resp struct {
		Results []struct {
			Entry *db.AuditEntry `json:"entry"`
		} `json:"results"`
	}
	decode(t, w, &resp)
	if len(resp.Results) != 1 {
		t.Errorf("Expected one hit, got %d", len(resp.Results))
	}
}

func TestUsage(t *testing.T) {
	s, _ := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/api/v1/alt-tag", map[string]string{"imageUrl": "https://cdn.example.com/a.jpg"}, nil)
	doJSON(t, s, http.MethodPost, "/api/v1/seo/title", map[string]interface{}{}, nil)

	w := doJSON(t, s, http.MethodGet, "/api/v1/usage?days=7", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var stats db.UsageStats
	decode(t, w, &stats)
	if stats.TotalRequests != 2 || stats.TotalTokens != 80 {
		t.Errorf("Expected 2 requests and 80 tokens, got %d/%d", stats.TotalRequests, stats.TotalTokens)
	}
}
