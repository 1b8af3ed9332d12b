package generator

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"metagen/db"
	"metagen/llm"
	"metagen/prompt"
	"metagen/utils"
)

// fakeProvider answers every call with text, or err when set
type fakeProvider struct {
	mu           sync.Mutex
	text         string
	err          error
	validateErr  error
	tokens       int
	calls        int32
	instructions []string
	images       []string
	altConfigs   []prompt.AltTagConfig
	answer       func(imageURL string) (string, error)
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) GenerateAltTag(_ context.Context, imageURL string, cfg prompt.AltTagConfig) (*llm.Completion, error) {
	atomic.AddInt32(&p.calls, 1)
	p.mu.Lock()
	p.images = append(p.images, imageURL)
	p.altConfigs = append(p.altConfigs, cfg)
	answer := p.answer
	p.mu.Unlock()

	if answer != nil {
		text, err := answer(imageURL)
		if err != nil {
			return nil, err
		}
		return &llm.Completion{Text: text, Model: "fake-model", TokensUsed: p.tokens}, nil
	}
	return p.complete()
}

func (p *fakeProvider) GenerateText(_ context.Context, instruction string) (*llm.Completion, error) {
	atomic.AddInt32(&p.calls, 1)
	p.mu.Lock()
	p.instructions = append(p.instructions, instruction)
	p.mu.Unlock()
	return p.complete()
}

func (p *fakeProvider) complete() (*llm.Completion, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &llm.Completion{Text: p.text, Model: "fake-model-2024", TokensUsed: p.tokens}, nil
}

func (p *fakeProvider) ValidateConfig(llm.ProviderConfig) error { return p.validateErr }

func (p *fakeProvider) EstimateCost(_ llm.OperationKind, tokens int) float64 {
	return float64(tokens) * 0.00001
}

func (p *fakeProvider) callCount() int { return int(atomic.LoadInt32(&p.calls)) }

// recordingSink keeps every event it receives
type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Emit(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *recordingSink) stages() []Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Stage, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Stage)
	}
	return out
}

func (s *recordingSink) find(stage Stage) (Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.Stage == stage {
			return e, true
		}
	}
	return Event{}, false
}

func (s *recordingSink) warnings() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, e := range s.events {
		if e.Warning != "" {
			out = append(out, e.Warning)
		}
	}
	return out
}

// fakeAuditStore records entries or fails with err
type fakeAuditStore struct {
	mu      sync.Mutex
	entries []*db.AuditEntry
	err     error
	panics  bool
}

func (s *fakeAuditStore) CreateAuditEntry(_ context.Context, entry *db.AuditEntry) error {
	if s.panics {
		panic("disk on fire")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *fakeAuditStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func testSettings() utils.AISettings {
	s := utils.DefaultConfig().AI
	s.Provider.ID = "fake"
	s.Provider.APIKey = "test-key"
	s.Provider.Model = "fake-model"
	return s
}

type harness struct {
	gen      *Generator
	provider *fakeProvider
	sink     *recordingSink
	audit    *fakeAuditStore
	builds   *int32
}

func newHarness(t *testing.T, settings utils.AISettings, provider *fakeProvider, opts ...Option) *harness {
	t.Helper()
	return newHarnessWith(t, StaticSettings(settings), provider, opts...)
}

func newHarnessWith(t *testing.T, settings SettingsFunc, provider *fakeProvider, opts ...Option) *harness {
	t.Helper()
	var builds int32
	registry := llm.NewRegistry()
	registry.Register("fake", func(cfg llm.ProviderConfig, opts ...llm.Option) (llm.Provider, error) {
		atomic.AddInt32(&builds, 1)
		return provider, nil
	})

	h := &harness{
		provider: provider,
		sink:     &recordingSink{},
		audit:    &fakeAuditStore{},
		builds:   &builds,
	}
	h.gen = New(settings, append([]Option{
		WithRegistry(registry),
		WithAuditStore(h.audit),
		WithEventSink(h.sink),
		WithLogger(utils.NewNopLogger()),
	}, opts...)...)
	return h
}

func TestRun_StagesInOrderWithSharedRequestID(t *testing.T) {
	h := newHarness(t, testSettings(), &fakeProvider{text: "Hiking Colorado", tokens: 42})

	result := h.gen.GenerateSeoTitle(context.Background(), SeoRequest{Document: nil})
	if !result.Success {
		t.Fatalf("Expected success, got error %q", result.Error)
	}

	want := []Stage{StageConfigLoad, StageFeatureGate, StageProviderBuild, StageProviderValidate, StageInvoke, StagePostProcess, StageLog}
	got := h.sink.stages()
	if len(got) != len(want) {
		t.Fatalf("Expected stages %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Stage %d: expected %s, got %s", i, want[i], got[i])
		}
	}

	id := h.sink.events[0].RequestID
	if id == "" {
		t.Fatal("Expected a request id")
	}
	for _, e := range h.sink.events {
		if e.RequestID != id {
			t.Errorf("Event %s has request id %s, want %s", e.Stage, e.RequestID, id)
		}
	}
	if len(h.audit.entries) != 1 || h.audit.entries[0].ID != id {
		t.Errorf("Expected one audit entry with the request id")
	}
}

func TestRun_MetadataFromCompletion(t *testing.T) {
	h := newHarness(t, testSettings(), &fakeProvider{text: "Hiking Colorado", tokens: 100})

	result := h.gen.GenerateSeoTitle(context.Background(), SeoRequest{Keywords: []string{"hiking", "Hiking", " "}})
	meta := result.Metadata
	if meta == nil {
		t.Fatal("Expected metadata")
	}
	if meta.Provider != "fake" || meta.Model != "fake-model-2024" {
		t.Errorf("Unexpected provider/model: %s/%s", meta.Provider, meta.Model)
	}
	if meta.TokensUsed != 100 || math.Abs(meta.Cost-0.001) > 1e-12 {
		t.Errorf("Unexpected usage: %d tokens, $%f", meta.TokensUsed, meta.Cost)
	}
	if meta.CharacterCount != len("Hiking Colorado") {
		t.Errorf("Unexpected character count: %d", meta.CharacterCount)
	}
	if len(meta.KeywordsUsed) != 1 || meta.KeywordsUsed[0] != "hiking" {
		t.Errorf("Expected deduplicated keywords, got %v", meta.KeywordsUsed)
	}
	if meta.Timestamp == "" {
		t.Error("Expected a timestamp")
	}
}

func TestRun_FeatureGateStopsBeforeProvider(t *testing.T) {
	settings := testSettings()
	settings.SeoTitle.Enabled = false
	h := newHarness(t, settings, &fakeProvider{text: "unused"})

	result := h.gen.GenerateSeoTitle(context.Background(), SeoRequest{})

	if result.Success || result.Text != "" {
		t.Fatalf("Expected failure, got %+v", result)
	}
	if *h.builds != 0 || h.provider.callCount() != 0 {
		t.Errorf("Provider must not be built or called: builds=%d calls=%d", *h.builds, h.provider.callCount())
	}
	e, ok := h.sink.find(StageFeatureGate)
	if !ok || !IsConfigurationError(e.Err) {
		t.Fatalf("Expected a ConfigurationError at the feature gate, got %+v", e)
	}
	if _, ok := h.sink.find(StageInvoke); ok {
		t.Error("No invoke event expected")
	}
	if h.audit.count() != 0 {
		t.Error("Rejected calls are not audited")
	}
}

func TestRun_SettingsReadPerCall(t *testing.T) {
	var reads int32
	settings := testSettings()
	h := newHarnessWith(t, func(context.Context) (*utils.AISettings, error) {
		n := atomic.AddInt32(&reads, 1)
		s := settings
		s.SeoTitle.Enabled = n == 1
		return &s, nil
	}, &fakeProvider{text: "Title"})

	first := h.gen.GenerateSeoTitle(context.Background(), SeoRequest{})
	second := h.gen.GenerateSeoTitle(context.Background(), SeoRequest{})

	if !first.Success || second.Success {
		t.Errorf("Expected the second call to see the updated settings: %v, %v", first.Success, second.Success)
	}
	if reads != 2 {
		t.Errorf("Expected 2 settings reads, got %d", reads)
	}
}

func TestRun_SettingsLoadFailure(t *testing.T) {
	h := newHarnessWith(t, func(context.Context) (*utils.AISettings, error) {
		return nil, errors.New("store offline")
	}, &fakeProvider{})

	result := h.gen.GenerateSeoDescription(context.Background(), SeoRequest{})
	if result.Success {
		t.Fatal("Expected failure")
	}
	e, ok := h.sink.find(StageConfigLoad)
	if !ok || !IsConfigurationError(e.Err) {
		t.Errorf("Expected ConfigurationError at config load, got %+v", e)
	}
	if len(h.sink.events) != 1 {
		t.Errorf("Nothing should run after a failed config load, got %v", h.sink.stages())
	}
}

func TestRun_UnknownProvider(t *testing.T) {
	settings := testSettings()
	settings.Provider.ID = "watson"
	h := newHarness(t, settings, &fakeProvider{})

	result := h.gen.GenerateIconMetadata(context.Background(), IconRequest{IconName: "download"})
	if result.Success {
		t.Fatal("Expected failure")
	}
	e, _ := h.sink.find(StageProviderBuild)
	var cfgErr *llm.ConfigurationError
	if !errors.As(e.Err, &cfgErr) || cfgErr.Provider != "watson" {
		t.Errorf("Expected ConfigurationError naming watson, got %v", e.Err)
	}
}

func TestRun_ValidationFailureSkipsInvoke(t *testing.T) {
	provider := &fakeProvider{validateErr: &llm.ConfigurationError{Provider: "fake", Message: "API key is required"}}
	h := newHarness(t, testSettings(), provider)

	result := h.gen.GenerateSeoTitle(context.Background(), SeoRequest{})
	if result.Success || result.Error == "" {
		t.Fatalf("Expected validation failure, got %+v", result)
	}
	if provider.callCount() != 0 {
		t.Error("Provider must not be called after failed validation")
	}
	if _, ok := h.sink.find(StageInvoke); ok {
		t.Error("No invoke event expected")
	}
}

func TestRun_BackendErrorAudited(t *testing.T) {
	provider := &fakeProvider{err: &llm.BackendError{Provider: "fake", StatusCode: 500, Message: "boom"}}
	h := newHarness(t, testSettings(), provider)

	result := h.gen.GenerateSeoTitle(context.Background(), SeoRequest{})
	if result.Success || result.Text != "" {
		t.Fatalf("Expected failure with empty text, got %+v", result)
	}
	if h.audit.count() != 1 || h.audit.entries[0].Success {
		t.Fatalf("Expected one failed audit entry, got %d", h.audit.count())
	}
	if h.audit.entries[0].Error == "" {
		t.Error("Expected the error in the audit entry")
	}
}

func TestRun_AuditSettingsRespected(t *testing.T) {
	settings := testSettings()
	settings.Audit.LogFailures = false
	h := newHarness(t, settings, &fakeProvider{err: errors.New("boom")})
	h.gen.GenerateSeoTitle(context.Background(), SeoRequest{})
	if h.audit.count() != 0 {
		t.Error("Failures should not be audited when log_failures is off")
	}

	settings.Audit.Enabled = false
	h = newHarness(t, settings, &fakeProvider{text: "Title"})
	h.gen.GenerateSeoTitle(context.Background(), SeoRequest{})
	if h.audit.count() != 0 {
		t.Error("Nothing should be audited when auditing is off")
	}
	if _, ok := h.sink.find(StageLog); ok {
		t.Error("No log event expected when auditing is off")
	}
}

func TestRun_LoggingFailureSwallowed(t *testing.T) {
	h := newHarness(t, testSettings(), &fakeProvider{text: "Title"})
	h.audit.err = errors.New("database is locked")

	result := h.gen.GenerateSeoTitle(context.Background(), SeoRequest{})
	if !result.Success || result.Text != "Title" {
		t.Fatalf("Audit failure must not affect the result: %+v", result)
	}

	e, ok := h.sink.find(StageLog)
	var logErr *LoggingError
	if !ok || !errors.As(e.Err, &logErr) {
		t.Errorf("Expected a LoggingError event, got %+v", e)
	}
}

func TestRun_AuditPanicSwallowed(t *testing.T) {
	h := newHarness(t, testSettings(), &fakeProvider{text: "Title"})
	h.audit.panics = true

	result := h.gen.GenerateSeoTitle(context.Background(), SeoRequest{})
	if !result.Success {
		t.Fatalf("Audit panic must not affect the result: %+v", result)
	}
	if e, _ := h.sink.find(StageLog); e.Err == nil {
		t.Error("Expected the panic reported as a log event error")
	}
}

func TestRun_AuditExcerptRedacted(t *testing.T) {
	h := newHarness(t, testSettings(), &fakeProvider{text: "Title"})

	h.gen.GenerateSeoTitle(context.Background(), SeoRequest{Guidance: "Contact owner@example.com"})

	if h.audit.count() != 1 {
		t.Fatal("Expected one audit entry")
	}
	excerpt := h.audit.entries[0].InputExcerpt
	if utils.RuneLen(excerpt) > auditExcerptLength {
		t.Errorf("Excerpt exceeds %d characters", auditExcerptLength)
	}
	if strings.Contains(excerpt, "owner@example.com") {
		t.Errorf("Excerpt should be redacted: %s", excerpt)
	}
}

func TestRun_ProviderWarningsBecomeEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-3.5-turbo",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Harbor Walks"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 40, "completion_tokens": 3, "total_tokens": 43}
		}`))
	}))
	defer srv.Close()

	settings := utils.DefaultConfig().AI
	settings.Provider.ID = llm.ProviderOpenAI
	settings.Provider.APIKey = "sk-test"
	settings.Provider.Model = "gpt-3.5-turbo"
	settings.Provider.CustomEndpoint = srv.URL

	sink := &recordingSink{}
	gen := New(StaticSettings(settings), WithRegistry(llm.DefaultRegistry()), WithEventSink(sink))

	result := gen.GenerateSeoTitle(context.Background(), SeoRequest{})
	if !result.Success {
		t.Fatalf("A vision warning must not fail the call: %q", result.Error)
	}

	var warning Event
	for _, e := range sink.events {
		if e.Stage == StageProviderValidate && e.Warning != "" {
			warning = e
		}
	}
	if !strings.Contains(warning.Warning, "gpt-3.5-turbo") || warning.Err != nil {
		t.Fatalf("Expected a provider_validate warning naming the model, got %+v", warning)
	}
	if warning.RequestID != sink.events[0].RequestID {
		t.Error("Warning should carry the call's request id")
	}
}
