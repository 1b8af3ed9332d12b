// Package generator runs the generation state machine for every task:
// ConfigLoad, FeatureGateCheck, ProviderBuild, ProviderValidate, Invoke,
// PostProcess, Log. A failing stage ends the call; nothing after it runs.
package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"metagen/db"
	"metagen/llm"
	"metagen/utils"
)

// auditExcerptLength caps the input excerpt stored with an audit entry
const auditExcerptLength = 500

// AuditStore persists audit entries; *db.DB satisfies it
type AuditStore interface {
	CreateAuditEntry(ctx context.Context, entry *db.AuditEntry) error
}

// LoggingError wraps an audit write failure. It only ever appears in events.
type LoggingError struct {
	Err error
}

func (e *LoggingError) Error() string {
	return "failed to write audit entry: " + e.Err.Error()
}

func (e *LoggingError) Unwrap() error {
	return e.Err
}

// Generator owns the collaborators shared by every orchestrator. It holds
// no per-call state and is safe for concurrent use.
type Generator struct {
	settings     SettingsFunc
	registry     *llm.Registry
	audit        AuditStore
	sink         EventSink
	logger       *utils.Logger
	providerOpts []llm.Option
	localImages  bool
}

// Option customises a Generator
type Option func(*Generator)

// WithRegistry replaces the default provider registry
func WithRegistry(r *llm.Registry) Option {
	return func(g *Generator) { g.registry = r }
}

// WithAuditStore enables audit logging to store
func WithAuditStore(store AuditStore) Option {
	return func(g *Generator) { g.audit = store }
}

// WithEventSink routes stage events to sink
func WithEventSink(sink EventSink) Option {
	return func(g *Generator) { g.sink = sink }
}

// WithLogger sets the logger used for panic recovery
func WithLogger(logger *utils.Logger) Option {
	return func(g *Generator) { g.logger = logger }
}

// WithProviderOptions passes opts to every provider the registry builds
func WithProviderOptions(opts ...llm.Option) Option {
	return func(g *Generator) { g.providerOpts = append(g.providerOpts, opts...) }
}

// WithLocalImages lets alt-tag requests name local files, which are read and
// uploaded as data URLs. Only trusted callers such as the CLI should set it.
func WithLocalImages() Option {
	return func(g *Generator) { g.localImages = true }
}

// New creates a Generator reading settings through settings
func New(settings SettingsFunc, opts ...Option) *Generator {
	g := &Generator{
		settings: settings,
		registry: llm.DefaultRegistry(),
		sink:     nopSink{},
		logger:   utils.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.sink == nil {
		g.sink = nopSink{}
	}
	if g.logger == nil {
		g.logger = utils.NewNopLogger()
	}
	return g
}

// task describes one orchestrator run through the state machine
type task struct {
	op       llm.OperationKind
	actor    string
	keywords []string
	enabled  func(s *utils.AISettings) bool
	// invoke calls the backend and returns the input worth auditing
	invoke func(ctx context.Context, p llm.Provider, s *utils.AISettings) (*llm.Completion, string, error)
	// finish post-processes the raw answer
	finish func(c *call, text string, s *utils.AISettings) (string, error)
}

// outcome is the internal result of a run
type outcome struct {
	text     string
	err      error
	meta     *Metadata
	settings *utils.AISettings
	call     *call
}

// call carries the per-call identifiers used in events
type call struct {
	g         *Generator
	requestID string
	op        llm.OperationKind
	start     time.Time
	provider  string
	model     string
}

func (c *call) event(stage Stage, err error) Event {
	return Event{
		RequestID: c.requestID,
		Operation: c.op,
		Stage:     stage,
		Success:   err == nil,
		Provider:  c.provider,
		Model:     c.model,
		Elapsed:   time.Since(c.start),
		Err:       err,
		Time:      time.Now(),
	}
}

func (c *call) emit(stage Stage, err error) {
	c.g.sink.Emit(c.event(stage, err))
}

func (c *call) warn(stage Stage, format string, v ...interface{}) {
	e := c.event(stage, nil)
	e.Warning = fmt.Sprintf(format, v...)
	c.g.sink.Emit(e)
}

// validationWarnings turns provider warnings into provider_validate events
type validationWarnings struct {
	c *call
}

func (w validationWarnings) Warn(format string, v ...interface{}) {
	w.c.warn(StageProviderValidate, format, v...)
}

func (c *call) metadata() *Metadata {
	return &Metadata{
		Provider:   c.provider,
		Model:      c.model,
		DurationMs: time.Since(c.start).Milliseconds(),
		Timestamp:  c.start.UTC().Format(time.RFC3339),
	}
}

// run drives t through the state machine
func (g *Generator) run(ctx context.Context, t task) outcome {
	c := &call{g: g, requestID: uuid.NewString(), op: t.op, start: time.Now()}

	// ConfigLoad
	settings, err := g.loadSettings(ctx)
	c.emit(StageConfigLoad, err)
	if err != nil {
		return outcome{err: err, call: c}
	}

	// FeatureGateCheck
	if !t.enabled(settings) {
		err := &llm.ConfigurationError{Message: fmt.Sprintf("%s generation is disabled", operationLabel(t.op))}
		c.emit(StageFeatureGate, err)
		return outcome{err: err, settings: settings, call: c}
	}
	c.emit(StageFeatureGate, nil)

	// ProviderBuild
	cfg := ProviderConfigFrom(settings)
	c.provider, c.model = cfg.ProviderID, cfg.Model
	opts := make([]llm.Option, 0, len(g.providerOpts)+1)
	opts = append(opts, g.providerOpts...)
	opts = append(opts, llm.WithLogger(validationWarnings{c}))
	provider, err := g.registry.Create(cfg, opts...)
	c.emit(StageProviderBuild, err)
	if err != nil {
		return outcome{err: err, settings: settings, call: c}
	}
	c.provider = provider.Name()

	// ProviderValidate
	if err := provider.ValidateConfig(cfg); err != nil {
		c.emit(StageProviderValidate, err)
		return outcome{err: err, settings: settings, call: c}
	}
	c.emit(StageProviderValidate, nil)

	// Invoke
	completion, input, err := t.invoke(ctx, provider, settings)
	if err != nil {
		c.emit(StageInvoke, err)
		meta := c.metadata()
		g.writeAudit(ctx, c, settings, t, input, "", err, meta)
		return outcome{err: err, meta: meta, settings: settings, call: c}
	}
	if completion.Model != "" {
		c.model = completion.Model
	}
	meta := c.metadata()
	meta.TokensUsed = completion.TokensUsed
	meta.Cost = provider.EstimateCost(t.op, completion.TokensUsed)

	e := c.event(StageInvoke, nil)
	e.TokensUsed, e.Cost = meta.TokensUsed, meta.Cost
	g.sink.Emit(e)

	// PostProcess
	text, err := t.finish(c, completion.Text, settings)
	if err != nil {
		c.emit(StagePostProcess, err)
		g.writeAudit(ctx, c, settings, t, input, "", err, meta)
		return outcome{err: err, meta: meta, settings: settings, call: c}
	}
	c.emit(StagePostProcess, nil)

	meta.DurationMs = time.Since(c.start).Milliseconds()
	meta.CharacterCount = utils.RuneLen(text)
	if len(t.keywords) > 0 {
		meta.KeywordsUsed = t.keywords
	}

	// Log
	g.writeAudit(ctx, c, settings, t, input, text, nil, meta)

	return outcome{text: text, meta: meta, settings: settings, call: c}
}

// loadSettings wraps the settings read so that every failure is a
// ConfigurationError
func (g *Generator) loadSettings(ctx context.Context) (*utils.AISettings, error) {
	if g.settings == nil {
		return nil, &llm.ConfigurationError{Message: "no settings source configured"}
	}
	settings, err := g.settings(ctx)
	if err != nil {
		return nil, &llm.ConfigurationError{Message: "failed to load settings: " + err.Error()}
	}
	if settings == nil {
		return nil, &llm.ConfigurationError{Message: "settings record is empty"}
	}
	return settings, nil
}

// writeAudit records the call when auditing is on. Failures are only
// reported as events.
func (g *Generator) writeAudit(ctx context.Context, c *call, s *utils.AISettings, t task, input, output string, failure error, meta *Metadata) {
	if g.audit == nil || !s.Audit.Enabled || (failure != nil && !s.Audit.LogFailures) {
		return
	}

	entry := &db.AuditEntry{
		ID:           c.requestID,
		Operation:    string(t.op),
		Provider:     meta.Provider,
		Model:        meta.Model,
		Success:      failure == nil,
		TokensUsed:   meta.TokensUsed,
		Cost:         meta.Cost,
		DurationMs:   meta.DurationMs,
		InputExcerpt: utils.Excerpt(input, auditExcerptLength),
		Output:       output,
		Actor:        t.actor,
		CreatedAt:    c.start,
	}
	if failure != nil {
		entry.Error = failure.Error()
	}

	err := utils.SafeCall(g.logger, "audit write", func() error {
		return g.audit.CreateAuditEntry(ctx, entry)
	})
	if err != nil {
		c.emit(StageLog, &LoggingError{Err: err})
		return
	}
	c.emit(StageLog, nil)
}

// IsConfigurationError reports whether err is a *llm.ConfigurationError
func IsConfigurationError(err error) bool {
	var cfgErr *llm.ConfigurationError
	return errors.As(err, &cfgErr)
}

func operationLabel(op llm.OperationKind) string {
	switch op {
	case llm.OpAltTag:
		return "alt tag"
	case llm.OpSeoTitle:
		return "SEO title"
	case llm.OpSeoDescription:
		return "SEO description"
	case llm.OpIconMetadata:
		return "icon metadata"
	default:
		return string(op)
	}
}
