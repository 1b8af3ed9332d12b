package metrics

import (
	"errors"
	"strings"

	"metagen/generator"
)

// Sink records generation events as Prometheus metrics
type Sink struct{}

// Emit implements generator.EventSink
func (Sink) Emit(e generator.Event) {
	op := string(e.Operation)

	if e.Err != nil {
		GenerationStageFailures.WithLabelValues(op, string(e.Stage)).Inc()
	}

	switch e.Stage {
	case generator.StageInvoke:
		LLMCallDuration.WithLabelValues(e.Provider, e.Model).Observe(e.Elapsed.Seconds())
		if e.Err != nil {
			LLMCallTotal.WithLabelValues(e.Provider, e.Model, "error").Inc()
			GenerationTotal.WithLabelValues(op, "error").Inc()
			return
		}
		LLMCallTotal.WithLabelValues(e.Provider, e.Model, "success").Inc()
		LLMTokensUsed.WithLabelValues(e.Provider, e.Model).Add(float64(e.TokensUsed))
		LLMCostUSD.WithLabelValues(e.Provider, e.Model).Add(e.Cost)

	case generator.StagePostProcess:
		// warnings arrive as extra successful post-process events
		if e.Warning != "" {
			return
		}
		status := "success"
		if e.Err != nil {
			status = "error"
		}
		GenerationTotal.WithLabelValues(op, status).Inc()

	case generator.StageLog:
		var logErr *generator.LoggingError
		if errors.As(e.Err, &logErr) {
			AuditWriteFailures.Inc()
		}

	case generator.StageFallback:
		outcome := "empty"
		if strings.HasPrefix(e.Warning, generator.FallbackUsedPrefix) {
			outcome = "filename"
		}
		FallbackTotal.WithLabelValues(outcome).Inc()

	default:
		// config_load, feature_gate, provider_build, provider_validate
		if e.Err != nil {
			GenerationTotal.WithLabelValues(op, "rejected").Inc()
		}
	}
}
