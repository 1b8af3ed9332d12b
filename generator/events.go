package generator

import (
	"time"

	"metagen/llm"
	"metagen/utils"
)

// Stage is a state of the per-call generation state machine
type Stage string

const (
	StageConfigLoad       Stage = "config_load"
	StageFeatureGate      Stage = "feature_gate"
	StageProviderBuild    Stage = "provider_build"
	StageProviderValidate Stage = "provider_validate"
	StageInvoke           Stage = "invoke"
	StagePostProcess      Stage = "post_process"
	StageLog              Stage = "log"
	StageFallback         Stage = "fallback"
)

// Event is emitted once at the end of every stage, successful or not
type Event struct {
	RequestID  string
	Operation  llm.OperationKind
	Stage      Stage
	Success    bool
	Provider   string
	Model      string
	Elapsed    time.Duration // since the call started
	TokensUsed int
	Cost       float64
	Err        error
	Warning    string
	Time       time.Time
}

// EventSink consumes generation events. Emit must be safe for concurrent use.
type EventSink interface {
	Emit(Event)
}

// EventSinkFunc adapts a function to EventSink
type EventSinkFunc func(Event)

func (f EventSinkFunc) Emit(e Event) { f(e) }

// MultiSink fans events out to every sink in order
type MultiSink []EventSink

func (m MultiSink) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}

type nopSink struct{}

func (nopSink) Emit(Event) {}

// LoggerSink writes events to a utils.Logger. Successful intermediate
// stages are logged at debug level.
type LoggerSink struct {
	Logger *utils.Logger
}

func (s LoggerSink) Emit(e Event) {
	switch {
	case e.Err != nil:
		s.Logger.Error("[%s] %s %s failed after %dms: %v", e.RequestID, e.Operation, e.Stage, e.Elapsed.Milliseconds(), e.Err)
	case e.Warning != "":
		s.Logger.Warn("[%s] %s %s: %s", e.RequestID, e.Operation, e.Stage, e.Warning)
	case e.Stage == StageInvoke:
		s.Logger.Info("[%s] %s via %s/%s: %d tokens, $%.6f, %dms",
			e.RequestID, e.Operation, e.Provider, e.Model, e.TokensUsed, e.Cost, e.Elapsed.Milliseconds())
	default:
		s.Logger.Debug("[%s] %s %s ok", e.RequestID, e.Operation, e.Stage)
	}
}
