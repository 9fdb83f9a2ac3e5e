package jsontransform

import (
	"time"

	"github.com/rs/zerolog"
)

// TraceEvent is one diagnostic step recorded during a Transform run when
// TransformSettings.EnableTracing is set (spec §7, §10 supplemented
// diagnostics).
type TraceEvent struct {
	Kind    string `json:"kind"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message,omitempty"`
}

// traceCollector mirrors each TraceEvent into a zerolog event log (keyed by
// RunID) in addition to the public Result.Trace slice, the same dual
// "structured log + returned detail" pattern the underlying client-go
// transport layer uses for its own request tracing.
type traceCollector struct {
	enabled bool
	runID   string
	logger  zerolog.Logger
	events  []TraceEvent
}

func newTraceCollector(enabled bool, runID string, logger zerolog.Logger) *traceCollector {
	if !enabled {
		return nil
	}
	return &traceCollector{enabled: true, runID: runID, logger: logger}
}

func (t *traceCollector) record(ev TraceEvent) {
	if t == nil || !t.enabled {
		return
	}
	t.events = append(t.events, ev)
	t.logger.Debug().
		Str("run_id", t.runID).
		Str("kind", ev.Kind).
		Str("path", ev.Path).
		Str("message", ev.Message).
		Time("ts", time.Now()).
		Msg("jsontransform trace")
}

func (t *traceCollector) drain() []TraceEvent {
	if t == nil {
		return nil
	}
	return t.events
}
