// Package tracer provides a small tracing abstraction for pipeline runs.
//
// The orchestrator opens one span per run and one child span per stage
// without depending on OpenTelemetry directly.
//
// Implementations:
//   - NoopTracer: for tests
//   - OTelTracer: OpenTelemetry adapter for production
package tracer

import (
	"context"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span, recording err if non-nil. Call exactly once.
	End(err error)
	SetAttributes(attrs ...Attribute)
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute is a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

// String creates a string attribute.
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Bool creates a boolean attribute.
func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int creates an integer attribute.
func Int(key string, value int) Attribute {
	return Attribute{Key: key, Value: int64(value)}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names.
const (
	SpanValidate = "pipeline.validate"
	SpanResume   = "pipeline.resume"
	SpanOverride = "pipeline.override"
	SpanStage    = "pipeline.stage"
)

// Attribute keys.
const (
	AttrActionID   = "action.id"
	AttrActionKind = "action.kind"
	AttrResultID   = "result.id"
	AttrStage      = "stage"
	AttrStatus     = "status"
	AttrHalted     = "halted"
	AttrSuspended  = "suspended"
)

// Event names.
const (
	EventAuditAppended = "audit.appended"
	EventStageSkipped  = "stage.skipped"
)
