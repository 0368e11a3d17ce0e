// Package alert delivers emergency-override alerts to operators. The log sink
// writes a dedicated structured record; the kafka sink publishes the alert to
// a topic that paging and review tooling subscribe to.
package alert

import (
	"context"
	"errors"
	"log/slog"

	"tiergate/internal/pipeline/ports"
)

// LogSink emits alerts as log records tagged log_type=alert.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a sink writing to logger, or slog.Default when nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(ctx context.Context, a ports.Alert) error {
	level := slog.LevelWarn
	if a.Severity == ports.SeverityCritical {
		level = slog.LevelError
	}
	s.logger.Log(ctx, level, a.Title,
		"log_type", "alert",
		"severity", string(a.Severity),
		"message", a.Message,
		"result_id", a.ResultID.String(),
		"action_id", a.ActionID.String(),
		"action_kind", a.ActionKind,
		"approvers", a.Approvers,
		"justification", a.Justification,
		"timestamp", a.Timestamp,
	)
	return nil
}

// Fanout delivers an alert to every sink and returns the joined errors.
// A failing sink does not stop delivery to the rest.
type Fanout []ports.AlertSink

func (f Fanout) Notify(ctx context.Context, a ports.Alert) error {
	var errs []error
	for _, sink := range f {
		if err := sink.Notify(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
