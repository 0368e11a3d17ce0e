// Package service is the pipeline orchestrator: it runs the three stages in
// order, applies the decision aggregator, parks stage-2 deferrals behind a
// continuation token, and persists every completed result to the audit sink.
package service

import (
	"log/slog"
	"time"

	"tiergate/internal/pipeline/config"
	"tiergate/internal/pipeline/metrics"
	"tiergate/internal/pipeline/override"
	"tiergate/internal/pipeline/ports"
	"tiergate/internal/pipeline/stages"
	"tiergate/internal/pipeline/tracer"
	keyed "tiergate/pkg/platform/sync"
)

// Evaluators are the three stage evaluators, run in stage order.
type Evaluators struct {
	Biocentric        stages.Evaluator
	Consent           stages.Evaluator
	Intergenerational stages.Evaluator
}

func (e Evaluators) ordered() [3]stages.Evaluator {
	return [3]stages.Evaluator{e.Biocentric, e.Consent, e.Intergenerational}
}

// Service orchestrates pipeline runs. It holds no per-run state, so
// independent calls may run concurrently.
type Service struct {
	evaluators    [3]stages.Evaluator
	audit         ports.AuditSink
	continuations ports.ContinuationStore
	overrides     *override.Protocol
	overrideLocks *keyed.ShardedMutex
	cfg           *config.Config
	logger        *slog.Logger
	metrics       *metrics.Metrics
	tracer        tracer.Tracer
	now           func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics enables prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer sets the span tracer. Defaults to a no-op tracer.
func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithContinuations enables stage-2 suspension. Without a store, a deferred
// stage 2 still yields a conditional result but no continuation token.
func WithContinuations(store ports.ContinuationStore) Option {
	return func(s *Service) {
		s.continuations = store
	}
}

// WithOverrides enables the emergency override path.
func WithOverrides(p *override.Protocol) Option {
	return func(s *Service) {
		s.overrides = p
	}
}

// New creates the orchestrator. A nil cfg uses config.Default().
// Panics on missing evaluators, a nil audit sink or an invalid config.
func New(evaluators Evaluators, audit ports.AuditSink, cfg *config.Config, opts ...Option) *Service {
	ordered := evaluators.ordered()
	for i, ev := range ordered {
		if ev == nil {
			panic("service.New: all three stage evaluators are required")
		}
		if int(ev.Stage()) != i+1 {
			panic("service.New: evaluators out of stage order")
		}
	}
	if audit == nil {
		panic("service.New: audit sink is required")
	}
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		panic("service.New: " + err.Error())
	}

	s := &Service{
		evaluators:    ordered,
		audit:         audit,
		overrideLocks: keyed.NewShardedMutex(0),
		cfg:           cfg,
		logger:        slog.Default(),
		tracer:        tracer.NewNoop(),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// recordFault counts an orchestration fault. Validation errors are not faults.
func (s *Service) recordFault(operation string, err error) {
	if s.metrics == nil || err == nil {
		return
	}
	s.metrics.IncrementRunFaults(operation)
}
