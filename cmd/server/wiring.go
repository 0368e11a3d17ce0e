package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"tiergate/internal/alert"
	"tiergate/internal/audit"
	auditpg "tiergate/internal/audit/store/postgres"
	auditsqlite "tiergate/internal/audit/store/sqlite"
	"tiergate/internal/collaborators/httpclient"
	"tiergate/internal/collaborators/local"
	"tiergate/internal/continuation"
	pipelinemetrics "tiergate/internal/pipeline/metrics"
	"tiergate/internal/pipeline/override"
	"tiergate/internal/pipeline/ports"
	"tiergate/internal/pipeline/service"
	"tiergate/internal/pipeline/stages"
	"tiergate/internal/pipeline/tracer"
	"tiergate/internal/platform/config"
	"tiergate/internal/platform/database"
	"tiergate/internal/platform/health"
	"tiergate/internal/platform/kafka"
	"tiergate/internal/platform/kafka/producer"
	platformredis "tiergate/internal/platform/redis"
	"tiergate/pkg/platform/circuit"
)

// infra holds the optional backing services. Each is nil when unconfigured
// and the in-process fallback is used instead.
type infra struct {
	db       *database.Pool
	sqlite   *auditsqlite.Store
	redis    *platformredis.Client
	producer *producer.Producer
}

func connectInfra(ctx context.Context, cfg config.Server, reg prometheus.Registerer, log *slog.Logger) (*infra, error) {
	in := &infra{}

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	in.db = db

	if db == nil && cfg.Database.SQLitePath != "" {
		store, err := auditsqlite.Open(ctx, cfg.Database.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite audit store: %w", err)
		}
		in.sqlite = store
	}

	rc, err := platformredis.New(ctx, cfg.Redis, reg)
	if err != nil {
		in.close(log)
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	in.redis = rc

	if cfg.Kafka.Brokers != "" {
		pcfg := kafka.DefaultProducerConfig()
		pcfg.Brokers = cfg.Kafka.Brokers
		p, err := producer.New(pcfg, log)
		if err != nil {
			in.close(log)
			return nil, fmt.Errorf("create kafka producer: %w", err)
		}
		in.producer = p
	}

	log.Info("backing services",
		"postgres", in.db != nil,
		"sqlite", in.sqlite != nil,
		"redis", in.redis != nil,
		"kafka", in.producer != nil,
	)
	return in, nil
}

func (in *infra) registerChecks(h *health.Handler) {
	if in.db != nil {
		h.RegisterCheck("postgres", in.db.Health)
	}
	if in.sqlite != nil {
		h.RegisterCheck("sqlite", in.sqlite.Health)
	}
	if in.redis != nil {
		h.RegisterCheck("redis", in.redis.Health)
	}
	if in.producer != nil {
		h.RegisterCheck("kafka", in.producer.Healthy)
	}
}

func (in *infra) close(log *slog.Logger) {
	if in.producer != nil {
		if err := in.producer.Close(context.Background()); err != nil {
			log.Warn("kafka producer close failed", "error", err)
		}
	}
	if in.redis != nil {
		if err := in.redis.Close(); err != nil {
			log.Warn("redis close failed", "error", err)
		}
	}
	if in.db != nil {
		if err := in.db.Close(); err != nil {
			log.Warn("postgres close failed", "error", err)
		}
	}
	if in.sqlite != nil {
		if err := in.sqlite.Close(); err != nil {
			log.Warn("sqlite close failed", "error", err)
		}
	}
}

func (in *infra) auditStore() ports.AuditSink {
	switch {
	case in.db != nil:
		return auditpg.New(in.db.DB())
	case in.sqlite != nil:
		return in.sqlite
	}
	return audit.NewInMemoryStore()
}

func (in *infra) continuationStore() ports.ContinuationStore {
	if in.redis != nil {
		return continuation.NewRedisStore(in.redis.Client)
	}
	return continuation.NewMemoryStore()
}

func (in *infra) alertSink(cfg config.Server, log *slog.Logger) ports.AlertSink {
	sinks := alert.Fanout{alert.NewLogSink(log)}
	if in.producer != nil {
		sinks = append(sinks, alert.NewKafkaSink(in.producer, cfg.Kafka.AlertTopic))
	}
	return sinks
}

// collaborators bundles the ports the stage evaluators call.
type collaborators struct {
	scorer    ports.EcologicalScorer
	consent   ports.ConsentRequester
	windows   ports.VulnerabilityWindow
	projector ports.Projector
}

func buildCollaborators(cfg config.Server) collaborators {
	quiet := local.QuietHours{Start: cfg.Collaborators.QuietHourFrom, End: cfg.Collaborators.QuietHourTo}
	if cfg.DevMode {
		return collaborators{
			scorer:    local.Scorer{},
			consent:   local.ConsentRequester{DeliberationSeconds: cfg.Pipeline.Consent.MinDeliberation.Seconds()},
			windows:   quiet,
			projector: local.Projector{},
		}
	}

	cc := cfg.Collaborators
	httpCfg := func(url string) httpclient.Config {
		return httpclient.Config{BaseURL: url, APIKey: cc.APIKey, Timeout: cc.Timeout}
	}
	consentCfg := httpCfg(cc.ConsentURL)
	// Confirmation calls block on a human answering.
	consentCfg.Timeout = cc.ConsentWait

	c := collaborators{
		scorer:    httpclient.NewScorer(httpCfg(cc.ScorerURL)),
		consent:   httpclient.NewConsentRequester(consentCfg),
		windows:   quiet,
		projector: httpclient.NewProjector(httpCfg(cc.ProjectorURL)),
	}
	if cc.WindowURL != "" {
		c.windows = httpclient.NewVulnerabilityWindow(httpCfg(cc.WindowURL))
	}
	return c
}

func buildService(cfg config.Server, in *infra, reg prometheus.Registerer, log *slog.Logger) *service.Service {
	c := buildCollaborators(cfg)
	newBreaker := func(name string) *circuit.Breaker {
		return circuit.New(name,
			circuit.WithFailureThreshold(cfg.Breaker.FailureThreshold),
			circuit.WithCooldown(cfg.Breaker.Cooldown),
		)
	}
	breaker := func(name string) stages.Option {
		return stages.WithBreaker(newBreaker(name))
	}
	p := cfg.Pipeline

	evaluators := service.Evaluators{
		Biocentric: stages.NewBiocentric(c.scorer, p.Biocentric,
			stages.WithLogger(log), breaker("ecological_scorer")),
		Consent: stages.NewConsent(c.consent, c.windows, p.Consent,
			stages.WithLogger(log), breaker("consent_requester"),
			stages.WithWindowBreaker(newBreaker("vulnerability_window"))),
		Intergenerational: stages.NewIntergenerational(c.projector, p.Intergenerational,
			stages.WithLogger(log), breaker("projector")),
	}

	auditSink := audit.NewPublisher(in.auditStore(), audit.WithPublisherLogger(log))
	overrides := override.New(p.Override, in.alertSink(cfg, log), override.WithLogger(log))

	return service.New(evaluators, auditSink, p,
		service.WithLogger(log),
		service.WithMetrics(pipelinemetrics.NewWithRegisterer(reg)),
		service.WithTracer(tracer.NewOTel()),
		service.WithContinuations(in.continuationStore()),
		service.WithOverrides(overrides),
	)
}
