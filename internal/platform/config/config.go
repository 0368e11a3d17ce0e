package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	pipeline "tiergate/internal/pipeline/config"
)

// Server captures process level configuration.
type Server struct {
	Addr            string
	Environment     string
	ShutdownTimeout time.Duration
	// DevMode wires the deterministic in-process collaborators instead of
	// the HTTP ones.
	DevMode bool

	Database      DatabaseConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Collaborators CollaboratorsConfig
	Breaker       BreakerConfig

	Pipeline *pipeline.Config
}

// DatabaseConfig configures the audit store. URL selects postgres; without
// it SQLitePath selects an embedded SQLite file, and with neither the
// in-memory store is used.
type DatabaseConfig struct {
	URL             string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the continuation store. An empty URL selects the
// in-memory store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the alert topic. Without brokers alerts only go to
// the log.
type KafkaConfig struct {
	Brokers    string
	AlertTopic string
}

// CollaboratorsConfig holds the collaborator service endpoints.
type CollaboratorsConfig struct {
	ScorerURL     string
	ConsentURL    string
	WindowURL     string
	ProjectorURL  string
	APIKey        string
	Timeout       time.Duration
	ConsentWait   time.Duration
	QuietHourFrom int
	QuietHourTo   int
}

// BreakerConfig tunes the per-collaborator circuit breakers.
type BreakerConfig struct {
	FailureThreshold int
	Cooldown         time.Duration
}

// FromEnv builds a Server config from environment variables so main stays
// lean. Malformed values are reported rather than silently defaulted.
func FromEnv() (Server, error) {
	e := &envReader{}
	cfg := Server{
		Addr:            e.str("TIERGATE_ADDR", ":8080"),
		Environment:     e.str("ENVIRONMENT", "development"),
		ShutdownTimeout: e.duration("SHUTDOWN_TIMEOUT", 15*time.Second),
		DevMode:         e.boolean("DEV_MODE", false),
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			SQLitePath:      os.Getenv("AUDIT_SQLITE_PATH"),
			MaxOpenConns:    e.integer("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    e.integer("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: e.duration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     e.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: e.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  e.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  e.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: e.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:    os.Getenv("KAFKA_BROKERS"),
			AlertTopic: e.str("ALERT_TOPIC", "tiergate.alerts"),
		},
		Collaborators: CollaboratorsConfig{
			ScorerURL:     os.Getenv("SCORER_URL"),
			ConsentURL:    os.Getenv("CONSENT_URL"),
			WindowURL:     os.Getenv("VULNERABILITY_WINDOW_URL"),
			ProjectorURL:  os.Getenv("PROJECTOR_URL"),
			APIKey:        os.Getenv("COLLABORATOR_API_KEY"),
			Timeout:       e.duration("COLLABORATOR_TIMEOUT", 10*time.Second),
			ConsentWait:   e.duration("CONSENT_TIMEOUT", 10*time.Minute),
			QuietHourFrom: e.integer("QUIET_HOUR_FROM", 22),
			QuietHourTo:   e.integer("QUIET_HOUR_TO", 7),
		},
		Breaker: BreakerConfig{
			FailureThreshold: e.integer("BREAKER_FAILURE_THRESHOLD", 5),
			Cooldown:         e.duration("BREAKER_COOLDOWN", 30*time.Second),
		},
	}

	p := pipeline.Default()
	p.Biocentric.MinConfidence = e.float("MIN_CONFIDENCE", p.Biocentric.MinConfidence)
	p.Biocentric.ZeroHarmThreshold = e.float("ZERO_HARM_THRESHOLD", p.Biocentric.ZeroHarmThreshold)
	p.Consent.MinDeliberation = e.duration("MIN_DELIBERATION", p.Consent.MinDeliberation)
	p.Consent.CheckVulnerability = e.boolean("CHECK_VULNERABILITY", p.Consent.CheckVulnerability)
	p.Consent.RescheduleAfter = e.duration("CONSENT_RESCHEDULE_AFTER", p.Consent.RescheduleAfter)
	p.Intergenerational.Generations = e.integer("GENERATIONS", p.Intergenerational.Generations)
	p.Intergenerational.YearsPerGeneration = e.integer("YEARS_PER_GENERATION", p.Intergenerational.YearsPerGeneration)
	p.Intergenerational.MinEquityScore = e.float("MIN_EQUITY_SCORE", p.Intergenerational.MinEquityScore)
	p.Intergenerational.MinOverallScore = e.float("MIN_OVERALL_SCORE", p.Intergenerational.MinOverallScore)
	p.Intergenerational.MaxTippingProbability = e.float("MAX_TIPPING_PROBABILITY", p.Intergenerational.MaxTippingProbability)
	p.Override.Enabled = e.boolean("OVERRIDES_ENABLED", p.Override.Enabled)
	p.Override.MinApprovers = e.integer("MIN_APPROVERS", p.Override.MinApprovers)
	p.Override.MinJustificationLength = e.integer("MIN_JUSTIFICATION_LENGTH", p.Override.MinJustificationLength)
	p.Override.Retention = e.duration("OVERRIDE_RETENTION", p.Override.Retention)
	p.HaltOnFirstFailure = e.boolean("HALT_ON_FIRST_FAILURE", p.HaltOnFirstFailure)
	p.StandardRetention = e.duration("STANDARD_RETENTION", p.StandardRetention)
	p.ContinuationTTL = e.duration("CONTINUATION_TTL", p.ContinuationTTL)
	cfg.Pipeline = p

	if len(e.errs) > 0 {
		return Server{}, fmt.Errorf("invalid environment: %s", strings.Join(e.errs, "; "))
	}
	if err := p.Validate(); err != nil {
		return Server{}, fmt.Errorf("invalid pipeline config: %w", err)
	}
	if !cfg.DevMode && cfg.Collaborators.missing() != "" {
		return Server{}, fmt.Errorf("%s is required unless DEV_MODE=true", cfg.Collaborators.missing())
	}
	return cfg, nil
}

func (c CollaboratorsConfig) missing() string {
	switch {
	case c.ScorerURL == "":
		return "SCORER_URL"
	case c.ConsentURL == "":
		return "CONSENT_URL"
	case c.ProjectorURL == "":
		return "PROJECTOR_URL"
	}
	return ""
}

// envReader collects parse errors so every bad variable is reported at once.
type envReader struct {
	errs []string
}

func (e *envReader) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s=%q is not a duration", key, raw))
		return def
	}
	return d
}

func (e *envReader) integer(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s=%q is not an integer", key, raw))
		return def
	}
	return n
}

func (e *envReader) float(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s=%q is not a number", key, raw))
		return def
	}
	return f
}

func (e *envReader) boolean(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s=%q is not a boolean", key, raw))
		return def
	}
	return b
}
