package sessiongate

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/kestrelworks/sessiongate/internal/identity"
	"github.com/kestrelworks/sessiongate/session"
)

// Builder defines a public type used by sessiongate APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	httpClient *http.Client
	auditSink  AuditSink
	logger     *zerolog.Logger
	clock      func() time.Time

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithHTTPClient describes the withhttpclient operation and its observable behavior.
//
// WithHTTPClient may return an error when input validation, dependency calls, or security checks fail.
// WithHTTPClient does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithLogger describes the withlogger operation and its observable behavior.
//
// WithLogger may return an error when input validation, dependency calls, or security checks fail.
// WithLogger does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = &logger
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms may return an error when input validation, dependency calls, or security checks fail.
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithClock describes the withclock operation and its observable behavior.
//
// WithClock may return an error when input validation, dependency calls, or security checks fail.
// WithClock does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	client, err := identity.NewClient(identity.Config{
		BaseURL:        cfg.Identity.BaseURL,
		TenantID:       cfg.Identity.TenantID,
		TenantHeader:   cfg.Identity.TenantHeader,
		RequestTimeout: cfg.Identity.RequestTimeout,
		HTTPClient:     b.httpClient,
	})
	if err != nil {
		return nil, err
	}

	codec, err := session.NewCodec(cloneBytes(cfg.Session.SigningKey), cfg.Session.CookieTTL)
	if err != nil {
		return nil, err
	}

	logger := zerolog.New(os.Stderr).With().Timestamp().Str("component", "sessiongate").Logger()
	if b.logger != nil {
		logger = *b.logger
	}

	engine := &Engine{
		config:       cfg,
		identity:     client,
		sessionStore: session.NewStore(b.redis, cfg.Session.RedisPrefix),
		codec:        codec,
		runtime:      NewAuthRuntimeState(),
		audit:        newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:      NewMetrics(cfg.Metrics),
		log:          logger,
		now:          b.clock,
	}

	b.built = true

	return engine, nil
}
