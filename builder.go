package bearerAuth

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/bearerAuth/internal/audit"
	"github.com/MrEthical07/bearerAuth/internal/flows"
	"github.com/MrEthical07/bearerAuth/jwt"
	"github.com/MrEthical07/bearerAuth/refresh/redisstore"
	"github.com/redis/go-redis/v9"
)

// Builder configures an Engine. A Builder produces at most one Engine.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	store  RefreshStore

	lookup    PrincipalLookup
	auditSink AuditSink
	logger    *slog.Logger
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the builder configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRefreshStore sets the refresh token store. It takes precedence over WithRedis.
func (b *Builder) WithRefreshStore(store RefreshStore) *Builder {
	b.store = store
	return b
}

// WithRedis backs the refresh store with Redis, keyed under Config.Store.RedisPrefix.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithPrincipalLookup sets the lookup used by BuildPrincipal and Authenticate.
func (b *Builder) WithPrincipalLookup(lookup PrincipalLookup) *Builder {
	b.lookup = lookup
	return b
}

// WithAuditSink sets the audit destination. Events are only dispatched when
// Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger. Without one the Engine logs nothing.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source used for issuing and validating tokens.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the validate latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, decodes the signing key and wires the Engine.
//
// Build fails with ErrConfiguration for an unusable config. An Engine built without a
// refresh store can issue and validate tokens but Refresh, StartSession and Logout
// return ErrNoRefreshStore.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	key, err := jwt.NewSigningKey(cfg.JWT.SecretBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	jm, err := jwt.NewManager(jwt.Config{
		Key:        key,
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
		Issuer:     cfg.JWT.Issuer,
		Scheme:     cfg.Headers.Scheme,
		Now:        b.now,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	for _, w := range cfg.Lint() {
		if w.Severity == LintWarn {
			logger.Warn("configuration warning", "code", w.Code, "message", w.Message)
		}
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	store := b.store
	if store == nil && b.redis != nil {
		store = redisstore.New(b.redis, cfg.Store.RedisPrefix)
	}

	engine := &Engine{
		config:     cfg,
		jwtManager: jm,
		store:      store,
		lookup:     b.lookup,
		logger:     logger,
		now:        now,
	}
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)
	engine.flows = flows.New(engine.flowDeps())

	b.built = true

	return engine, nil
}
