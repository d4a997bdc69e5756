package edgeAuth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	internalaudit "github.com/MrEthical07/edgeAuth/internal/audit"
	"github.com/MrEthical07/edgeAuth/jwt"
	"github.com/MrEthical07/edgeAuth/keycache"
	"github.com/MrEthical07/edgeAuth/keyring"
	"github.com/MrEthical07/edgeAuth/provider"
	"github.com/MrEthical07/edgeAuth/session"
)

const (
	markerKeyLabel         = "edgeauth forwarded marker"
	defaultProviderTimeout = 10 * time.Second
)

// Builder assembles an [Engine].
//
// Builder instances are intended to be configured during initialization and
// then discarded after Build.
type Builder struct {
	config     Config
	redis      redis.UniversalClient
	httpClient *http.Client
	logger     *zap.Logger
	auditSink  AuditSink

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration. Options applied after it
// override individual fields.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the client used by the shared public key cache.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithHTTPClient sets the client used for identity provider calls.
func (b *Builder) WithHTTPClient(hc *http.Client) *Builder {
	b.httpClient = hc
	return b
}

// WithLogger sets the engine logger. The default discards everything.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditSink sets where audit events are delivered. Delivery only
// happens when Config.Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the engine's in-memory counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the Authenticate latency histogram. It has
// no effect unless metrics are enabled.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the engine. A Builder can be
// built once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.KeyCache.Enabled && b.redis == nil {
		return nil, errors.New("KeyCache requires redis client")
	}

	// -------- KEYS --------
	ring, err := keyring.FromStrings(cfg.CookieSignatureKeys)
	if err != nil {
		return nil, err
	}
	markers, err := ring.Derive(markerKeyLabel)
	if err != nil {
		return nil, err
	}

	// -------- PROVIDER --------
	hc := b.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultProviderTimeout}
	}
	endpoints := cfg.Provider
	if endpoints.OAuthToken == "" {
		endpoints.OAuthToken = provider.DefaultEndpoints().OAuthToken
	}
	cred, err := provider.NewCredential(cfg.ServiceAccount, endpoints.OAuthToken, hc)
	if err != nil {
		return nil, err
	}
	client, err := provider.NewClient(provider.Config{
		APIKey:     cfg.APIKey,
		ProjectID:  cfg.ServiceAccount.ProjectID,
		TenantID:   cfg.TenantID,
		HTTPClient: hc,
		Endpoints:  endpoints,
		Credential: cred,
	})
	if err != nil {
		return nil, err
	}

	var store *keycache.Store
	var cache provider.Cache
	if cfg.KeyCache.Enabled {
		store = keycache.NewStore(b.redis, cfg.KeyCache.RedisPrefix, cfg.KeyCache.JitterRange)
		cache = store
	}
	keys := provider.NewKeySet(client.Endpoints().PublicKeys, hc, cache)

	validator, err := jwt.NewValidator(jwt.Config{
		ProjectID: cfg.ServiceAccount.ProjectID,
		TenantID:  cfg.TenantID,
		Leeway:    cfg.Leeway,
		Keys:      keys,
	})
	if err != nil {
		return nil, fmt.Errorf("id token validator: %w", err)
	}
	signer, err := jwt.NewCustomTokenSigner(cfg.ServiceAccount.ClientEmail, []byte(cfg.ServiceAccount.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("custom token signer: %w", err)
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	scheme := session.SchemeSingle
	if cfg.EnableMultipleCookies {
		scheme = session.SchemeMultiple
	}

	engine := &Engine{
		config:    cloneConfig(cfg),
		ring:      ring,
		markers:   markers,
		scheme:    scheme,
		names:     session.Names(cfg.CookieName),
		client:    client,
		keys:      keys,
		keyStore:  store,
		validator: validator,
		signer:    signer,
		logger:    logger.Named("edgeauth"),
		now:       time.Now,
	}
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)
	engine.flows = engine.buildFlowDeps()

	b.built = true

	return engine, nil
}
