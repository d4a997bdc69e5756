package edgeAuth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/edgeAuth/provider"
)

// Config defines the edge authentication settings.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable.
type Config struct {
	LoginPath               string
	LogoutPath              string
	APIKey                  string
	CookieName              string
	CookieSignatureKeys     []string
	CookieSerializeOptions  CookieSerializeOptions
	ServiceAccount          provider.ServiceAccount
	EnableMultipleCookies   bool
	EnableCustomToken       bool
	TenantID                string
	AuthorizationHeaderName string
	CheckRevoked            bool
	DynamicCustomClaimsKeys []string
	Debug                   bool

	// AllowMissingRefreshToken accepts sessions holding only an ID token.
	// They stay valid until the ID token expires.
	AllowMissingRefreshToken bool
	// RefreshThreshold refreshes a still-valid ID token this close to expiry.
	RefreshThreshold time.Duration
	// Leeway is the clock skew tolerated on exp, nbf and auth_time.
	Leeway time.Duration

	Provider provider.Endpoints
	KeyCache KeyCacheConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieSerializeOptions are the attributes written on every session cookie.
type CookieSerializeOptions struct {
	Path     string
	Domain   string
	MaxAge   int
	HTTPOnly bool
	Secure   bool
	SameSite http.SameSite
}

/*
====================================
KEY CACHE CONFIG
====================================
*/

// KeyCacheConfig shares the provider's public key set between instances
// through Redis. It requires [Builder.WithRedis].
type KeyCacheConfig struct {
	Enabled     bool
	RedisPrefix string
	JitterRange time.Duration
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters and latency histograms.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the defaults applied by [New]. Secrets and the
// service account are left empty.
func DefaultConfig() Config {
	return Config{
		LoginPath:  "/api/login",
		LogoutPath: "/api/logout",
		CookieName: "AuthToken",
		CookieSerializeOptions: CookieSerializeOptions{
			Path:     "/",
			MaxAge:   12 * 24 * 60 * 60,
			HTTPOnly: true,
			Secure:   true,
			SameSite: http.SameSiteLaxMode,
		},
		AuthorizationHeaderName:  "Authorization",
		AllowMissingRefreshToken: true,
		KeyCache: KeyCacheConfig{
			Enabled:     false,
			RedisPrefix: "eak",
			JitterRange: 30 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.CookieSignatureKeys = cloneStrings(cfg.CookieSignatureKeys)
	out.DynamicCustomClaimsKeys = cloneStrings(cfg.DynamicCustomClaimsKeys)
	return out
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	// Paths
	if !strings.HasPrefix(c.LoginPath, "/") {
		return errors.New("LoginPath must start with /")
	}
	if !strings.HasPrefix(c.LogoutPath, "/") {
		return errors.New("LogoutPath must start with /")
	}
	if c.LoginPath == c.LogoutPath {
		return errors.New("LoginPath and LogoutPath must differ")
	}

	// Provider
	if strings.TrimSpace(c.APIKey) == "" {
		return errors.New("APIKey must be set")
	}
	if err := c.ServiceAccount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.AuthorizationHeaderName) == "" {
		return errors.New("AuthorizationHeaderName must be set")
	}

	// Cookies
	if !validCookieName(c.CookieName) {
		return errors.New("CookieName must be a non-empty cookie token")
	}
	if len(c.CookieSignatureKeys) == 0 {
		return errors.New("CookieSignatureKeys must contain at least one key")
	}
	for _, k := range c.CookieSignatureKeys {
		if k == "" {
			return errors.New("CookieSignatureKeys must not contain empty keys")
		}
	}
	if c.CookieSerializeOptions.SameSite == http.SameSiteNoneMode && !c.CookieSerializeOptions.Secure {
		return errors.New("SameSite=None cookies must be Secure")
	}

	// Claims
	for _, k := range c.DynamicCustomClaimsKeys {
		if strings.TrimSpace(k) == "" {
			return errors.New("DynamicCustomClaimsKeys must not contain empty keys")
		}
	}

	// Timing
	if c.Leeway < 0 || c.Leeway > 2*time.Minute {
		return errors.New("Leeway must be between 0 and 2m")
	}
	if c.RefreshThreshold < 0 {
		return errors.New("RefreshThreshold must be >= 0")
	}
	if c.RefreshThreshold >= time.Hour {
		return errors.New("RefreshThreshold must be < 1h")
	}

	// Key cache
	if c.KeyCache.Enabled {
		if strings.TrimSpace(c.KeyCache.RedisPrefix) == "" {
			return errors.New("KeyCache RedisPrefix must be set when enabled")
		}
		if c.KeyCache.JitterRange < 0 {
			return errors.New("KeyCache JitterRange must be >= 0")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}

func validCookieName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if r <= ' ' || r >= 0x7f || strings.ContainsRune("()<>@,;:\\\"/[]?={}", r) {
			return false
		}
	}
	return true
}
