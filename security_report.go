package edgeAuth

import (
	"net/http"
	"time"
)

// SecurityReport summarizes the security-relevant settings of a running
// engine. It contains no key material.
type SecurityReport struct {
	CookieScheme        string
	SignatureKeys       int
	CookieSecure        bool
	CookieHTTPOnly      bool
	CookieSameSite      http.SameSite
	CustomTokenEnabled  bool
	RevocationChecks    bool
	AllowMissingRefresh bool
	RefreshThreshold    time.Duration
	Leeway              time.Duration
	TenantScoped        bool
	KeyCacheShared      bool
	AuditEnabled        bool
	MetricsEnabled      bool
	LintHighCount       int
}

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	opts := e.config.CookieSerializeOptions
	return SecurityReport{
		CookieScheme:        e.scheme.String(),
		SignatureKeys:       e.ring.Len(),
		CookieSecure:        opts.Secure,
		CookieHTTPOnly:      opts.HTTPOnly,
		CookieSameSite:      opts.SameSite,
		CustomTokenEnabled:  e.config.EnableCustomToken,
		RevocationChecks:    e.config.CheckRevoked,
		AllowMissingRefresh: e.config.AllowMissingRefreshToken,
		RefreshThreshold:    e.config.RefreshThreshold,
		Leeway:              e.config.Leeway,
		TenantScoped:        e.config.TenantID != "",
		KeyCacheShared:      e.keyStore != nil,
		AuditEnabled:        e.config.Audit.Enabled,
		MetricsEnabled:      e.config.Metrics.Enabled,
		LintHighCount:       len(e.config.Lint().BySeverity(LintHigh)),
	}
}
