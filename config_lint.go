package edgeAuth

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// LintSeverity ranks a [LintWarning].
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return "UNKNOWN"
	}
}

// LintWarning is an advisory finding about a configuration that passes
// [Config.Validate] but is weaker than it could be.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the list of findings returned by [Config.Lint].
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns the warnings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError returns an error listing the warnings at or above min, or nil.
func (r LintResult) AsError(min LintSeverity) error {
	hits := r.BySeverity(min)
	if len(hits) == 0 {
		return nil
	}
	parts := make([]string, 0, len(hits))
	for _, w := range hits {
		parts = append(parts, fmt.Sprintf("%s(%s)", w.Code, w.Severity))
	}
	return fmt.Errorf("config lint: %s", strings.Join(parts, ", "))
}

// Lint reports settings that are valid but risky. It never fails; use
// [LintResult.AsError] to turn findings into a startup error.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, format string, args ...any) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	opts := c.CookieSerializeOptions
	if !opts.Secure {
		add("cookie_not_secure", LintHigh, "session cookies are sent over plain HTTP")
	}
	if !opts.HTTPOnly {
		add("cookie_not_http_only", LintHigh, "session cookies are readable from scripts")
	}
	if opts.SameSite == http.SameSiteNoneMode {
		add("cookie_same_site_none", LintWarn, "session cookies are sent on cross-site requests")
	}
	if len(c.CookieSignatureKeys) == 1 {
		add("single_signature_key", LintInfo, "only one cookie signature key; rotation will invalidate every session")
	}

	if c.Leeway > 30*time.Second {
		add("leeway_large", LintWarn, "Leeway %s exceeds 30s", c.Leeway)
	}
	if c.RefreshThreshold > 30*time.Minute {
		add("refresh_threshold_large", LintWarn, "RefreshThreshold %s refreshes most requests", c.RefreshThreshold)
	}

	if c.EnableCustomToken && !c.EnableMultipleCookies {
		add("custom_token_single_cookie", LintWarn, "custom tokens in a single cookie may exceed browser size limits")
	}
	if !c.CheckRevoked {
		add("revocation_disabled", LintInfo, "revoked or disabled accounts stay signed in until the ID token expires")
	}
	if c.Debug {
		add("debug_enabled", LintWarn, "debug logging is enabled")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "audit events are not recorded")
	}

	return ws
}
