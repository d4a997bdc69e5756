package edgeAuth

import (
	"net/http"
	"testing"
	"time"
)

func TestLint_HardenedConfigHasNoWarnings(t *testing.T) {
	cfg := baseConfig(t)
	cfg.CookieSignatureKeys = []string{currentKey, previousKey}
	cfg.CheckRevoked = true
	cfg.Audit.Enabled = true

	if ws := cfg.Lint(); len(ws) != 0 {
		t.Fatalf("expected no warnings, got %v", ws.Codes())
	}
}

func TestLint_Codes(t *testing.T) {
	cases := []struct {
		code   string
		mutate func(*Config)
	}{
		{"cookie_not_secure", func(c *Config) { c.CookieSerializeOptions.Secure = false }},
		{"cookie_not_http_only", func(c *Config) { c.CookieSerializeOptions.HTTPOnly = false }},
		{"cookie_same_site_none", func(c *Config) { c.CookieSerializeOptions.SameSite = http.SameSiteNoneMode }},
		{"single_signature_key", func(c *Config) { c.CookieSignatureKeys = []string{currentKey} }},
		{"leeway_large", func(c *Config) { c.Leeway = 90 * time.Second }},
		{"refresh_threshold_large", func(c *Config) { c.RefreshThreshold = 45 * time.Minute }},
		{"custom_token_single_cookie", func(c *Config) { c.EnableCustomToken = true }},
		{"revocation_disabled", func(c *Config) { c.CheckRevoked = false }},
		{"debug_enabled", func(c *Config) { c.Debug = true }},
		{"audit_disabled", func(c *Config) { c.Audit.Enabled = false }},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			cfg := baseConfig(t)
			cfg.CookieSignatureKeys = []string{currentKey, previousKey}
			cfg.CheckRevoked = true
			cfg.Audit.Enabled = true
			tc.mutate(&cfg)
			if !containsCode(cfg.Lint().Codes(), tc.code) {
				t.Fatalf("expected %s warning", tc.code)
			}
		})
	}
}

func TestLint_NoCustomTokenWarningWithMultipleCookies(t *testing.T) {
	cfg := baseConfig(t)
	cfg.EnableCustomToken = true
	cfg.EnableMultipleCookies = true
	if containsCode(cfg.Lint().Codes(), "custom_token_single_cookie") {
		t.Fatal("multiple cookies leave room for the custom token")
	}
}

func TestLint_SeverityAndAsError(t *testing.T) {
	cfg := baseConfig(t)
	if err := cfg.Lint().AsError(LintHigh); err != nil {
		t.Fatalf("default cookie settings must not fail AsError(LintHigh): %v", err)
	}

	cfg.CookieSerializeOptions.Secure = false
	ws := cfg.Lint()
	high := ws.BySeverity(LintHigh)
	if len(high) != 1 || high[0].Code != "cookie_not_secure" {
		t.Fatalf("expected cookie_not_secure as the only HIGH warning, got %v", high.Codes())
	}
	for _, w := range ws.BySeverity(LintWarn) {
		if w.Severity < LintWarn {
			t.Fatalf("BySeverity(LintWarn) returned %s", w.Severity)
		}
	}
	if err := ws.AsError(LintHigh); err == nil {
		t.Fatal("expected AsError(LintHigh) to fail")
	}
}

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
