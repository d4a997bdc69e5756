package edgeAuth

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/edgeAuth/internal/testkit"
)

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.CookieName != "AuthToken" || cfg.LoginPath != "/api/login" || cfg.LogoutPath != "/api/logout" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	opts := cfg.CookieSerializeOptions
	if !opts.HTTPOnly || !opts.Secure || opts.SameSite != http.SameSiteLaxMode || opts.MaxAge != 12*24*60*60 {
		t.Fatalf("unexpected cookie defaults %+v", opts)
	}
	if cfg.AuthorizationHeaderName != "Authorization" || !cfg.AllowMissingRefreshToken {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("defaults without secrets must not validate")
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "login path", mutate: func(c *Config) { c.LoginPath = "login" }, want: "LoginPath"},
		{name: "same paths", mutate: func(c *Config) { c.LogoutPath = c.LoginPath }, want: "must differ"},
		{name: "api key", mutate: func(c *Config) { c.APIKey = " " }, want: "APIKey"},
		{name: "service account", mutate: func(c *Config) { c.ServiceAccount.PrivateKey = "" }, want: "private_key"},
		{name: "cookie name", mutate: func(c *Config) { c.CookieName = "bad name" }, want: "CookieName"},
		{name: "no keys", mutate: func(c *Config) { c.CookieSignatureKeys = nil }, want: "at least one key"},
		{name: "empty key", mutate: func(c *Config) { c.CookieSignatureKeys = []string{"a", ""} }, want: "empty keys"},
		{name: "samesite none", mutate: func(c *Config) {
			c.CookieSerializeOptions.SameSite = http.SameSiteNoneMode
			c.CookieSerializeOptions.Secure = false
		}, want: "Secure"},
		{name: "dynamic key", mutate: func(c *Config) { c.DynamicCustomClaimsKeys = []string{"role", " "} }, want: "DynamicCustomClaimsKeys"},
		{name: "leeway", mutate: func(c *Config) { c.Leeway = 3 * time.Minute }, want: "Leeway"},
		{name: "threshold", mutate: func(c *Config) { c.RefreshThreshold = time.Hour }, want: "RefreshThreshold"},
		{name: "key cache prefix", mutate: func(c *Config) {
			c.KeyCache.Enabled = true
			c.KeyCache.RedisPrefix = ""
		}, want: "RedisPrefix"},
		{name: "audit buffer", mutate: func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}, want: "BufferSize"},
	}

	if cfg := baseConfig(t); cfg.Validate() != nil {
		t.Fatalf("base config must validate: %v", cfg.Validate())
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := baseConfig(t)
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestWithConfigClonesSlices(t *testing.T) {
	cfg := baseConfig(t)
	cfg.CookieSignatureKeys = []string{currentKey}
	b := New().WithConfig(cfg)
	cfg.CookieSignatureKeys[0] = "mutated"
	if b.config.CookieSignatureKeys[0] != currentKey {
		t.Fatal("builder must not share the caller's key slice")
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	pemKey := string(testkit.PrivateKeyPEM(t, testkit.RSAKey(t)))

	t.Setenv("EDGEAUTH_API_KEY", "env-key")
	t.Setenv("EDGEAUTH_COOKIE_SIGNATURE_KEYS", "new-secret, old-secret")
	t.Setenv("EDGEAUTH_COOKIE_SAME_SITE", "strict")
	t.Setenv("EDGEAUTH_MULTIPLE_COOKIES", "true")
	t.Setenv("EDGEAUTH_REFRESH_THRESHOLD", "5m")
	t.Setenv("EDGEAUTH_DYNAMIC_CLAIMS_KEYS", "role,plan")
	t.Setenv("EDGEAUTH_PROJECT_ID", testkit.ProjectID)
	t.Setenv("EDGEAUTH_CLIENT_EMAIL", testkit.ClientEmail)
	t.Setenv("EDGEAUTH_PRIVATE_KEY", strings.ReplaceAll(pemKey, "\n", `\n`))

	dotenv := filepath.Join(t.TempDir(), ".env")
	body := "EDGEAUTH_COOKIE_NAME=Session\nEDGEAUTH_API_KEY=file-key\n"
	if err := os.WriteFile(dotenv, []byte(body), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("EDGEAUTH_COOKIE_NAME") })

	cfg, err := LoadConfigFromEnv(dotenv)
	if err != nil {
		t.Fatalf("LoadConfigFromEnv failed: %v", err)
	}
	if cfg.APIKey != "env-key" {
		t.Fatalf("environment must win over .env, got %q", cfg.APIKey)
	}
	if cfg.CookieName != "Session" {
		t.Fatalf("expected cookie name from .env, got %q", cfg.CookieName)
	}
	if len(cfg.CookieSignatureKeys) != 2 || cfg.CookieSignatureKeys[1] != "old-secret" {
		t.Fatalf("unexpected keys %v", cfg.CookieSignatureKeys)
	}
	if cfg.CookieSerializeOptions.SameSite != http.SameSiteStrictMode || !cfg.EnableMultipleCookies {
		t.Fatalf("unexpected cookie settings %+v", cfg)
	}
	if cfg.RefreshThreshold != 5*time.Minute || len(cfg.DynamicCustomClaimsKeys) != 2 {
		t.Fatalf("unexpected refresh settings %+v", cfg)
	}
	if cfg.ServiceAccount.PrivateKey != pemKey {
		t.Fatal("escaped newlines in the private key must be restored")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("loaded config must validate: %v", err)
	}
}

func TestLoadConfigFromEnvErrors(t *testing.T) {
	t.Setenv("EDGEAUTH_DEBUG", "sometimes")
	if _, err := LoadConfigFromEnv(filepath.Join(t.TempDir(), "empty.env")); err == nil {
		t.Fatal("expected error for a missing explicit .env file")
	}

	empty := filepath.Join(t.TempDir(), "empty.env")
	if err := os.WriteFile(empty, nil, 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	_, err := LoadConfigFromEnv(empty)
	if err == nil || !strings.Contains(err.Error(), "EDGEAUTH_DEBUG") {
		t.Fatalf("expected EDGEAUTH_DEBUG parse error, got %v", err)
	}

	t.Setenv("EDGEAUTH_DEBUG", "")
	t.Setenv("EDGEAUTH_SERVICE_ACCOUNT", `{"project_id":"p"}`)
	if _, err := LoadConfigFromEnv(empty); err == nil {
		t.Fatal("expected error for incomplete service account JSON")
	}
}
