package edgeAuth

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/MrEthical07/edgeAuth/provider"
)

const envPrefix = "EDGEAUTH_"

// LoadConfigFromEnv builds a Config from DefaultConfig and EDGEAUTH_*
// environment variables. The named .env files are loaded first; with no
// files, a .env in the working directory is loaded when present. Variables
// already set in the environment win over .env values.
//
// The service account comes from EDGEAUTH_SERVICE_ACCOUNT (JSON),
// EDGEAUTH_SERVICE_ACCOUNT_FILE, or EDGEAUTH_PROJECT_ID,
// EDGEAUTH_CLIENT_EMAIL and EDGEAUTH_PRIVATE_KEY, in that order.
func LoadConfigFromEnv(files ...string) (Config, error) {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	} else if err := godotenv.Load(files...); err != nil {
		return Config{}, fmt.Errorf("load env files: %w", err)
	}

	cfg := DefaultConfig()
	r := envReader{}

	r.str("LOGIN_PATH", &cfg.LoginPath)
	r.str("LOGOUT_PATH", &cfg.LogoutPath)
	r.str("API_KEY", &cfg.APIKey)
	r.str("COOKIE_NAME", &cfg.CookieName)
	r.list("COOKIE_SIGNATURE_KEYS", &cfg.CookieSignatureKeys)
	r.str("COOKIE_PATH", &cfg.CookieSerializeOptions.Path)
	r.str("COOKIE_DOMAIN", &cfg.CookieSerializeOptions.Domain)
	r.integer("COOKIE_MAX_AGE", &cfg.CookieSerializeOptions.MaxAge)
	r.boolean("COOKIE_HTTP_ONLY", &cfg.CookieSerializeOptions.HTTPOnly)
	r.boolean("COOKIE_SECURE", &cfg.CookieSerializeOptions.Secure)
	r.sameSite("COOKIE_SAME_SITE", &cfg.CookieSerializeOptions.SameSite)
	r.boolean("MULTIPLE_COOKIES", &cfg.EnableMultipleCookies)
	r.boolean("CUSTOM_TOKEN", &cfg.EnableCustomToken)
	r.str("TENANT_ID", &cfg.TenantID)
	r.str("AUTHORIZATION_HEADER", &cfg.AuthorizationHeaderName)
	r.boolean("CHECK_REVOKED", &cfg.CheckRevoked)
	r.list("DYNAMIC_CLAIMS_KEYS", &cfg.DynamicCustomClaimsKeys)
	r.boolean("DEBUG", &cfg.Debug)
	r.boolean("ALLOW_MISSING_REFRESH", &cfg.AllowMissingRefreshToken)
	r.duration("REFRESH_THRESHOLD", &cfg.RefreshThreshold)
	r.duration("LEEWAY", &cfg.Leeway)
	r.str("SECURE_TOKEN_URL", &cfg.Provider.SecureToken)
	r.str("IDENTITY_TOOLKIT_URL", &cfg.Provider.IdentityToolkit)
	r.str("OAUTH_TOKEN_URL", &cfg.Provider.OAuthToken)
	r.str("PUBLIC_KEYS_URL", &cfg.Provider.PublicKeys)
	r.boolean("KEY_CACHE_ENABLED", &cfg.KeyCache.Enabled)
	r.str("KEY_CACHE_PREFIX", &cfg.KeyCache.RedisPrefix)
	r.duration("KEY_CACHE_JITTER", &cfg.KeyCache.JitterRange)
	r.boolean("AUDIT_ENABLED", &cfg.Audit.Enabled)
	r.integer("AUDIT_BUFFER_SIZE", &cfg.Audit.BufferSize)
	r.boolean("AUDIT_DROP_IF_FULL", &cfg.Audit.DropIfFull)
	r.boolean("METRICS_ENABLED", &cfg.Metrics.Enabled)
	r.boolean("METRICS_LATENCY", &cfg.Metrics.EnableLatencyHistograms)
	if r.err != nil {
		return Config{}, r.err
	}

	sa, err := serviceAccountFromEnv()
	if err != nil {
		return Config{}, err
	}
	cfg.ServiceAccount = sa

	return cfg, nil
}

func serviceAccountFromEnv() (provider.ServiceAccount, error) {
	if raw, ok := lookupEnv("SERVICE_ACCOUNT"); ok {
		sa, err := provider.ParseServiceAccount([]byte(raw))
		if err != nil {
			return provider.ServiceAccount{}, fmt.Errorf("%sSERVICE_ACCOUNT: %w", envPrefix, err)
		}
		return sa, nil
	}
	if path, ok := lookupEnv("SERVICE_ACCOUNT_FILE"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return provider.ServiceAccount{}, fmt.Errorf("%sSERVICE_ACCOUNT_FILE: %w", envPrefix, err)
		}
		sa, err := provider.ParseServiceAccount(data)
		if err != nil {
			return provider.ServiceAccount{}, fmt.Errorf("%sSERVICE_ACCOUNT_FILE: %w", envPrefix, err)
		}
		return sa, nil
	}

	var sa provider.ServiceAccount
	sa.ProjectID, _ = lookupEnv("PROJECT_ID")
	sa.ClientEmail, _ = lookupEnv("CLIENT_EMAIL")
	key, _ := lookupEnv("PRIVATE_KEY")
	// keys pasted into .env files usually carry escaped newlines
	sa.PrivateKey = strings.ReplaceAll(key, `\n`, "\n")
	return sa, nil
}

func lookupEnv(name string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// envReader records the first parse failure so callers can read every
// variable and check once.
type envReader struct {
	err error
}

func (r *envReader) fail(name string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%s%s: %w", envPrefix, name, err)
	}
}

func (r *envReader) str(name string, dst *string) {
	if v, ok := lookupEnv(name); ok {
		*dst = strings.TrimSpace(v)
	}
}

func (r *envReader) list(name string, dst *[]string) {
	v, ok := lookupEnv(name)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func (r *envReader) boolean(name string, dst *bool) {
	v, ok := lookupEnv(name)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		r.fail(name, err)
		return
	}
	*dst = b
}

func (r *envReader) integer(name string, dst *int) {
	v, ok := lookupEnv(name)
	if !ok {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		r.fail(name, err)
		return
	}
	*dst = n
}

func (r *envReader) duration(name string, dst *time.Duration) {
	v, ok := lookupEnv(name)
	if !ok {
		return
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		r.fail(name, err)
		return
	}
	*dst = d
}

func (r *envReader) sameSite(name string, dst *http.SameSite) {
	v, ok := lookupEnv(name)
	if !ok {
		return
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "lax":
		*dst = http.SameSiteLaxMode
	case "strict":
		*dst = http.SameSiteStrictMode
	case "none":
		*dst = http.SameSiteNoneMode
	case "default":
		*dst = http.SameSiteDefaultMode
	default:
		r.fail(name, fmt.Errorf("unknown SameSite mode %q", v))
	}
}
