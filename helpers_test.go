package edgeAuth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrEthical07/edgeAuth/internal/testkit"
	"github.com/MrEthical07/edgeAuth/provider"
)

const (
	currentKey  = "current-cookie-secret-0123456789abcdef"
	previousKey = "previous-cookie-secret-0123456789abcdef"
)

// baseConfig is a valid configuration with placeholder endpoints.
func baseConfig(t testing.TB) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.APIKey = testkit.APIKey
	cfg.CookieSignatureKeys = []string{currentKey}
	cfg.ServiceAccount = provider.ServiceAccount{
		ProjectID:   testkit.ProjectID,
		ClientEmail: testkit.ClientEmail,
		PrivateKey:  string(testkit.PrivateKeyPEM(t, testkit.RSAKey(t))),
	}
	return cfg
}

// fakeConfig points cfg at the fake provider with metrics enabled.
func fakeConfig(t testing.TB, fake *testkit.Provider) Config {
	t.Helper()
	cfg := baseConfig(t)
	cfg.Provider = provider.Endpoints{
		SecureToken:     fake.SecureTokenURL,
		IdentityToolkit: fake.IdentityToolkitURL,
		OAuthToken:      fake.OAuthTokenURL,
		PublicKeys:      fake.PublicKeysURL,
	}
	cfg.Metrics.Enabled = true
	return cfg
}

func newTestEngine(t testing.TB, fake *testkit.Provider, cfg Config, opts ...func(*Builder)) *Engine {
	t.Helper()
	b := New().WithConfig(cfg).WithHTTPClient(fake.Server.Client())
	for _, opt := range opts {
		opt(b)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func issue(t testing.TB, engine *Engine, tokens TokenSet) []*http.Cookie {
	t.Helper()
	cookies, err := engine.IssueCookies(context.Background(), tokens)
	if err != nil {
		t.Fatalf("IssueCookies failed: %v", err)
	}
	return cookies
}

func requestWith(cookies []*http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "https://edge.example/app", nil)
	for _, c := range cookies {
		r.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}
	return r
}

func freshToken(t testing.TB, uid string) string {
	t.Helper()
	return testkit.MintIDToken(t, testkit.Token{UID: uid, Email: uid + "@example.com"})
}

func expiredToken(t testing.TB, uid string) string {
	t.Helper()
	now := time.Now()
	return testkit.MintIDToken(t, testkit.Token{
		UID:       uid,
		IssuedAt:  now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	})
}

func mustValid(t testing.TB, res Result) ValidOutcome {
	t.Helper()
	o, ok := res.Outcome.(ValidOutcome)
	if !ok {
		t.Fatalf("expected ValidOutcome, got %#v", res.Outcome)
	}
	return o
}

func mustInvalid(t testing.TB, res Result, want InvalidReason) InvalidOutcome {
	t.Helper()
	o, ok := res.Outcome.(InvalidOutcome)
	if !ok {
		t.Fatalf("expected InvalidOutcome(%s), got %#v", want, res.Outcome)
	}
	if o.Reason != want {
		t.Fatalf("expected reason %s, got %s (err=%v)", want, o.Reason, o.Err)
	}
	return o
}

func cookieByName(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
