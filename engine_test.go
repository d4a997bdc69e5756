package edgeAuth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/edgeAuth/internal/testkit"
	"github.com/MrEthical07/edgeAuth/jwt"
)

func TestAuthenticateValidSessionMakesNoProviderCalls(t *testing.T) {
	fake := testkit.NewProvider(t)
	engine := newTestEngine(t, fake, fakeConfig(t, fake))

	cookies := issue(t, engine, TokenSet{IDToken: freshToken(t, "user-1"), RefreshToken: "rt-unused"})
	if len(cookies) != 1 || cookies[0].Name != "AuthToken" {
		t.Fatalf("expected a single AuthToken cookie, got %+v", cookies)
	}

	res := engine.Authenticate(context.Background(), requestWith(cookies))
	o := mustValid(t, res)
	if o.Principal.UID != "user-1" || o.Principal.Email != "user-1@example.com" {
		t.Fatalf("unexpected principal %+v", o.Principal)
	}
	if o.Refreshed || len(res.SetCookies) != 0 {
		t.Fatalf("valid session must not be refreshed")
	}
	if res.Forward.Get(VerifiedHeader) == "" {
		t.Fatal("expected marker header on forward headers")
	}
	if n := fake.RefreshCalls.Load() + fake.SignInCalls.Load() + fake.LookupCalls.Load(); n != 0 {
		t.Fatalf("expected no provider token calls, got %d", n)
	}
	if got := engine.MetricsSnapshot().Counters[MetricAuthValid]; got != 1 {
		t.Fatalf("expected MetricAuthValid=1, got %d", got)
	}
}

func TestAuthenticateMultipleCookiesRoundTrip(t *testing.T) {
	fake := testkit.NewProvider(t)
	cfg := fakeConfig(t, fake)
	cfg.EnableMultipleCookies = true
	cfg.EnableCustomToken = true
	engine := newTestEngine(t, fake, cfg)

	cookies := issue(t, engine, TokenSet{
		IDToken:      freshToken(t, "user-1"),
		RefreshToken: "rt-1",
		CustomToken:  "custom-token",
	})
	if len(cookies) != 4 {
		t.Fatalf("expected 4 cookies, got %d", len(cookies))
	}
	for _, name := range []string{"AuthToken.id", "AuthToken.refresh", "AuthToken.custom", "AuthToken.sig"} {
		if cookieByName(cookies, name) == nil {
			t.Fatalf("missing cookie %s", name)
		}
	}

	o := mustValid(t, engine.Authenticate(context.Background(), requestWith(cookies)))
	if o.CustomToken != "custom-token" {
		t.Fatalf("expected custom token to round-trip, got %q", o.CustomToken)
	}
}

func TestIssueCookiesDropsCustomTokenWhenDisabled(t *testing.T) {
	fake := testkit.NewProvider(t)
	cfg := fakeConfig(t, fake)
	cfg.EnableMultipleCookies = true
	engine := newTestEngine(t, fake, cfg)

	cookies := issue(t, engine, TokenSet{IDToken: freshToken(t, "user-1"), RefreshToken: "rt-1", CustomToken: "custom"})
	if cookieByName(cookies, "AuthToken.custom") != nil {
		t.Fatal("custom token cookie must not be written when disabled")
	}
	if _, err := engine.IssueCookies(context.Background(), TokenSet{}); err == nil {
		t.Fatal("expected error without id token")
	}
}

func TestAuthenticateKeyRotation(t *testing.T) {
	fake := testkit.NewProvider(t)

	oldCfg := fakeConfig(t, fake)
	oldCfg.CookieSignatureKeys = []string{previousKey}
	oldEngine := newTestEngine(t, fake, oldCfg)
	cookies := issue(t, oldEngine, TokenSet{IDToken: freshToken(t, "user-1"), RefreshToken: "rt-1"})

	rotated := fakeConfig(t, fake)
	rotated.CookieSignatureKeys = []string{currentKey, previousKey}
	rotatedEngine := newTestEngine(t, fake, rotated)
	mustValid(t, rotatedEngine.Authenticate(context.Background(), requestWith(cookies)))

	info, err := rotatedEngine.SessionInfo(requestWith(cookies))
	if err != nil {
		t.Fatalf("SessionInfo failed: %v", err)
	}
	if info.KeyIndex != 1 || info.UID != "user-1" || !info.HasRefreshToken || info.Scheme != "single" {
		t.Fatalf("unexpected session info %+v", info)
	}

	retired := fakeConfig(t, fake)
	retired.CookieSignatureKeys = []string{currentKey}
	retiredEngine := newTestEngine(t, fake, retired)
	mustInvalid(t, retiredEngine.Authenticate(context.Background(), requestWith(cookies)), ReasonInvalidSignature)
}

func TestAuthenticateTamperedCookie(t *testing.T) {
	fake := testkit.NewProvider(t)
	cfg := fakeConfig(t, fake)
	cfg.EnableMultipleCookies = true
	engine := newTestEngine(t, fake, cfg)

	cookies := issue(t, engine, TokenSet{IDToken: freshToken(t, "user-1"), RefreshToken: "rt-1"})
	cookieByName(cookies, "AuthToken.refresh").Value = "rt-stolen"

	mustInvalid(t, engine.Authenticate(context.Background(), requestWith(cookies)), ReasonInvalidSignature)
	if got := engine.MetricsSnapshot().Counters[MetricSignatureInvalid]; got != 1 {
		t.Fatalf("expected MetricSignatureInvalid=1, got %d", got)
	}
}

func TestAuthenticateMissingAndMalformed(t *testing.T) {
	fake := testkit.NewProvider(t)
	cfg := fakeConfig(t, fake)
	cfg.EnableMultipleCookies = true
	engine := newTestEngine(t, fake, cfg)

	mustInvalid(t, engine.Authenticate(context.Background(), requestWith(nil)), ReasonMissingCredentials)

	cookies := issue(t, engine, TokenSet{IDToken: freshToken(t, "user-1"), RefreshToken: "rt-1"})
	var noSig []*http.Cookie
	for _, c := range cookies {
		if c.Name != "AuthToken.sig" {
			noSig = append(noSig, c)
		}
	}
	mustInvalid(t, engine.Authenticate(context.Background(), requestWith(noSig)), ReasonMalformedCredentials)
}

func TestAuthenticateExpiredRefreshes(t *testing.T) {
	fake := testkit.NewProvider(t)
	engine := newTestEngine(t, fake, fakeConfig(t, fake))

	rt := fake.IssueRefreshToken("user-1")
	cookies := issue(t, engine, TokenSet{IDToken: expiredToken(t, "user-1"), RefreshToken: rt})

	res := engine.Authenticate(context.Background(), requestWith(cookies))
	o := mustValid(t, res)
	if !o.Refreshed {
		t.Fatal("expected refreshed outcome")
	}
	if got := fake.RefreshCalls.Load(); got != 1 {
		t.Fatalf("expected exactly one refresh call, got %d", got)
	}
	if len(res.SetCookies) != 1 {
		t.Fatalf("expected one Set-Cookie, got %d", len(res.SetCookies))
	}
	if !strings.Contains(res.Forward.Get("Cookie"), "AuthToken="+res.SetCookies[0].Value) {
		t.Fatal("forward Cookie header must carry the refreshed session")
	}

	again := engine.Authenticate(context.Background(), requestWith(res.SetCookies))
	if mustValid(t, again).Refreshed {
		t.Fatal("refreshed session must be valid without another refresh")
	}
	if got := fake.RefreshCalls.Load(); got != 1 {
		t.Fatalf("expected refresh count to stay 1, got %d", got)
	}
}

func TestAuthenticateExpiredRejectedRefresh(t *testing.T) {
	fake := testkit.NewProvider(t)
	engine := newTestEngine(t, fake, fakeConfig(t, fake))
	fake.FailRefresh(http.StatusBadRequest, "TOKEN_EXPIRED")

	cookies := issue(t, engine, TokenSet{IDToken: expiredToken(t, "user-1"), RefreshToken: "rt-revoked"})
	res := engine.Authenticate(context.Background(), requestWith(cookies))
	o := mustInvalid(t, res, ReasonInvalidCredentials)
	if !errors.Is(o.Err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", o.Err)
	}
	if len(res.SetCookies) != 0 {
		t.Fatal("rejected refresh must not set cookies")
	}
}

func TestAuthenticateExpiredProviderUnavailable(t *testing.T) {
	fake := testkit.NewProvider(t)
	engine := newTestEngine(t, fake, fakeConfig(t, fake))
	fake.FailRefresh(http.StatusServiceUnavailable, "UNAVAILABLE")

	cookies := issue(t, engine, TokenSet{IDToken: expiredToken(t, "user-1"), RefreshToken: "rt-1"})
	res := engine.Authenticate(context.Background(), requestWith(cookies))
	if _, ok := res.Outcome.(ErrorOutcome); !ok {
		t.Fatalf("expected ErrorOutcome, got %#v", res.Outcome)
	}
	if len(res.SetCookies) != 0 {
		t.Fatal("failed refresh must not set cookies")
	}
}

func TestAuthenticateExpiredWithoutRefreshToken(t *testing.T) {
	fake := testkit.NewProvider(t)
	cfg := fakeConfig(t, fake)
	cfg.EnableMultipleCookies = true
	engine := newTestEngine(t, fake, cfg)

	cookies := issue(t, engine, TokenSet{IDToken: expiredToken(t, "user-1")})
	o := mustInvalid(t, engine.Authenticate(context.Background(), requestWith(cookies)), ReasonMissingRefreshToken)
	if !errors.Is(o.Err, ErrMissingRefreshToken) {
		t.Fatalf("expected ErrMissingRefreshToken, got %v", o.Err)
	}
	if fake.RefreshCalls.Load() != 0 {
		t.Fatal("no refresh call expected without a refresh token")
	}
}

func TestAuthenticateRevocation(t *testing.T) {
	cases := []struct {
		name  string
		user  *testkit.User
		valid bool
	}{
		{name: "active", user: &testkit.User{UID: "user-1"}, valid: true},
		{name: "revoked", user: &testkit.User{UID: "user-1", ValidSince: time.Now()}},
		{name: "disabled", user: &testkit.User{UID: "user-1", Disabled: true}},
		{name: "deleted"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := testkit.NewProvider(t)
			if tc.user != nil {
				fake.AddUser(*tc.user)
			}
			cfg := fakeConfig(t, fake)
			cfg.CheckRevoked = true
			engine := newTestEngine(t, fake, cfg)

			cookies := issue(t, engine, TokenSet{IDToken: freshToken(t, "user-1"), RefreshToken: "rt-1"})
			res := engine.Authenticate(context.Background(), requestWith(cookies))
			if fake.LookupCalls.Load() != 1 {
				t.Fatalf("expected one lookup, got %d", fake.LookupCalls.Load())
			}
			if tc.valid {
				mustValid(t, res)
				return
			}
			o := mustInvalid(t, res, ReasonInvalidCredentials)
			if !errors.Is(o.Err, ErrRevoked) {
				t.Fatalf("expected ErrRevoked, got %v", o.Err)
			}
		})
	}
}

func TestAuthenticateRevocationLookupFailureIsError(t *testing.T) {
	fake := testkit.NewProvider(t)
	fake.FailLookup(http.StatusInternalServerError)
	cfg := fakeConfig(t, fake)
	cfg.CheckRevoked = true
	engine := newTestEngine(t, fake, cfg)

	cookies := issue(t, engine, TokenSet{IDToken: freshToken(t, "user-1"), RefreshToken: "rt-1"})
	if _, ok := engine.Authenticate(context.Background(), requestWith(cookies)).Outcome.(ErrorOutcome); !ok {
		t.Fatal("expected ErrorOutcome when the lookup fails")
	}
}

func TestAuthenticateEarlyRefresh(t *testing.T) {
	nearExpiry := func(t *testing.T) string {
		now := time.Now()
		return testkit.MintIDToken(t, testkit.Token{
			UID:       "user-1",
			IssuedAt:  now.Add(-55 * time.Minute),
			ExpiresAt: now.Add(5 * time.Minute),
		})
	}
	setup := func(t *testing.T) (*testkit.Provider, *Engine, []*http.Cookie) {
		fake := testkit.NewProvider(t)
		cfg := fakeConfig(t, fake)
		cfg.RefreshThreshold = 10 * time.Minute
		engine := newTestEngine(t, fake, cfg)
		rt := fake.IssueRefreshToken("user-1")
		return fake, engine, issue(t, engine, TokenSet{IDToken: nearExpiry(t), RefreshToken: rt})
	}

	t.Run("refreshes", func(t *testing.T) {
		fake, engine, cookies := setup(t)
		res := engine.Authenticate(context.Background(), requestWith(cookies))
		if !mustValid(t, res).Refreshed || fake.RefreshCalls.Load() != 1 {
			t.Fatal("expected an early refresh")
		}
	})
	t.Run("keeps session when provider is down", func(t *testing.T) {
		fake, engine, cookies := setup(t)
		fake.FailRefresh(http.StatusServiceUnavailable, "UNAVAILABLE")
		res := engine.Authenticate(context.Background(), requestWith(cookies))
		if mustValid(t, res).Refreshed || len(res.SetCookies) != 0 {
			t.Fatal("expected the current session to be kept")
		}
	})
	t.Run("rejection is terminal", func(t *testing.T) {
		fake, engine, cookies := setup(t)
		fake.FailRefresh(http.StatusBadRequest, "TOKEN_EXPIRED")
		mustInvalid(t, engine.Authenticate(context.Background(), requestWith(cookies)), ReasonInvalidCredentials)
	})
}

func TestAuthenticateRecoversPanics(t *testing.T) {
	fake := testkit.NewProvider(t)
	engine := newTestEngine(t, fake, fakeConfig(t, fake))
	engine.flows.Authenticate.ParseIDToken = func(context.Context, string) (*jwt.IDClaims, error) {
		panic("boom")
	}

	cookies := issue(t, engine, TokenSet{IDToken: freshToken(t, "user-1"), RefreshToken: "rt-1"})
	o, ok := engine.Authenticate(context.Background(), requestWith(cookies)).Outcome.(ErrorOutcome)
	if !ok || !errors.Is(o.Err, ErrInternal) {
		t.Fatalf("expected ErrorOutcome wrapping ErrInternal, got %#v", o)
	}
}

func TestForwardedMarker(t *testing.T) {
	fake := testkit.NewProvider(t)
	engine := newTestEngine(t, fake, fakeConfig(t, fake))

	cookies := issue(t, engine, TokenSet{IDToken: freshToken(t, "user-1"), RefreshToken: "rt-1"})
	res := engine.Authenticate(context.Background(), requestWith(cookies))
	mustValid(t, res)

	forwarded := requestWith(cookies)
	forwarded.Header.Set(VerifiedHeader, res.Forward.Get(VerifiedHeader))
	o, ok := engine.VerifyForwarded(forwarded)
	if !ok || o.Principal.UID != "user-1" {
		t.Fatalf("expected forwarded marker to verify, got %v %+v", ok, o)
	}

	mark := res.Forward.Get(VerifiedHeader)
	last := len(mark) - 1
	for _, c := range "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_" {
		if byte(c) == mark[last] {
			continue
		}
		edited := requestWith(cookies)
		edited.Header.Set(VerifiedHeader, mark[:last]+string(c))
		if _, ok := engine.VerifyForwarded(edited); ok {
			t.Fatalf("edited marker %q must not verify", mark[:last]+string(c))
		}
	}

	forged := requestWith(cookies)
	forged.Header.Set(VerifiedHeader, "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	if _, ok := engine.VerifyForwarded(forged); ok {
		t.Fatal("forged marker must not verify")
	}

	other := fakeConfig(t, fake)
	other.CookieSignatureKeys = []string{previousKey}
	otherEngine := newTestEngine(t, fake, other)
	if _, ok := otherEngine.VerifyForwarded(forwarded); ok {
		t.Fatal("marker must be bound to the configured signature keys")
	}
}

func TestInboundMarkerIsNotTrusted(t *testing.T) {
	fake := testkit.NewProvider(t)
	fake.AddUser(testkit.User{UID: "user-1"})
	cfg := fakeConfig(t, fake)
	cfg.CheckRevoked = true
	engine := newTestEngine(t, fake, cfg)

	cookies := issue(t, engine, TokenSet{IDToken: freshToken(t, "user-1"), RefreshToken: "rt-1"})
	res := engine.Authenticate(context.Background(), requestWith(cookies))
	mustValid(t, res)
	mark := res.Forward.Get(VerifiedHeader)

	fake.AddUser(testkit.User{UID: "user-1", Disabled: true})
	lookups := fake.LookupCalls.Load()

	replayed := requestWith(cookies)
	replayed.Header.Set(VerifiedHeader, mark)
	mustInvalid(t, engine.Authenticate(context.Background(), replayed), ReasonInvalidCredentials)
	if fake.LookupCalls.Load() != lookups+1 {
		t.Fatal("replayed marker must not skip the revocation lookup")
	}
	if got := engine.MetricsSnapshot().Counters[MetricForwardedSkip]; got != 0 {
		t.Fatalf("expected MetricForwardedSkip=0, got %d", got)
	}

	rec := httptest.NewRecorder()
	called := false
	engine.Handle(rec, replayed, Handlers{
		Valid: func(http.ResponseWriter, *http.Request, ValidOutcome) { called = true },
		Invalid: func(w http.ResponseWriter, r *http.Request, _ InvalidOutcome) {
			if r.Header.Get(VerifiedHeader) != "" {
				t.Error("inbound marker must be stripped before dispatch")
			}
			w.WriteHeader(http.StatusUnauthorized)
		},
	})
	if called || rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected replayed marker to be rejected, got %d", rec.Code)
	}
}

func TestAuthenticateSkipsWhenContextCarriesOutcome(t *testing.T) {
	fake := testkit.NewProvider(t)
	engine := newTestEngine(t, fake, fakeConfig(t, fake))

	ctx := WithOutcome(context.Background(), ValidOutcome{Principal: Principal{UID: "user-9"}})
	o := mustValid(t, engine.Authenticate(ctx, requestWith(nil)))
	if o.Principal.UID != "user-9" {
		t.Fatalf("expected stored outcome, got %+v", o)
	}
	if got := engine.MetricsSnapshot().Counters[MetricForwardedSkip]; got != 1 {
		t.Fatalf("expected MetricForwardedSkip=1, got %d", got)
	}
}

func TestHandleDispatch(t *testing.T) {
	fake := testkit.NewProvider(t)
	engine := newTestEngine(t, fake, fakeConfig(t, fake))

	t.Run("invalid writes 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		called := false
		engine.Handle(rec, requestWith(nil), Handlers{
			Valid: func(http.ResponseWriter, *http.Request, ValidOutcome) { called = true },
		})
		if called || rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 without calling Valid, got %d", rec.Code)
		}
	})

	t.Run("refreshed valid forwards", func(t *testing.T) {
		rt := fake.IssueRefreshToken("user-1")
		cookies := issue(t, engine, TokenSet{IDToken: expiredToken(t, "user-1"), RefreshToken: rt})

		rec := httptest.NewRecorder()
		var got *http.Request
		engine.Handle(rec, requestWith(cookies), Handlers{
			Valid: func(w http.ResponseWriter, r *http.Request, _ ValidOutcome) {
				got = r
				w.WriteHeader(http.StatusNoContent)
			},
		})
		if got == nil {
			t.Fatal("Valid handler not called")
		}
		if _, ok := OutcomeFromContext(got.Context()); !ok {
			t.Fatal("forwarded request must carry the outcome")
		}
		if got.Header.Get(VerifiedHeader) == "" {
			t.Fatal("forwarded request must carry the marker header")
		}
		setCookies := rec.Result().Cookies()
		if len(setCookies) != 1 {
			t.Fatalf("expected one Set-Cookie, got %d", len(setCookies))
		}
		fwd, err := got.Cookie("AuthToken")
		if err != nil || fwd.Value != setCookies[0].Value {
			t.Fatal("forwarded request must carry the refreshed cookie")
		}
	})

	t.Run("error writes 500", func(t *testing.T) {
		fake.FailRefresh(http.StatusServiceUnavailable, "UNAVAILABLE")
		defer fake.FailRefresh(0, "")
		cookies := issue(t, engine, TokenSet{IDToken: expiredToken(t, "user-1"), RefreshToken: "rt-1"})

		rec := httptest.NewRecorder()
		engine.Handle(rec, requestWith(cookies), Handlers{})
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
	})

	t.Run("cancelled request writes nothing", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		cookies := issue(t, engine, TokenSet{IDToken: expiredToken(t, "user-1"), RefreshToken: "rt-1"})
		r := requestWith(cookies).WithContext(ctx)

		rec := httptest.NewRecorder()
		called := false
		engine.Handle(rec, r, Handlers{
			Error: func(http.ResponseWriter, *http.Request, ErrorOutcome) { called = true },
		})
		if called || rec.Body.Len() != 0 || len(rec.Result().Cookies()) != 0 {
			t.Fatal("expected no response for a cancelled request")
		}
	})
}

func TestForceRefresh(t *testing.T) {
	fake := testkit.NewProvider(t)
	engine := newTestEngine(t, fake, fakeConfig(t, fake))

	if _, err := engine.ForceRefresh(context.Background(), requestWith(nil)); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}

	rt := fake.IssueRefreshToken("user-1")
	oldID := freshToken(t, "user-1")
	cookies := issue(t, engine, TokenSet{IDToken: oldID, RefreshToken: rt})
	res, err := engine.ForceRefresh(context.Background(), requestWith(cookies))
	if err != nil {
		t.Fatalf("ForceRefresh failed: %v", err)
	}
	if res.IDToken == oldID || res.RefreshToken != rt || len(res.SetCookies) != 1 {
		t.Fatalf("unexpected refresh result %+v", res)
	}
	if res.Principal.UID != "user-1" || fake.RefreshCalls.Load() != 1 {
		t.Fatal("expected one refresh for user-1")
	}

	fake.FailRefresh(http.StatusBadRequest, "INVALID_REFRESH_TOKEN")
	if _, err := engine.ForceRefresh(context.Background(), requestWith(cookies)); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestRefreshAppliesDynamicClaims(t *testing.T) {
	fake := testkit.NewProvider(t)
	fake.AddUser(testkit.User{UID: "user-1", CustomClaims: map[string]any{"role": "editor"}})
	cfg := fakeConfig(t, fake)
	cfg.DynamicCustomClaimsKeys = []string{"role"}
	engine := newTestEngine(t, fake, cfg)

	rt := fake.IssueRefreshToken("user-1")
	cookies := issue(t, engine, TokenSet{IDToken: expiredToken(t, "user-1"), RefreshToken: rt})
	o := mustValid(t, engine.Authenticate(context.Background(), requestWith(cookies)))
	if o.Principal.CustomClaims["role"] != "editor" {
		t.Fatalf("expected role=editor, got %v", o.Principal.CustomClaims)
	}
	if fake.LookupCalls.Load() != 1 {
		t.Fatalf("expected one lookup, got %d", fake.LookupCalls.Load())
	}
}

func TestEngineHealth(t *testing.T) {
	fake := testkit.NewProvider(t)
	plain := newTestEngine(t, fake, fakeConfig(t, fake))
	if h := plain.Health(context.Background()); h.KeyCacheEnabled {
		t.Fatalf("expected key cache disabled, got %+v", h)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := fakeConfig(t, fake)
	cfg.KeyCache.Enabled = true
	engine := newTestEngine(t, fake, cfg, func(b *Builder) { b.WithRedis(rdb) })
	h := engine.Health(context.Background())
	if !h.KeyCacheEnabled || !h.RedisAvailable {
		t.Fatalf("expected healthy redis, got %+v", h)
	}
}

func TestKeyCacheSharedBetweenEngines(t *testing.T) {
	fake := testkit.NewProvider(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := fakeConfig(t, fake)
	cfg.KeyCache.Enabled = true
	withRedis := func(b *Builder) { b.WithRedis(rdb) }
	first := newTestEngine(t, fake, cfg, withRedis)
	second := newTestEngine(t, fake, cfg, withRedis)

	cookies := issue(t, first, TokenSet{IDToken: freshToken(t, "user-1"), RefreshToken: "rt-1"})
	mustValid(t, first.Authenticate(context.Background(), requestWith(cookies)))
	mustValid(t, second.Authenticate(context.Background(), requestWith(cookies)))
	if got := fake.KeyCalls.Load(); got != 1 {
		t.Fatalf("expected the key set to be fetched once, got %d", got)
	}
}

func TestBuilderErrors(t *testing.T) {
	fake := testkit.NewProvider(t)

	cfg := fakeConfig(t, fake)
	cfg.KeyCache.Enabled = true
	if _, err := New().WithConfig(cfg).Build(); err == nil {
		t.Fatal("expected error for key cache without redis")
	}

	bad := fakeConfig(t, fake)
	bad.CookieSignatureKeys = nil
	if _, err := New().WithConfig(bad).Build(); err == nil {
		t.Fatal("expected validation error")
	}

	b := New().WithConfig(fakeConfig(t, fake))
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()
	if _, err := b.Build(); err == nil {
		t.Fatal("expected error on second Build")
	}
}

func TestSecurityReport(t *testing.T) {
	fake := testkit.NewProvider(t)
	cfg := fakeConfig(t, fake)
	cfg.CookieSignatureKeys = []string{currentKey, previousKey}
	cfg.CheckRevoked = true
	engine := newTestEngine(t, fake, cfg)

	r := engine.SecurityReport()
	if r.SignatureKeys != 2 || !r.RevocationChecks || r.CookieScheme != "single" || r.LintHighCount != 0 {
		t.Fatalf("unexpected report %+v", r)
	}
}
