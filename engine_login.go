package edgeAuth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	internalaudit "github.com/MrEthical07/edgeAuth/internal/audit"
	"github.com/MrEthical07/edgeAuth/jwt"
	"github.com/MrEthical07/edgeAuth/provider"
	"github.com/MrEthical07/edgeAuth/session"
)

// Login exchanges the bearer ID token in the configured authorization header
// for a long-lived session. The token is validated (and checked for
// revocation when CheckRevoked is set), a custom token is minted for its
// subject and signed in with the provider to obtain a refresh token.
//
// Any failure returns an error and no cookies.
func (e *Engine) Login(ctx context.Context, r *http.Request) (*LoginResult, error) {
	res, uid, tenant, err := e.login(ctx, r)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, internalaudit.EventLoginFailure, false, uid, tenant, "", err)
		e.logger.Warn("login failed", zap.String("uid", uid), zap.Error(err))
		return nil, err
	}
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, internalaudit.EventLoginSuccess, true, uid, tenant, "", nil)
	e.debug("login succeeded", zap.String("uid", uid))
	return res, nil
}

func (e *Engine) login(ctx context.Context, r *http.Request) (*LoginResult, string, string, error) {
	idToken, err := bearerToken(r.Header.Get(e.config.AuthorizationHeaderName))
	if err != nil {
		return nil, "", "", err
	}

	claims, err := e.validator.Parse(ctx, idToken)
	if err != nil {
		if errors.Is(err, jwt.ErrMalformed) || errors.Is(err, jwt.ErrInvalid) || errors.Is(err, jwt.ErrExpired) {
			return nil, "", "", fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return nil, "", "", err
	}
	uid, tenant := claims.UID(), claims.Firebase.Tenant

	if e.config.CheckRevoked {
		e.metricInc(MetricRevocationCheck)
		rec, err := e.client.LookupUser(ctx, uid)
		switch {
		case errors.Is(err, provider.ErrUserNotFound):
			e.metricInc(MetricRevoked)
			return nil, uid, tenant, revokedError(err)
		case err != nil:
			return nil, uid, tenant, err
		case rec.Disabled || rec.RevokedSince(time.Unix(claims.AuthTime, 0)):
			e.metricInc(MetricRevoked)
			return nil, uid, tenant, ErrRevoked
		}
	}

	custom, err := e.signer.Sign(uid, tenant, selectClaims(claims.Custom, e.config.DynamicCustomClaimsKeys))
	if err != nil {
		return nil, uid, tenant, err
	}
	set, err := e.client.SignInWithCustomToken(ctx, custom)
	if err != nil {
		if provider.IsRejected(err) {
			return nil, uid, tenant, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return nil, uid, tenant, err
	}

	tokens := TokenSet{IDToken: set.IDToken, RefreshToken: set.RefreshToken}
	if e.config.EnableCustomToken {
		tokens.CustomToken = custom
	}
	cookies, err := e.IssueCookies(ctx, tokens)
	if err != nil {
		return nil, uid, tenant, err
	}
	return &LoginResult{
		Principal:  principalFromClaims(claims),
		SetCookies: cookies,
	}, uid, tenant, nil
}

// IssueCookies signs tokens with the current cookie key and encodes them with
// the configured scheme and cookie attributes. The custom token is dropped
// when custom tokens are disabled.
func (e *Engine) IssueCookies(_ context.Context, tokens TokenSet) ([]*http.Cookie, error) {
	if tokens.IDToken == "" {
		return nil, errors.New("id token is required")
	}
	p := session.Payload{
		IDToken:      tokens.IDToken,
		RefreshToken: tokens.RefreshToken,
	}
	if e.config.EnableCustomToken {
		p.CustomToken = tokens.CustomToken
	}
	cs, err := e.encode(session.Sign(p, e.ring))
	if err != nil {
		return nil, err
	}
	return e.httpCookies(cs), nil
}

// Logout returns cookies that clear every session cookie name of both
// partition schemes.
func (e *Engine) Logout() []*http.Cookie {
	e.metricInc(MetricLogout)
	e.emitAudit(context.Background(), internalaudit.EventLogout, true, "", "", "", nil)

	cleared := e.httpCookies(session.Clear(e.config.CookieName))
	for _, c := range cleared {
		c.Value = ""
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
	}
	return cleared
}

func bearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingAuthorization
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrInvalidAuthorization
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidAuthorization
	}
	return token, nil
}

func selectClaims(all map[string]any, keys []string) map[string]any {
	if len(keys) == 0 || len(all) == 0 {
		return nil
	}
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, ok := all[k]; ok {
			out[k] = v
		}
	}
	return out
}
