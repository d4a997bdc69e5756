package edgeAuth

import (
	"context"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/MrEthical07/edgeAuth/session"
)

// SessionInfo is the safe introspection view of a request's session.
// It excludes token material.
type SessionInfo struct {
	Scheme          string
	UID             string
	TenantID        string
	ExpiresAt       time.Time
	HasRefreshToken bool
	HasCustomToken  bool
	// KeyIndex is the position in CookieSignatureKeys of the key that
	// verified the cookie signature; 0 is the current key.
	KeyIndex int
}

// HealthStatus is an on-demand backend health result.
type HealthStatus struct {
	KeyCacheEnabled bool
	RedisAvailable  bool
	RedisLatency    time.Duration
}

// SessionInfo decodes the request's session cookies and verifies their
// signature without contacting the provider. The ID token is decoded but its
// signature and expiry are not checked.
func (e *Engine) SessionInfo(r *http.Request) (*SessionInfo, error) {
	p, err := e.decode(e.cookieValues(r))
	if err != nil {
		return nil, err
	}
	sig, err := base64.RawURLEncoding.Strict().DecodeString(p.Signature)
	if err != nil {
		return nil, session.ErrInvalidSignature
	}
	idx := e.ring.Match(session.Canonical(*p), sig)
	if idx < 0 {
		return nil, session.ErrInvalidSignature
	}
	claims, err := e.validator.ParseUnverified(p.IDToken)
	if err != nil {
		return nil, err
	}

	info := &SessionInfo{
		Scheme:          e.scheme.String(),
		UID:             claims.UID(),
		TenantID:        claims.Firebase.Tenant,
		HasRefreshToken: p.RefreshToken != "",
		HasCustomToken:  p.CustomToken != "",
		KeyIndex:        idx,
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	return info, nil
}

// Health pings the shared key cache when it is enabled.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil || e.keyStore == nil {
		return HealthStatus{}
	}

	latency, err := e.keyStore.Ping(ctx)
	return HealthStatus{
		KeyCacheEnabled: true,
		RedisAvailable:  err == nil,
		RedisLatency:    latency,
	}
}
