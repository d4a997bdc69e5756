package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/edgeAuth/jwt"
	"github.com/MrEthical07/edgeAuth/provider"
	"github.com/MrEthical07/edgeAuth/session"
)

// AuthFailureKind classifies authentication failures for root-level mapping.
type AuthFailureKind int

const (
	AuthFailureNone AuthFailureKind = iota
	AuthFailureMissing
	AuthFailureMissingRefresh
	AuthFailureMalformed
	AuthFailureSignature
	AuthFailureInvalid
	AuthFailureRevoked
	AuthFailureRefresh
	AuthFailureError
)

// AuthenticateResult carries the verified session or classified failure.
// Refresh is set whenever a refresh was attempted.
type AuthenticateResult struct {
	Failure   AuthFailureKind
	Err       error
	Payload   session.Payload
	Claims    *jwt.IDClaims
	Refreshed bool
	Refresh   *RefreshResult
}

// AuthenticateDeps captures request authentication dependencies.
type AuthenticateDeps struct {
	Decode           func(values map[string]string) (*session.Payload, error)
	VerifySignature  func(session.Payload) error
	ParseIDToken     func(ctx context.Context, token string) (*jwt.IDClaims, error)
	CheckRevoked     bool
	LookupUser       func(ctx context.Context, uid string) (*provider.UserRecord, error)
	Refresh          func(ctx context.Context, refreshToken, uid string) RefreshResult
	RefreshThreshold time.Duration
	Now              func() time.Time
	Debug            func(msg string, keysAndValues ...any)
	Warn             func(msg string, keysAndValues ...any)
}

// RunAuthenticate walks a request's cookie values through extraction,
// signature verification, token validation and, when needed, refresh.
func RunAuthenticate(ctx context.Context, values map[string]string, deps AuthenticateDeps) AuthenticateResult {
	trace(deps.Debug, "extracting")
	payload, err := deps.Decode(values)
	if err != nil {
		if errors.Is(err, session.ErrMissingCredentials) {
			return AuthenticateResult{Failure: AuthFailureMissing, Err: err}
		}
		return AuthenticateResult{Failure: AuthFailureMalformed, Err: err}
	}

	trace(deps.Debug, "verifying")
	if err := deps.VerifySignature(*payload); err != nil {
		return AuthenticateResult{Failure: AuthFailureSignature, Err: err}
	}

	trace(deps.Debug, "validating")
	claims, err := deps.ParseIDToken(ctx, payload.IDToken)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrExpired):
		return refresh(ctx, *payload, claims, deps, false)
	case errors.Is(err, jwt.ErrMalformed):
		return AuthenticateResult{Failure: AuthFailureMalformed, Err: err}
	case errors.Is(err, jwt.ErrInvalid):
		return AuthenticateResult{Failure: AuthFailureInvalid, Err: err}
	default:
		return AuthenticateResult{Failure: AuthFailureError, Err: err}
	}

	if deps.RefreshThreshold > 0 && payload.RefreshToken != "" && claims.ExpiresAt != nil {
		now := time.Now()
		if deps.Now != nil {
			now = deps.Now()
		}
		if claims.ExpiresAt.Sub(now) <= deps.RefreshThreshold {
			res := refresh(ctx, *payload, claims, deps, true)
			if res.Refreshed || res.Failure != AuthFailureNone {
				return res
			}
		}
	}

	if deps.CheckRevoked && deps.LookupUser != nil {
		trace(deps.Debug, "checking revocation")
		rec, err := deps.LookupUser(ctx, claims.UID())
		switch {
		case errors.Is(err, provider.ErrUserNotFound):
			return AuthenticateResult{Failure: AuthFailureRevoked, Err: err, Claims: claims}
		case err != nil:
			return AuthenticateResult{Failure: AuthFailureError, Err: err, Claims: claims}
		case rec.Disabled || rec.RevokedSince(time.Unix(claims.AuthTime, 0)):
			return AuthenticateResult{Failure: AuthFailureRevoked, Claims: claims}
		}
	}

	return AuthenticateResult{Payload: *payload, Claims: claims}
}

// refresh runs the refresh flow for an expired token, or for one about to
// expire when soft is set. A soft refresh that fails for any reason other than
// provider rejection leaves the current session in place.
func refresh(ctx context.Context, payload session.Payload, claims *jwt.IDClaims, deps AuthenticateDeps, soft bool) AuthenticateResult {
	if payload.RefreshToken == "" {
		return AuthenticateResult{Failure: AuthFailureMissingRefresh, Claims: claims}
	}

	trace(deps.Debug, "refreshing")
	uid := ""
	if claims != nil {
		uid = claims.UID()
	}
	rr := deps.Refresh(ctx, payload.RefreshToken, uid)
	if rr.Failure == RefreshFailureNone {
		return AuthenticateResult{
			Payload:   rr.Payload,
			Claims:    rr.Claims,
			Refreshed: true,
			Refresh:   &rr,
		}
	}
	if soft && rr.Failure != RefreshFailureRejected {
		if deps.Warn != nil {
			deps.Warn("edgeAuth: early refresh failed, keeping current session", "error", rr.Err)
		}
		return AuthenticateResult{Refresh: &rr}
	}
	return AuthenticateResult{Failure: AuthFailureRefresh, Err: rr.Err, Claims: claims, Refresh: &rr}
}

func trace(debug func(string, ...any), state string) {
	if debug != nil {
		debug("edgeAuth: authenticate", "state", state)
	}
}
