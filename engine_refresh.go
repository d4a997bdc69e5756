package edgeAuth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	internalaudit "github.com/MrEthical07/edgeAuth/internal/audit"
	"github.com/MrEthical07/edgeAuth/internal/flows"
	"github.com/MrEthical07/edgeAuth/jwt"
	"github.com/MrEthical07/edgeAuth/provider"
	"github.com/MrEthical07/edgeAuth/session"
)

func (e *Engine) refreshDeps() flows.RefreshDeps {
	deps := flows.RefreshDeps{
		Exchange:          e.client.RefreshToken,
		IsRejected:        provider.IsRejected,
		ParseIDToken:      e.validator.Parse,
		LookupUser:        e.client.LookupUser,
		DynamicClaimsKeys: cloneStrings(e.config.DynamicCustomClaimsKeys),
		SignPayload: func(p session.Payload) session.Payload {
			return session.Sign(p, e.ring)
		},
		Encode: e.encode,
	}
	if e.config.EnableCustomToken {
		deps.SignCustomToken = e.signer.Sign
	}
	return deps
}

// ForceRefresh refreshes the request's session even when its ID token is
// still valid, for example after the account's custom claims changed. The
// cookie signature must verify; the ID token may be expired but must
// otherwise be valid.
func (e *Engine) ForceRefresh(ctx context.Context, r *http.Request) (*RefreshResult, error) {
	p, err := e.decode(e.cookieValues(r))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoSession, err)
	}
	if err := session.Verify(*p, e.ring); err != nil {
		e.metricInc(MetricSignatureInvalid)
		e.emitAudit(ctx, internalaudit.EventSignatureInvalid, false, "", "", ReasonInvalidSignature.String(), err)
		return nil, err
	}

	claims, err := e.validator.Parse(ctx, p.IDToken)
	if err != nil && !errors.Is(err, jwt.ErrExpired) {
		if errors.Is(err, jwt.ErrMalformed) || errors.Is(err, jwt.ErrInvalid) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return nil, err
	}
	uid, tenant := claims.UID(), claims.Firebase.Tenant

	rr := flows.RunRefresh(ctx, p.RefreshToken, uid, e.flows.Refresh)
	if rr.Failure != flows.RefreshFailureNone {
		e.metricInc(MetricRefreshFailure)
		switch o := classifyRefreshFailure(&rr).(type) {
		case InvalidOutcome:
			e.emitAudit(ctx, internalaudit.EventRefreshInvalid, false, uid, tenant, o.Reason.String(), rr.Err)
			return nil, o.Err
		case ErrorOutcome:
			return nil, o.Err
		}
		return nil, ErrInternal
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, internalaudit.EventRefreshSuccess, true, uid, tenant, "", nil)
	return &RefreshResult{
		IDToken:      rr.Payload.IDToken,
		RefreshToken: rr.Payload.RefreshToken,
		CustomToken:  rr.Payload.CustomToken,
		Principal:    principalFromClaims(rr.Claims),
		SetCookies:   e.httpCookies(rr.Cookies),
	}, nil
}

// classifyRefreshFailure maps a failed refresh to its outcome. Rejections by
// the provider are terminal; everything else is an Error.
func classifyRefreshFailure(rr *flows.RefreshResult) Outcome {
	switch {
	case rr.Failure == flows.RefreshFailureMissingToken:
		return InvalidOutcome{Reason: ReasonMissingRefreshToken, Err: ErrMissingRefreshToken}
	case rr.Failure == flows.RefreshFailureRejected,
		rr.Failure == flows.RefreshFailureLookup && errors.Is(rr.Err, provider.ErrUserNotFound):
		return InvalidOutcome{Reason: ReasonInvalidCredentials, Err: fmt.Errorf("%w: %w", ErrInvalidCredentials, rr.Err)}
	default:
		return ErrorOutcome{Err: fmt.Errorf("refresh: %w", rr.Err)}
	}
}
