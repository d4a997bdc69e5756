package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/edgeAuth/jwt"
	"github.com/MrEthical07/edgeAuth/provider"
	"github.com/MrEthical07/edgeAuth/session"
)

// ErrSubjectMismatch reports a refreshed ID token issued for another user.
var ErrSubjectMismatch = errors.New("refreshed token subject mismatch")

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureMissingToken
	RefreshFailureRejected
	RefreshFailureExchange
	RefreshFailureIDToken
	RefreshFailureLookup
	RefreshFailureCustomToken
	RefreshFailureEncode
)

// RefreshResult carries either the re-issued session or failure metadata.
type RefreshResult struct {
	Failure RefreshFailureKind
	Err     error
	UserID  string
	Claims  *jwt.IDClaims
	Payload session.Payload
	Cookies []session.Cookie
}

// RefreshDeps captures refresh flow dependencies.
//
// SignCustomToken is nil when custom tokens are disabled. LookupUser is only
// called when DynamicClaimsKeys is non-empty.
type RefreshDeps struct {
	Exchange          func(ctx context.Context, refreshToken string) (*provider.TokenSet, error)
	IsRejected        func(error) bool
	ParseIDToken      func(ctx context.Context, token string) (*jwt.IDClaims, error)
	LookupUser        func(ctx context.Context, uid string) (*provider.UserRecord, error)
	DynamicClaimsKeys []string
	SignCustomToken   func(uid, tenantID string, claims map[string]any) (string, error)
	SignPayload       func(session.Payload) session.Payload
	Encode            func(session.Payload) ([]session.Cookie, error)
}

// RunRefresh exchanges refreshToken for a new token set and re-encodes the
// session. uidHint, when set, must match the subject of the new ID token.
func RunRefresh(ctx context.Context, refreshToken, uidHint string, deps RefreshDeps) RefreshResult {
	if refreshToken == "" {
		return RefreshResult{Failure: RefreshFailureMissingToken, UserID: uidHint}
	}

	set, err := deps.Exchange(ctx, refreshToken)
	if err != nil {
		kind := RefreshFailureExchange
		if deps.IsRejected != nil && deps.IsRejected(err) {
			kind = RefreshFailureRejected
		}
		return RefreshResult{Failure: kind, Err: err, UserID: uidHint}
	}

	claims, err := deps.ParseIDToken(ctx, set.IDToken)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureIDToken, Err: err, UserID: uidHint}
	}
	uid := claims.UID()
	if uidHint != "" && uid != uidHint {
		return RefreshResult{Failure: RefreshFailureIDToken, Err: ErrSubjectMismatch, UserID: uidHint}
	}

	var selected map[string]any
	if len(deps.DynamicClaimsKeys) > 0 && deps.LookupUser != nil {
		rec, err := deps.LookupUser(ctx, uid)
		if err != nil {
			return RefreshResult{Failure: RefreshFailureLookup, Err: err, UserID: uid, Claims: claims}
		}
		selected = applyDynamicClaims(claims, rec.CustomClaims, deps.DynamicClaimsKeys)
	}

	next := session.Payload{
		IDToken:      set.IDToken,
		RefreshToken: set.RefreshToken,
	}
	if next.RefreshToken == "" {
		next.RefreshToken = refreshToken
	}

	if deps.SignCustomToken != nil {
		custom, err := deps.SignCustomToken(uid, claims.Firebase.Tenant, selected)
		if err != nil {
			return RefreshResult{Failure: RefreshFailureCustomToken, Err: err, UserID: uid, Claims: claims}
		}
		next.CustomToken = custom
	}

	next = deps.SignPayload(next)
	cookies, err := deps.Encode(next)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureEncode, Err: err, UserID: uid, Claims: claims}
	}

	return RefreshResult{
		Failure: RefreshFailureNone,
		UserID:  uid,
		Claims:  claims,
		Payload: next,
		Cookies: cookies,
	}
}

// applyDynamicClaims overwrites keys of claims.Custom with the account's
// current attributes and returns the selected subset.
func applyDynamicClaims(claims *jwt.IDClaims, current map[string]any, keys []string) map[string]any {
	if claims.Custom == nil {
		claims.Custom = make(map[string]any, len(keys))
	}
	selected := make(map[string]any, len(keys))
	for _, k := range keys {
		v, ok := current[k]
		if !ok {
			delete(claims.Custom, k)
			continue
		}
		claims.Custom[k] = v
		selected[k] = v
	}
	return selected
}
