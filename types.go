package edgeAuth

import (
	"net/http"
	"time"

	"github.com/MrEthical07/edgeAuth/jwt"
)

// VerifiedHeader is set on forwarded requests. It holds an HMAC of the
// session's ID token under a key derived from the cookie signature keys.
const VerifiedHeader = "X-Edge-Auth-Verified"

// InvalidReason classifies an expected authentication failure.
type InvalidReason int

const (
	// ReasonMissingCredentials means the request carried no session cookie.
	ReasonMissingCredentials InvalidReason = iota + 1
	// ReasonMissingRefreshToken means the ID token expired and there was no refresh token.
	ReasonMissingRefreshToken
	// ReasonMalformedCredentials means the session cookies or ID token could not be decoded.
	ReasonMalformedCredentials
	// ReasonInvalidSignature means the cookie signature matched no configured key.
	ReasonInvalidSignature
	// ReasonInvalidCredentials covers rejected tokens, revoked accounts and rejected refresh tokens.
	ReasonInvalidCredentials
)

func (r InvalidReason) String() string {
	switch r {
	case ReasonMissingCredentials:
		return "missing_credentials"
	case ReasonMissingRefreshToken:
		return "missing_refresh_token"
	case ReasonMalformedCredentials:
		return "malformed_credentials"
	case ReasonInvalidSignature:
		return "invalid_signature"
	case ReasonInvalidCredentials:
		return "invalid_credentials"
	default:
		return "unknown"
	}
}

// Principal is the authenticated user decoded from a verified ID token.
type Principal struct {
	UID            string
	TenantID       string
	Email          string
	EmailVerified  bool
	Name           string
	Picture        string
	PhoneNumber    string
	SignInProvider string
	IssuedAt       time.Time
	ExpiresAt      time.Time
	AuthTime       time.Time
	CustomClaims   map[string]any
}

func principalFromClaims(c *jwt.IDClaims) Principal {
	p := Principal{
		UID:            c.UID(),
		TenantID:       c.Firebase.Tenant,
		Email:          c.Email,
		EmailVerified:  c.EmailVerified,
		Name:           c.Name,
		Picture:        c.Picture,
		PhoneNumber:    c.PhoneNumber,
		SignInProvider: c.Firebase.SignInProvider,
		CustomClaims:   c.Custom,
	}
	if c.IssuedAt != nil {
		p.IssuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		p.ExpiresAt = c.ExpiresAt.Time
	}
	if c.AuthTime > 0 {
		p.AuthTime = time.Unix(c.AuthTime, 0)
	}
	return p
}

// Outcome is the result of authenticating one request. It is exactly one of
// [ValidOutcome], [InvalidOutcome] or [ErrorOutcome].
type Outcome interface {
	outcome()
}

// ValidOutcome carries a verified session.
type ValidOutcome struct {
	Token       string
	Principal   Principal
	CustomToken string
	Refreshed   bool
}

// InvalidOutcome is an expected rejection. Err holds the underlying cause when there is one.
type InvalidOutcome struct {
	Reason InvalidReason
	Err    error
}

// ErrorOutcome is an unexpected failure: provider transport errors,
// misconfiguration surfacing at request time, or a recovered panic.
type ErrorOutcome struct {
	Err error
}

func (ValidOutcome) outcome()   {}
func (InvalidOutcome) outcome() {}
func (ErrorOutcome) outcome()   {}

// Result is returned by [Engine.Authenticate] for callers that dispatch on
// their own. SetCookies must be written to the response; Forward holds the
// headers to set on a request passed downstream.
type Result struct {
	Outcome    Outcome
	SetCookies []*http.Cookie
	Forward    http.Header
}

// RefreshResult is returned by [Engine.ForceRefresh].
type RefreshResult struct {
	IDToken      string
	RefreshToken string
	CustomToken  string
	Principal    Principal
	SetCookies   []*http.Cookie
}

// LoginResult is returned by [Engine.Login].
type LoginResult struct {
	Principal  Principal
	SetCookies []*http.Cookie
}

// TokenSet is a token triple to be signed into session cookies.
type TokenSet struct {
	IDToken      string
	RefreshToken string
	CustomToken  string
}

// Handlers receive exactly one call per request from [Engine.Handle].
// A nil Valid does nothing, a nil Invalid writes 401 and a nil Error writes 500.
type Handlers struct {
	Valid   func(w http.ResponseWriter, r *http.Request, o ValidOutcome)
	Invalid func(w http.ResponseWriter, r *http.Request, o InvalidOutcome)
	Error   func(w http.ResponseWriter, r *http.Request, o ErrorOutcome)
}
