package jwt

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformed is returned when the token cannot be decoded as a JWT.
	ErrMalformed = errors.New("id token malformed")
	// ErrInvalid is returned when the token signature or any claim other than expiry fails.
	ErrInvalid = errors.New("id token invalid")
	// ErrExpired is returned together with the decoded claims when the token is
	// otherwise valid but past its expiry.
	ErrExpired = errors.New("id token expired")
	// ErrUnknownKey is returned by a KeySource that has no key for the requested kid.
	ErrUnknownKey = errors.New("unknown signing key")
)

const issuerPrefix = "https://securetoken.google.com/"

// KeySource resolves provider public keys by key id.
//
// Implementations return ErrUnknownKey when kid is not part of the key set; any
// other error is treated as an infrastructure failure.
type KeySource interface {
	PublicKey(ctx context.Context, kid string) (crypto.PublicKey, error)
}

// Config configures a Validator.
type Config struct {
	ProjectID    string
	Issuer       string
	TenantID     string
	Leeway       time.Duration
	MaxFutureIAT time.Duration
	Keys         KeySource
	Now          func() time.Time
}

// Validator verifies provider ID tokens.
//
// Validator instances are immutable after NewValidator and safe for concurrent use.
type Validator struct {
	config Config
	parser *jwt.Parser
}

// NewValidator checks cfg and returns a Validator.
func NewValidator(cfg Config) (*Validator, error) {
	cfg.ProjectID = strings.TrimSpace(cfg.ProjectID)
	if cfg.ProjectID == "" {
		return nil, errors.New("project id is required")
	}
	if cfg.Keys == nil {
		return nil, errors.New("key source is required")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	if cfg.Issuer == "" {
		cfg.Issuer = issuerPrefix + cfg.ProjectID
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Validator{
		config: cfg,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// Parse verifies tokenStr and returns its claims.
//
// A token that only fails on expiry is returned with its claims and ErrExpired.
// Errors wrapping ErrMalformed or ErrInvalid are classifications; anything else
// (for example a key set fetch failure) is an infrastructure error.
func (v *Validator) Parse(ctx context.Context, tokenStr string) (*IDClaims, error) {
	claims := &IDClaims{}
	_, err := v.parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("%w: missing kid", ErrMalformed)
		}
		return v.config.Keys.PublicKey(ctx, kid)
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrMalformed), errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		case errors.Is(err, ErrUnknownKey),
			errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		case errors.Is(err, jwt.ErrTokenUnverifiable):
			// keyfunc failures other than the ones above are infrastructure errors
			return nil, err
		default:
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}

	if err := v.validateClaims(claims); err != nil {
		if errors.Is(err, ErrExpired) {
			return claims, err
		}
		return nil, err
	}
	return claims, nil
}

// ParseUnverified decodes tokenStr without checking its signature or claims.
// Use it only for tokens that were verified earlier in the same request.
func (v *Validator) ParseUnverified(tokenStr string) (*IDClaims, error) {
	claims := &IDClaims{}
	if _, _, err := v.parser.ParseUnverified(tokenStr, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return claims, nil
}

func (v *Validator) validateClaims(c *IDClaims) error {
	now := v.config.Now()
	leeway := v.config.Leeway

	if c.Issuer != v.config.Issuer {
		return fmt.Errorf("%w: unexpected issuer %q", ErrInvalid, c.Issuer)
	}
	if !containsAudience(c.Audience, v.config.ProjectID) {
		return fmt.Errorf("%w: unexpected audience", ErrInvalid)
	}
	if c.Subject == "" || len(c.Subject) > 128 {
		return fmt.Errorf("%w: invalid subject", ErrInvalid)
	}
	if c.IssuedAt == nil {
		return fmt.Errorf("%w: missing iat", ErrInvalid)
	}
	if c.IssuedAt.Time.After(now.Add(v.config.MaxFutureIAT)) {
		return fmt.Errorf("%w: iat too far in the future", ErrInvalid)
	}
	if c.AuthTime != 0 && time.Unix(c.AuthTime, 0).After(now.Add(leeway)) {
		return fmt.Errorf("%w: auth_time in the future", ErrInvalid)
	}
	if c.NotBefore != nil && c.NotBefore.Time.After(now.Add(leeway)) {
		return fmt.Errorf("%w: token not valid yet", ErrInvalid)
	}
	if v.config.TenantID != "" && c.Firebase.Tenant != v.config.TenantID {
		return fmt.Errorf("%w: tenant mismatch", ErrInvalid)
	}
	if c.ExpiresAt == nil {
		return fmt.Errorf("%w: missing exp", ErrInvalid)
	}
	if !now.Before(c.ExpiresAt.Time.Add(leeway)) {
		return ErrExpired
	}
	return nil
}

func containsAudience(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}
