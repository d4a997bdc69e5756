package jwt

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CustomTokenAudience is the audience the provider expects on custom tokens.
const CustomTokenAudience = "https://identitytoolkit.googleapis.com/google.identity.identitytoolkit.v1.IdentityToolkit"

// CustomTokenLifetime is fixed by the provider.
const CustomTokenLifetime = time.Hour

var (
	// ErrInvalidUID is returned when the uid is empty or longer than 128 characters.
	ErrInvalidUID = errors.New("custom token uid must be 1-128 characters")
	// ErrReservedClaim is returned when developer claims use a reserved name.
	ErrReservedClaim = errors.New("custom token claim name is reserved")
)

var reservedDeveloperClaims = map[string]struct{}{
	"acr": {}, "amr": {}, "at_hash": {}, "aud": {}, "auth_time": {}, "azp": {},
	"cnf": {}, "c_hash": {}, "exp": {}, "firebase": {}, "iat": {}, "iss": {},
	"jti": {}, "nbf": {}, "nonce": {}, "sub": {},
}

type customClaims struct {
	UID      string         `json:"uid"`
	TenantID string         `json:"tenant_id,omitempty"`
	Claims   map[string]any `json:"claims,omitempty"`
	jwt.RegisteredClaims
}

// CustomTokenSigner mints provider custom tokens with a service-account key.
type CustomTokenSigner struct {
	clientEmail string
	key         *rsa.PrivateKey
	now         func() time.Time
}

// NewCustomTokenSigner parses privateKeyPEM (PKCS#1 or PKCS#8) and returns a signer.
func NewCustomTokenSigner(clientEmail string, privateKeyPEM []byte) (*CustomTokenSigner, error) {
	clientEmail = strings.TrimSpace(clientEmail)
	if clientEmail == "" {
		return nil, errors.New("client email is required")
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	return &CustomTokenSigner{clientEmail: clientEmail, key: key, now: time.Now}, nil
}

// Sign returns a custom token for uid. tenantID and claims are optional.
func (s *CustomTokenSigner) Sign(uid, tenantID string, claims map[string]any) (string, error) {
	if uid == "" || len(uid) > 128 {
		return "", ErrInvalidUID
	}
	for k := range claims {
		if _, ok := reservedDeveloperClaims[k]; ok {
			return "", fmt.Errorf("%w: %s", ErrReservedClaim, k)
		}
	}

	now := s.now()
	c := customClaims{
		UID:      uid,
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.clientEmail,
			Subject:   s.clientEmail,
			Audience:  jwt.ClaimStrings{CustomTokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(CustomTokenLifetime)),
		},
	}
	if len(claims) > 0 {
		c.Claims = claims
	}

	return jwt.NewWithClaims(jwt.SigningMethodRS256, c).SignedString(s.key)
}
