// Package testkit provides RSA keys, ID-token minting and an in-process fake
// identity provider for tests across the module.
package testkit

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	edgejwt "github.com/MrEthical07/edgeAuth/jwt"
)

const (
	ProjectID = "edge-demo"
	KeyID     = "test-key-1"
	APIKey    = "test-api-key"
	// ClientEmail is the service-account identity used for custom tokens.
	ClientEmail = "edge@edge-demo.iam.gserviceaccount.com"
)

var (
	keyOnce sync.Once
	key     *rsa.PrivateKey
	keyErr  error
)

// RSAKey returns a process-wide 2048-bit test key.
func RSAKey(t testing.TB) *rsa.PrivateKey {
	t.Helper()
	keyOnce.Do(func() {
		key, keyErr = rsa.GenerateKey(rand.Reader, 2048)
	})
	if keyErr != nil {
		t.Fatalf("rsa.GenerateKey failed: %v", keyErr)
	}
	return key
}

// PrivateKeyPEM encodes k as a PKCS#8 PEM block.
func PrivateKeyPEM(t testing.TB, k *rsa.PrivateKey) []byte {
	t.Helper()
	der, err := x509.MarshalPKCS8PrivateKey(k)
	if err != nil {
		t.Fatalf("MarshalPKCS8PrivateKey failed: %v", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
}

// StaticKeys is a jwt.KeySource over a fixed map.
type StaticKeys map[string]*rsa.PublicKey

// PublicKey implements jwt.KeySource.
func (s StaticKeys) PublicKey(_ context.Context, kid string) (crypto.PublicKey, error) {
	k, ok := s[kid]
	if !ok {
		return nil, edgejwt.ErrUnknownKey
	}
	return k, nil
}

// Keys returns a StaticKeys holding the test key under KeyID.
func Keys(t testing.TB) StaticKeys {
	return StaticKeys{KeyID: &RSAKey(t).PublicKey}
}

// Token describes an ID token to mint. Zero values get sensible defaults.
type Token struct {
	UID       string
	Tenant    string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
	AuthTime  time.Time
	Issuer    string
	Audience  string
	KeyID     string
	Claims    map[string]any
}

// MintIDToken signs an ID token shaped like the provider's with the test key.
func MintIDToken(t testing.TB, tok Token) string {
	t.Helper()
	s, err := mint(RSAKey(t), tok)
	if err != nil {
		t.Fatalf("mint id token: %v", err)
	}
	return s
}

func mint(k *rsa.PrivateKey, tok Token) (string, error) {
	now := time.Now()
	if tok.UID == "" {
		tok.UID = "user-1"
	}
	if tok.IssuedAt.IsZero() {
		tok.IssuedAt = now.Add(-time.Minute)
	}
	if tok.ExpiresAt.IsZero() {
		tok.ExpiresAt = tok.IssuedAt.Add(time.Hour)
	}
	if tok.AuthTime.IsZero() {
		tok.AuthTime = tok.IssuedAt
	}
	if tok.Issuer == "" {
		tok.Issuer = "https://securetoken.google.com/" + ProjectID
	}
	if tok.Audience == "" {
		tok.Audience = ProjectID
	}
	if tok.KeyID == "" {
		tok.KeyID = KeyID
	}

	claims := edgejwt.IDClaims{
		UserID:   tok.UID,
		AuthTime: tok.AuthTime.Unix(),
		Email:    tok.Email,
		Firebase: edgejwt.FirebaseClaims{Tenant: tok.Tenant, SignInProvider: "custom"},
		Custom:   tok.Claims,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tok.Issuer,
			Subject:   tok.UID,
			Audience:  jwt.ClaimStrings{tok.Audience},
			IssuedAt:  jwt.NewNumericDate(tok.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(tok.ExpiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = tok.KeyID
	return token.SignedString(k)
}
