package jwt_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"

	"github.com/MrEthical07/edgeAuth/internal/testkit"
	"github.com/MrEthical07/edgeAuth/jwt"
)

func TestCustomTokenSignerProducesProviderShape(t *testing.T) {
	key := testkit.RSAKey(t)
	signer, err := jwt.NewCustomTokenSigner(testkit.ClientEmail, testkit.PrivateKeyPEM(t, key))
	if err != nil {
		t.Fatalf("NewCustomTokenSigner failed: %v", err)
	}

	token, err := signer.Sign("alice", "tenant-a", map[string]any{"role": "admin"})
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}

	claims := gjwt.MapClaims{}
	parsed, err := gjwt.ParseWithClaims(token, claims, func(*gjwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	}, gjwt.WithValidMethods([]string{"RS256"}), gjwt.WithAudience(jwt.CustomTokenAudience))
	if err != nil || !parsed.Valid {
		t.Fatalf("custom token did not verify: %v", err)
	}

	if claims["iss"] != testkit.ClientEmail || claims["sub"] != testkit.ClientEmail {
		t.Fatalf("unexpected iss/sub: %v / %v", claims["iss"], claims["sub"])
	}
	if claims["uid"] != "alice" || claims["tenant_id"] != "tenant-a" {
		t.Fatalf("unexpected uid/tenant: %v", claims)
	}
	dev, _ := claims["claims"].(map[string]any)
	if dev["role"] != "admin" {
		t.Fatalf("expected developer claims to be embedded, got %v", claims["claims"])
	}

	iat, _ := claims.GetIssuedAt()
	exp, _ := claims.GetExpirationTime()
	if exp.Sub(iat.Time) != time.Hour {
		t.Fatalf("expected one hour lifetime, got %v", exp.Sub(iat.Time))
	}
}

func TestCustomTokenSignerRejectsReservedClaimsAndBadUID(t *testing.T) {
	signer, err := jwt.NewCustomTokenSigner(testkit.ClientEmail, testkit.PrivateKeyPEM(t, testkit.RSAKey(t)))
	if err != nil {
		t.Fatalf("NewCustomTokenSigner failed: %v", err)
	}

	if _, err := signer.Sign("alice", "", map[string]any{"firebase": "x"}); !errors.Is(err, jwt.ErrReservedClaim) {
		t.Fatalf("expected ErrReservedClaim, got %v", err)
	}
	if _, err := signer.Sign("", "", nil); !errors.Is(err, jwt.ErrInvalidUID) {
		t.Fatalf("expected ErrInvalidUID for empty uid, got %v", err)
	}
	if _, err := signer.Sign(strings.Repeat("u", 129), "", nil); !errors.Is(err, jwt.ErrInvalidUID) {
		t.Fatalf("expected ErrInvalidUID for long uid, got %v", err)
	}
}

func TestNewCustomTokenSignerRejectsBadKey(t *testing.T) {
	if _, err := jwt.NewCustomTokenSigner(testkit.ClientEmail, []byte("not a pem")); err == nil {
		t.Fatal("expected error for invalid PEM")
	}
	if _, err := jwt.NewCustomTokenSigner("", testkit.PrivateKeyPEM(t, testkit.RSAKey(t))); err == nil {
		t.Fatal("expected error for empty client email")
	}
}
