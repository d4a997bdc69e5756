package provider

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// credentialScopes are the OAuth scopes requested for privileged provider calls.
const credentialScopes = "https://www.googleapis.com/auth/cloud-platform " +
	"https://www.googleapis.com/auth/firebase " +
	"https://www.googleapis.com/auth/identitytoolkit " +
	"https://www.googleapis.com/auth/userinfo.email"

// tokenEarlyExpiry is how long before its expiry a cached access token is replaced.
const tokenEarlyExpiry = 5 * time.Minute

type assertionClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// Credential obtains OAuth access tokens with the service-account JWT-bearer grant.
//
// The current token is cached process-wide and shared by all requests; it is
// replaced five minutes before it expires.
type Credential struct {
	clientEmail string
	key         *rsa.PrivateKey
	tokenURL    string
	http        *http.Client
	now         func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewCredential parses the service-account key and returns a Credential.
// tokenURL defaults to the production OAuth endpoint.
func NewCredential(sa ServiceAccount, tokenURL string, hc *http.Client) (*Credential, error) {
	if err := sa.Validate(); err != nil {
		return nil, err
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(sa.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	if tokenURL == "" {
		tokenURL = DefaultEndpoints().OAuthToken
	}
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Credential{
		clientEmail: sa.ClientEmail,
		key:         key,
		tokenURL:    tokenURL,
		http:        hc,
		now:         time.Now,
	}, nil
}

// AccessToken returns a cached access token or fetches a new one.
func (c *Credential) AccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.token != "" && now.Before(c.expires.Add(-tokenEarlyExpiry)) {
		return c.token, nil
	}

	assertion, err := c.assertion(now)
	if err != nil {
		return "", err
	}

	form := url.Values{}
	form.Set("grant_type", "urn:ietf:params:oauth:grant-type:jwt-bearer")
	form.Set("assertion", assertion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := doJSON(c.http, req, &resp); err != nil {
		return "", fmt.Errorf("service account token: %w", err)
	}
	if resp.AccessToken == "" || resp.ExpiresIn <= 0 {
		return "", errors.New("service account token: incomplete response")
	}

	c.token = resp.AccessToken
	c.expires = now.Add(time.Duration(resp.ExpiresIn) * time.Second)
	return c.token, nil
}

func (c *Credential) assertion(now time.Time) (string, error) {
	claims := assertionClaims{
		Scope: credentialScopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.clientEmail,
			Audience:  jwt.ClaimStrings{c.tokenURL},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(c.key)
}
