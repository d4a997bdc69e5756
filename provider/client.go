package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const maxResponseBytes = 1 << 20

// Endpoints are the provider base URLs. Zero fields fall back to DefaultEndpoints.
type Endpoints struct {
	SecureToken     string
	IdentityToolkit string
	OAuthToken      string
	PublicKeys      string
}

// DefaultEndpoints returns the production provider URLs.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		SecureToken:     "https://securetoken.googleapis.com/v1/token",
		IdentityToolkit: "https://identitytoolkit.googleapis.com/v1",
		OAuthToken:      "https://oauth2.googleapis.com/token",
		PublicKeys:      "https://www.googleapis.com/service_accounts/v1/jwk/securetoken@system.gserviceaccount.com",
	}
}

func (e Endpoints) withDefaults() Endpoints {
	d := DefaultEndpoints()
	if e.SecureToken == "" {
		e.SecureToken = d.SecureToken
	}
	if e.IdentityToolkit == "" {
		e.IdentityToolkit = d.IdentityToolkit
	}
	if e.OAuthToken == "" {
		e.OAuthToken = d.OAuthToken
	}
	if e.PublicKeys == "" {
		e.PublicKeys = d.PublicKeys
	}
	e.IdentityToolkit = strings.TrimRight(e.IdentityToolkit, "/")
	return e
}

// TokenSource supplies OAuth access tokens for privileged calls.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Config configures a Client.
type Config struct {
	APIKey     string
	ProjectID  string
	TenantID   string
	HTTPClient *http.Client
	Endpoints  Endpoints
	// Credential authorizes LookupUser. Optional when revocation checks and
	// dynamic claims are disabled.
	Credential TokenSource
}

// Client talks to the identity provider's token and account APIs.
//
// Client is safe for concurrent use. It never retries: every call maps to exactly
// one HTTP request bound to the caller's context.
type Client struct {
	apiKey     string
	projectID  string
	tenantID   string
	http       *http.Client
	endpoints  Endpoints
	credential TokenSource
}

// NewClient validates cfg and returns a Client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("provider api key is required")
	}
	if strings.TrimSpace(cfg.ProjectID) == "" {
		return nil, errors.New("provider project id is required")
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		apiKey:     cfg.APIKey,
		projectID:  cfg.ProjectID,
		tenantID:   cfg.TenantID,
		http:       hc,
		endpoints:  cfg.Endpoints.withDefaults(),
		credential: cfg.Credential,
	}, nil
}

// Endpoints returns the resolved endpoint set.
func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

// RefreshToken exchanges a refresh token for a new ID token.
//
// A rejected refresh token (expired, revoked, user disabled) is an *APIError for
// which IsRejected is true.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenSet, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.withKey(c.endpoints.SecureToken), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp struct {
		IDToken      string `json:"id_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    string `json:"expires_in"`
		UserID       string `json:"user_id"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("refresh token exchange: %w", err)
	}
	if resp.IDToken == "" {
		return nil, errors.New("refresh token exchange: empty id token in response")
	}
	return &TokenSet{
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    parseSeconds(resp.ExpiresIn),
		UserID:       resp.UserID,
	}, nil
}

// SignInWithCustomToken exchanges a custom token for an ID and refresh token pair.
func (c *Client) SignInWithCustomToken(ctx context.Context, customToken string) (*TokenSet, error) {
	body := map[string]any{
		"token":             customToken,
		"returnSecureToken": true,
	}
	if c.tenantID != "" {
		body["tenantId"] = c.tenantID
	}

	req, err := c.jsonRequest(ctx, c.withKey(c.endpoints.IdentityToolkit+"/accounts:signInWithCustomToken"), body)
	if err != nil {
		return nil, err
	}

	var resp struct {
		IDToken      string `json:"idToken"`
		RefreshToken string `json:"refreshToken"`
		ExpiresIn    string `json:"expiresIn"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("custom token sign-in: %w", err)
	}
	if resp.IDToken == "" || resp.RefreshToken == "" {
		return nil, errors.New("custom token sign-in: incomplete token pair in response")
	}
	return &TokenSet{
		IDToken:      resp.IDToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    parseSeconds(resp.ExpiresIn),
	}, nil
}

// LookupUser loads the account for uid with service-account authorization.
func (c *Client) LookupUser(ctx context.Context, uid string) (*UserRecord, error) {
	if c.credential == nil {
		return nil, ErrNoCredential
	}
	token, err := c.credential.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("account lookup: %w", err)
	}

	endpoint := c.endpoints.IdentityToolkit + "/projects/" + url.PathEscape(c.projectID)
	if c.tenantID != "" {
		endpoint += "/tenants/" + url.PathEscape(c.tenantID)
	}
	endpoint += "/accounts:lookup"

	req, err := c.jsonRequest(ctx, endpoint, map[string]any{"localId": []string{uid}})
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	var resp struct {
		Users []struct {
			LocalID          string `json:"localId"`
			Email            string `json:"email"`
			TenantID         string `json:"tenantId"`
			Disabled         bool   `json:"disabled"`
			ValidSince       string `json:"validSince"`
			CustomAttributes string `json:"customAttributes"`
		} `json:"users"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("account lookup: %w", err)
	}
	if len(resp.Users) == 0 {
		return nil, ErrUserNotFound
	}

	u := resp.Users[0]
	rec := &UserRecord{
		UID:      u.LocalID,
		Email:    u.Email,
		TenantID: u.TenantID,
		Disabled: u.Disabled,
	}
	if secs, err := strconv.ParseInt(u.ValidSince, 10, 64); err == nil && secs > 0 {
		rec.ValidSince = time.Unix(secs, 0)
	}
	if u.CustomAttributes != "" {
		if err := json.Unmarshal([]byte(u.CustomAttributes), &rec.CustomClaims); err != nil {
			return nil, fmt.Errorf("account lookup: decode custom attributes: %w", err)
		}
	}
	return rec, nil
}

func (c *Client) withKey(endpoint string) string {
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return endpoint + sep + "key=" + url.QueryEscape(c.apiKey)
}

func (c *Client) jsonRequest(ctx context.Context, endpoint string, body any) (*http.Request, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	return doJSON(c.http, req, out)
}

func doJSON(hc *http.Client, req *http.Request, out any) error {
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseSeconds(s string) time.Duration {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
