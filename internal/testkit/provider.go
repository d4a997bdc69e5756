package testkit

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// User is an account known to the fake provider.
type User struct {
	UID          string
	Email        string
	Disabled     bool
	ValidSince   time.Time
	CustomClaims map[string]any
}

// Provider is an httptest-backed fake of the identity provider's token,
// account, OAuth and key endpoints.
type Provider struct {
	Server *httptest.Server

	SecureTokenURL     string
	IdentityToolkitURL string
	OAuthTokenURL      string
	PublicKeysURL      string

	RefreshCalls atomic.Int64
	SignInCalls  atomic.Int64
	LookupCalls  atomic.Int64
	OAuthCalls   atomic.Int64
	KeyCalls     atomic.Int64

	mu            sync.Mutex
	users         map[string]User
	refreshOwners map[string]string
	refreshStatus int
	refreshCode   string
	lookupStatus  int
	keyMaxAge     int
	keyGate       chan struct{}
	issued        int
}

// NewProvider starts a fake provider that is closed with the test.
func NewProvider(t testing.TB) *Provider {
	t.Helper()
	p := &Provider{
		users:         map[string]User{},
		refreshOwners: map[string]string{},
		keyMaxAge:     3600,
	}
	RSAKey(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/securetoken/v1/token", p.handleRefresh)
	mux.HandleFunc("/identitytoolkit/v1/accounts:signInWithCustomToken", p.handleSignIn)
	mux.HandleFunc("/identitytoolkit/v1/projects/", p.handleLookup)
	mux.HandleFunc("/oauth/token", p.handleOAuth)
	mux.HandleFunc("/jwks", p.handleKeys)

	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Server.Close)

	p.SecureTokenURL = p.Server.URL + "/securetoken/v1/token"
	p.IdentityToolkitURL = p.Server.URL + "/identitytoolkit/v1"
	p.OAuthTokenURL = p.Server.URL + "/oauth/token"
	p.PublicKeysURL = p.Server.URL + "/jwks"
	return p
}

// AddUser registers an account for lookups.
func (p *Provider) AddUser(u User) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[u.UID] = u
}

// IssueRefreshToken returns a refresh token the fake will accept for uid.
func (p *Provider) IssueRefreshToken(uid string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.issueRefreshLocked(uid)
}

func (p *Provider) issueRefreshLocked(uid string) string {
	p.issued++
	rt := "rt-" + uid + "-" + strconv.Itoa(p.issued)
	p.refreshOwners[rt] = uid
	return rt
}

// FailRefresh makes every refresh exchange answer with status and code.
// A zero status restores normal behavior.
func (p *Provider) FailRefresh(status int, code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshStatus = status
	p.refreshCode = code
}

// FailLookup makes account lookups answer with status.
func (p *Provider) FailLookup(status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lookupStatus = status
}

// SetKeyMaxAge sets the Cache-Control max-age served with the key set.
func (p *Provider) SetKeyMaxAge(seconds int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keyMaxAge = seconds
}

// HoldKeys blocks key set responses until the returned release is called.
// release is also registered as a test cleanup.
func (p *Provider) HoldKeys(t testing.TB) (release func()) {
	t.Helper()
	gate := make(chan struct{})
	p.mu.Lock()
	p.keyGate = gate
	p.mu.Unlock()

	var once sync.Once
	release = func() {
		once.Do(func() {
			p.mu.Lock()
			p.keyGate = nil
			p.mu.Unlock()
			close(gate)
		})
	}
	t.Cleanup(release)
	return release
}

func (p *Provider) user(uid string) User {
	if u, ok := p.users[uid]; ok {
		return u
	}
	return User{UID: uid}
}

func (p *Provider) handleRefresh(w http.ResponseWriter, r *http.Request) {
	p.RefreshCalls.Add(1)
	if r.Method != http.MethodPost || r.URL.Query().Get("key") != APIKey {
		writeGoogleError(w, http.StatusBadRequest, "API_KEY_INVALID")
		return
	}
	if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "refresh_token" {
		writeGoogleError(w, http.StatusBadRequest, "INVALID_GRANT_TYPE")
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refreshStatus != 0 {
		writeGoogleError(w, p.refreshStatus, p.refreshCode)
		return
	}
	uid, ok := p.refreshOwners[r.PostForm.Get("refresh_token")]
	if !ok {
		writeGoogleError(w, http.StatusBadRequest, "INVALID_REFRESH_TOKEN")
		return
	}
	u := p.user(uid)
	if u.Disabled {
		writeGoogleError(w, http.StatusBadRequest, "USER_DISABLED")
		return
	}

	idToken, err := mint(key, Token{UID: uid, Email: u.Email, Claims: u.CustomClaims, IssuedAt: time.Now()})
	if err != nil {
		writeGoogleError(w, http.StatusInternalServerError, "INTERNAL")
		return
	}
	writeJSON(w, map[string]any{
		"id_token":      idToken,
		"refresh_token": r.PostForm.Get("refresh_token"),
		"expires_in":    "3600",
		"token_type":    "Bearer",
		"user_id":       uid,
		"project_id":    ProjectID,
	})
}

func (p *Provider) handleSignIn(w http.ResponseWriter, r *http.Request) {
	p.SignInCalls.Add(1)
	if r.URL.Query().Get("key") != APIKey {
		writeGoogleError(w, http.StatusBadRequest, "API_KEY_INVALID")
		return
	}
	var body struct {
		Token             string `json:"token"`
		ReturnSecureToken bool   `json:"returnSecureToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || !body.ReturnSecureToken {
		writeGoogleError(w, http.StatusBadRequest, "INVALID_REQUEST")
		return
	}

	var custom struct {
		UID    string         `json:"uid"`
		Claims map[string]any `json:"claims"`
		jwt.RegisteredClaims
	}
	parsed, err := jwt.ParseWithClaims(body.Token, &custom, func(*jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}))
	if err != nil || !parsed.Valid || custom.UID == "" {
		writeGoogleError(w, http.StatusBadRequest, "INVALID_CUSTOM_TOKEN")
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	u := p.user(custom.UID)
	if u.Disabled {
		writeGoogleError(w, http.StatusBadRequest, "USER_DISABLED")
		return
	}
	claims := map[string]any{}
	for k, v := range u.CustomClaims {
		claims[k] = v
	}
	for k, v := range custom.Claims {
		claims[k] = v
	}
	idToken, err := mint(key, Token{UID: custom.UID, Email: u.Email, Claims: claims, IssuedAt: time.Now()})
	if err != nil {
		writeGoogleError(w, http.StatusInternalServerError, "INTERNAL")
		return
	}
	writeJSON(w, map[string]any{
		"idToken":      idToken,
		"refreshToken": p.issueRefreshLocked(custom.UID),
		"expiresIn":    "3600",
	})
}

func (p *Provider) handleLookup(w http.ResponseWriter, r *http.Request) {
	p.LookupCalls.Add(1)
	if !strings.HasSuffix(r.URL.Path, "/accounts:lookup") {
		http.NotFound(w, r)
		return
	}
	if r.Header.Get("Authorization") != "Bearer test-access-token" {
		writeGoogleError(w, http.StatusUnauthorized, "UNAUTHENTICATED")
		return
	}
	var body struct {
		LocalID []string `json:"localId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.LocalID) != 1 {
		writeGoogleError(w, http.StatusBadRequest, "INVALID_REQUEST")
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lookupStatus != 0 {
		writeGoogleError(w, p.lookupStatus, "LOOKUP_FAILED")
		return
	}
	u, ok := p.users[body.LocalID[0]]
	if !ok {
		writeJSON(w, map[string]any{"kind": "identitytoolkit#GetAccountInfoResponse"})
		return
	}
	record := map[string]any{
		"localId":  u.UID,
		"email":    u.Email,
		"disabled": u.Disabled,
	}
	if !u.ValidSince.IsZero() {
		record["validSince"] = strconv.FormatInt(u.ValidSince.Unix(), 10)
	}
	if len(u.CustomClaims) > 0 {
		raw, _ := json.Marshal(u.CustomClaims)
		record["customAttributes"] = string(raw)
	}
	writeJSON(w, map[string]any{"users": []any{record}})
}

func (p *Provider) handleOAuth(w http.ResponseWriter, r *http.Request) {
	p.OAuthCalls.Add(1)
	if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "urn:ietf:params:oauth:grant-type:jwt-bearer" {
		writeOAuthError(w, "unsupported_grant_type")
		return
	}
	_, err := jwt.Parse(r.PostForm.Get("assertion"), func(*jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}), jwt.WithAudience(p.OAuthTokenURL))
	if err != nil {
		writeOAuthError(w, "invalid_grant")
		return
	}
	writeJSON(w, map[string]any{
		"access_token": "test-access-token",
		"expires_in":   3600,
		"token_type":   "Bearer",
	})
}

func (p *Provider) handleKeys(w http.ResponseWriter, r *http.Request) {
	p.KeyCalls.Add(1)
	p.mu.Lock()
	maxAge, gate := p.keyMaxAge, p.keyGate
	p.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	pub := key.PublicKey
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d, must-revalidate", maxAge))
	writeJSON(w, map[string]any{
		"keys": []any{map[string]any{
			"kty": "RSA",
			"alg": "RS256",
			"use": "sig",
			"kid": KeyID,
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeOAuthError(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": code, "error_description": "rejected by fake provider"})
}

func writeGoogleError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": status, "message": code},
	})
}
