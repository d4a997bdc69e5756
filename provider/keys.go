package provider

import (
	"context"
	"crypto"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	edgejwt "github.com/MrEthical07/edgeAuth/jwt"
)

const (
	defaultKeyTTL = time.Hour
	// minKeyRefetch bounds how often an unknown kid can force a refetch.
	minKeyRefetch = 30 * time.Second
	keyCacheName  = "jwks"
)

// Cache is a shared byte cache with TTLs, implemented by keycache.Store.
// Get returns a nil value on a miss.
type Cache interface {
	Get(ctx context.Context, name string) ([]byte, time.Duration, error)
	Set(ctx context.Context, name string, value []byte, ttl time.Duration) error
}

// KeySet resolves provider ID-token signing keys from the published JWKS.
//
// Keys are cached in memory for the response's max-age and, when a Cache is
// configured, shared with other instances through it. Concurrent lookups that
// miss share a single fetch, and each caller stops waiting when its own
// context ends. KeySet implements jwt.KeySource.
type KeySet struct {
	url   string
	http  *http.Client
	cache Cache
	now   func() time.Time

	mu        sync.Mutex
	keys      map[string]*rsa.PublicKey
	expires   time.Time
	fetchedAt time.Time
	inflight  *keyFetch
}

// keyFetch is a refresh in progress; err is set before done is closed.
type keyFetch struct {
	done chan struct{}
	err  error
}

var _ edgejwt.KeySource = (*KeySet)(nil)

// NewKeySet returns a KeySet reading from url. cache may be nil.
func NewKeySet(url string, hc *http.Client, cache Cache) *KeySet {
	if url == "" {
		url = DefaultEndpoints().PublicKeys
	}
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &KeySet{url: url, http: hc, cache: cache, now: time.Now}
}

// PublicKey returns the key for kid, refreshing the set when it has expired.
func (k *KeySet) PublicKey(ctx context.Context, kid string) (crypto.PublicKey, error) {
	k.mu.Lock()
	now := k.now()
	if k.keys != nil && now.Before(k.expires) {
		if key, ok := k.keys[kid]; ok {
			k.mu.Unlock()
			return key, nil
		}
		if now.Sub(k.fetchedAt) < minKeyRefetch {
			k.mu.Unlock()
			return nil, edgejwt.ErrUnknownKey
		}
	}
	f := k.inflight
	if f == nil {
		f = &keyFetch{done: make(chan struct{})}
		k.inflight = f
		stale := k.keys == nil || !now.Before(k.expires)
		// the fetch outlives any single caller so waiters are not failed by
		// the starter's cancellation; the HTTP client timeout bounds it
		go k.refresh(context.WithoutCancel(ctx), f, now, stale)
	}
	k.mu.Unlock()

	select {
	case <-f.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if key, ok := k.keys[kid]; ok {
		return key, nil
	}
	return nil, edgejwt.ErrUnknownKey
}

// refresh loads the key set without holding k.mu and publishes the result.
func (k *KeySet) refresh(ctx context.Context, f *keyFetch, now time.Time, stale bool) {
	keys, ttl, err := k.load(ctx, stale)

	k.mu.Lock()
	if err == nil {
		k.keys = keys
		k.expires = now.Add(ttl)
		k.fetchedAt = now
	}
	f.err = err
	k.inflight = nil
	k.mu.Unlock()
	close(f.done)
}

func (k *KeySet) load(ctx context.Context, stale bool) (map[string]*rsa.PublicKey, time.Duration, error) {
	// the shared cache is only consulted when the local set is stale, not when a
	// kid is unknown, so a rotated key is always fetched from the source
	if k.cache != nil && stale {
		data, ttl, err := k.cache.Get(ctx, keyCacheName)
		if err == nil && data != nil {
			if keys, perr := parseJWKS(data); perr == nil && len(keys) > 0 {
				return keys, ttl, nil
			}
		}
	}

	data, ttl, err := k.fetch(ctx)
	if err != nil {
		return nil, 0, err
	}
	keys, err := parseJWKS(data)
	if err != nil {
		return nil, 0, err
	}
	if k.cache != nil {
		// a cache write failure only costs the other instances a fetch
		_ = k.cache.Set(ctx, keyCacheName, data, ttl)
	}
	return keys, ttl, nil
}

func (k *KeySet) fetch(ctx context.Context) ([]byte, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.url, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := k.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch public keys: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("fetch public keys: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("fetch public keys: %w", decodeAPIError(resp.StatusCode, body))
	}
	return body, maxAge(resp.Header.Get("Cache-Control")), nil
}

func maxAge(cacheControl string) time.Duration {
	for _, directive := range strings.Split(cacheControl, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(directive), "=")
		if !ok || !strings.EqualFold(name, "max-age") {
			continue
		}
		secs, err := strconv.ParseInt(strings.Trim(value, `"`), 10, 64)
		if err != nil || secs <= 0 {
			break
		}
		return time.Duration(secs) * time.Second
	}
	return defaultKeyTTL
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func parseJWKS(data []byte) (map[string]*rsa.PublicKey, error) {
	var set struct {
		Keys []jwk `json:"keys"`
	}
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("decode public keys: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, key := range set.Keys {
		if key.Kty != "RSA" || key.Kid == "" || (key.Use != "" && key.Use != "sig") {
			continue
		}
		pub, err := rsaFromJWK(key)
		if err != nil {
			return nil, fmt.Errorf("decode public key %q: %w", key.Kid, err)
		}
		keys[key.Kid] = pub
	}
	if len(keys) == 0 {
		return nil, errors.New("decode public keys: no usable RSA keys")
	}
	return keys, nil
}

func rsaFromJWK(key jwk) (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(key.N)
	if err != nil {
		return nil, err
	}
	e, err := base64.RawURLEncoding.DecodeString(key.E)
	if err != nil {
		return nil, err
	}
	if len(n) == 0 || len(e) == 0 || len(e) > 4 {
		return nil, errors.New("invalid modulus or exponent")
	}

	exp := 0
	for _, b := range e {
		exp = exp<<8 | int(b)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: exp}, nil
}
