package keyring

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

var (
	// ErrEmptyRing is returned when a ring is constructed without secrets.
	ErrEmptyRing = errors.New("key ring requires at least one secret")
	// ErrEmptyKey is returned when one of the configured secrets is empty.
	ErrEmptyKey = errors.New("key ring secret must not be empty")
)

// SignatureSize is the length in bytes of every signature produced by a Ring.
const SignatureSize = sha256.Size

// Ring is an ordered list of HMAC-SHA256 secrets, most recent first.
//
// Ring values are immutable after construction and safe for concurrent use.
type Ring struct {
	keys [][]byte
}

// New builds a ring from secrets ordered most recent first. The secrets are copied.
func New(secrets ...[]byte) (*Ring, error) {
	if len(secrets) == 0 {
		return nil, ErrEmptyRing
	}
	keys := make([][]byte, 0, len(secrets))
	for _, s := range secrets {
		if len(s) == 0 {
			return nil, ErrEmptyKey
		}
		k := make([]byte, len(s))
		copy(k, s)
		keys = append(keys, k)
	}
	return &Ring{keys: keys}, nil
}

// FromStrings builds a ring from configuration strings. Surrounding whitespace is trimmed.
func FromStrings(secrets []string) (*Ring, error) {
	raw := make([][]byte, 0, len(secrets))
	for _, s := range secrets {
		raw = append(raw, []byte(strings.TrimSpace(s)))
	}
	return New(raw...)
}

// Sign computes the HMAC-SHA256 of payload under key.
func Sign(key, payload []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(payload)
	return mac.Sum(nil)
}

// VerifyAny reports whether signature is a valid HMAC of payload under any of keys.
// Keys are tried in order and every comparison is constant time.
func VerifyAny(payload, signature []byte, keys [][]byte) bool {
	if len(signature) != SignatureSize {
		return false
	}
	for _, key := range keys {
		if hmac.Equal(Sign(key, payload), signature) {
			return true
		}
	}
	return false
}

// Sign signs payload with the current key.
func (r *Ring) Sign(payload []byte) []byte {
	return Sign(r.keys[0], payload)
}

// Verify reports whether signature matches payload under any key of the ring.
func (r *Ring) Verify(payload, signature []byte) bool {
	if r == nil {
		return false
	}
	return VerifyAny(payload, signature, r.keys)
}

// Match returns the index of the first key that verifies signature, or -1.
func (r *Ring) Match(payload, signature []byte) int {
	if r == nil || len(signature) != SignatureSize {
		return -1
	}
	for i, key := range r.keys {
		if hmac.Equal(Sign(key, payload), signature) {
			return i
		}
	}
	return -1
}

// Len returns the number of keys in the ring.
func (r *Ring) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Current returns a copy of the signing key.
func (r *Ring) Current() []byte {
	out := make([]byte, len(r.keys[0]))
	copy(out, r.keys[0])
	return out
}

// Derive returns a ring of HKDF-SHA256 subkeys bound to label. Key order is preserved,
// so rotation behaves the same on the derived ring.
func (r *Ring) Derive(label string) (*Ring, error) {
	if r == nil || len(r.keys) == 0 {
		return nil, ErrEmptyRing
	}
	keys := make([][]byte, 0, len(r.keys))
	for _, k := range r.keys {
		sub := make([]byte, sha256.Size)
		if _, err := io.ReadFull(hkdf.New(sha256.New, k, nil, []byte(label)), sub); err != nil {
			return nil, err
		}
		keys = append(keys, sub)
	}
	return &Ring{keys: keys}, nil
}
