package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// MinSecretSize is the smallest cookie signature secret NewSecret produces.
const MinSecretSize = 32

// NewSecret returns size random bytes encoded as unpadded base64url, suitable
// as a cookie signature key.
func NewSecret(size int) (string, error) {
	if size < MinSecretSize {
		return "", errors.New("secret size must be at least 32 bytes")
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// NewSecrets returns n independent secrets of size bytes each.
func NewSecrets(n, size int) ([]string, error) {
	if n <= 0 {
		return nil, errors.New("secret count must be > 0")
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		s, err := NewSecret(size)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
