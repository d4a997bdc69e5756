package session

import (
	"encoding/base64"
	"errors"
	"strconv"

	"github.com/MrEthical07/edgeAuth/keyring"
)

// ErrInvalidSignature is returned when a payload signature matches no key of the ring.
var ErrInvalidSignature = errors.New("invalid session signature")

// Canonical returns the signed representation of p: each of IDToken, RefreshToken
// and CustomToken, in that order, written as "<len>:<value>".
func Canonical(p Payload) []byte {
	size := len(p.IDToken) + len(p.RefreshToken) + len(p.CustomToken) + 3*8
	buf := make([]byte, 0, size)
	for _, field := range [...]string{p.IDToken, p.RefreshToken, p.CustomToken} {
		buf = strconv.AppendInt(buf, int64(len(field)), 10)
		buf = append(buf, ':')
		buf = append(buf, field...)
	}
	return buf
}

// Sign returns a copy of p carrying a signature made with the ring's current key.
func Sign(p Payload, ring *keyring.Ring) Payload {
	p.Signature = base64.RawURLEncoding.EncodeToString(ring.Sign(Canonical(p)))
	return p
}

// Verify checks p.Signature against every key of ring.
func Verify(p Payload, ring *keyring.Ring) error {
	sig, err := base64.RawURLEncoding.Strict().DecodeString(p.Signature)
	if err != nil {
		return ErrInvalidSignature
	}
	if !ring.Verify(Canonical(p), sig) {
		return ErrInvalidSignature
	}
	return nil
}
