package session

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// MaxCookieValueSize is the largest cookie value the codec emits. Browsers cap a
// cookie at 4096 bytes including name and attributes.
const MaxCookieValueSize = 4000

var (
	// ErrMissingCredentials is returned when none of the session cookies is present.
	ErrMissingCredentials = errors.New("session cookies missing")
	// ErrMalformed is returned when session cookies are present but cannot be decoded.
	ErrMalformed = errors.New("session cookies malformed")
	// ErrCookieTooLarge is returned when an encoded value exceeds MaxCookieValueSize.
	ErrCookieTooLarge = errors.New("session cookie value too large")
	// ErrCustomTokenDisabled is returned when encoding a payload with a custom token
	// while custom tokens are disabled.
	ErrCustomTokenDisabled = errors.New("custom token present but custom tokens are disabled")
)

// EncodeOptions controls Encode.
type EncodeOptions struct {
	CookieName        string
	EnableCustomToken bool
}

// DecodeOptions controls Decode.
type DecodeOptions struct {
	CookieName string
	// AllowMissingRefresh accepts sessions without a refresh token (ID-token-only flows).
	AllowMissingRefresh bool
}

// Encode serializes p into cookies for scheme. The payload must already be signed.
func Encode(p Payload, scheme Scheme, opts EncodeOptions) ([]Cookie, error) {
	if p.IDToken == "" || p.Signature == "" {
		return nil, fmt.Errorf("%w: payload requires id token and signature", ErrMalformed)
	}
	if p.CustomToken != "" && !opts.EnableCustomToken {
		return nil, ErrCustomTokenDisabled
	}
	names := Names(opts.CookieName)

	var out []Cookie
	switch scheme {
	case SchemeSingle:
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		out = []Cookie{{Name: names.Single, Value: base64.RawURLEncoding.EncodeToString(raw)}}
	case SchemeMultiple:
		out = make([]Cookie, 0, 4)
		out = append(out, Cookie{Name: names.ID, Value: p.IDToken})
		if p.RefreshToken != "" {
			out = append(out, Cookie{Name: names.Refresh, Value: p.RefreshToken})
		}
		if p.CustomToken != "" {
			out = append(out, Cookie{Name: names.Custom, Value: p.CustomToken})
		}
		out = append(out, Cookie{Name: names.Sig, Value: p.Signature})
	default:
		return nil, fmt.Errorf("unsupported cookie scheme %d", scheme)
	}

	for _, c := range out {
		if len(c.Value) > MaxCookieValueSize {
			return nil, fmt.Errorf("%w: %s is %d bytes", ErrCookieTooLarge, c.Name, len(c.Value))
		}
	}
	return out, nil
}

// Decode rebuilds a Payload from request cookie values keyed by cookie name.
func Decode(values map[string]string, scheme Scheme, opts DecodeOptions) (*Payload, error) {
	names := Names(opts.CookieName)

	var p Payload
	switch scheme {
	case SchemeSingle:
		raw, ok := values[names.Single]
		if !ok || raw == "" {
			return nil, ErrMissingCredentials
		}
		data, err := base64.RawURLEncoding.Strict().DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	case SchemeMultiple:
		present := false
		for _, n := range []string{names.ID, names.Refresh, names.Custom, names.Sig} {
			if values[n] != "" {
				present = true
				break
			}
		}
		if !present {
			return nil, ErrMissingCredentials
		}
		p = Payload{
			IDToken:      values[names.ID],
			RefreshToken: values[names.Refresh],
			CustomToken:  values[names.Custom],
			Signature:    values[names.Sig],
		}
	default:
		return nil, fmt.Errorf("unsupported cookie scheme %d", scheme)
	}

	if p.IDToken == "" {
		return nil, fmt.Errorf("%w: id token missing", ErrMalformed)
	}
	if p.Signature == "" {
		return nil, fmt.Errorf("%w: signature missing", ErrMalformed)
	}
	if p.RefreshToken == "" && !opts.AllowMissingRefresh {
		return nil, fmt.Errorf("%w: refresh token missing", ErrMalformed)
	}
	return &p, nil
}

// Clear returns empty cookies for every name of both schemes.
func Clear(cookieName string) []Cookie {
	all := Names(cookieName).All()
	out := make([]Cookie, 0, len(all))
	for _, n := range all {
		out = append(out, Cookie{Name: n})
	}
	return out
}
