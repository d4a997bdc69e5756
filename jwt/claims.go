package jwt

import (
	"encoding/json"

	"github.com/golang-jwt/jwt/v5"
)

// FirebaseClaims is the provider-specific "firebase" claim of an ID token.
type FirebaseClaims struct {
	Tenant         string         `json:"tenant,omitempty"`
	SignInProvider string         `json:"sign_in_provider,omitempty"`
	Identities     map[string]any `json:"identities,omitempty"`
}

// IDClaims are the claims of a provider ID token.
//
// Custom holds every claim that is not one of the registered or provider claims,
// which is where developer-defined custom claims end up.
type IDClaims struct {
	UserID        string         `json:"user_id,omitempty"`
	AuthTime      int64          `json:"auth_time,omitempty"`
	Email         string         `json:"email,omitempty"`
	EmailVerified bool           `json:"email_verified,omitempty"`
	Name          string         `json:"name,omitempty"`
	Picture       string         `json:"picture,omitempty"`
	PhoneNumber   string         `json:"phone_number,omitempty"`
	Firebase      FirebaseClaims `json:"firebase"`
	Custom        map[string]any `json:"-"`
	jwt.RegisteredClaims
}

var reservedIDClaims = map[string]struct{}{
	"iss": {}, "aud": {}, "sub": {}, "exp": {}, "iat": {}, "nbf": {}, "jti": {},
	"user_id": {}, "auth_time": {}, "email": {}, "email_verified": {}, "name": {},
	"picture": {}, "phone_number": {}, "firebase": {},
}

// UnmarshalJSON decodes the known claims and collects the remaining ones into Custom.
func (c *IDClaims) UnmarshalJSON(data []byte) error {
	type plain IDClaims
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k := range reservedIDClaims {
		delete(all, k)
	}
	*c = IDClaims(p)
	if len(all) > 0 {
		c.Custom = all
	}
	return nil
}

// MarshalJSON flattens Custom next to the known claims.
func (c IDClaims) MarshalJSON() ([]byte, error) {
	type plain IDClaims
	known, err := json.Marshal(plain(c))
	if err != nil {
		return nil, err
	}
	if len(c.Custom) == 0 {
		return known, nil
	}
	merged := make(map[string]any, len(c.Custom)+8)
	for k, v := range c.Custom {
		merged[k] = v
	}
	var base map[string]any
	if err := json.Unmarshal(known, &base); err != nil {
		return nil, err
	}
	for k, v := range base {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// UID returns user_id, falling back to the subject.
func (c *IDClaims) UID() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}
