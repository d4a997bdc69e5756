package provider

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ServiceAccount is the subset of a service-account key file the edge needs.
type ServiceAccount struct {
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
}

// ParseServiceAccount decodes a service-account JSON key file.
func ParseServiceAccount(data []byte) (ServiceAccount, error) {
	var sa ServiceAccount
	if err := json.Unmarshal(data, &sa); err != nil {
		return ServiceAccount{}, err
	}
	if err := sa.Validate(); err != nil {
		return ServiceAccount{}, err
	}
	return sa, nil
}

// Validate reports missing fields.
func (sa ServiceAccount) Validate() error {
	if strings.TrimSpace(sa.ProjectID) == "" {
		return errors.New("service account project_id is required")
	}
	if strings.TrimSpace(sa.ClientEmail) == "" {
		return errors.New("service account client_email is required")
	}
	if strings.TrimSpace(sa.PrivateKey) == "" {
		return errors.New("service account private_key is required")
	}
	return nil
}

// TokenSet is the result of a token exchange.
type TokenSet struct {
	IDToken      string
	RefreshToken string
	ExpiresIn    time.Duration
	UserID       string
}

// UserRecord is the part of an account the edge consults.
type UserRecord struct {
	UID        string
	Email      string
	TenantID   string
	Disabled   bool
	ValidSince time.Time
	// CustomClaims are the account's current developer claims.
	CustomClaims map[string]any
}

// RevokedSince reports whether tokens authenticated at authTime are no longer
// accepted for this account.
func (u *UserRecord) RevokedSince(authTime time.Time) bool {
	if u.Disabled {
		return true
	}
	return !u.ValidSince.IsZero() && u.ValidSince.After(authTime)
}
