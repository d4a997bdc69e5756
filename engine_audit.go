package edgeAuth

import (
	"context"
	"errors"

	"github.com/MrEthical07/edgeAuth/jwt"
	"github.com/MrEthical07/edgeAuth/provider"
	"github.com/MrEthical07/edgeAuth/session"
)

// AuditErrorCode is the coarse error class recorded on audit events. Raw
// error strings are never recorded because they may echo token material.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrRevoked            AuditErrorCode = "revoked"
	auditErrInvalidSignature   AuditErrorCode = "invalid_signature"
	auditErrMalformed          AuditErrorCode = "malformed"
	auditErrMissing            AuditErrorCode = "missing"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrProviderRejected   AuditErrorCode = "provider_rejected"
	auditErrUnavailable        AuditErrorCode = "provider_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	tenantID string,
	reason string,
	err error,
) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		EventType: eventType,
		UserID:    userID,
		TenantID:  tenantID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Reason:    reason,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrRevoked):
		return auditErrRevoked
	case errors.Is(err, provider.ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, session.ErrInvalidSignature):
		return auditErrInvalidSignature
	case errors.Is(err, session.ErrMalformed),
		errors.Is(err, jwt.ErrMalformed),
		errors.Is(err, ErrInvalidAuthorization):
		return auditErrMalformed
	case errors.Is(err, ErrMissingAuthorization),
		errors.Is(err, ErrMissingRefreshToken),
		errors.Is(err, session.ErrMissingCredentials):
		return auditErrMissing
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, jwt.ErrInvalid),
		errors.Is(err, jwt.ErrExpired):
		return auditErrInvalidCredentials
	case provider.IsRejected(err):
		return auditErrProviderRejected
	case errors.Is(err, ErrInternal):
		return auditErrInternal
	default:
		return auditErrUnavailable
	}
}
