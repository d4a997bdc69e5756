package edgeAuth

import (
	"io"

	"go.uber.org/zap"

	internalaudit "github.com/MrEthical07/edgeAuth/internal/audit"
)

// Audit event types.
const (
	AuditEventLoginSuccess     = internalaudit.EventLoginSuccess
	AuditEventLoginFailure     = internalaudit.EventLoginFailure
	AuditEventLogout           = internalaudit.EventLogout
	AuditEventRefreshSuccess   = internalaudit.EventRefreshSuccess
	AuditEventRefreshInvalid   = internalaudit.EventRefreshInvalid
	AuditEventTokenRevoked     = internalaudit.EventTokenRevoked
	AuditEventSignatureInvalid = internalaudit.EventSignatureInvalid
)

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// ZapSink is an [AuditSink] that logs every event through a zap logger.
type ZapSink = internalaudit.ZapSink

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

func NewZapSink(logger *zap.Logger) *ZapSink {
	return internalaudit.NewZapSink(logger)
}
