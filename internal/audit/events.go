package audit

// Event types emitted by the engine.
const (
	EventLoginSuccess     = "login_success"
	EventLoginFailure     = "login_failure"
	EventLogout           = "logout"
	EventRefreshSuccess   = "refresh_success"
	EventRefreshInvalid   = "refresh_invalid"
	EventTokenRevoked     = "token_revoked"
	EventSignatureInvalid = "signature_invalid"
)

const eventTypeCount = 7

// EventTypes lists every engine event type in a stable order.
var EventTypes = [eventTypeCount]string{
	EventLoginSuccess,
	EventLoginFailure,
	EventLogout,
	EventRefreshSuccess,
	EventRefreshInvalid,
	EventTokenRevoked,
	EventSignatureInvalid,
}

// eventOther is the drop-accounting slot for types outside EventTypes.
const eventOther = -1

func eventIndex(eventType string) int {
	for i, t := range EventTypes {
		if t == eventType {
			return i
		}
	}
	return eventOther
}

// Critical reports whether eventType records a forged cookie, a revoked
// account or a rejected login. Critical events are queued even when the
// dispatcher is configured to drop under backpressure.
func Critical(eventType string) bool {
	switch eventType {
	case EventSignatureInvalid, EventTokenRevoked, EventLoginFailure:
		return true
	default:
		return false
	}
}
