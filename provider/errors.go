package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUserNotFound is returned by LookupUser when the account does not exist.
	ErrUserNotFound = errors.New("provider: user not found")
	// ErrNoCredential is returned by calls that need a service-account credential when none is configured.
	ErrNoCredential = errors.New("provider: service account credential required")
)

// APIError is a non-2xx response from the identity provider.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" && e.Message != e.Code {
		return fmt.Sprintf("provider: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("provider: %d %s", e.Status, e.Code)
}

// IsRejected reports whether err is a definitive client-side rejection by the
// provider (4xx other than timeouts and throttling). Rejections are terminal and
// must not be retried with the same input.
func IsRejected(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return apiErr.Status >= 400 && apiErr.Status < 500
}

// decodeAPIError understands both the Google API error envelope
// ({"error":{"code":400,"message":"TOKEN_EXPIRED"}}) and the OAuth one
// ({"error":"invalid_grant","error_description":"..."}).
func decodeAPIError(status int, body []byte) *APIError {
	out := &APIError{Status: status, Code: http.StatusText(status)}

	var envelope struct {
		Error            json.RawMessage `json:"error"`
		ErrorDescription string          `json:"error_description"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Error) == 0 {
		return out
	}

	var code string
	if err := json.Unmarshal(envelope.Error, &code); err == nil {
		out.Code = code
		out.Message = envelope.ErrorDescription
		return out
	}

	var detail struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	}
	if err := json.Unmarshal(envelope.Error, &detail); err == nil && detail.Message != "" {
		// messages look like "TOKEN_EXPIRED" or "INVALID_ID_TOKEN : some detail"
		out.Code = detail.Message
		if code, msg, ok := strings.Cut(detail.Message, " : "); ok {
			out.Code = code
			out.Message = msg
		}
	}
	return out
}
