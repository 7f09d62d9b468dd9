package rest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Kind classifies a normalized backend failure.
type Kind int

const (
	// KindValidation covers 400/422 rejections of the request content.
	KindValidation Kind = iota
	// KindAuth covers 401/403.
	KindAuth
	// KindRateLimited covers 429.
	KindRateLimited
	// KindServer covers 5xx and unclassifiable statuses.
	KindServer
	// KindNetwork covers transport failures before any status arrived.
	KindNetwork
)

// APIError is the single error shape all backend failures are normalized into at
// the network boundary. Backend payload key names vary (detail vs message,
// sometimes nested under error); upstream logic never sees that variance.
type APIError struct {
	Kind    Kind
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("backend error (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend unreachable: %s", e.Message)
}

// Retryable reports whether the failure is worth retrying from the user's
// perspective (network trouble or a server-side fault).
func (e *APIError) Retryable() bool {
	return e.Kind == KindNetwork || e.Kind == KindServer
}

const maxErrorBody = 8 << 10

// decodeError normalizes a non-2xx response into an *APIError.
func decodeError(resp *http.Response) *APIError {
	apiErr := &APIError{
		Kind:    kindForStatus(resp.StatusCode),
		Status:  resp.StatusCode,
		Message: http.StatusText(resp.StatusCode),
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(raw) == 0 {
		return apiErr
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return apiErr
	}
	if msg := extractMessage(payload); msg != "" {
		apiErr.Message = msg
	}
	return apiErr
}

// extractMessage probes the payload key variants the backend is known to emit:
// {"detail": "..."}, {"message": "..."}, {"error": "..."}, and
// {"error": {"message": "..."}}.
func extractMessage(payload map[string]json.RawMessage) string {
	for _, key := range []string{"detail", "message"} {
		if msg := asString(payload[key]); msg != "" {
			return msg
		}
	}
	raw, ok := payload["error"]
	if !ok {
		return ""
	}
	if msg := asString(raw); msg != "" {
		return msg
	}
	var nested map[string]json.RawMessage
	if err := json.Unmarshal(raw, &nested); err == nil {
		for _, key := range []string{"message", "detail"} {
			if msg := asString(nested[key]); msg != "" {
				return msg
			}
		}
	}
	return ""
}

func asString(raw json.RawMessage) string {
	if raw == nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 400 && status < 500:
		return KindValidation
	default:
		return KindServer
	}
}
