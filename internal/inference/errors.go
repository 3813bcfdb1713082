package inference

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// maxRawErrorLen caps how much of an unstructured error body we echo
// back to the user.
const maxRawErrorLen = 200

// APIError is a non-2xx reply from an inference backend. Message is
// already human-readable and safe to surface to the caller.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// IsAPIError reports whether err is (or wraps) a backend APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// newAPIError turns an error body into an APIError. The backends
// usually send FastAPI-style {"detail": "..."} JSON; anything else is
// echoed raw, truncated.
func newAPIError(status int, body []byte) *APIError {
	var structured struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &structured); err == nil {
		if structured.Detail != "" {
			return &APIError{StatusCode: status, Message: structured.Detail}
		}
		return &APIError{StatusCode: status, Message: fmt.Sprintf("API error: %d", status)}
	}

	raw := string(body)
	if len(raw) > maxRawErrorLen {
		// The byte cut can land mid-rune; drop the partial sequence
		// rather than surfacing invalid UTF-8 to the user.
		raw = strings.ToValidUTF8(raw[:maxRawErrorLen], "")
	}
	return &APIError{StatusCode: status, Message: fmt.Sprintf("API error: %d - %s", status, raw)}
}
