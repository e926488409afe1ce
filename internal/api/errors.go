package api

import (
	"errors"
	"fmt"
)

// ErrAuthRequired means a call needed a usable token and the session-cookie
// probe failed too. Callers surface it as an actionable login prompt, not a
// fatal error.
var ErrAuthRequired = errors.New("authentication required")

// APIError is a non-2xx backend response. Payload is the decoded JSON body
// when the body was parseable (it may carry per-field error arrays), nil
// otherwise.
type APIError struct {
	Status  int
	Payload map[string]any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: request failed with status %d", e.Status)
}

// IsAPIError returns the *APIError in err's chain, if any.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
