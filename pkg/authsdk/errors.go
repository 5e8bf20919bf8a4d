package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx answer from the service.
type APIError struct {
	StatusCode int
	Message    string
	// Fields is set on 400 validation failures.
	Fields []FieldError
}

func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("HTTP %d: %s (%d field errors)", e.StatusCode, e.Message, len(e.Fields))
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Is lets callers match on the status code with the sentinels below.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Message == "" && t.StatusCode == e.StatusCode
}

// Sentinels for errors.Is. They match any APIError with the same status.
var (
	ErrBadRequest   = &APIError{StatusCode: http.StatusBadRequest}
	ErrUnauthorized = &APIError{StatusCode: http.StatusUnauthorized}
	ErrForbidden    = &APIError{StatusCode: http.StatusForbidden}
	ErrNotFound     = &APIError{StatusCode: http.StatusNotFound}
	// ErrLinkConfirmationRequired means an account with this email exists and
	// must sign in and link the Google identity explicitly.
	ErrLinkConfirmationRequired = &APIError{StatusCode: http.StatusConflict}
	ErrRateLimited              = &APIError{StatusCode: http.StatusTooManyRequests}
	ErrUnavailable              = &APIError{StatusCode: http.StatusServiceUnavailable}
)

// ErrNoRefreshToken is returned when a session needs a refresh it cannot do.
var ErrNoRefreshToken = errors.New("authsdk: access token expired and no refresh token available")

// parseErrorResponse turns an error envelope into an *APIError. Bodies that
// are not envelopes (proxies, 429 from a gateway) fall back to the status text.
func parseErrorResponse(resp *http.Response, body []byte) error {
	var env Envelope[json.RawMessage]
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message, Fields: env.Errors}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
}
