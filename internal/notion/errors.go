package notion

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication indicates the token was rejected (401/403).
	ErrAuthentication = errors.New("authentication failed")

	// ErrRateLimited indicates the API kept answering 429.
	ErrRateLimited = errors.New("rate limited")

	// ErrValidation indicates the API rejected the request body (400).
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates the page or database does not exist or is not
	// shared with the integration (404).
	ErrNotFound = errors.New("object not found")

	// ErrNetworkTimeout indicates a request timed out or the connection failed.
	ErrNetworkTimeout = errors.New("network timeout")

	// ErrServer indicates a 5xx or conflict response.
	ErrServer = errors.New("server error")

	// ErrSchema indicates a payload that does not match its property schema.
	ErrSchema = errors.New("payload does not match schema")
)

// APIError is an error response returned by the API.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`

	kind error
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("%v: HTTP %d: %s", e.kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%v: HTTP %d %s: %s", e.kind, e.Status, e.Code, e.Message)
}

// Unwrap returns the sentinel describing the error's kind.
func (e *APIError) Unwrap() error {
	return e.kind
}

// kindForStatus maps an HTTP status to a sentinel.
func kindForStatus(status int) error {
	switch {
	case status == 401 || status == 403:
		return ErrAuthentication
	case status == 429:
		return ErrRateLimited
	case status == 404:
		return ErrNotFound
	case status == 409 || status >= 500:
		return ErrServer
	default:
		return ErrValidation
	}
}

// IsRetryable reports whether the request that produced err may succeed
// when repeated.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrNetworkTimeout) ||
		errors.Is(err, ErrServer)
}

// IsFatal reports whether err should stop all further requests.
func IsFatal(err error) bool {
	return errors.Is(err, ErrAuthentication)
}
