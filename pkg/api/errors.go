package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Error exposes methods useful for categorizing request failures.
type Error interface {
	error

	// Temporary returns true if the error might be the result of a transient
	// condition, so re-running the program without changing anything might
	// succeed. Note that this program never retries on its own.
	Temporary() bool
}

// AuthError indicates the API rejected the session's credentials. The user
// must re-authenticate; re-running with the same token will not help.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return "authentication rejected"
	}
	return fmt.Sprintf("authentication rejected: %s", e.Message)
}

func (e *AuthError) Temporary() bool { return false }

// HTTPError is a non-2xx response from an API host that is not an
// authentication failure.
type HTTPError struct {
	Code    int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d: %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Message)
}

func (e *HTTPError) Temporary() bool {
	return e.Code == http.StatusServiceUnavailable ||
		e.Code == http.StatusGatewayTimeout ||
		e.Code == http.StatusRequestTimeout ||
		e.Code == http.StatusTooManyRequests
}

// IsAuthError returns true if err (or any wrapped error) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// Temporary returns true if err categorizes itself as possibly transient.
func Temporary(err error) bool {
	var apiErr Error
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return false
}
