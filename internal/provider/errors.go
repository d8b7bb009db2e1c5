package provider

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// ErrMalformedResponse marks a 2xx reply whose body could not be decoded.
// The payload itself is suspect, so repeating the identical request buys
// nothing; callers treat it as a strategy failure and move on.
var ErrMalformedResponse = errors.New("malformed provider response")

// APIError is a non-2xx reply from the provider. The status code drives the
// retry taxonomy: 429 and 5xx are transport-level and retryable, any other
// 4xx fails the current strategy immediately, and 401/403 are additionally
// flagged for operator diagnostics.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("provider returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("provider returned HTTP %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the error is transient (rate limit or server
// side) and worth another attempt within the same strategy.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsRetryable reports whether err should be retried with backoff: rate-limit
// and server-side replies, plus network-level transport failures. A decodable
// status with an undecodable body is not transient and is never retried.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	if errors.Is(err, ErrMalformedResponse) {
		return false
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// IsAuth reports whether err is an authorization or subscription failure.
func IsAuth(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
	}
	return false
}
