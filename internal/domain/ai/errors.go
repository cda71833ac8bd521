package ai

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRequestFailed matches any non-2xx answer from the model service.
	ErrRequestFailed = errors.New("ai request failed")
	// ErrRateLimited indicates the model service returned HTTP 429.
	ErrRateLimited = errors.New("ai rate limit exceeded")
	// ErrQuotaExceeded indicates the model service asked for payment (HTTP 402).
	ErrQuotaExceeded = errors.New("ai quota exceeded")
)

// RequestError is returned when the model service rejects a request before
// any stream bytes were produced.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("ai request failed: status %d", e.StatusCode)
	}
	return fmt.Sprintf("ai request failed: status %d: %s", e.StatusCode, e.Message)
}

func (e *RequestError) Is(target error) bool {
	switch target {
	case ErrRequestFailed:
		return true
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrQuotaExceeded:
		return e.StatusCode == http.StatusPaymentRequired
	}
	return false
}
