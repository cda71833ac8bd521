package sources

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidReference is returned for repository URLs that are not <host>/<owner>/<repo>[.git].
	ErrInvalidReference = errors.New("invalid repository reference")
	// ErrUpstreamUnavailable is returned when the tree listing could not be fetched.
	ErrUpstreamUnavailable = errors.New("repository host unavailable")
)

// UpstreamError carries the status and body of a failed listing request.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("repository API error: %d %s", e.Status, e.Body)
}

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstreamUnavailable }
