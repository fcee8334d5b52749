package feed

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrFetchTimeout  = errors.New("fetch timed out")
	ErrFetch         = errors.New("fetch failed")
	ErrMalformedFeed = errors.New("malformed feed")
)

// FetchTimeoutError is returned when the response did not arrive within the
// caller's deadline. It matches ErrFetchTimeout.
type FetchTimeoutError struct {
	URL     string
	Timeout time.Duration
}

func (e *FetchTimeoutError) Error() string {
	return fmt.Sprintf("fetch %s: timed out after %s", e.URL, e.Timeout)
}

func (e *FetchTimeoutError) Is(target error) bool {
	return target == ErrFetchTimeout
}

// FetchError covers non-success HTTP responses and transport failures.
// StatusCode is 0 when no response was received.
type FetchError struct {
	URL        string
	StatusCode int
	Status     string
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: HTTP error: %s", e.URL, e.Status)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) Is(target error) bool {
	return target == ErrFetch
}
