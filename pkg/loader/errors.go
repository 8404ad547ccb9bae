package loader

import (
	"errors"
	"fmt"
)

// ErrInvalidPayload is returned when fetched data cannot be decoded or
// exceeds the graph size limits. It is never retried.
var ErrInvalidPayload = errors.New("invalid graph payload")

// FetchError describes a failed fetch from a Source
type FetchError struct {
	Source     string
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.Source, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err carries a retryable FetchError
func IsRetryable(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Retryable
}

func retryableStatus(code int) bool {
	switch {
	case code >= 500:
		return true
	case code == 408, code == 429:
		return true
	}
	return false
}
