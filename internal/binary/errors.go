package binary

import (
	"errors"
	"fmt"
)

// Error kinds. Callers match them with errors.Is.
var (
	ErrNotFound            = errors.New("not found")
	ErrExecutionFailed     = errors.New("execution failed")
	ErrNetwork             = errors.New("network error")
	ErrHTTPStatus          = errors.New("http status error")
	ErrParse               = errors.New("parse error")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrUnsupportedFormat   = errors.New("unsupported archive format")
	ErrIO                  = errors.New("i/o error")
	ErrAllMirrorsFailed    = errors.New("all download mirrors failed")
	ErrVerification        = errors.New("verification failed")
)

// HTTPStatusError reports a non-2xx response
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.StatusCode, e.URL)
}

// Unwrap lets errors.Is match ErrHTTPStatus
func (e *HTTPStatusError) Unwrap() error {
	return ErrHTTPStatus
}
