package crawler

import (
	"errors"
	"fmt"
)

// Task pipeline error classes. Both are recovered inside the worker; the task
// contributes nothing to the totals.
var (
	// ErrTransport marks a failed fetch or a non-success HTTP status.
	ErrTransport = errors.New("transport error")
	// ErrIO marks a failed artifact write, read, or scan.
	ErrIO = errors.New("artifact io error")
)

// StatusError is returned by fetchers when the final response is not 2xx.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.StatusCode, e.URL)
}

// Is lets errors.Is(err, ErrTransport) match status failures.
func (e *StatusError) Is(target error) bool {
	return target == ErrTransport
}

// TransportError wraps err so it classifies as ErrTransport.
func TransportError(err error) error {
	if err == nil || errors.Is(err, ErrTransport) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransport, err)
}

// IOError wraps err so it classifies as ErrIO.
func IOError(err error) error {
	if err == nil || errors.Is(err, ErrIO) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrIO, err)
}
