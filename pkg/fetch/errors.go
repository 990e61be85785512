package fetch

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested document or release does not exist upstream.
var ErrNotFound = errors.New("not found")

// TransportError wraps any failure other than a missing document: network errors,
// unexpected API statuses and undecodable content.
type TransportError struct {
	Path string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
