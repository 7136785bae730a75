package upstream

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the client.
var (
	ErrUpstreamStatus = errors.New("upstream returned non-2xx status")
	ErrNotFound       = errors.New("upstream record not found")
	ErrRequest        = errors.New("upstream request failed")
	ErrDecode         = errors.New("upstream response could not be decoded")
	ErrUnknownRoute   = errors.New("unknown upstream route")
	ErrInvalidURL     = errors.New("invalid server url")
)

// maxErrorBody caps how much of an error response is kept on a StatusError.
const maxErrorBody = 512

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	Route string
	Code  int
	Body  string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Route, e.Code)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Route, e.Code, e.Body)
}

// Unwrap lets errors.Is match ErrUpstreamStatus.
func (e *StatusError) Unwrap() error { return ErrUpstreamStatus }
