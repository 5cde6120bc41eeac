package session

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is wrapped in a TransportError when the ingest endpoint
// rejects the bearer token.
var ErrUnauthorized = errors.New("token rejected by ingest endpoint")

// AuthError reports a login exchange that completed but returned no usable token.
type AuthError struct {
	Status int
	Body   map[string]any
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("login failed: status %d, no token in response %v", e.Status, e.Body)
}

// TransportError reports an HTTP exchange that could not be completed.
// The session that produced it must be discarded.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport error: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsAuth reports whether err is or wraps an *AuthError.
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsTransport reports whether err is or wraps a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
