package client

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned by write operations when no session
	// token is stored. The request is never sent in that case.
	ErrNotAuthenticated = errors.New("not authenticated: log in first")
)

// TransportError wraps a network-level failure (DNS, TLS, timeout,
// connection refused). The request may or may not have reached the server.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError means the server responded but the body did not match the
// expected JSON shape.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: decoding response: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// StatusError means the server rejected the request with a non-2xx status.
type StatusError struct {
	Op         string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: server returned status %d", e.Op, e.StatusCode)
}
