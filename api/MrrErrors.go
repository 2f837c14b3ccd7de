package api

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedMethod    = errors.New("unsupported method")
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
	ErrEmptyResult          = errors.New("no rigs returned")
	ErrInvalidQuantity      = errors.New("quantity must be at least 1")
	ErrInvalidFilter        = errors.New("invalid list filter")
	ErrNothingToUpdate      = errors.New("update requires id and at least one more field")
	ErrTimeout              = errors.New("request to remote service timed out")
)

// TransportError wraps a network failure talking to the remote service.
type TransportError struct {
	Method  string
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("mrr %s: transport: %v", e.Method, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is makes timed out requests match ErrTimeout.
func (e *TransportError) Is(target error) bool {
	return target == ErrTimeout && e.Timeout
}

// DecodeError is returned when the remote body is not the expected JSON.
type DecodeError struct {
	Method string
	Body   []byte
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("mrr %s: decode: %v", e.Method, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// RemoteServiceError is returned when MRR answers with success=false or a
// non-2xx status.
type RemoteServiceError struct {
	Method     string
	StatusCode int
	Message    string
}

func (e *RemoteServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("mrr %s: remote error (status %d)", e.Method, e.StatusCode)
	}
	return fmt.Sprintf("mrr %s: remote error (status %d): %s", e.Method, e.StatusCode, e.Message)
}
