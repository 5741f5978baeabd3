package remote

import (
	"errors"
	"fmt"
)

// Error codes for failures that never reach the server.
const (
	CodeNetwork   = -1
	CodeDuplicate = 4
)

// Error is a classified remote-call failure. StatusCode is the HTTP
// status when the server answered, zero otherwise.
type Error struct {
	Code       int
	Message    string
	StatusCode int
}

func (e *Error) Error() string {
	return fmt.Sprintf("remote error (code %d, status %d): %s", e.Code, e.StatusCode, e.Message)
}

// Permanent reports whether the failure is terminal for the write.
// Rate limits, server errors and transport failures are retryable;
// everything else (validation failures, duplicate-identifier conflicts
// and other request errors) is permanent.
func (e *Error) Permanent() bool {
	if e.Code == CodeNetwork {
		return false
	}
	if e.StatusCode == 429 {
		return false
	}
	if e.StatusCode >= 500 {
		return false
	}
	return true
}

// NewNetworkError wraps a transport failure as a retryable Error.
func NewNetworkError(err error) *Error {
	return &Error{Code: CodeNetwork, Message: err.Error()}
}

// AsError unwraps err to a classified *Error when one is present.
func AsError(err error) (*Error, bool) {
	var re *Error
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// IsPermanent classifies an arbitrary error from a remote call. Errors
// that are not *Error (transport wrappers, context errors) are treated
// as retryable: the call never produced a server verdict.
func IsPermanent(err error) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Permanent()
	}
	return false
}
