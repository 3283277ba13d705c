package signaling

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSession is returned when a request is issued without an open socket.
	ErrNoSession = errors.New("no active session")
	// ErrClosed settles requests still in flight when the socket goes away.
	ErrClosed = errors.New("session closed")
)

// TimeoutError reports a request abandoned because the caller's context
// expired before the response arrived.
type TimeoutError struct {
	Method string
	Err    error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: request abandoned: %v", e.Method, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }
