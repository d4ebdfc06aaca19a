package civic

import (
	"errors"
	"fmt"
)

// ErrStateMismatch is returned when the callback state does not match the
// value established during login, or when that value was already consumed.
var ErrStateMismatch = errors.New("state parameter does not match session")

// ErrNotAuthenticated is returned by GetUser before a successful code
// resolution.
var ErrNotAuthenticated = errors.New("no resolved user in session")

// AdapterError wraps provider and session failures with the operation that
// produced them. Route handlers log it server-side; the message never reaches
// the client.
type AdapterError struct {
	Op  string
	Err error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("civic %s: %v", e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

func adapterErr(op string, err error) *AdapterError {
	return &AdapterError{Op: op, Err: err}
}
