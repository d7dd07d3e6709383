package teaching

import (
	"errors"
	"fmt"
)

// ErrMalformedContent is wrapped by Content implementations when generated
// output cannot be parsed into the expected shape.
var ErrMalformedContent = errors.New("malformed content")

// ErrNoBook is returned when a session is started without a book and the
// student has no active one.
var ErrNoBook = errors.New("no book selected")

// ContentTimeoutError indicates a content call exceeded its time budget.
// The turn is rolled back and can be retried as is.
type ContentTimeoutError struct {
	Op  string
	Err error
}

func (e *ContentTimeoutError) Error() string {
	return fmt.Sprintf("content %s timed out: %v", e.Op, e.Err)
}

func (e *ContentTimeoutError) Unwrap() error {
	return e.Err
}

// ContentUnavailableError indicates a content call failed for a reason other
// than its time budget (provider down, retries exhausted). Recoverable like
// a timeout.
type ContentUnavailableError struct {
	Op  string
	Err error
}

func (e *ContentUnavailableError) Error() string {
	return fmt.Sprintf("content %s failed: %v", e.Op, e.Err)
}

func (e *ContentUnavailableError) Unwrap() error {
	return e.Err
}

// ContentMalformedError records a content call whose output was replaced by
// a generic fallback.
type ContentMalformedError struct {
	Op  string
	Err error
}

func (e *ContentMalformedError) Error() string {
	return fmt.Sprintf("content %s malformed: %v", e.Op, e.Err)
}

func (e *ContentMalformedError) Unwrap() error {
	return e.Err
}

// PersistenceError indicates progress could not be saved. The session keeps
// its in-memory state and retries the save on the next progress change or stop.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("save progress: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// SessionNotFoundError is returned for unknown, expired or closed sessions.
type SessionNotFoundError struct {
	ID string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session %q not found", e.ID)
}

// PolicyViolationError reports a broken internal invariant, such as a check
// that would exceed the attempt budget. The machine recovers by forcing the
// post-failure choice.
type PolicyViolationError struct {
	State  State
	Detail string
}

func (e *PolicyViolationError) Error() string {
	return fmt.Sprintf("policy violation in %s: %s", e.State, e.Detail)
}

// IsSessionNotFound reports whether err is a SessionNotFoundError.
func IsSessionNotFound(err error) bool {
	var nf *SessionNotFoundError
	return errors.As(err, &nf)
}

// errorCode maps an error to the code carried by error events.
func errorCode(err error) string {
	var (
		timeout     *ContentTimeoutError
		unavailable *ContentUnavailableError
		persist     *PersistenceError
		notFound    *SessionNotFoundError
	)
	switch {
	case errors.As(err, &timeout):
		return "content_timeout"
	case errors.As(err, &unavailable):
		return "content_unavailable"
	case errors.As(err, &persist):
		return "persistence_failed"
	case errors.As(err, &notFound):
		return "session_not_found"
	}
	return "internal"
}
