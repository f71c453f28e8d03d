package tracking

import (
	"errors"
	"fmt"

	"homecare/models"
)

// ErrSessionNotFound is returned when no live session exists for a request ID.
var ErrSessionNotFound = errors.New("tracking session not found")

// ErrNoActiveSession is returned by check-in operations when the welfare
// monitor has no active cycle for the session.
var ErrNoActiveSession = errors.New("no active check-in session")

// TransitionError rejects an illegal lifecycle transition. The session is
// left unchanged.
type TransitionError struct {
	From models.ServiceStatus
	To   models.ServiceStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal status transition: %s -> %s", e.From, e.To)
}

// AuthError rejects an invalid or revoked share token. Never downgraded to
// an empty result.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authorization failed: %s", e.Reason)
}

// ValidationError rejects malformed input or state preconditions before any
// mutation happens.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
