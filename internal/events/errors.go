package events

import (
	"errors"
	"fmt"
)

// Sentinel failure kinds surfaced by every service operation. The HTTP
// layer maps these onto status codes with errors.Is.
var (
	// ErrAccessDenied indicates the actor holds no role on the event or
	// a role insufficient for the attempted operation.
	ErrAccessDenied = errors.New("events: access denied")
	// ErrNotFound indicates the referenced entity does not exist or is
	// scoped to a different event.
	ErrNotFound = errors.New("events: not found")
	// ErrInvalidInput indicates the request carried an unusable value,
	// such as an unparsable recurrence pattern.
	ErrInvalidInput = errors.New("events: invalid input")
)

// ServiceError wraps a failure with a dotted operation code such as
// "events.update.event_missing".
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the dotted operation code for logging and responses.
func (e *ServiceError) Code() string {
	return e.code
}

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}
