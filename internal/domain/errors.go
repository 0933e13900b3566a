package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ValidationError reports malformed or out-of-range input. It is always
// recoverable and its message is safe to surface verbatim to the user.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

// NotFoundError indicates the referenced entity does not exist or is not
// owned by the caller.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// StateError indicates an invalid lifecycle transition.
type StateError struct {
	Msg string
}

func (e *StateError) Error() string {
	return e.Msg
}

// ExternalError wraps a transient upstream failure. Status carries the
// upstream HTTP status code when one exists.
type ExternalError struct {
	Service string
	Status  int
	Err     error
}

func (e *ExternalError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: upstream status %d: %v", e.Service, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalError) Unwrap() error { return e.Err }

// RateLimited reports whether the upstream signalled a rate limit.
func (e *ExternalError) RateLimited() bool { return e.Status == http.StatusTooManyRequests }

// IsRateLimited reports whether err carries a rate-limit signal from an
// upstream service.
func IsRateLimited(err error) bool {
	var ext *ExternalError
	if errors.As(err, &ext) {
		return ext.RateLimited()
	}
	return false
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsStateError reports whether err is a StateError.
func IsStateError(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}
