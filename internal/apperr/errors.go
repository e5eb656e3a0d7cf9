package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrPostLocked     = errors.New("post is locked")
	ErrNestedReply    = errors.New("replies cannot be nested")
	ErrNoStudents     = errors.New("no students selected")
	ErrPendingAmount  = errors.New("pending payment must have zero amount")
	ErrUnknownBackend = errors.New("unknown store backend")
	ErrSchoolInUse    = errors.New("school still has students")
	ErrRouteMismatch  = errors.New("route belongs to another school")
)

// ValidationError malformed or out-of-range input, reported before any write
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
	Err     error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s",
		e.Field, e.Value, e.Message)
}

func (e ValidationError) Unwrap() error {
	return e.Err
}

// NotFoundError referenced entity does not exist
type NotFoundError struct {
	Entity string
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// PermissionError the asserted role may not perform the operation
type PermissionError struct {
	Role     string
	Required string
}

func (e PermissionError) Error() string {
	if e.Required == "" {
		return fmt.Sprintf("role %q is not allowed to access this resource", e.Role)
	}
	return fmt.Sprintf("role %q is not allowed, %s required", e.Role, e.Required)
}

// StoreUnavailableError the remote store was unreachable, timed out or returned a
// non-success status. Callers decide whether to retry.
type StoreUnavailableError struct {
	Op         string
	Collection string
	Err        error
}

func (e StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable: %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e StoreUnavailableError) Unwrap() error {
	return e.Err
}

// Retryable always true; transient and permanent store failures are not told apart.
func (e StoreUnavailableError) Retryable() bool {
	return true
}

// SagaError one step of a multi-write saga failed after earlier steps committed.
// Completed lists the steps that were applied and are not rolled back.
type SagaError struct {
	SagaID    string
	Saga      string
	Step      string
	Completed []string
	Err       error
}

func (e SagaError) Error() string {
	done := "none"
	if len(e.Completed) > 0 {
		done = strings.Join(e.Completed, ",")
	}
	return fmt.Sprintf("saga %s (%s) failed at step %s (completed: %s): %v", e.Saga, e.SagaID, e.Step, done, e.Err)
}

func (e SagaError) Unwrap() error {
	return e.Err
}

// NewValidationError shorthand
func NewValidationError(field string, value interface{}, message string) error {
	return ValidationError{Field: field, Value: value, Message: message}
}

// Unavailable wraps err as StoreUnavailableError unless it already carries a domain type.
func Unavailable(op, collection string, err error) error {
	if err == nil {
		return nil
	}
	var su StoreUnavailableError
	if errors.As(err, &su) {
		return err
	}
	return StoreUnavailableError{Op: op, Collection: collection, Err: err}
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// IsRetryable reports whether the caller may retry the whole operation
func IsRetryable(err error) bool {
	var su StoreUnavailableError
	if errors.As(err, &su) {
		return su.Retryable()
	}
	return errors.Is(err, context.DeadlineExceeded)
}

const genericMessage = "temporary problem, please try again"

// UserMessage short message safe to show to the caller; internal detail is never leaked
// for store or saga failures.
func UserMessage(err error) string {
	var ve ValidationError
	var nf NotFoundError
	var pe PermissionError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &ve):
		return ve.Message
	case errors.As(err, &nf):
		return nf.Entity + " not found"
	case errors.As(err, &pe):
		return "permission denied"
	default:
		return genericMessage
	}
}

// HTTPStatus maps the taxonomy to a response status
func HTTPStatus(err error) int {
	var ve ValidationError
	var nf NotFoundError
	var pe PermissionError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &pe):
		return http.StatusForbidden
	default:
		return http.StatusServiceUnavailable
	}
}
