package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserMessage_HidesInternalDetail(t *testing.T) {
	storeErr := Unavailable("select", "payments", errors.New("dial tcp 10.0.0.5:5432: connection refused"))
	assert.Equal(t, genericMessage, UserMessage(storeErr))
	assert.NotContains(t, UserMessage(storeErr), "10.0.0.5")

	saga := SagaError{SagaID: "s-1", Saga: "payment_check", Step: "board_post", Completed: []string{"alert"}, Err: storeErr}
	assert.Equal(t, genericMessage, UserMessage(saga))
	assert.Contains(t, saga.Error(), "completed: alert")
}

func TestUserMessage_Actionable(t *testing.T) {
	assert.Equal(t, "amount must be >= 0", UserMessage(NewValidationError("amount", -1, "amount must be >= 0")))
	assert.Equal(t, "student not found", UserMessage(fmt.Errorf("lookup: %w", NotFoundError{Entity: "student", ID: "x"})))
	assert.Equal(t, "permission denied", UserMessage(PermissionError{Role: "PARENT", Required: "ADMIN"}))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(ValidationError{Field: "month"}))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFoundError{Entity: "alert"}))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(PermissionError{Role: "PARENT"}))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(Unavailable("insert", "alerts", errors.New("boom"))))
}

func TestUnavailable_DoesNotDoubleWrap(t *testing.T) {
	inner := Unavailable("select", "students", context.DeadlineExceeded)
	outer := Unavailable("patch", "students", inner)
	assert.Equal(t, inner, outer)
	assert.True(t, IsRetryable(outer))
	assert.True(t, errors.Is(outer, context.DeadlineExceeded))
	assert.Nil(t, Unavailable("select", "x", nil))
}

func TestValidationError_Unwrap(t *testing.T) {
	err := ValidationError{Field: "post_id", Value: "p1", Message: "post is locked", Err: ErrPostLocked}
	assert.True(t, errors.Is(err, ErrPostLocked))
	assert.False(t, IsRetryable(err))
}
