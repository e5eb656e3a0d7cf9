package httpapi

import (
	"errors"

	"shuttle-ledger/internal/apperr"
)

// Result response envelope
// - code: 2000 on success, -1 on error
// - type: 'success' | 'error'
// - message: string
// - field: the offending input on a validation error
// - result: any
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
)

// Page is the list payload; items is never null
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

func PageOf[T any](items []T) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Total: len(items)}
}

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message, Result: nil}
}

// FailFor builds the error envelope from the error taxonomy
func FailFor(err error) Result[any] {
	res := Fail(apperr.UserMessage(err))
	var ve apperr.ValidationError
	if errors.As(err, &ve) {
		res.Field = ve.Field
	}
	return res
}
