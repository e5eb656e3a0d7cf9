package store

import (
	"context"
	"errors"
	"time"

	"shuttle-ledger/internal/apperr"
)

// timeoutStore bounds every call with a per-call deadline derived from the caller's context
type timeoutStore struct {
	next    Store
	timeout time.Duration
}

// WithTimeout wraps s; failures that are not already domain errors surface as
// StoreUnavailableError.
func WithTimeout(s Store, d time.Duration) Store {
	if d <= 0 {
		return s
	}
	return &timeoutStore{next: s, timeout: d}
}

func (t *timeoutStore) Select(ctx context.Context, collection string, filter Filter, opts SelectOptions) ([]Row, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	rows, err := t.next.Select(ctx, collection, filter, opts)
	return rows, wrap("select", collection, err)
}

func (t *timeoutStore) Insert(ctx context.Context, collection string, rows []Row, opts InsertOptions) ([]Row, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	out, err := t.next.Insert(ctx, collection, rows, opts)
	return out, wrap("insert", collection, err)
}

func (t *timeoutStore) Patch(ctx context.Context, collection string, match Filter, fields Row) ([]Row, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	out, err := t.next.Patch(ctx, collection, match, fields)
	return out, wrap("patch", collection, err)
}

func (t *timeoutStore) Delete(ctx context.Context, collection string, match Filter) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return wrap("delete", collection, t.next.Delete(ctx, collection, match))
}

func wrap(op, collection string, err error) error {
	if err == nil {
		return nil
	}
	var ve apperr.ValidationError
	if errors.As(err, &ve) {
		return err
	}
	return apperr.Unavailable(op, collection, err)
}
