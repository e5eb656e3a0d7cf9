package store

import (
	"context"
	"sort"
)

// Collection names
const (
	Students      = "students"
	Schools       = "schools"
	Users         = "users"
	Payments      = "payments"
	Alerts        = "alerts"
	BoardPosts    = "board_posts"
	BoardComments = "board_comments"
	Routes        = "routes"
	RouteStops    = "route_stops"
)

// Row one record keyed by snake_case column name
type Row map[string]any

// Filter equality match; a nil value matches "is null"
type Filter map[string]any

// SelectOptions single sort key and optional limit (0 = unlimited)
type SelectOptions struct {
	OrderBy string
	Desc    bool
	Limit   int
}

// InsertOptions OnConflict names the key column; non-empty turns the insert into an upsert
// that replaces the existing row's fields.
type InsertOptions struct {
	OnConflict string
}

// Store the collection contract shared by every backend.
// Implementations are safe for concurrent use.
type Store interface {
	Select(ctx context.Context, collection string, filter Filter, opts SelectOptions) ([]Row, error)
	Insert(ctx context.Context, collection string, rows []Row, opts InsertOptions) ([]Row, error)
	Patch(ctx context.Context, collection string, match Filter, fields Row) ([]Row, error)
	Delete(ctx context.Context, collection string, match Filter) error
}

// Clone shallow copy
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Matches reports whether the row satisfies every filter entry
func (f Filter) Matches(r Row) bool {
	for col, want := range f {
		got, ok := r[col]
		if want == nil {
			if ok && got != nil {
				return false
			}
			continue
		}
		if !ok || got == nil || compareValues(got, want) != 0 {
			return false
		}
	}
	return true
}

// sortedKeys deterministic column order for generated SQL and query strings
func sortedKeys[M ~map[string]any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
