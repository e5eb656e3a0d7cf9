package store

import (
	"context"
	"sort"
	"sync"

	"shuttle-ledger/internal/apperr"
)

// MemoryStore in-process backend; rows keep insertion order per collection.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]Row
}

// NewMemoryStore empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]Row)}
}

func (m *MemoryStore) Select(ctx context.Context, collection string, filter Filter, opts SelectOptions) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Unavailable("select", collection, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Row, 0)
	for _, r := range m.data[collection] {
		if filter.Matches(r) {
			out = append(out, r.Clone())
		}
	}
	if opts.OrderBy != "" {
		col := opts.OrderBy
		sort.SliceStable(out, func(i, j int) bool {
			c := compareValues(out[i][col], out[j][col])
			if opts.Desc {
				return c > 0
			}
			return c < 0
		})
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *MemoryStore) Insert(ctx context.Context, collection string, rows []Row, opts InsertOptions) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Unavailable("insert", collection, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if opts.OnConflict != "" {
			if key, ok := r[opts.OnConflict]; ok && key != nil {
				if existing := m.find(collection, opts.OnConflict, key); existing != nil {
					for k, v := range r {
						existing[k] = v
					}
					out = append(out, existing.Clone())
					continue
				}
			}
		}
		stored := r.Clone()
		m.data[collection] = append(m.data[collection], stored)
		out = append(out, stored.Clone())
	}
	return out, nil
}

func (m *MemoryStore) Patch(ctx context.Context, collection string, match Filter, fields Row) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Unavailable("patch", collection, err)
	}
	if len(match) == 0 {
		return nil, apperr.NewValidationError("match", collection, "patch requires a filter")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Row, 0)
	for _, r := range m.data[collection] {
		if !match.Matches(r) {
			continue
		}
		for k, v := range fields {
			r[k] = v
		}
		out = append(out, r.Clone())
	}
	return out, nil
}

func (m *MemoryStore) Delete(ctx context.Context, collection string, match Filter) error {
	if err := ctx.Err(); err != nil {
		return apperr.Unavailable("delete", collection, err)
	}
	if len(match) == 0 {
		return apperr.NewValidationError("match", collection, "delete requires a filter")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.data[collection][:0]
	for _, r := range m.data[collection] {
		if !match.Matches(r) {
			kept = append(kept, r)
		}
	}
	m.data[collection] = kept
	return nil
}

func (m *MemoryStore) find(collection, col string, key any) Row {
	for _, r := range m.data[collection] {
		if v, ok := r[col]; ok && v != nil && compareValues(v, key) == 0 {
			return r
		}
	}
	return nil
}
