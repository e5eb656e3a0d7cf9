package repository

import (
	"context"

	"github.com/google/uuid"

	"shuttle-ledger/internal/apperr"
	"shuttle-ledger/internal/domain"
	"shuttle-ledger/internal/store"
)

// RoutesRepository bus routes and their ordered stops
type RoutesRepository interface {
	Create(ctx context.Context, rt *domain.Route) (*domain.Route, error)
	Get(ctx context.Context, id string) (*domain.Route, error)
	ListBySchool(ctx context.Context, schoolID string) ([]*domain.Route, error)
	Rename(ctx context.Context, id, name string) (*domain.Route, error)
	ReplaceStops(ctx context.Context, id string, stops []string) (*domain.Route, error)
	Delete(ctx context.Context, id string) error
}

var _ RoutesRepository = (*RoutesRepo)(nil)

// RoutesRepo stops live in their own collection keyed by route_id and position.
// Writes touching both collections are not atomic; the route row is written first and
// removed last.
type RoutesRepo struct {
	store store.Store
	clock domain.Clock
}

func NewRoutesRepo(s store.Store, clock domain.Clock) *RoutesRepo {
	return &RoutesRepo{store: s, clock: clock}
}

// Create stores the route and its stops; a fresh id is drawn when RouteID is empty
func (r *RoutesRepo) Create(ctx context.Context, rt *domain.Route) (*domain.Route, error) {
	now := r.clock.Now()
	id := rt.RouteID
	if id == "" {
		id = uuid.NewString()
	}
	row := store.Row{
		"id":         id,
		"school_id":  rt.SchoolID,
		"name":       rt.Name,
		"created_at": now,
		"updated_at": now,
	}
	if _, err := r.store.Insert(ctx, store.Routes, []store.Row{row}, store.InsertOptions{}); err != nil {
		return nil, err
	}
	if err := r.insertStops(ctx, id, rt.Stops); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// Get route with stops in position order
func (r *RoutesRepo) Get(ctx context.Context, id string) (*domain.Route, error) {
	rows, err := r.store.Select(ctx, store.Routes, store.Filter{"id": id}, store.SelectOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.NotFoundError{Entity: "route", ID: id}
	}
	return r.withStops(ctx, rows[0])
}

// ListBySchool ordered by name column
func (r *RoutesRepo) ListBySchool(ctx context.Context, schoolID string) ([]*domain.Route, error) {
	rows, err := r.store.Select(ctx, store.Routes, store.Filter{"school_id": schoolID}, store.SelectOptions{OrderBy: "name"})
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Route, 0, len(rows))
	for _, row := range rows {
		rt, err := r.withStops(ctx, row)
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, nil
}

func (r *RoutesRepo) Rename(ctx context.Context, id, name string) (*domain.Route, error) {
	rows, err := r.store.Patch(ctx, store.Routes, store.Filter{"id": id}, store.Row{"name": name, "updated_at": r.clock.Now()})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.NotFoundError{Entity: "route", ID: id}
	}
	return r.withStops(ctx, rows[0])
}

// ReplaceStops drops every stop of the route and writes stops in the given order
func (r *RoutesRepo) ReplaceStops(ctx context.Context, id string, stops []string) (*domain.Route, error) {
	rows, err := r.store.Patch(ctx, store.Routes, store.Filter{"id": id}, store.Row{"updated_at": r.clock.Now()})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.NotFoundError{Entity: "route", ID: id}
	}
	if err := r.store.Delete(ctx, store.RouteStops, store.Filter{"route_id": id}); err != nil {
		return nil, err
	}
	if err := r.insertStops(ctx, id, stops); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// Delete removes the stops, then the route. Unknown ids are not an error.
func (r *RoutesRepo) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, store.RouteStops, store.Filter{"route_id": id}); err != nil {
		return err
	}
	return r.store.Delete(ctx, store.Routes, store.Filter{"id": id})
}

func (r *RoutesRepo) insertStops(ctx context.Context, routeID string, stops []string) error {
	if len(stops) == 0 {
		return nil
	}
	rows := make([]store.Row, 0, len(stops))
	for i, name := range stops {
		rows = append(rows, store.Row{
			"id":       uuid.NewString(),
			"route_id": routeID,
			"name":     name,
			"position": i,
		})
	}
	_, err := r.store.Insert(ctx, store.RouteStops, rows, store.InsertOptions{})
	return err
}

func (r *RoutesRepo) withStops(ctx context.Context, row store.Row) (*domain.Route, error) {
	rt := &domain.Route{
		RouteID:   getString(row, "id"),
		SchoolID:  getString(row, "school_id"),
		Name:      getString(row, "name"),
		Stops:     []string{},
		CreatedAt: getTime(row, "created_at"),
		UpdatedAt: getTime(row, "updated_at"),
	}
	stops, err := r.store.Select(ctx, store.RouteStops, store.Filter{"route_id": rt.RouteID}, store.SelectOptions{OrderBy: "position"})
	if err != nil {
		return nil, err
	}
	for _, s := range stops {
		rt.Stops = append(rt.Stops, getString(s, "name"))
	}
	return rt, nil
}
