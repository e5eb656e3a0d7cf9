package repository

import (
	"context"

	"github.com/google/uuid"

	"shuttle-ledger/internal/apperr"
	"shuttle-ledger/internal/domain"
	"shuttle-ledger/internal/store"
)

type SchoolsRepository interface {
	List(ctx context.Context) ([]*domain.School, error)
	Get(ctx context.Context, id string) (*domain.School, error)
	Create(ctx context.Context, s *domain.School) (*domain.School, error)
	Update(ctx context.Context, id string, fields store.Row) (*domain.School, error)
	Delete(ctx context.Context, id string) error
}

var _ SchoolsRepository = (*SchoolsRepo)(nil)

type SchoolsRepo struct {
	store store.Store
	clock domain.Clock
}

func NewSchoolsRepo(s store.Store, clock domain.Clock) *SchoolsRepo {
	return &SchoolsRepo{store: s, clock: clock}
}

// List ordered by name column
func (r *SchoolsRepo) List(ctx context.Context) ([]*domain.School, error) {
	rows, err := r.store.Select(ctx, store.Schools, nil, store.SelectOptions{OrderBy: "name"})
	if err != nil {
		return nil, err
	}
	out := make([]*domain.School, 0, len(rows))
	for _, row := range rows {
		out = append(out, schoolFromRow(row))
	}
	return out, nil
}

func (r *SchoolsRepo) Get(ctx context.Context, id string) (*domain.School, error) {
	rows, err := r.store.Select(ctx, store.Schools, store.Filter{"id": id}, store.SelectOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.NotFoundError{Entity: "school", ID: id}
	}
	return schoolFromRow(rows[0]), nil
}

func (r *SchoolsRepo) Create(ctx context.Context, s *domain.School) (*domain.School, error) {
	now := r.clock.Now()
	id := s.SchoolID
	if id == "" {
		id = uuid.NewString()
	}
	row := store.Row{
		"id":                  id,
		"name":                s.Name,
		"address":             nullable(s.Address),
		"default_monthly_fee": s.DefaultMonthlyFee,
		"note":                nullable(s.Note),
		"created_at":          now,
		"updated_at":          now,
	}
	out, err := r.store.Insert(ctx, store.Schools, []store.Row{row}, store.InsertOptions{})
	if err != nil {
		return nil, err
	}
	if len(out) > 0 {
		return schoolFromRow(out[0]), nil
	}
	return schoolFromRow(row), nil
}

// Update patches the given columns; NotFound when no row matched
func (r *SchoolsRepo) Update(ctx context.Context, id string, fields store.Row) (*domain.School, error) {
	fields["updated_at"] = r.clock.Now()
	rows, err := r.store.Patch(ctx, store.Schools, store.Filter{"id": id}, fields)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.NotFoundError{Entity: "school", ID: id}
	}
	return schoolFromRow(rows[0]), nil
}

// Delete unknown ids are not an error
func (r *SchoolsRepo) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, store.Schools, store.Filter{"id": id})
}

func schoolFromRow(r store.Row) *domain.School {
	return &domain.School{
		SchoolID:          getString(r, "id"),
		Name:              getString(r, "name"),
		Address:           getStringPtr(r, "address"),
		DefaultMonthlyFee: getInt64(r, "default_monthly_fee"),
		Note:              getStringPtr(r, "note"),
		CreatedAt:         getTime(r, "created_at"),
		UpdatedAt:         getTime(r, "updated_at"),
	}
}
