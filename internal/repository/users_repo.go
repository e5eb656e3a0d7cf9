package repository

import (
	"context"

	"shuttle-ledger/internal/apperr"
	"shuttle-ledger/internal/domain"
	"shuttle-ledger/internal/store"
)

type UsersRepository interface {
	Get(ctx context.Context, id string) (*domain.User, error)
	ListByRole(ctx context.Context, role domain.Role) (map[string]*domain.User, error)
	Upsert(ctx context.Context, u *domain.User) error
}

var _ UsersRepository = (*UsersRepo)(nil)

// UsersRepo read side of user accounts
type UsersRepo struct {
	store store.Store
}

func NewUsersRepo(s store.Store) *UsersRepo {
	return &UsersRepo{store: s}
}

func (r *UsersRepo) Get(ctx context.Context, id string) (*domain.User, error) {
	rows, err := r.store.Select(ctx, store.Users, store.Filter{"id": id}, store.SelectOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.NotFoundError{Entity: "user", ID: id}
	}
	return userFromRow(rows[0]), nil
}

// ListByRole every user with the role, keyed by id
func (r *UsersRepo) ListByRole(ctx context.Context, role domain.Role) (map[string]*domain.User, error) {
	rows, err := r.store.Select(ctx, store.Users, store.Filter{"role": string(role)}, store.SelectOptions{})
	if err != nil {
		return nil, err
	}
	out := make(map[string]*domain.User, len(rows))
	for _, row := range rows {
		u := userFromRow(row)
		out[u.UserID] = u
	}
	return out, nil
}

// Upsert inserts or replaces by id
func (r *UsersRepo) Upsert(ctx context.Context, u *domain.User) error {
	row := store.Row{
		"id":    u.UserID,
		"email": u.Email,
		"name":  nullable(u.Name),
		"phone": nullable(u.Phone),
		"role":  string(u.Role),
	}
	_, err := r.store.Insert(ctx, store.Users, []store.Row{row}, store.InsertOptions{OnConflict: "id"})
	return err
}

func userFromRow(r store.Row) *domain.User {
	return &domain.User{
		UserID: getString(r, "id"),
		Email:  getString(r, "email"),
		Name:   getStringPtr(r, "name"),
		Phone:  getStringPtr(r, "phone"),
		Role:   domain.Role(getString(r, "role")),
	}
}
