package repository

import (
	"context"

	"github.com/google/uuid"

	"shuttle-ledger/internal/apperr"
	"shuttle-ledger/internal/domain"
	"shuttle-ledger/internal/store"
)

type StudentsRepository interface {
	Get(ctx context.Context, id string) (*domain.Student, error)
	ListAll(ctx context.Context) ([]*domain.Student, error)
	ListBySchool(ctx context.Context, schoolID string) ([]*domain.Student, error)
	ListByParent(ctx context.Context, parentUserID string) ([]*domain.Student, error)
	ListByParentAndSchool(ctx context.Context, parentUserID, schoolID string) ([]*domain.Student, error)
	ListByRoute(ctx context.Context, routeID string) ([]*domain.Student, error)
	ListUnassigned(ctx context.Context) ([]*domain.Student, error)
	Create(ctx context.Context, s *domain.Student) (*domain.Student, error)
	Update(ctx context.Context, id string, fields store.Row) (*domain.Student, error)
	ClearRoute(ctx context.Context, routeID string) (int, error)
}

var _ StudentsRepository = (*StudentsRepo)(nil)

// StudentsRepo student directory. Listing methods return store order; callers sort
// for display.
type StudentsRepo struct {
	store store.Store
	clock domain.Clock
}

func NewStudentsRepo(s store.Store, clock domain.Clock) *StudentsRepo {
	return &StudentsRepo{store: s, clock: clock}
}

// Get by id
func (r *StudentsRepo) Get(ctx context.Context, id string) (*domain.Student, error) {
	rows, err := r.store.Select(ctx, store.Students, store.Filter{"id": id}, store.SelectOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.NotFoundError{Entity: "student", ID: id}
	}
	return studentFromRow(rows[0]), nil
}

func (r *StudentsRepo) ListAll(ctx context.Context) ([]*domain.Student, error) {
	return r.list(ctx, nil)
}

func (r *StudentsRepo) ListBySchool(ctx context.Context, schoolID string) ([]*domain.Student, error) {
	return r.list(ctx, store.Filter{"school_id": schoolID})
}

func (r *StudentsRepo) ListByParent(ctx context.Context, parentUserID string) ([]*domain.Student, error) {
	return r.list(ctx, store.Filter{"parent_user_id": parentUserID})
}

// ListByParentAndSchool store order; RegisterInquiry takes the first entry as its default subject
func (r *StudentsRepo) ListByParentAndSchool(ctx context.Context, parentUserID, schoolID string) ([]*domain.Student, error) {
	return r.list(ctx, store.Filter{"parent_user_id": parentUserID, "school_id": schoolID})
}

func (r *StudentsRepo) ListByRoute(ctx context.Context, routeID string) ([]*domain.Student, error) {
	return r.list(ctx, store.Filter{"route_id": routeID})
}

// ListUnassigned students without a school
func (r *StudentsRepo) ListUnassigned(ctx context.Context) ([]*domain.Student, error) {
	return r.list(ctx, store.Filter{"school_id": nil})
}

// Create stores s; a fresh id is drawn when StudentID is empty
func (r *StudentsRepo) Create(ctx context.Context, s *domain.Student) (*domain.Student, error) {
	now := r.clock.Now()
	id := s.StudentID
	if id == "" {
		id = uuid.NewString()
	}
	row := store.Row{
		"id":                id,
		"school_id":         nullable(s.SchoolID),
		"parent_user_id":    nullable(s.ParentUserID),
		"name":              s.Name,
		"guardian_name":     s.GuardianName,
		"phone":             nullable(s.Phone),
		"home_address":      nullable(s.HomeAddress),
		"pickup_point":      nullable(s.PickupPoint),
		"route_id":          nullable(s.RouteID),
		"emergency_contact": nullable(s.EmergencyContact),
		"fee_amount":        s.FeeAmount,
		"deposit_day":       nullable(s.DepositDay),
		"is_active":         s.IsActive,
		"suspended_at":      nullable(s.SuspendedAt),
		"notes":             nullable(s.Notes),
		"created_at":        now,
		"updated_at":        now,
	}
	if _, err := r.store.Insert(ctx, store.Students, []store.Row{row}, store.InsertOptions{}); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// Update patches the given columns; NotFound when no row matched
func (r *StudentsRepo) Update(ctx context.Context, id string, fields store.Row) (*domain.Student, error) {
	fields["updated_at"] = r.clock.Now()
	rows, err := r.store.Patch(ctx, store.Students, store.Filter{"id": id}, fields)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.NotFoundError{Entity: "student", ID: id}
	}
	return studentFromRow(rows[0]), nil
}

// ClearRoute detaches every student riding routeID and drops their pickup point.
// Returns the number of students changed.
func (r *StudentsRepo) ClearRoute(ctx context.Context, routeID string) (int, error) {
	rows, err := r.store.Patch(ctx, store.Students, store.Filter{"route_id": routeID}, store.Row{
		"route_id":     nil,
		"pickup_point": nil,
		"updated_at":   r.clock.Now(),
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (r *StudentsRepo) list(ctx context.Context, f store.Filter) ([]*domain.Student, error) {
	rows, err := r.store.Select(ctx, store.Students, f, store.SelectOptions{})
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Student, 0, len(rows))
	for _, row := range rows {
		out = append(out, studentFromRow(row))
	}
	return out, nil
}

func studentFromRow(r store.Row) *domain.Student {
	return &domain.Student{
		StudentID:        getString(r, "id"),
		SchoolID:         getStringPtr(r, "school_id"),
		ParentUserID:     getStringPtr(r, "parent_user_id"),
		Name:             getString(r, "name"),
		GuardianName:     getString(r, "guardian_name"),
		Phone:            getStringPtr(r, "phone"),
		HomeAddress:      getStringPtr(r, "home_address"),
		PickupPoint:      getStringPtr(r, "pickup_point"),
		RouteID:          getStringPtr(r, "route_id"),
		EmergencyContact: getStringPtr(r, "emergency_contact"),
		FeeAmount:        getInt64(r, "fee_amount"),
		DepositDay:       getIntPtr(r, "deposit_day"),
		IsActive:         getBool(r, "is_active"),
		SuspendedAt:      getTimePtr(r, "suspended_at"),
		Notes:            getStringPtr(r, "notes"),
		CreatedAt:        getTime(r, "created_at"),
		UpdatedAt:        getTime(r, "updated_at"),
	}
}
