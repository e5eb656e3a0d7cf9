package repository

import (
	"context"

	"github.com/google/uuid"

	"shuttle-ledger/internal/apperr"
	"shuttle-ledger/internal/domain"
	"shuttle-ledger/internal/store"
)

// AlertFilter optional equality filters for listing
type AlertFilter struct {
	SchoolID  string
	StudentID string
	Type      domain.AlertType
}

// AlertsRepository staff alerts (PENDING until resolved)
type AlertsRepository interface {
	Create(ctx context.Context, a *domain.Alert) (*domain.Alert, error)
	Get(ctx context.Context, id string) (*domain.Alert, error)
	List(ctx context.Context, f AlertFilter) ([]*domain.Alert, error)
	Delete(ctx context.Context, id string) error
}

var _ AlertsRepository = (*AlertsRepo)(nil)

// AlertsRepo staff alerts; resolution is a hard delete
type AlertsRepo struct {
	store store.Store
	clock domain.Clock
}

func NewAlertsRepo(s store.Store, clock domain.Clock) *AlertsRepo {
	return &AlertsRepo{store: s, clock: clock}
}

// Create stores a new PENDING alert with a fresh id
func (r *AlertsRepo) Create(ctx context.Context, a *domain.Alert) (*domain.Alert, error) {
	row := store.Row{
		"id":         uuid.NewString(),
		"student_id": a.StudentID,
		"school_id":  a.SchoolID,
		"year":       a.Year,
		"month":      a.Month,
		"type":       string(a.Type),
		"status":     string(domain.AlertPending),
		"created_by": a.CreatedBy,
		"memo":       nullable(a.Memo),
		"created_at": r.clock.Now(),
	}
	out, err := r.store.Insert(ctx, store.Alerts, []store.Row{row}, store.InsertOptions{})
	if err != nil {
		return nil, err
	}
	if len(out) > 0 {
		return alertFromRow(out[0]), nil
	}
	return alertFromRow(row), nil
}

// Get by id
func (r *AlertsRepo) Get(ctx context.Context, id string) (*domain.Alert, error) {
	rows, err := r.store.Select(ctx, store.Alerts, store.Filter{"id": id}, store.SelectOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.NotFoundError{Entity: "alert", ID: id}
	}
	return alertFromRow(rows[0]), nil
}

// List newest first
func (r *AlertsRepo) List(ctx context.Context, f AlertFilter) ([]*domain.Alert, error) {
	filter := store.Filter{}
	if f.SchoolID != "" {
		filter["school_id"] = f.SchoolID
	}
	if f.StudentID != "" {
		filter["student_id"] = f.StudentID
	}
	if f.Type != "" {
		filter["type"] = string(f.Type)
	}
	rows, err := r.store.Select(ctx, store.Alerts, filter, store.SelectOptions{OrderBy: "created_at", Desc: true})
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Alert, 0, len(rows))
	for _, row := range rows {
		out = append(out, alertFromRow(row))
	}
	return out, nil
}

// Delete resolves an alert. Unknown ids are not an error.
func (r *AlertsRepo) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, store.Alerts, store.Filter{"id": id})
}

func alertFromRow(r store.Row) *domain.Alert {
	return &domain.Alert{
		AlertID:   getString(r, "id"),
		StudentID: getString(r, "student_id"),
		SchoolID:  getString(r, "school_id"),
		Year:      getInt(r, "year"),
		Month:     getInt(r, "month"),
		Type:      domain.AlertType(getString(r, "type")),
		Status:    domain.AlertStatus(getString(r, "status")),
		CreatedBy: getString(r, "created_by"),
		Memo:      getStringPtr(r, "memo"),
		CreatedAt: getTime(r, "created_at"),
	}
}
