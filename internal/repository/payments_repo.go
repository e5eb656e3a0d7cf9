package repository

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"shuttle-ledger/internal/apperr"
	"shuttle-ledger/internal/domain"
	"shuttle-ledger/internal/store"
)

// PaymentsRepository the payment ledger
type PaymentsRepository interface {
	Record(ctx context.Context, p *domain.Payment) (*domain.Payment, error)
	Get(ctx context.Context, id string) (*domain.Payment, error)
	ListByStudent(ctx context.Context, studentID string) ([]*domain.Payment, error)
	ListBySchool(ctx context.Context, schoolID string) ([]*domain.Payment, error)
	ListAll(ctx context.Context) ([]*domain.Payment, error)
	ListBySchoolAndMonth(ctx context.Context, schoolID string, year, month int) ([]*domain.Payment, error)
	ListBySchoolAndYear(ctx context.Context, schoolID string, year int) ([]*domain.Payment, error)
	ListByStudentAndMonth(ctx context.Context, studentID string, year, month int) ([]*domain.Payment, error)
	CountByStatus(ctx context.Context, statuses ...domain.PaymentStatus) (int, error)
	DeleteBySchool(ctx context.Context, schoolID string) error
}

var _ PaymentsRepository = (*PaymentsRepo)(nil)

// PaymentsRepo ledger records keyed by the natural period key
type PaymentsRepo struct {
	store     store.Store
	clock     domain.Clock
	newSuffix func() string
}

func NewPaymentsRepo(s store.Store, clock domain.Clock) *PaymentsRepo {
	return &PaymentsRepo{store: s, clock: clock, newSuffix: randomSuffix}
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Record writes one ledger entry and returns it as stored.
//
// PAID and PENDING use id student:year:month and replace any record already under that
// key. PARTIAL appends a random suffix and is a plain insert, so every partial deposit is
// kept and summed; a retried call draws a new suffix.
// paid_at defaults to now for PAID and stays null otherwise.
// The PENDING-has-zero-amount rule belongs to the caller.
func (r *PaymentsRepo) Record(ctx context.Context, p *domain.Payment) (*domain.Payment, error) {
	now := r.clock.Now()
	paidAt := p.PaidAt
	if paidAt == nil && p.Status == domain.PaymentPaid {
		paidAt = &now
	}

	id := domain.PeriodKey(p.StudentID, p.TargetYear, p.TargetMonth)
	opts := store.InsertOptions{OnConflict: "id"}
	if p.Status == domain.PaymentPartial {
		id += ":" + r.newSuffix()
		opts = store.InsertOptions{}
	}

	row := store.Row{
		"id":           id,
		"student_id":   p.StudentID,
		"school_id":    p.SchoolID,
		"amount":       p.Amount,
		"target_year":  p.TargetYear,
		"target_month": p.TargetMonth,
		"status":       string(p.Status),
		"paid_at":      nullable(paidAt),
		"memo":         nullable(p.Memo),
		"created_at":   now,
		"updated_at":   now,
	}
	if _, err := r.store.Insert(ctx, store.Payments, []store.Row{row}, opts); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// Get by id
func (r *PaymentsRepo) Get(ctx context.Context, id string) (*domain.Payment, error) {
	rows, err := r.store.Select(ctx, store.Payments, store.Filter{"id": id}, store.SelectOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.NotFoundError{Entity: "payment", ID: id}
	}
	return paymentFromRow(rows[0]), nil
}

// ListByStudent newest period first
func (r *PaymentsRepo) ListByStudent(ctx context.Context, studentID string) ([]*domain.Payment, error) {
	return r.listByPeriodDesc(ctx, store.Filter{"student_id": studentID})
}

// ListBySchool newest period first
func (r *PaymentsRepo) ListBySchool(ctx context.Context, schoolID string) ([]*domain.Payment, error) {
	return r.listByPeriodDesc(ctx, store.Filter{"school_id": schoolID})
}

// ListAll most recently updated first
func (r *PaymentsRepo) ListAll(ctx context.Context) ([]*domain.Payment, error) {
	return r.list(ctx, nil, store.SelectOptions{OrderBy: "updated_at", Desc: true})
}

// ListBySchoolAndMonth records of one school and period, ordered by student id
func (r *PaymentsRepo) ListBySchoolAndMonth(ctx context.Context, schoolID string, year, month int) ([]*domain.Payment, error) {
	return r.list(ctx, store.Filter{
		"school_id":    schoolID,
		"target_year":  year,
		"target_month": month,
	}, store.SelectOptions{OrderBy: "student_id"})
}

// ListBySchoolAndYear records of one school and target year, store order
func (r *PaymentsRepo) ListBySchoolAndYear(ctx context.Context, schoolID string, year int) ([]*domain.Payment, error) {
	return r.list(ctx, store.Filter{"school_id": schoolID, "target_year": year}, store.SelectOptions{})
}

// ListByStudentAndMonth every record of one student and period (PAID/PENDING plus partials)
func (r *PaymentsRepo) ListByStudentAndMonth(ctx context.Context, studentID string, year, month int) ([]*domain.Payment, error) {
	return r.list(ctx, store.Filter{
		"student_id":   studentID,
		"target_year":  year,
		"target_month": month,
	}, store.SelectOptions{})
}

// CountByStatus number of records whose status is any of statuses
func (r *PaymentsRepo) CountByStatus(ctx context.Context, statuses ...domain.PaymentStatus) (int, error) {
	total := 0
	for _, st := range statuses {
		rows, err := r.store.Select(ctx, store.Payments, store.Filter{"status": string(st)}, store.SelectOptions{})
		if err != nil {
			return 0, err
		}
		total += len(rows)
	}
	return total, nil
}

// DeleteBySchool removes every record of a school
func (r *PaymentsRepo) DeleteBySchool(ctx context.Context, schoolID string) error {
	return r.store.Delete(ctx, store.Payments, store.Filter{"school_id": schoolID})
}

func (r *PaymentsRepo) listByPeriodDesc(ctx context.Context, f store.Filter) ([]*domain.Payment, error) {
	out, err := r.list(ctx, f, store.SelectOptions{})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TargetYear != out[j].TargetYear {
			return out[i].TargetYear > out[j].TargetYear
		}
		return out[i].TargetMonth > out[j].TargetMonth
	})
	return out, nil
}

func (r *PaymentsRepo) list(ctx context.Context, f store.Filter, opts store.SelectOptions) ([]*domain.Payment, error) {
	rows, err := r.store.Select(ctx, store.Payments, f, opts)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Payment, 0, len(rows))
	for _, row := range rows {
		out = append(out, paymentFromRow(row))
	}
	return out, nil
}

func paymentFromRow(r store.Row) *domain.Payment {
	return &domain.Payment{
		PaymentID:   getString(r, "id"),
		StudentID:   getString(r, "student_id"),
		SchoolID:    getString(r, "school_id"),
		Amount:      getInt64(r, "amount"),
		TargetYear:  getInt(r, "target_year"),
		TargetMonth: getInt(r, "target_month"),
		Status:      domain.PaymentStatus(getString(r, "status")),
		PaidAt:      getTimePtr(r, "paid_at"),
		Memo:        getStringPtr(r, "memo"),
		CreatedAt:   getTime(r, "created_at"),
		UpdatedAt:   getTime(r, "updated_at"),
	}
}
