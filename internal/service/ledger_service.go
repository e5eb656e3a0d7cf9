package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"shuttle-ledger/internal/apperr"
	"shuttle-ledger/internal/domain"
)

// LedgerService payment recording and read projections
type LedgerService interface {
	RecordPayment(ctx context.Context, actor domain.Actor, req RecordPaymentRequest) (*domain.Payment, error)
	ListPayments(ctx context.Context, actor domain.Actor, q PaymentQuery) ([]*domain.Payment, error)
	CountByStatus(ctx context.Context, actor domain.Actor, statuses ...domain.PaymentStatus) (int, error)
	DeleteSchoolPayments(ctx context.Context, actor domain.Actor, schoolID string) error
}

// RecordPaymentRequest one ledger entry. SchoolID defaults to the student's school.
type RecordPaymentRequest struct {
	StudentID string               `json:"student_id"`
	SchoolID  string               `json:"school_id"`
	Amount    int64                `json:"amount"`
	Year      int                  `json:"target_year"`
	Month     int                  `json:"target_month"`
	Status    domain.PaymentStatus `json:"status"`
	PaidAt    *time.Time           `json:"paid_at,omitempty"`
	Memo      *string              `json:"memo,omitempty"`
}

// PaymentQuery exactly one of StudentID / SchoolID, or neither for everything
type PaymentQuery struct {
	StudentID string
	SchoolID  string
}

type ledgerService struct {
	repos  *Repos
	logger *zap.Logger
}

func NewLedgerService(repos *Repos, logger *zap.Logger) LedgerService {
	return &ledgerService{repos: repos, logger: logger}
}

func (s *ledgerService) RecordPayment(ctx context.Context, actor domain.Actor, req RecordPaymentRequest) (*domain.Payment, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := validatePayment(req); err != nil {
		return nil, err
	}

	st, err := s.repos.Students.Get(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	schoolID := req.SchoolID
	if schoolID == "" {
		schoolID = deref(st.SchoolID, "")
	}
	if schoolID == "" {
		return nil, apperr.NewValidationError("school_id", req.StudentID, "student is not assigned to a school")
	}

	p, err := s.repos.Payments.Record(ctx, &domain.Payment{
		StudentID:   req.StudentID,
		SchoolID:    schoolID,
		Amount:      req.Amount,
		TargetYear:  req.Year,
		TargetMonth: req.Month,
		Status:      req.Status,
		PaidAt:      req.PaidAt,
		Memo:        req.Memo,
	})
	if err != nil {
		s.logger.Error("record payment failed",
			zap.String("student_id", req.StudentID),
			zap.Int("year", req.Year),
			zap.Int("month", req.Month),
			zap.Error(err),
		)
		return nil, err
	}
	s.logger.Info("payment recorded",
		zap.String("payment_id", p.PaymentID),
		zap.String("status", string(p.Status)),
		zap.Int64("amount", p.Amount),
		zap.String("actor", actor.UserID),
	)
	return p, nil
}

// validatePayment runs before any write. PENDING with money attached is rejected here;
// the repository does not check it.
func validatePayment(req RecordPaymentRequest) error {
	if req.StudentID == "" {
		return apperr.NewValidationError("student_id", "", "student_id is required")
	}
	if req.Amount < 0 {
		return apperr.NewValidationError("amount", req.Amount, "amount must be >= 0")
	}
	if !req.Status.Valid() {
		return apperr.NewValidationError("status", req.Status, "status must be PAID, PARTIAL or PENDING")
	}
	if err := validatePeriod(req.Year, req.Month); err != nil {
		return err
	}
	if req.Status == domain.PaymentPending && req.Amount != 0 {
		return apperr.ValidationError{Field: "amount", Value: req.Amount, Message: "pending payment must have zero amount", Err: apperr.ErrPendingAmount}
	}
	return nil
}

func (s *ledgerService) ListPayments(ctx context.Context, actor domain.Actor, q PaymentQuery) ([]*domain.Payment, error) {
	if err := requireKnownRole(actor); err != nil {
		return nil, err
	}
	switch {
	case q.StudentID != "":
		if !actor.IsAdmin() {
			st, err := s.repos.Students.Get(ctx, q.StudentID)
			if err != nil {
				return nil, err
			}
			if !ownsStudent(actor, st) {
				return nil, apperr.PermissionError{Role: string(actor.Role), Required: "student's parent"}
			}
		}
		return s.repos.Payments.ListByStudent(ctx, q.StudentID)
	case q.SchoolID != "":
		if err := requireAdmin(actor); err != nil {
			return nil, err
		}
		return s.repos.Payments.ListBySchool(ctx, q.SchoolID)
	default:
		if err := requireAdmin(actor); err != nil {
			return nil, err
		}
		return s.repos.Payments.ListAll(ctx)
	}
}

func (s *ledgerService) CountByStatus(ctx context.Context, actor domain.Actor, statuses ...domain.PaymentStatus) (int, error) {
	if err := requireAdmin(actor); err != nil {
		return 0, err
	}
	for _, st := range statuses {
		if !st.Valid() {
			return 0, apperr.NewValidationError("status", st, "unknown payment status")
		}
	}
	return s.repos.Payments.CountByStatus(ctx, statuses...)
}

func (s *ledgerService) DeleteSchoolPayments(ctx context.Context, actor domain.Actor, schoolID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if schoolID == "" || schoolID == domain.AllSchools {
		return apperr.NewValidationError("school_id", schoolID, "a single school is required")
	}
	if err := s.repos.Payments.DeleteBySchool(ctx, schoolID); err != nil {
		return err
	}
	s.logger.Info("school payments deleted", zap.String("school_id", schoolID), zap.String("actor", actor.UserID))
	return nil
}
