package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"shuttle-ledger/internal/apperr"
	"shuttle-ledger/internal/domain"
	"shuttle-ledger/internal/reconcile"
)

// ReconciliationService reads the ledger and directory on every call (no caching) and
// runs the pure aggregations in package reconcile.
type ReconciliationService interface {
	MonthlySummary(ctx context.Context, actor domain.Actor, schoolID string, year int) (reconcile.Summary, error)
	YearlySummary(ctx context.Context, actor domain.Actor, schoolID string, year int) (reconcile.YearReport, error)
	Shortages(ctx context.Context, actor domain.Actor, schoolID string, year, month int) ([]ShortageView, error)
	StudentStatus(ctx context.Context, actor domain.Actor, studentID string, year, month int) (reconcile.StudentMonth, error)
	ExportShortages(ctx context.Context, actor domain.Actor, schoolID string, year, month int) ([]byte, error)
	ExportYearly(ctx context.Context, actor domain.Actor, schoolID string, year int) ([]byte, error)
}

// ShortageView shortage row with display data resolved
type ShortageView struct {
	reconcile.ShortageRow
	SchoolName  string `json:"school_name"`
	ParentName  string `json:"parent_name"`
	ParentPhone string `json:"parent_phone"`
}

const (
	unassignedSchoolName = "미배정"
	unknownSchoolName    = "학교 정보 없음"
)

type reconciliationService struct {
	repos  *Repos
	clock  domain.Clock
	logger *zap.Logger
}

func NewReconciliationService(repos *Repos, clock domain.Clock, logger *zap.Logger) ReconciliationService {
	return &reconciliationService{repos: repos, clock: clock, logger: logger}
}

func (s *reconciliationService) MonthlySummary(ctx context.Context, actor domain.Actor, schoolID string, year int) (reconcile.Summary, error) {
	if err := requireAdmin(actor); err != nil {
		return reconcile.Summary{}, err
	}
	if err := validateYear(year); err != nil {
		return reconcile.Summary{}, err
	}
	return s.summary(ctx, schoolID, year)
}

func (s *reconciliationService) YearlySummary(ctx context.Context, actor domain.Actor, schoolID string, year int) (reconcile.YearReport, error) {
	sum, err := s.MonthlySummary(ctx, actor, schoolID, year)
	if err != nil {
		return reconcile.YearReport{}, err
	}
	return reconcile.YearlySummary(sum), nil
}

// summary one school, or every school merged when schoolID is "ALL"
func (s *reconciliationService) summary(ctx context.Context, schoolID string, year int) (reconcile.Summary, error) {
	now := s.clock.Now()
	if schoolID == "" {
		return reconcile.Summary{}, apperr.NewValidationError("school_id", "", "school_id is required")
	}
	if schoolID != domain.AllSchools {
		return s.schoolSummary(ctx, schoolID, year, now)
	}

	schools, err := s.repos.Schools.List(ctx)
	if err != nil {
		return reconcile.Summary{}, err
	}
	parts := make([]reconcile.Summary, 0, len(schools))
	for _, sc := range schools {
		part, err := s.schoolSummary(ctx, sc.SchoolID, year, now)
		if err != nil {
			return reconcile.Summary{}, err
		}
		parts = append(parts, part)
	}
	return reconcile.Merge(year, parts...), nil
}

func (s *reconciliationService) schoolSummary(ctx context.Context, schoolID string, year int, now time.Time) (reconcile.Summary, error) {
	payments, err := s.repos.Payments.ListBySchoolAndYear(ctx, schoolID, year)
	if err != nil {
		return reconcile.Summary{}, err
	}
	students, err := s.repos.Students.ListBySchool(ctx, schoolID)
	if err != nil {
		return reconcile.Summary{}, err
	}
	return reconcile.MonthlySummary(schoolID, payments, students, year, now), nil
}

func (s *reconciliationService) Shortages(ctx context.Context, actor domain.Actor, schoolID string, year, month int) ([]ShortageView, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := validatePeriod(year, month); err != nil {
		return nil, err
	}
	return s.shortages(ctx, schoolID, year, month)
}

func (s *reconciliationService) shortages(ctx context.Context, schoolID string, year, month int) ([]ShortageView, error) {
	var (
		students []*domain.Student
		payments []*domain.Payment
		err      error
	)
	switch schoolID {
	case "":
		return nil, apperr.NewValidationError("school_id", "", "school_id is required")
	case domain.AllSchools:
		if students, err = s.repos.Students.ListAll(ctx); err != nil {
			return nil, err
		}
		payments, err = s.repos.Payments.ListAll(ctx)
	default:
		if students, err = s.repos.Students.ListBySchool(ctx, schoolID); err != nil {
			return nil, err
		}
		payments, err = s.repos.Payments.ListBySchoolAndMonth(ctx, schoolID, year, month)
	}
	if err != nil {
		return nil, err
	}

	rows := reconcile.ShortageRows(payments, students, year, month, s.clock.Now())
	if len(rows) == 0 {
		return []ShortageView{}, nil
	}

	schools, err := s.repos.Schools.List(ctx)
	if err != nil {
		return nil, err
	}
	schoolNames := make(map[string]string, len(schools))
	for _, sc := range schools {
		schoolNames[sc.SchoolID] = sc.Name
	}
	parents, err := s.repos.Users.ListByRole(ctx, domain.RoleParent)
	if err != nil {
		return nil, err
	}

	out := make([]ShortageView, 0, len(rows))
	for _, r := range rows {
		v := ShortageView{ShortageRow: r, SchoolName: unassignedSchoolName}
		if r.SchoolID != nil {
			v.SchoolName = unknownSchoolName
			if name, ok := schoolNames[*r.SchoolID]; ok {
				v.SchoolName = name
			}
		}
		var parent *domain.User
		if r.ParentUserID != nil {
			parent = parents[*r.ParentUserID]
		}
		v.ParentName = deref(strPtr(r.GuardianName), "-")
		if parent != nil && parent.Name != nil {
			v.ParentName = *parent.Name
		}
		v.ParentPhone = "-"
		if parent != nil && parent.Phone != nil {
			v.ParentPhone = *parent.Phone
		} else if r.Phone != nil {
			v.ParentPhone = *r.Phone
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *reconciliationService) StudentStatus(ctx context.Context, actor domain.Actor, studentID string, year, month int) (reconcile.StudentMonth, error) {
	if err := requireKnownRole(actor); err != nil {
		return reconcile.StudentMonth{}, err
	}
	if err := validatePeriod(year, month); err != nil {
		return reconcile.StudentMonth{}, err
	}
	st, err := s.repos.Students.Get(ctx, studentID)
	if err != nil {
		return reconcile.StudentMonth{}, err
	}
	if !ownsStudent(actor, st) {
		return reconcile.StudentMonth{}, apperr.PermissionError{Role: string(actor.Role), Required: "student's parent"}
	}
	payments, err := s.repos.Payments.ListByStudentAndMonth(ctx, studentID, year, month)
	if err != nil {
		return reconcile.StudentMonth{}, err
	}
	return reconcile.StudentMonthStatus(st, payments, year, month), nil
}

func (s *reconciliationService) ExportShortages(ctx context.Context, actor domain.Actor, schoolID string, year, month int) ([]byte, error) {
	rows, err := s.Shortages(ctx, actor, schoolID, year, month)
	if err != nil {
		return nil, err
	}
	return GenerateShortageReport(rows, domain.Period{Year: year, Month: month})
}

func (s *reconciliationService) ExportYearly(ctx context.Context, actor domain.Actor, schoolID string, year int) ([]byte, error) {
	report, err := s.YearlySummary(ctx, actor, schoolID, year)
	if err != nil {
		return nil, err
	}
	return GenerateYearlyReport(report)
}
