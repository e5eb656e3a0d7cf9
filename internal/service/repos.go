package service

import (
	"shuttle-ledger/internal/apperr"
	"shuttle-ledger/internal/domain"
	"shuttle-ledger/internal/repository"
	"shuttle-ledger/internal/store"
)

// Repos every repository the services read from or write to, over one store
type Repos struct {
	Payments repository.PaymentsRepository
	Alerts   repository.AlertsRepository
	Board    repository.BoardRepository
	Students repository.StudentsRepository
	Schools  repository.SchoolsRepository
	Routes   repository.RoutesRepository
	Users    repository.UsersRepository
}

func NewRepos(s store.Store, clock domain.Clock) *Repos {
	return &Repos{
		Payments: repository.NewPaymentsRepo(s, clock),
		Alerts:   repository.NewAlertsRepo(s, clock),
		Board:    repository.NewBoardRepo(s, clock),
		Students: repository.NewStudentsRepo(s, clock),
		Schools:  repository.NewSchoolsRepo(s, clock),
		Routes:   repository.NewRoutesRepo(s, clock),
		Users:    repository.NewUsersRepo(s),
	}
}

func requireAdmin(actor domain.Actor) error {
	if !actor.IsAdmin() {
		return apperr.PermissionError{Role: string(actor.Role), Required: string(domain.RoleAdmin)}
	}
	return nil
}

func requireParent(actor domain.Actor) error {
	if !actor.IsParent() {
		return apperr.PermissionError{Role: string(actor.Role), Required: string(domain.RoleParent)}
	}
	return nil
}

func requireKnownRole(actor domain.Actor) error {
	if !actor.Role.Valid() || actor.UserID == "" {
		return apperr.PermissionError{Role: string(actor.Role)}
	}
	return nil
}

// ownsStudent parents may only touch their own children
func ownsStudent(actor domain.Actor, st *domain.Student) bool {
	return actor.IsAdmin() || (st.ParentUserID != nil && *st.ParentUserID == actor.UserID)
}

func validatePeriod(year, month int) error {
	if err := validateYear(year); err != nil {
		return err
	}
	if month < 1 || month > 12 {
		return apperr.NewValidationError("month", month, "month must be between 1 and 12")
	}
	return nil
}

func validateYear(year int) error {
	if year < 2000 || year > 2100 {
		return apperr.NewValidationError("year", year, "year must be between 2000 and 2100")
	}
	return nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}
