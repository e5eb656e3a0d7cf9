package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"shuttle-ledger/internal/apperr"
	"shuttle-ledger/internal/domain"
	"shuttle-ledger/internal/store"
)

// DirectoryService student and school administration (staff only)
type DirectoryService interface {
	ListStudents(ctx context.Context, actor domain.Actor, q StudentQuery) ([]*domain.Student, error)
	GetStudent(ctx context.Context, actor domain.Actor, id string) (*domain.Student, error)
	CreateStudent(ctx context.Context, actor domain.Actor, req StudentInput) (*domain.Student, error)
	UpdateStudent(ctx context.Context, actor domain.Actor, id string, req StudentInput) (*domain.Student, error)
	AssignSchool(ctx context.Context, actor domain.Actor, id, schoolID string) (*domain.Student, error)
	UnassignSchool(ctx context.Context, actor domain.Actor, id string) (*domain.Student, error)
	SetSuspension(ctx context.Context, actor domain.Actor, id string, at *time.Time) (*domain.Student, error)
	ListSchools(ctx context.Context, actor domain.Actor) ([]*domain.School, error)
	CreateSchool(ctx context.Context, actor domain.Actor, req SchoolInput) (*domain.School, error)
	UpdateSchool(ctx context.Context, actor domain.Actor, id string, req SchoolUpdate) (*domain.School, error)
	DeleteSchool(ctx context.Context, actor domain.Actor, id string) error

	ListRoutes(ctx context.Context, actor domain.Actor, schoolID string) ([]*domain.Route, error)
	GetRoute(ctx context.Context, actor domain.Actor, id string) (*RouteDetail, error)
	CreateRoute(ctx context.Context, actor domain.Actor, req RouteInput) (*domain.Route, error)
	UpdateRoute(ctx context.Context, actor domain.Actor, id string, req RouteUpdate) (*domain.Route, error)
	DeleteRoute(ctx context.Context, actor domain.Actor, id string) error
	AssignRoute(ctx context.Context, actor domain.Actor, req RouteAssignment) ([]*domain.Student, error)
}

// StudentQuery at most one selector; none lists everyone
type StudentQuery struct {
	SchoolID   string
	ParentID   string
	Unassigned bool
}

// StudentInput create/patch payload; nil fields are left alone on update
type StudentInput struct {
	Name             *string `json:"name"`
	GuardianName     *string `json:"guardian_name"`
	SchoolID         *string `json:"school_id"`
	ParentUserID     *string `json:"parent_user_id"`
	Phone            *string `json:"phone"`
	HomeAddress      *string `json:"home_address"`
	EmergencyContact *string `json:"emergency_contact"`
	FeeAmount        *int64  `json:"fee_amount"`
	DepositDay       *int    `json:"deposit_day"`
	Notes            *string `json:"notes"`
	IsActive         *bool   `json:"is_active"`
}

type SchoolInput struct {
	Name              string  `json:"name"`
	Address           *string `json:"address"`
	DefaultMonthlyFee int64   `json:"default_monthly_fee"`
	Note              *string `json:"note"`
}

// SchoolUpdate nil fields are left alone; "" clears address and note
type SchoolUpdate struct {
	Name              *string `json:"name"`
	Address           *string `json:"address"`
	DefaultMonthlyFee *int64  `json:"default_monthly_fee"`
	Note              *string `json:"note"`
}

type RouteInput struct {
	SchoolID string   `json:"school_id"`
	Name     string   `json:"name"`
	Stops    []string `json:"stops"`
}

// RouteUpdate nil Stops keeps the current stops; an empty list removes them all
type RouteUpdate struct {
	Name  *string  `json:"name"`
	Stops []string `json:"stops"`
}

// RouteAssignment one or many students onto a route. An empty RouteID takes them off
// their route and clears the pickup point.
type RouteAssignment struct {
	StudentIDs  []string `json:"student_ids"`
	RouteID     string   `json:"route_id"`
	PickupPoint string   `json:"pickup_point"`
}

// RouteDetail route with the students riding it, in name order
type RouteDetail struct {
	*domain.Route
	Students []*domain.Student `json:"students"`
}

type directoryService struct {
	repos  *Repos
	logger *zap.Logger
}

func NewDirectoryService(repos *Repos, logger *zap.Logger) DirectoryService {
	return &directoryService{repos: repos, logger: logger}
}

// ListStudents by-school lists put active students first; every list is in name order
func (s *directoryService) ListStudents(ctx context.Context, actor domain.Actor, q StudentQuery) ([]*domain.Student, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var (
		out []*domain.Student
		err error
	)
	switch {
	case q.SchoolID != "":
		out, err = s.repos.Students.ListBySchool(ctx, q.SchoolID)
	case q.ParentID != "":
		out, err = s.repos.Students.ListByParent(ctx, q.ParentID)
	case q.Unassigned:
		out, err = s.repos.Students.ListUnassigned(ctx)
	default:
		out, err = s.repos.Students.ListAll(ctx)
	}
	if err != nil {
		return nil, err
	}
	activeFirst := q.SchoolID != ""
	sort.SliceStable(out, func(i, j int) bool {
		if activeFirst && out[i].IsActive != out[j].IsActive {
			return out[i].IsActive
		}
		return domain.CompareNames(out[i].Name, out[j].Name) < 0
	})
	return out, nil
}

func (s *directoryService) GetStudent(ctx context.Context, actor domain.Actor, id string) (*domain.Student, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.repos.Students.Get(ctx, id)
}

func (s *directoryService) CreateStudent(ctx context.Context, actor domain.Actor, req StudentInput) (*domain.Student, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return nil, apperr.NewValidationError("name", "", "name is required")
	}
	if err := validateStudentInput(req); err != nil {
		return nil, err
	}
	st := &domain.Student{
		Name:             strings.TrimSpace(*req.Name),
		SchoolID:         req.SchoolID,
		ParentUserID:     req.ParentUserID,
		Phone:            req.Phone,
		HomeAddress:      req.HomeAddress,
		EmergencyContact: req.EmergencyContact,
		DepositDay:       req.DepositDay,
		Notes:            req.Notes,
		IsActive:         true,
	}
	if req.GuardianName != nil {
		st.GuardianName = *req.GuardianName
	}
	if req.IsActive != nil {
		st.IsActive = *req.IsActive
	}
	if req.FeeAmount != nil {
		st.FeeAmount = *req.FeeAmount
	} else if st.SchoolID != nil {
		// unset fee falls back to the school's default
		school, err := s.repos.Schools.Get(ctx, *st.SchoolID)
		if err != nil {
			return nil, err
		}
		st.FeeAmount = school.DefaultMonthlyFee
	}
	created, err := s.repos.Students.Create(ctx, st)
	if err != nil {
		return nil, err
	}
	s.logger.Info("student created", zap.String("student_id", created.StudentID), zap.String("actor", actor.UserID))
	return created, nil
}

func validateStudentInput(req StudentInput) error {
	if req.FeeAmount != nil && *req.FeeAmount < 0 {
		return apperr.NewValidationError("fee_amount", *req.FeeAmount, "fee_amount must be >= 0")
	}
	if req.DepositDay != nil && (*req.DepositDay < 1 || *req.DepositDay > 31) {
		return apperr.NewValidationError("deposit_day", *req.DepositDay, "deposit_day must be between 1 and 31")
	}
	return nil
}

func (s *directoryService) UpdateStudent(ctx context.Context, actor domain.Actor, id string, req StudentInput) (*domain.Student, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := validateStudentInput(req); err != nil {
		return nil, err
	}
	fields := store.Row{}
	set := func(col string, v any, ok bool) {
		if ok {
			fields[col] = v
		}
	}
	set("name", deref(req.Name, ""), req.Name != nil && *req.Name != "")
	set("guardian_name", deref(req.GuardianName, ""), req.GuardianName != nil)
	set("school_id", nullableString(req.SchoolID), req.SchoolID != nil)
	set("parent_user_id", nullableString(req.ParentUserID), req.ParentUserID != nil)
	set("phone", nullableString(req.Phone), req.Phone != nil)
	set("home_address", nullableString(req.HomeAddress), req.HomeAddress != nil)
	set("emergency_contact", nullableString(req.EmergencyContact), req.EmergencyContact != nil)
	set("notes", nullableString(req.Notes), req.Notes != nil)
	if req.FeeAmount != nil {
		fields["fee_amount"] = *req.FeeAmount
	}
	if req.DepositDay != nil {
		fields["deposit_day"] = *req.DepositDay
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}
	if len(fields) == 0 {
		return s.repos.Students.Get(ctx, id)
	}
	return s.repos.Students.Update(ctx, id, fields)
}

// nullableString empty string clears the column
func nullableString(p *string) any {
	if p == nil || *p == "" {
		return nil
	}
	return *p
}

// AssignSchool moving schools drops the old route and pickup point
func (s *directoryService) AssignSchool(ctx context.Context, actor domain.Actor, id, schoolID string) (*domain.Student, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if schoolID == "" {
		return nil, apperr.NewValidationError("school_id", "", "school_id is required")
	}
	if _, err := s.repos.Schools.Get(ctx, schoolID); err != nil {
		return nil, err
	}
	return s.repos.Students.Update(ctx, id, store.Row{"school_id": schoolID, "route_id": nil, "pickup_point": nil})
}

func (s *directoryService) UnassignSchool(ctx context.Context, actor domain.Actor, id string) (*domain.Student, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.repos.Students.Update(ctx, id, store.Row{"school_id": nil, "route_id": nil, "pickup_point": nil})
}

// SetSuspension nil clears the suspension
func (s *directoryService) SetSuspension(ctx context.Context, actor domain.Actor, id string, at *time.Time) (*domain.Student, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var v any
	if at != nil {
		v = *at
	}
	return s.repos.Students.Update(ctx, id, store.Row{"suspended_at": v})
}

func (s *directoryService) ListSchools(ctx context.Context, actor domain.Actor) ([]*domain.School, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	schools, err := s.repos.Schools.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(schools, func(i, j int) bool { return domain.CompareNames(schools[i].Name, schools[j].Name) < 0 })
	return schools, nil
}

func (s *directoryService) CreateSchool(ctx context.Context, actor domain.Actor, req SchoolInput) (*domain.School, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperr.NewValidationError("name", "", "name is required")
	}
	if req.DefaultMonthlyFee < 0 {
		return nil, apperr.NewValidationError("default_monthly_fee", req.DefaultMonthlyFee, "default_monthly_fee must be >= 0")
	}
	return s.repos.Schools.Create(ctx, &domain.School{
		Name:              strings.TrimSpace(req.Name),
		Address:           req.Address,
		DefaultMonthlyFee: req.DefaultMonthlyFee,
		Note:              req.Note,
	})
}

func (s *directoryService) UpdateSchool(ctx context.Context, actor domain.Actor, id string, req SchoolUpdate) (*domain.School, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	fields := store.Row{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperr.NewValidationError("name", "", "name is required")
		}
		fields["name"] = name
	}
	if req.DefaultMonthlyFee != nil {
		if *req.DefaultMonthlyFee < 0 {
			return nil, apperr.NewValidationError("default_monthly_fee", *req.DefaultMonthlyFee, "default_monthly_fee must be >= 0")
		}
		fields["default_monthly_fee"] = *req.DefaultMonthlyFee
	}
	if req.Address != nil {
		fields["address"] = nullableString(req.Address)
	}
	if req.Note != nil {
		fields["note"] = nullableString(req.Note)
	}
	if len(fields) == 0 {
		return s.repos.Schools.Get(ctx, id)
	}
	return s.repos.Schools.Update(ctx, id, fields)
}

// DeleteSchool refuses while students are still assigned. Routes and ledger records go
// first and the school row last, so a failed run can simply be repeated.
func (s *directoryService) DeleteSchool(ctx context.Context, actor domain.Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if _, err := s.repos.Schools.Get(ctx, id); err != nil {
		return err
	}
	students, err := s.repos.Students.ListBySchool(ctx, id)
	if err != nil {
		return err
	}
	if len(students) > 0 {
		return apperr.ValidationError{Field: "school_id", Value: id, Message: "school still has students", Err: apperr.ErrSchoolInUse}
	}

	routes, err := s.repos.Routes.ListBySchool(ctx, id)
	if err != nil {
		return err
	}
	for _, rt := range routes {
		if err := s.repos.Routes.Delete(ctx, rt.RouteID); err != nil {
			return err
		}
	}
	if err := s.repos.Payments.DeleteBySchool(ctx, id); err != nil {
		return err
	}
	if err := s.repos.Schools.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("school deleted",
		zap.String("school_id", id),
		zap.Int("routes", len(routes)),
		zap.String("actor", actor.UserID),
	)
	return nil
}

func (s *directoryService) ListRoutes(ctx context.Context, actor domain.Actor, schoolID string) ([]*domain.Route, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if schoolID == "" {
		return nil, apperr.NewValidationError("school_id", "", "school_id is required")
	}
	routes, err := s.repos.Routes.ListBySchool(ctx, schoolID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(routes, func(i, j int) bool { return domain.CompareNames(routes[i].Name, routes[j].Name) < 0 })
	return routes, nil
}

func (s *directoryService) GetRoute(ctx context.Context, actor domain.Actor, id string) (*RouteDetail, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	rt, err := s.repos.Routes.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	riders, err := s.repos.Students.ListByRoute(ctx, id)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(riders, func(i, j int) bool { return domain.CompareNames(riders[i].Name, riders[j].Name) < 0 })
	return &RouteDetail{Route: rt, Students: riders}, nil
}

func (s *directoryService) CreateRoute(ctx context.Context, actor domain.Actor, req RouteInput) (*domain.Route, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.NewValidationError("name", "", "name is required")
	}
	if req.SchoolID == "" {
		return nil, apperr.NewValidationError("school_id", "", "school_id is required")
	}
	if _, err := s.repos.Schools.Get(ctx, req.SchoolID); err != nil {
		return nil, err
	}
	rt, err := s.repos.Routes.Create(ctx, &domain.Route{SchoolID: req.SchoolID, Name: name, Stops: cleanStops(req.Stops)})
	if err != nil {
		return nil, err
	}
	s.logger.Info("route created",
		zap.String("route_id", rt.RouteID),
		zap.String("school_id", rt.SchoolID),
		zap.Int("stops", len(rt.Stops)),
	)
	return rt, nil
}

func (s *directoryService) UpdateRoute(ctx context.Context, actor domain.Actor, id string, req RouteUpdate) (*domain.Route, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var (
		rt  *domain.Route
		err error
	)
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperr.NewValidationError("name", "", "name is required")
		}
		if rt, err = s.repos.Routes.Rename(ctx, id, name); err != nil {
			return nil, err
		}
	}
	if req.Stops != nil {
		if rt, err = s.repos.Routes.ReplaceStops(ctx, id, cleanStops(req.Stops)); err != nil {
			return nil, err
		}
	}
	if rt == nil {
		return s.repos.Routes.Get(ctx, id)
	}
	return rt, nil
}

// DeleteRoute riders are taken off the route before it goes
func (s *directoryService) DeleteRoute(ctx context.Context, actor domain.Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if _, err := s.repos.Routes.Get(ctx, id); err != nil {
		return err
	}
	n, err := s.repos.Students.ClearRoute(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repos.Routes.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("route deleted", zap.String("route_id", id), zap.Int("detached_students", n))
	return nil
}

// AssignRoute every student is checked before the first write
func (s *directoryService) AssignRoute(ctx context.Context, actor domain.Actor, req RouteAssignment) ([]*domain.Student, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if len(req.StudentIDs) == 0 {
		return nil, apperr.ValidationError{Field: "student_ids", Message: "no students selected", Err: apperr.ErrNoStudents}
	}
	var rt *domain.Route
	if req.RouteID != "" {
		var err error
		if rt, err = s.repos.Routes.Get(ctx, req.RouteID); err != nil {
			return nil, err
		}
	}
	for _, id := range req.StudentIDs {
		st, err := s.repos.Students.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if rt != nil {
			if err := checkRouteSchool(rt, st); err != nil {
				return nil, err
			}
		}
	}

	fields := store.Row{"route_id": nil, "pickup_point": nil}
	if rt != nil {
		fields["route_id"] = rt.RouteID
		if p := strings.TrimSpace(req.PickupPoint); p != "" {
			fields["pickup_point"] = p
		}
	}
	out := make([]*domain.Student, 0, len(req.StudentIDs))
	for _, id := range req.StudentIDs {
		st, err := s.repos.Students.Update(ctx, id, fields.Clone())
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	s.logger.Info("route assigned",
		zap.String("route_id", req.RouteID),
		zap.Int("students", len(out)),
		zap.String("actor", actor.UserID),
	)
	return out, nil
}

// checkRouteSchool a student may only ride a route of its own school
func checkRouteSchool(rt *domain.Route, st *domain.Student) error {
	if !st.InSchool(rt.SchoolID) {
		return apperr.ValidationError{Field: "route_id", Value: rt.RouteID, Message: "route belongs to another school", Err: apperr.ErrRouteMismatch}
	}
	return nil
}

// cleanStops trims names and drops blanks, keeping order
func cleanStops(in []string) []string {
	out := make([]string, 0, len(in))
	for _, name := range in {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}
