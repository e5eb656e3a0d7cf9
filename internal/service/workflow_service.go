package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"shuttle-ledger/internal/apperr"
	"shuttle-ledger/internal/domain"
	"shuttle-ledger/internal/journal"
	"shuttle-ledger/internal/notify"
	"shuttle-ledger/internal/repository"
	"shuttle-ledger/internal/store"
)

// WorkflowService parent- and staff-initiated operations that write alerts and board
// posts. None of them is atomic across collections.
type WorkflowService interface {
	RequestPaymentCheck(ctx context.Context, actor domain.Actor, req PaymentCheckRequest) (*PaymentCheckResult, error)
	RegisterInquiry(ctx context.Context, actor domain.Actor, req InquiryRequest) (*InquiryResult, error)
	ChangePickupPoint(ctx context.Context, actor domain.Actor, req PickupChangeRequest) (*PickupChangeResult, error)
	SendShortageNotices(ctx context.Context, actor domain.Actor, req ShortageNoticeRequest) (*ShortageNoticeResult, error)
	RequestSchoolMatch(ctx context.Context, actor domain.Actor) (*InquiryResult, error)
	ListAlerts(ctx context.Context, actor domain.Actor, f repository.AlertFilter) ([]*domain.Alert, error)
	ResolveAlert(ctx context.Context, actor domain.Actor, alertID string) error
	LockBoardPost(ctx context.Context, actor domain.Actor, postID string) (*domain.BoardPost, error)
}

type PaymentCheckRequest struct {
	StudentID string `json:"student_id"`
	Year      int    `json:"year"`
	Month     int    `json:"month"`
}

type PaymentCheckResult struct {
	SagaID string            `json:"saga_id"`
	Alert  *domain.Alert     `json:"alert"`
	Post   *domain.BoardPost `json:"post"`
}

// InquiryRequest StudentID is optional; when empty the parent's first student at the
// school (store order) becomes the alert subject.
type InquiryRequest struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	SchoolID   string `json:"school_id"`
	ParentOnly *bool  `json:"parent_only,omitempty"`
	StudentID  string `json:"student_id,omitempty"`
}

type InquiryResult struct {
	SagaID string            `json:"saga_id"`
	Post   *domain.BoardPost `json:"post"`
	Alert  *domain.Alert     `json:"alert,omitempty"`
}

// PickupChangeRequest an empty RouteID clears both route and pickup point
type PickupChangeRequest struct {
	StudentID   string `json:"student_id"`
	PickupPoint string `json:"pickup_point"`
	RouteID     string `json:"route_id"`
}

type PickupChangeResult struct {
	SagaID  string          `json:"saga_id"`
	Student *domain.Student `json:"student"`
	Alert   *domain.Alert   `json:"alert"`
}

type ShortageNoticeRequest struct {
	Year       int      `json:"year"`
	Month      int      `json:"month"`
	StudentIDs []string `json:"student_ids"`
}

type ShortageNoticeResult struct {
	SagaID  string              `json:"saga_id"`
	Posts   []*domain.BoardPost `json:"posts"`
	Skipped []string            `json:"skipped"`
}

const (
	defaultStudentName = "학생"
	defaultParentName  = "학부모"
	schoolMatchTitle   = "학교-학생 매칭 요청"
)

type workflowService struct {
	repos    *Repos
	clock    domain.Clock
	journal  journal.Journal
	notifier notify.Notifier
	logger   *zap.Logger
}

func NewWorkflowService(repos *Repos, clock domain.Clock, j journal.Journal, n notify.Notifier, logger *zap.Logger) WorkflowService {
	if j == nil {
		j = journal.Nop{}
	}
	if n == nil {
		n = notify.Nop{}
	}
	return &workflowService{repos: repos, clock: clock, journal: j, notifier: n, logger: logger}
}

func paymentCheckTitle(p domain.Period) string {
	return fmt.Sprintf("%d년 %02d월 입금 확인 요청", p.Year, p.Month)
}

// RequestPaymentCheck alert first, then the school-scoped parent-only post. A failed post
// leaves the alert in place.
func (s *workflowService) RequestPaymentCheck(ctx context.Context, actor domain.Actor, req PaymentCheckRequest) (*PaymentCheckResult, error) {
	if err := requireParent(actor); err != nil {
		return nil, err
	}
	if err := validatePeriod(req.Year, req.Month); err != nil {
		return nil, err
	}
	st, err := s.repos.Students.Get(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	if !ownsStudent(actor, st) {
		return nil, apperr.PermissionError{Role: string(actor.Role), Required: "student's parent"}
	}
	if st.SchoolID == nil {
		return nil, apperr.NewValidationError("student_id", st.StudentID, "student is not assigned to a school")
	}

	period := domain.Period{Year: req.Year, Month: req.Month}
	message := fmt.Sprintf("%s학생의 학부모%s가 %s월 입금확인요청했습니다.",
		deref(&st.Name, defaultStudentName), s.parentName(ctx, actor), period.Label())

	saga := startSaga(ctx, sagaPaymentCheck, actor, s.journal, s.clock, s.logger)
	res := &PaymentCheckResult{SagaID: saga.id}
	if err := saga.step(ctx, "alert", func(ctx context.Context) error {
		res.Alert, err = s.createAlert(ctx, &domain.Alert{
			StudentID: st.StudentID,
			SchoolID:  *st.SchoolID,
			Year:      req.Year,
			Month:     req.Month,
			Type:      domain.AlertPayment,
			CreatedBy: actor.UserID,
			Memo:      &message,
		})
		return err
	}); err != nil {
		return nil, err
	}
	if err := saga.step(ctx, "board_post", func(ctx context.Context) error {
		res.Post, err = s.repos.Board.CreatePost(ctx, &domain.BoardPost{
			Title:      paymentCheckTitle(period),
			Content:    message,
			AuthorID:   actor.UserID,
			SchoolID:   st.SchoolID,
			ParentOnly: true,
		})
		return err
	}); err != nil {
		return nil, err
	}
	saga.finish(ctx)
	return res, nil
}

// RegisterInquiry always posts. A parent posting to a school also raises an INQUIRY alert
// for the matched student.
func (s *workflowService) RegisterInquiry(ctx context.Context, actor domain.Actor, req InquiryRequest) (*InquiryResult, error) {
	if err := requireKnownRole(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
		return nil, apperr.NewValidationError("title", req.Title, "title and content are required")
	}

	var subject *domain.Student
	if actor.IsParent() {
		if req.SchoolID == "" {
			return nil, apperr.NewValidationError("school_id", "", "school_id is required")
		}
		students, err := s.repos.Students.ListByParentAndSchool(ctx, actor.UserID, req.SchoolID)
		if err != nil {
			return nil, err
		}
		if len(students) == 0 {
			return nil, apperr.NewValidationError("school_id", req.SchoolID, "school is not linked to your students")
		}
		if req.StudentID == "" {
			subject = students[0]
		}
		for _, st := range students {
			if req.StudentID != "" && st.StudentID == req.StudentID {
				subject = st
			}
		}
		if req.StudentID != "" && subject == nil {
			return nil, apperr.NewValidationError("student_id", req.StudentID, "student does not belong to you at this school")
		}
	}

	parentOnly := true
	if req.ParentOnly != nil {
		parentOnly = *req.ParentOnly
	}

	saga := startSaga(ctx, sagaInquiry, actor, s.journal, s.clock, s.logger)
	res := &InquiryResult{SagaID: saga.id}
	var err error
	if err := saga.step(ctx, "board_post", func(ctx context.Context) error {
		res.Post, err = s.repos.Board.CreatePost(ctx, &domain.BoardPost{
			Title:      req.Title,
			Content:    req.Content,
			AuthorID:   actor.UserID,
			SchoolID:   strPtr(req.SchoolID),
			ParentOnly: parentOnly,
		})
		return err
	}); err != nil {
		return nil, err
	}

	if subject != nil {
		period := domain.PeriodOf(s.clock.Now())
		if err := saga.step(ctx, "alert", func(ctx context.Context) error {
			res.Alert, err = s.createAlert(ctx, &domain.Alert{
				StudentID: subject.StudentID,
				SchoolID:  req.SchoolID,
				Year:      period.Year,
				Month:     period.Month,
				Type:      domain.AlertInquiry,
				CreatedBy: actor.UserID,
			})
			return err
		}); err != nil {
			return nil, err
		}
	}
	saga.finish(ctx)
	return res, nil
}

// ChangePickupPoint patches the student, then raises a ROUTE_CHANGE alert whose memo
// holds the before/after pickup point as text.
func (s *workflowService) ChangePickupPoint(ctx context.Context, actor domain.Actor, req PickupChangeRequest) (*PickupChangeResult, error) {
	if err := requireParent(actor); err != nil {
		return nil, err
	}
	current, err := s.repos.Students.Get(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	if !ownsStudent(actor, current) {
		return nil, apperr.PermissionError{Role: string(actor.Role), Required: "student's parent"}
	}
	if current.SchoolID == nil {
		return nil, apperr.NewValidationError("student_id", current.StudentID, "student is not assigned to a school")
	}

	route := strings.TrimSpace(req.RouteID)
	fields := store.Row{"route_id": nil, "pickup_point": nil}
	if route != "" {
		rt, err := s.repos.Routes.Get(ctx, route)
		if apperr.IsNotFound(err) {
			return nil, apperr.NewValidationError("route_id", route, "route does not exist")
		}
		if err != nil {
			return nil, err
		}
		if err := checkRouteSchool(rt, current); err != nil {
			return nil, err
		}
		fields["route_id"] = rt.RouteID
		if req.PickupPoint != "" {
			fields["pickup_point"] = req.PickupPoint
		}
	}
	memo := fmt.Sprintf("변경전: %s, 변경후: %s", deref(current.PickupPoint, "-"), deref(strPtr(req.PickupPoint), "-"))
	period := domain.PeriodOf(s.clock.Now())

	saga := startSaga(ctx, sagaPickupChange, actor, s.journal, s.clock, s.logger)
	res := &PickupChangeResult{SagaID: saga.id}
	if err := saga.step(ctx, "student_update", func(ctx context.Context) error {
		res.Student, err = s.repos.Students.Update(ctx, current.StudentID, fields)
		return err
	}); err != nil {
		return nil, err
	}
	if err := saga.step(ctx, "alert", func(ctx context.Context) error {
		res.Alert, err = s.createAlert(ctx, &domain.Alert{
			StudentID: current.StudentID,
			SchoolID:  *current.SchoolID,
			Year:      period.Year,
			Month:     period.Month,
			Type:      domain.AlertRouteChange,
			CreatedBy: actor.UserID,
			Memo:      &memo,
		})
		return err
	}); err != nil {
		return nil, err
	}
	saga.finish(ctx)
	return res, nil
}

// SendShortageNotices one targeted post per selected student with a parent. Missing
// students and students without a parent are skipped; no alerts are created.
func (s *workflowService) SendShortageNotices(ctx context.Context, actor domain.Actor, req ShortageNoticeRequest) (*ShortageNoticeResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if err := validatePeriod(req.Year, req.Month); err != nil {
		return nil, err
	}
	if len(req.StudentIDs) == 0 {
		return nil, apperr.ValidationError{Field: "student_ids", Message: "no students selected", Err: apperr.ErrNoStudents}
	}

	period := domain.Period{Year: req.Year, Month: req.Month}
	saga := startSaga(ctx, sagaShortageNotice, actor, s.journal, s.clock, s.logger)
	res := &ShortageNoticeResult{SagaID: saga.id, Posts: []*domain.BoardPost{}, Skipped: []string{}}
	for _, id := range req.StudentIDs {
		st, err := s.repos.Students.Get(ctx, id)
		if apperr.IsNotFound(err) {
			res.Skipped = append(res.Skipped, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		if !st.HasParent() {
			res.Skipped = append(res.Skipped, id)
			continue
		}
		message := fmt.Sprintf("%s학생의 %d년 %02d월 입금 확인 요청입니다. 미납 금액을 확인 후 입금 부탁드립니다.", st.Name, period.Year, period.Month)
		if err := saga.step(ctx, "board_post:"+id, func(ctx context.Context) error {
			post, err := s.repos.Board.CreatePost(ctx, &domain.BoardPost{
				Title:          paymentCheckTitle(period),
				Content:        message,
				AuthorID:       actor.UserID,
				SchoolID:       st.SchoolID,
				TargetParentID: st.ParentUserID,
				ParentOnly:     true,
			})
			if err == nil {
				res.Posts = append(res.Posts, post)
			}
			return err
		}); err != nil {
			return nil, err
		}
	}
	saga.finish(ctx)
	s.logger.Info("shortage notices sent",
		zap.String("saga_id", saga.id),
		zap.Int("posts", len(res.Posts)),
		zap.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}

// RequestSchoolMatch asks staff to link the parent's student to a school. The alert is
// raised only when the first student already has a school.
func (s *workflowService) RequestSchoolMatch(ctx context.Context, actor domain.Actor) (*InquiryResult, error) {
	if err := requireParent(actor); err != nil {
		return nil, err
	}
	students, err := s.repos.Students.ListByParent(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	var first *domain.Student
	studentName := defaultStudentName
	if len(students) > 0 {
		first = students[0]
		studentName = deref(&first.Name, defaultStudentName)
	}
	message := fmt.Sprintf("%s학생의 학부모 %s가 게시글 등록을 위해 학교-학생 매칭을 요청했습니다.", studentName, s.parentName(ctx, actor))

	saga := startSaga(ctx, sagaSchoolMatch, actor, s.journal, s.clock, s.logger)
	res := &InquiryResult{SagaID: saga.id}
	post := &domain.BoardPost{Title: schoolMatchTitle, Content: message, AuthorID: actor.UserID, ParentOnly: true}
	if first != nil {
		post.SchoolID = first.SchoolID
	}
	if err := saga.step(ctx, "board_post", func(ctx context.Context) error {
		res.Post, err = s.repos.Board.CreatePost(ctx, post)
		return err
	}); err != nil {
		return nil, err
	}
	if first != nil && first.SchoolID != nil {
		period := domain.PeriodOf(s.clock.Now())
		if err := saga.step(ctx, "alert", func(ctx context.Context) error {
			res.Alert, err = s.createAlert(ctx, &domain.Alert{
				StudentID: first.StudentID,
				SchoolID:  *first.SchoolID,
				Year:      period.Year,
				Month:     period.Month,
				Type:      domain.AlertInquiry,
				CreatedBy: actor.UserID,
				Memo:      &message,
			})
			return err
		}); err != nil {
			return nil, err
		}
	}
	saga.finish(ctx)
	return res, nil
}

func (s *workflowService) ListAlerts(ctx context.Context, actor domain.Actor, f repository.AlertFilter) ([]*domain.Alert, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.repos.Alerts.List(ctx, f)
}

// ResolveAlert deletes the alert. Unknown ids count as already resolved. The journal keeps
// the only record of the resolution.
func (s *workflowService) ResolveAlert(ctx context.Context, actor domain.Actor, alertID string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if alertID == "" {
		return apperr.NewValidationError("alert_id", "", "alert_id is required")
	}
	saga := startSaga(ctx, sagaResolveAlert, actor, s.journal, s.clock, s.logger)
	if err := saga.step(ctx, "delete:"+alertID, func(ctx context.Context) error {
		return s.repos.Alerts.Delete(ctx, alertID)
	}); err != nil {
		return err
	}
	saga.finish(ctx)
	return nil
}

// LockBoardPost sets the one-way locked marker
func (s *workflowService) LockBoardPost(ctx context.Context, actor domain.Actor, postID string) (*domain.BoardPost, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	post, err := s.repos.Board.UpdatePost(ctx, postID, store.Row{"locked": true})
	if err != nil {
		return nil, err
	}
	s.logger.Info("board post locked", zap.String("post_id", postID), zap.String("actor", actor.UserID))
	return post, nil
}

func (s *workflowService) createAlert(ctx context.Context, a *domain.Alert) (*domain.Alert, error) {
	created, err := s.repos.Alerts.Create(ctx, a)
	if err != nil {
		return nil, err
	}
	s.notifier.AlertCreated(ctx, created)
	return created, nil
}

// parentName asserted name, else the stored account name, else the generic label
func (s *workflowService) parentName(ctx context.Context, actor domain.Actor) string {
	if actor.Name != "" {
		return actor.Name
	}
	u, err := s.repos.Users.Get(ctx, actor.UserID)
	if err != nil {
		if !apperr.IsNotFound(err) {
			s.logger.Warn("parent lookup failed", zap.String("user_id", actor.UserID), zap.Error(err))
		}
		return defaultParentName
	}
	return deref(u.Name, defaultParentName)
}
