package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shuttle-ledger/internal/apperr"
	"shuttle-ledger/internal/domain"
	"shuttle-ledger/internal/store"
)

func newDirectoryFixture(t *testing.T) (*fixture, DirectoryService) {
	f := newFixture(t)
	f.school(t, "sc1", "가온초", 120)
	f.school(t, "sc2", "한빛초", 90)
	return f, NewDirectoryService(f.repos, nopLogger())
}

func TestDirectory_CreateStudentUsesSchoolFee(t *testing.T) {
	_, svc := newDirectoryFixture(t)
	ctx := context.Background()

	st, err := svc.CreateStudent(ctx, admin, StudentInput{Name: strp(" 김민수 "), SchoolID: strp("sc1"), ParentUserID: strp("p1")})
	require.NoError(t, err)
	assert.Equal(t, "김민수", st.Name)
	assert.Equal(t, int64(120), st.FeeAmount)
	assert.True(t, st.IsActive)

	fee := int64(70)
	st, err = svc.CreateStudent(ctx, admin, StudentInput{Name: strp("박서준"), SchoolID: strp("sc1"), FeeAmount: &fee})
	require.NoError(t, err)
	assert.Equal(t, int64(70), st.FeeAmount)

	var ve apperr.ValidationError
	_, err = svc.CreateStudent(ctx, admin, StudentInput{})
	assert.True(t, errors.As(err, &ve))
	day := 40
	_, err = svc.CreateStudent(ctx, admin, StudentInput{Name: strp("x"), DepositDay: &day})
	assert.True(t, errors.As(err, &ve))

	var pe apperr.PermissionError
	_, err = svc.CreateStudent(ctx, parent1, StudentInput{Name: strp("x")})
	assert.True(t, errors.As(err, &pe))
}

func TestDirectory_ListBySchoolActiveFirst(t *testing.T) {
	f, svc := newDirectoryFixture(t)
	f.student(t, domain.Student{StudentID: "a", Name: "홍길동", SchoolID: strp("sc1"), IsActive: false})
	f.student(t, domain.Student{StudentID: "b", Name: "김철수", SchoolID: strp("sc1"), IsActive: true})
	f.student(t, domain.Student{StudentID: "c", Name: "가나다", SchoolID: strp("sc1"), IsActive: true})
	f.student(t, domain.Student{StudentID: "d", Name: "나미래", IsActive: true})

	list, err := svc.ListStudents(context.Background(), admin, StudentQuery{SchoolID: "sc1"})
	require.NoError(t, err)
	ids := make([]string, 0, len(list))
	for _, st := range list {
		ids = append(ids, st.StudentID)
	}
	assert.Equal(t, []string{"c", "b", "a"}, ids)

	unassigned, err := svc.ListStudents(context.Background(), admin, StudentQuery{Unassigned: true})
	require.NoError(t, err)
	require.Len(t, unassigned, 1)
	assert.Equal(t, "d", unassigned[0].StudentID)
}

func TestDirectory_AssignAndUnassign(t *testing.T) {
	f, svc := newDirectoryFixture(t)
	ctx := context.Background()
	f.student(t, domain.Student{StudentID: "s1", Name: "김민수", SchoolID: strp("sc1"), RouteID: strp("r1"), PickupPoint: strp("정문"), IsActive: true})

	st, err := svc.AssignSchool(ctx, admin, "s1", "sc2")
	require.NoError(t, err)
	assert.True(t, st.InSchool("sc2"))
	assert.Nil(t, st.RouteID)
	assert.Nil(t, st.PickupPoint)

	_, err = svc.AssignSchool(ctx, admin, "s1", "nowhere")
	assert.True(t, apperr.IsNotFound(err))

	st, err = svc.UnassignSchool(ctx, admin, "s1")
	require.NoError(t, err)
	assert.Nil(t, st.SchoolID)

	_, err = svc.UnassignSchool(ctx, admin, "ghost")
	assert.True(t, apperr.IsNotFound(err))
}

func TestDirectory_SuspensionAndUpdate(t *testing.T) {
	f, svc := newDirectoryFixture(t)
	ctx := context.Background()
	f.student(t, domain.Student{StudentID: "s1", Name: "김민수", SchoolID: strp("sc1"), Notes: strp("알레르기"), IsActive: true})

	at := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	st, err := svc.SetSuspension(ctx, admin, "s1", &at)
	require.NoError(t, err)
	require.NotNil(t, st.SuspendedAt)
	assert.True(t, st.ActiveAt(testNow))

	st, err = svc.SetSuspension(ctx, admin, "s1", nil)
	require.NoError(t, err)
	assert.Nil(t, st.SuspendedAt)

	fee := int64(150)
	st, err = svc.UpdateStudent(ctx, admin, "s1", StudentInput{FeeAmount: &fee, Notes: strp("")})
	require.NoError(t, err)
	assert.Equal(t, int64(150), st.FeeAmount)
	assert.Nil(t, st.Notes)
	assert.Equal(t, "김민수", st.Name)
}

func TestDirectory_Schools(t *testing.T) {
	_, svc := newDirectoryFixture(t)
	ctx := context.Background()

	created, err := svc.CreateSchool(ctx, admin, SchoolInput{Name: "나래초", DefaultMonthlyFee: 110})
	require.NoError(t, err)
	assert.NotEmpty(t, created.SchoolID)

	list, err := svc.ListSchools(ctx, admin)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "가온초", list[0].Name)
	assert.Equal(t, "나래초", list[1].Name)

	var ve apperr.ValidationError
	_, err = svc.CreateSchool(ctx, admin, SchoolInput{Name: "x", DefaultMonthlyFee: -1})
	assert.True(t, errors.As(err, &ve))
}

func TestDirectory_UpdateSchool(t *testing.T) {
	_, svc := newDirectoryFixture(t)
	ctx := context.Background()

	fee := int64(150)
	updated, err := svc.UpdateSchool(ctx, admin, "sc1", SchoolUpdate{DefaultMonthlyFee: &fee, Address: strp("서울시 마포구"), Note: strp("")})
	require.NoError(t, err)
	assert.Equal(t, "가온초", updated.Name)
	assert.Equal(t, int64(150), updated.DefaultMonthlyFee)
	assert.Equal(t, "서울시 마포구", *updated.Address)
	assert.Nil(t, updated.Note)

	var ve apperr.ValidationError
	_, err = svc.UpdateSchool(ctx, admin, "sc1", SchoolUpdate{Name: strp("  ")})
	assert.True(t, errors.As(err, &ve))
	neg := int64(-1)
	_, err = svc.UpdateSchool(ctx, admin, "sc1", SchoolUpdate{DefaultMonthlyFee: &neg})
	assert.True(t, errors.As(err, &ve))

	_, err = svc.UpdateSchool(ctx, admin, "ghost", SchoolUpdate{Name: strp("x")})
	assert.True(t, apperr.IsNotFound(err))

	var pe apperr.PermissionError
	_, err = svc.UpdateSchool(ctx, parent1, "sc1", SchoolUpdate{Name: strp("x")})
	assert.True(t, errors.As(err, &pe))
}

func TestDirectory_DeleteSchool(t *testing.T) {
	f, svc := newDirectoryFixture(t)
	ctx := context.Background()
	f.student(t, domain.Student{StudentID: "s1", Name: "김민수", SchoolID: strp("sc1"), FeeAmount: 120, IsActive: true})
	f.payment(t, domain.Payment{StudentID: "s1", SchoolID: "sc1", Amount: 120, TargetYear: 2026, TargetMonth: 2, Status: domain.PaymentPaid})
	f.payment(t, domain.Payment{StudentID: "s9", SchoolID: "sc2", Amount: 90, TargetYear: 2026, TargetMonth: 2, Status: domain.PaymentPaid})
	f.route(t, "r1", "sc1", "1호차", "정문")

	err := svc.DeleteSchool(ctx, admin, "sc1")
	assert.True(t, errors.Is(err, apperr.ErrSchoolInUse))
	_, err = f.repos.Schools.Get(ctx, "sc1")
	require.NoError(t, err)
	paid, err := f.repos.Payments.ListBySchool(ctx, "sc1")
	require.NoError(t, err)
	assert.Len(t, paid, 1)

	_, err = svc.UnassignSchool(ctx, admin, "s1")
	require.NoError(t, err)
	require.NoError(t, svc.DeleteSchool(ctx, admin, "sc1"))

	_, err = f.repos.Schools.Get(ctx, "sc1")
	assert.True(t, apperr.IsNotFound(err))
	_, err = f.repos.Routes.Get(ctx, "r1")
	assert.True(t, apperr.IsNotFound(err))
	stops, err := f.mem.Select(ctx, store.RouteStops, store.Filter{"route_id": "r1"}, store.SelectOptions{})
	require.NoError(t, err)
	assert.Empty(t, stops)
	paid, err = f.repos.Payments.ListBySchool(ctx, "sc1")
	require.NoError(t, err)
	assert.Empty(t, paid)
	other, err := f.repos.Payments.ListBySchool(ctx, "sc2")
	require.NoError(t, err)
	assert.Len(t, other, 1)

	assert.True(t, apperr.IsNotFound(svc.DeleteSchool(ctx, admin, "sc1")))
}

func TestDirectory_RouteLifecycle(t *testing.T) {
	f, svc := newDirectoryFixture(t)
	ctx := context.Background()
	f.student(t, domain.Student{StudentID: "s1", Name: "김민수", SchoolID: strp("sc1"), IsActive: true})
	f.student(t, domain.Student{StudentID: "s2", Name: "가윤", SchoolID: strp("sc1"), IsActive: true})

	rt, err := svc.CreateRoute(ctx, admin, RouteInput{SchoolID: "sc1", Name: " 1호차 ", Stops: []string{"정문", "", " 놀이터 "}})
	require.NoError(t, err)
	assert.Equal(t, "1호차", rt.Name)
	assert.Equal(t, []string{"정문", "놀이터"}, rt.Stops)

	var ve apperr.ValidationError
	_, err = svc.CreateRoute(ctx, admin, RouteInput{SchoolID: "sc1", Name: " "})
	assert.True(t, errors.As(err, &ve))
	_, err = svc.CreateRoute(ctx, admin, RouteInput{SchoolID: "ghost", Name: "x"})
	assert.True(t, apperr.IsNotFound(err))

	renamed, err := svc.UpdateRoute(ctx, admin, rt.RouteID, RouteUpdate{Name: strp("1호차 (오전)")})
	require.NoError(t, err)
	assert.Equal(t, "1호차 (오전)", renamed.Name)
	assert.Equal(t, []string{"정문", "놀이터"}, renamed.Stops)

	restopped, err := svc.UpdateRoute(ctx, admin, rt.RouteID, RouteUpdate{Stops: []string{"후문", "정문", "체육관"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"후문", "정문", "체육관"}, restopped.Stops)

	cleared, err := svc.UpdateRoute(ctx, admin, rt.RouteID, RouteUpdate{Stops: []string{}})
	require.NoError(t, err)
	assert.Empty(t, cleared.Stops)

	_, err = svc.UpdateRoute(ctx, admin, "ghost", RouteUpdate{Name: strp("x")})
	assert.True(t, apperr.IsNotFound(err))

	assigned, err := svc.AssignRoute(ctx, admin, RouteAssignment{StudentIDs: []string{"s1", "s2"}, RouteID: rt.RouteID, PickupPoint: "정문"})
	require.NoError(t, err)
	require.Len(t, assigned, 2)
	for _, st := range assigned {
		assert.Equal(t, rt.RouteID, *st.RouteID)
		assert.Equal(t, "정문", *st.PickupPoint)
	}

	detail, err := svc.GetRoute(ctx, admin, rt.RouteID)
	require.NoError(t, err)
	require.Len(t, detail.Students, 2)
	assert.Equal(t, "가윤", detail.Students[0].Name)

	list, err := svc.ListRoutes(ctx, admin, "sc1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.DeleteRoute(ctx, admin, rt.RouteID))
	_, err = svc.GetRoute(ctx, admin, rt.RouteID)
	assert.True(t, apperr.IsNotFound(err))
	for _, id := range []string{"s1", "s2"} {
		st, err := f.repos.Students.Get(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, st.RouteID)
		assert.Nil(t, st.PickupPoint)
	}
	assert.True(t, apperr.IsNotFound(svc.DeleteRoute(ctx, admin, rt.RouteID)))
}

func TestDirectory_AssignRouteChecksEveryStudentFirst(t *testing.T) {
	f, svc := newDirectoryFixture(t)
	ctx := context.Background()
	f.student(t, domain.Student{StudentID: "s1", Name: "김민수", SchoolID: strp("sc1"), IsActive: true})
	f.student(t, domain.Student{StudentID: "s2", Name: "박서준", SchoolID: strp("sc2"), IsActive: true})
	f.student(t, domain.Student{StudentID: "s3", Name: "이도윤", IsActive: true})
	f.route(t, "r1", "sc1", "1호차", "정문")

	tests := []struct {
		name string
		ids  []string
		want error
	}{
		{"other school", []string{"s1", "s2"}, apperr.ErrRouteMismatch},
		{"unassigned student", []string{"s1", "s3"}, apperr.ErrRouteMismatch},
		{"empty selection", nil, apperr.ErrNoStudents},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AssignRoute(ctx, admin, RouteAssignment{StudentIDs: tt.ids, RouteID: "r1"})
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	st, err := f.repos.Students.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, st.RouteID)

	_, err = svc.AssignRoute(ctx, admin, RouteAssignment{StudentIDs: []string{"s1", "ghost"}, RouteID: "r1"})
	assert.True(t, apperr.IsNotFound(err))
	_, err = svc.AssignRoute(ctx, admin, RouteAssignment{StudentIDs: []string{"s1"}, RouteID: "ghost"})
	assert.True(t, apperr.IsNotFound(err))

	_, err = svc.AssignRoute(ctx, admin, RouteAssignment{StudentIDs: []string{"s1"}, RouteID: "r1", PickupPoint: "정문"})
	require.NoError(t, err)
	off, err := svc.AssignRoute(ctx, admin, RouteAssignment{StudentIDs: []string{"s1"}, PickupPoint: "정문"})
	require.NoError(t, err)
	assert.Nil(t, off[0].RouteID)
	assert.Nil(t, off[0].PickupPoint)
}
