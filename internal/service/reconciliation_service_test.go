package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"shuttle-ledger/internal/apperr"
	"shuttle-ledger/internal/domain"
)

func newReconFixture(t *testing.T) (*fixture, ReconciliationService) {
	f := newFixture(t)
	ctx := context.Background()
	f.school(t, "sc1", "가온초", 100)
	f.school(t, "sc2", "한빛초", 50)
	suspended := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	f.student(t, domain.Student{StudentID: "s1", Name: "김민수", SchoolID: strp("sc1"), ParentUserID: strp("p1"), FeeAmount: 100, IsActive: true})
	f.student(t, domain.Student{StudentID: "s2", Name: "박서준", GuardianName: "박보호", SchoolID: strp("sc1"), FeeAmount: 80, IsActive: true, SuspendedAt: &suspended})
	f.student(t, domain.Student{StudentID: "s3", Name: "이하늘", SchoolID: strp("sc2"), FeeAmount: 50, IsActive: true, Phone: strp("010-3333-4444")})

	require.NoError(t, f.repos.Users.Upsert(ctx, &domain.User{UserID: "p1", Email: "p1@example.com", Name: strp("김엄마"), Phone: strp("010-1111-2222"), Role: domain.RoleParent}))

	f.payment(t, domain.Payment{StudentID: "s1", SchoolID: "sc1", Amount: 100, TargetYear: 2026, TargetMonth: 3, Status: domain.PaymentPaid})
	f.payment(t, domain.Payment{StudentID: "s2", SchoolID: "sc1", Amount: 30, TargetYear: 2026, TargetMonth: 3, Status: domain.PaymentPartial})
	f.payment(t, domain.Payment{StudentID: "s3", SchoolID: "sc2", Amount: 20, TargetYear: 2026, TargetMonth: 3, Status: domain.PaymentPartial})
	return f, NewReconciliationService(f.repos, f.clock, nopLogger())
}

func TestMonthlySummary_SingleSchool(t *testing.T) {
	_, svc := newReconFixture(t)
	sum, err := svc.MonthlySummary(context.Background(), admin, "sc1", 2026)
	require.NoError(t, err)

	// s2 is suspended, so neither its fee nor its payment counts
	assert.Equal(t, int64(100), sum.Expected)
	assert.Equal(t, 1, sum.ActiveStudents)
	assert.Equal(t, int64(100), sum.Months[2].Paid)
	assert.Equal(t, int64(0), sum.Months[2].Partial)
	assert.Equal(t, int64(0), sum.Months[2].Missing)
	assert.Equal(t, int64(100), sum.Months[0].Missing)
}

func TestMonthlySummary_AllSchools(t *testing.T) {
	_, svc := newReconFixture(t)
	sum, err := svc.MonthlySummary(context.Background(), admin, domain.AllSchools, 2026)
	require.NoError(t, err)

	assert.Equal(t, domain.AllSchools, sum.SchoolID)
	assert.Equal(t, int64(150), sum.Expected)
	assert.Equal(t, 2, sum.ActiveStudents)
	assert.Equal(t, int64(100), sum.Months[2].Paid)
	assert.Equal(t, int64(20), sum.Months[2].Partial)
	assert.Equal(t, int64(30), sum.Months[2].Missing)
}

func TestMonthlySummary_Rejects(t *testing.T) {
	_, svc := newReconFixture(t)
	ctx := context.Background()

	var pe apperr.PermissionError
	_, err := svc.MonthlySummary(ctx, parent1, "sc1", 2026)
	assert.True(t, errors.As(err, &pe))

	var ve apperr.ValidationError
	_, err = svc.MonthlySummary(ctx, admin, "sc1", 1990)
	assert.True(t, errors.As(err, &ve))
	_, err = svc.MonthlySummary(ctx, admin, "", 2026)
	assert.True(t, errors.As(err, &ve))
}

func TestShortages_DisplayData(t *testing.T) {
	_, svc := newReconFixture(t)
	rows, err := svc.Shortages(context.Background(), admin, "sc1", 2026, 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "s1", rows[0].StudentID)
	assert.Equal(t, "가온초", rows[0].SchoolName)
	assert.Equal(t, "김엄마", rows[0].ParentName)
	assert.Equal(t, "010-1111-2222", rows[0].ParentPhone)
	assert.True(t, rows[0].Active)

	assert.Equal(t, "s2", rows[1].StudentID)
	assert.Equal(t, "박보호", rows[1].ParentName)
	assert.Equal(t, "-", rows[1].ParentPhone)
	assert.False(t, rows[1].Active)
}

func TestShortages_AllSchools(t *testing.T) {
	_, svc := newReconFixture(t)
	rows, err := svc.Shortages(context.Background(), admin, domain.AllSchools, 2026, 3)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "s2", rows[0].StudentID)
	assert.Equal(t, int64(50), rows[0].Shortage)
	assert.Equal(t, "s3", rows[1].StudentID)
	assert.Equal(t, int64(30), rows[1].Shortage)
	assert.Equal(t, "한빛초", rows[1].SchoolName)
	assert.Equal(t, "010-3333-4444", rows[1].ParentPhone)
}

func TestStudentStatus_Ownership(t *testing.T) {
	_, svc := newReconFixture(t)
	ctx := context.Background()

	st, err := svc.StudentStatus(ctx, parent1, "s1", 2026, 3)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, st.Status)
	assert.Equal(t, 1, st.Records)

	st, err = svc.StudentStatus(ctx, admin, "s3", 2026, 3)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPartial, st.Status)
	assert.Equal(t, int64(30), st.Shortage)

	var pe apperr.PermissionError
	_, err = svc.StudentStatus(ctx, parent1, "s2", 2026, 3)
	assert.True(t, errors.As(err, &pe))
}

func TestExportShortages_Workbook(t *testing.T) {
	_, svc := newReconFixture(t)
	data, err := svc.ExportShortages(context.Background(), admin, "sc1", 2026, 2)
	require.NoError(t, err)

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.GetRows("미납 2026-02")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ShortageReportHeader, rows[0])
	assert.Equal(t, "김민수", rows[1][0])
	assert.Equal(t, "휴원", rows[2][8])
}

func TestExportYearly_Workbook(t *testing.T) {
	_, svc := newReconFixture(t)
	data, err := svc.ExportYearly(context.Background(), admin, "sc1", 2026)
	require.NoError(t, err)

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.GetRows("2026년")
	require.NoError(t, err)
	require.Len(t, rows, 14)
	assert.Equal(t, YearlyReportHeader, rows[0])
	assert.Equal(t, "3월", rows[3][0])
	assert.Equal(t, "합계", rows[13][0])
}
