package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shuttle-ledger/internal/domain"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func student(id, name string, fee int64) *domain.Student {
	school := "sc1"
	return &domain.Student{StudentID: id, Name: name, SchoolID: &school, FeeAmount: fee, IsActive: true}
}

func pay(student string, month int, status domain.PaymentStatus, amount int64) *domain.Payment {
	return &domain.Payment{StudentID: student, SchoolID: "sc1", TargetYear: 2025, TargetMonth: month, Status: status, Amount: amount}
}

func TestShortage_NeverNegative(t *testing.T) {
	cases := []struct{ fee, paid, partial, want int64 }{
		{100, 0, 0, 100},
		{100, 100, 0, 0},
		{100, 0, 95, 5},
		{100, 80, 40, 0},
		{0, 0, 0, 0},
		{0, 10, 10, 0},
	}
	for _, c := range cases {
		got := Shortage(c.fee, c.paid, c.partial)
		assert.Equal(t, c.want, got)
		assert.GreaterOrEqual(t, got, int64(0))
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, domain.PaymentPaid, Classify(100, 100, 0))
	assert.Equal(t, domain.PaymentPaid, Classify(100, 0, 100))
	assert.Equal(t, domain.PaymentPaid, Classify(0, 0, 0))
	assert.Equal(t, domain.PaymentPartial, Classify(100, 0, 95))
	assert.Equal(t, domain.PaymentPartial, Classify(100, 50, 0))
	assert.Equal(t, domain.PaymentPending, Classify(100, 0, 0))
}

func TestMonthlySummary_ZeroStudents(t *testing.T) {
	s := MonthlySummary("sc1", nil, nil, 2025, now)
	for i, m := range s.Months {
		assert.Equal(t, i+1, m.Month)
		assert.Zero(t, m.Paid)
		assert.Zero(t, m.Partial)
		assert.Zero(t, m.Missing)
	}
	assert.Zero(t, s.Expected)
}

func TestMonthlySummary_Aggregates(t *testing.T) {
	students := []*domain.Student{student("s1", "김민수", 100), student("s2", "박지훈", 80)}
	payments := []*domain.Payment{
		pay("s1", 3, domain.PaymentPartial, 30),
		pay("s1", 3, domain.PaymentPartial, 40),
		pay("s1", 3, domain.PaymentPartial, 25),
		pay("s2", 3, domain.PaymentPaid, 80),
		pay("s2", 4, domain.PaymentPending, 0),
		{StudentID: "s2", TargetYear: 2024, TargetMonth: 3, Status: domain.PaymentPaid, Amount: 80},
	}
	s := MonthlySummary("sc1", payments, students, 2025, now)

	assert.Equal(t, int64(180), s.Expected)
	assert.Equal(t, 2, s.ActiveStudents)
	march := s.Months[2]
	assert.Equal(t, int64(80), march.Paid)
	assert.Equal(t, int64(95), march.Partial)
	assert.Equal(t, int64(5), march.Missing)
	assert.Equal(t, int64(180), s.Months[3].Missing)
}

func TestMonthlySummary_SuspensionWindow(t *testing.T) {
	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)
	gone := student("s1", "a", 100)
	gone.SuspendedAt = &past
	leaving := student("s2", "b", 70)
	leaving.SuspendedAt = &future

	payments := []*domain.Payment{pay("s1", 1, domain.PaymentPaid, 100)}
	s := MonthlySummary("sc1", payments, []*domain.Student{gone, leaving}, 2025, now)

	assert.Equal(t, int64(70), s.Expected)
	// payments of an inactive student are ignored in every month
	assert.Zero(t, s.Months[0].Paid)
	assert.Equal(t, int64(70), s.Months[0].Missing)
}

func TestMerge_SumsPerSchool(t *testing.T) {
	a := MonthlySummary("sc1", []*domain.Payment{pay("s1", 1, domain.PaymentPaid, 100)}, []*domain.Student{student("s1", "a", 100)}, 2025, now)
	b := MonthlySummary("sc2", nil, []*domain.Student{student("s2", "b", 50)}, 2025, now)

	all := Merge(2025, a, b)
	assert.Equal(t, domain.AllSchools, all.SchoolID)
	assert.Equal(t, int64(100), all.Months[0].Paid)
	assert.Equal(t, int64(50), all.Months[0].Missing)
	assert.Equal(t, int64(150), all.Months[1].Missing)
	assert.Equal(t, int64(150), all.Expected)
}

func TestYearlySummary_Totals(t *testing.T) {
	s := MonthlySummary("sc1", []*domain.Payment{pay("s1", 1, domain.PaymentPaid, 100)}, []*domain.Student{student("s1", "a", 100)}, 2025, now)
	r := YearlySummary(s)
	require.Len(t, r.Rows, 12)
	assert.Equal(t, int64(1200), r.Totals.Expected)
	assert.Equal(t, int64(100), r.Totals.Paid)
	assert.Equal(t, int64(1100), r.Totals.Missing)
	assert.Equal(t, 1, r.Rows[5].StudentCount)
}

func TestShortageRows_SortedByKoreanName(t *testing.T) {
	past := now.Add(-time.Hour)
	suspended := student("s4", "가영", 60)
	suspended.SuspendedAt = &past
	students := []*domain.Student{
		student("s1", "하늘", 100),
		student("s2", "나래", 100),
		student("s3", "다솜", 100),
		suspended,
	}
	payments := []*domain.Payment{
		pay("s1", 3, domain.PaymentPartial, 30),
		pay("s1", 3, domain.PaymentPartial, 40),
		pay("s1", 3, domain.PaymentPartial, 25),
		pay("s2", 3, domain.PaymentPaid, 100),
		pay("s3", 2, domain.PaymentPaid, 100),
	}

	rows := ShortageRows(payments, students, 2025, 3, now)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"가영", "다솜", "하늘"}, []string{rows[0].StudentName, rows[1].StudentName, rows[2].StudentName})
	assert.False(t, rows[0].Active)
	assert.Equal(t, int64(100), rows[1].Shortage)
	assert.Equal(t, int64(95), rows[2].Partial)
	assert.Equal(t, int64(5), rows[2].Shortage)
}

func TestStudentMonthStatus(t *testing.T) {
	st := student("s1", "a", 100)
	payments := []*domain.Payment{
		pay("s1", 3, domain.PaymentPartial, 40),
		pay("s1", 3, domain.PaymentPartial, 30),
		pay("s2", 3, domain.PaymentPaid, 100),
	}
	got := StudentMonthStatus(st, payments, 2025, 3)
	assert.Equal(t, domain.PaymentPartial, got.Status)
	assert.Equal(t, int64(30), got.Shortage)
	assert.Equal(t, 2, got.Records)

	none := StudentMonthStatus(st, payments, 2025, 4)
	assert.Equal(t, domain.PaymentPending, none.Status)
}
