// Package reconcile compares the ledger against expected fees. Everything here is a pure
// function of its inputs; "now" is passed in by the caller.
package reconcile

import (
	"sort"
	"time"

	"shuttle-ledger/internal/domain"
)

// MonthTotals one month of a summary
type MonthTotals struct {
	Month   int   `json:"month"`
	Paid    int64 `json:"paid"`
	Partial int64 `json:"partial"`
	Missing int64 `json:"missing"`
}

// Summary twelve months of one school (or "ALL"). Expected and ActiveStudents are the
// per-month baseline used for every month of the call.
type Summary struct {
	SchoolID       string          `json:"school_id"`
	Year           int             `json:"year"`
	Expected       int64           `json:"expected"`
	ActiveStudents int             `json:"active_students"`
	Months         [12]MonthTotals `json:"months"`
}

func emptySummary(schoolID string, year int) Summary {
	s := Summary{SchoolID: schoolID, Year: year}
	for i := range s.Months {
		s.Months[i].Month = i + 1
	}
	return s
}

// MonthlySummary aggregates one school's payments for year.
//
// The active set is taken once, at now, and applied to all twelve months: a student
// suspended in June is left out of January too. Only PAID and PARTIAL records of active
// students for year count. missing = max(0, expected - (paid + partial)).
func MonthlySummary(schoolID string, payments []*domain.Payment, students []*domain.Student, year int, now time.Time) Summary {
	s := emptySummary(schoolID, year)

	active := make(map[string]bool, len(students))
	for _, st := range students {
		if st.ActiveAt(now) {
			active[st.StudentID] = true
			s.Expected += st.FeeAmount
			s.ActiveStudents++
		}
	}

	for _, p := range payments {
		if p.TargetYear != year || p.TargetMonth < 1 || p.TargetMonth > 12 || !active[p.StudentID] {
			continue
		}
		m := &s.Months[p.TargetMonth-1]
		switch p.Status {
		case domain.PaymentPaid:
			m.Paid += p.Amount
		case domain.PaymentPartial:
			m.Partial += p.Amount
		}
	}

	for i := range s.Months {
		m := &s.Months[i]
		m.Missing = Shortage(s.Expected, m.Paid, m.Partial)
	}
	return s
}

// Merge sums summaries month by month under domain.AllSchools. Each school's missing
// figure is kept as computed; nothing is recomputed globally.
func Merge(year int, summaries ...Summary) Summary {
	out := emptySummary(domain.AllSchools, year)
	for _, s := range summaries {
		out.Expected += s.Expected
		out.ActiveStudents += s.ActiveStudents
		for i := range out.Months {
			out.Months[i].Paid += s.Months[i].Paid
			out.Months[i].Partial += s.Months[i].Partial
			out.Months[i].Missing += s.Months[i].Missing
		}
	}
	return out
}

// YearRow one month of the yearly report
type YearRow struct {
	MonthTotals
	Expected     int64 `json:"expected"`
	StudentCount int   `json:"student_count"`
}

// YearReport month rows plus yearly totals
type YearReport struct {
	SchoolID string    `json:"school_id"`
	Year     int       `json:"year"`
	Rows     []YearRow `json:"rows"`
	Totals   struct {
		Expected int64 `json:"expected"`
		Paid     int64 `json:"paid"`
		Partial  int64 `json:"partial"`
		Missing  int64 `json:"missing"`
	} `json:"totals"`
}

// YearlySummary expands a summary into display rows with the expected baseline
func YearlySummary(s Summary) YearReport {
	r := YearReport{SchoolID: s.SchoolID, Year: s.Year, Rows: make([]YearRow, 0, len(s.Months))}
	for _, m := range s.Months {
		r.Rows = append(r.Rows, YearRow{MonthTotals: m, Expected: s.Expected, StudentCount: s.ActiveStudents})
		r.Totals.Expected += s.Expected
		r.Totals.Paid += m.Paid
		r.Totals.Partial += m.Partial
		r.Totals.Missing += m.Missing
	}
	return r
}

// ShortageRow one student's position for a month
type ShortageRow struct {
	StudentID    string  `json:"student_id"`
	StudentName  string  `json:"student_name"`
	SchoolID     *string `json:"school_id"`
	ParentUserID *string `json:"parent_user_id"`
	GuardianName string  `json:"guardian_name"`
	Phone        *string `json:"phone,omitempty"`
	Fee          int64   `json:"fee"`
	Paid         int64   `json:"paid"`
	Partial      int64   `json:"partial"`
	Total        int64   `json:"total"`
	Shortage     int64   `json:"shortage"`
	Active       bool    `json:"active"`
}

// ShortageRows students whose PAID+PARTIAL total for (year, month) is below their fee,
// sorted by display name then id. Suspended students are included and flagged by Active.
func ShortageRows(payments []*domain.Payment, students []*domain.Student, year, month int, now time.Time) []ShortageRow {
	type sums struct{ paid, partial int64 }
	byStudent := make(map[string]*sums)
	for _, p := range payments {
		if p.TargetYear != year || p.TargetMonth != month {
			continue
		}
		e := byStudent[p.StudentID]
		if e == nil {
			e = &sums{}
			byStudent[p.StudentID] = e
		}
		switch p.Status {
		case domain.PaymentPaid:
			e.paid += p.Amount
		case domain.PaymentPartial:
			e.partial += p.Amount
		}
	}

	rows := make([]ShortageRow, 0)
	for _, st := range students {
		var paid, partial int64
		if e := byStudent[st.StudentID]; e != nil {
			paid, partial = e.paid, e.partial
		}
		short := Shortage(st.FeeAmount, paid, partial)
		if short <= 0 {
			continue
		}
		rows = append(rows, ShortageRow{
			StudentID:    st.StudentID,
			StudentName:  st.Name,
			SchoolID:     st.SchoolID,
			ParentUserID: st.ParentUserID,
			GuardianName: st.GuardianName,
			Phone:        st.Phone,
			Fee:          st.FeeAmount,
			Paid:         paid,
			Partial:      partial,
			Total:        paid + partial,
			Shortage:     short,
			Active:       st.ActiveAt(now),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if c := domain.CompareNames(rows[i].StudentName, rows[j].StudentName); c != 0 {
			return c < 0
		}
		return rows[i].StudentID < rows[j].StudentID
	})
	return rows
}

// Shortage max(0, fee - paid - partial)
func Shortage(fee, paid, partial int64) int64 {
	if d := fee - paid - partial; d > 0 {
		return d
	}
	return 0
}

// Classify single student, single month. Covered (total >= fee, including a zero fee)
// is PAID whichever record kinds make up the total; some money is PARTIAL; none is
// PENDING.
func Classify(fee, paidSum, partialSum int64) domain.PaymentStatus {
	total := paidSum + partialSum
	switch {
	case total >= fee:
		return domain.PaymentPaid
	case total > 0:
		return domain.PaymentPartial
	default:
		return domain.PaymentPending
	}
}

// StudentMonth dashboard view of one student and period
type StudentMonth struct {
	StudentID string               `json:"student_id"`
	Year      int                  `json:"year"`
	Month     int                  `json:"month"`
	Fee       int64                `json:"fee"`
	Paid      int64                `json:"paid"`
	Partial   int64                `json:"partial"`
	Shortage  int64                `json:"shortage"`
	Status    domain.PaymentStatus `json:"status"`
	Records   int                  `json:"records"`
}

// StudentMonthStatus classifies the records of one student for (year, month)
func StudentMonthStatus(st *domain.Student, payments []*domain.Payment, year, month int) StudentMonth {
	out := StudentMonth{StudentID: st.StudentID, Year: year, Month: month, Fee: st.FeeAmount}
	for _, p := range payments {
		if p.StudentID != st.StudentID || p.TargetYear != year || p.TargetMonth != month {
			continue
		}
		out.Records++
		switch p.Status {
		case domain.PaymentPaid:
			out.Paid += p.Amount
		case domain.PaymentPartial:
			out.Partial += p.Amount
		}
	}
	out.Shortage = Shortage(out.Fee, out.Paid, out.Partial)
	out.Status = Classify(out.Fee, out.Paid, out.Partial)
	return out
}
