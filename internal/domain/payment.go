package domain

import (
	"fmt"
	"time"
)

// PaymentStatus 입금 상태
type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "PAID"    // 완납
	PaymentPartial PaymentStatus = "PARTIAL" // 부분 입금
	PaymentPending PaymentStatus = "PENDING" // 미입금
)

// Valid reports whether s is a known status
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPaid, PaymentPartial, PaymentPending:
		return true
	}
	return false
}

// Payment ledger record (payments collection)
type Payment struct {
	PaymentID   string        `json:"payment_id"`
	StudentID   string        `json:"student_id"`
	SchoolID    string        `json:"school_id"`
	Amount      int64         `json:"amount"`
	TargetYear  int           `json:"target_year"`
	TargetMonth int           `json:"target_month"`
	Status      PaymentStatus `json:"status"`
	PaidAt      *time.Time    `json:"paid_at"`
	Memo        *string       `json:"memo"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// PeriodKey natural key of a billing period: student:year:month.
// PAID and PENDING records use it as their id; PARTIAL records append a random
// suffix so several deposits in one month are all retained.
func PeriodKey(studentID string, year, month int) string {
	return fmt.Sprintf("%s:%d:%d", studentID, year, month)
}

// Period (year, month) pair a payment or alert is for
type Period struct {
	Year  int
	Month int
}

// PeriodOf calendar period of t in t's location
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month())}
}

// Label yyyy-mm with zero padded month
func (p Period) Label() string {
	return fmt.Sprintf("%d-%02d", p.Year, p.Month)
}
