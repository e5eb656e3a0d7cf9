package domain

import "time"

// AlertType 알림 종류
type AlertType string

const (
	AlertPayment     AlertType = "PAYMENT"
	AlertInquiry     AlertType = "INQUIRY"
	AlertRouteChange AlertType = "ROUTE_CHANGE"
)

// AlertStatus PENDING -> RESOLVED. Resolution deletes the row, so stored alerts are
// always PENDING.
type AlertStatus string

const (
	AlertPending  AlertStatus = "PENDING"
	AlertResolved AlertStatus = "RESOLVED"
)

// Alert staff-actionable notification (alerts collection)
type Alert struct {
	AlertID   string      `json:"alert_id"`
	StudentID string      `json:"student_id"`
	SchoolID  string      `json:"school_id"`
	Year      int         `json:"year"`  // subject period, not creation time
	Month     int         `json:"month"` // subject period, not creation time
	Type      AlertType   `json:"type"`
	Status    AlertStatus `json:"status"`
	CreatedBy string      `json:"created_by"`
	Memo      *string     `json:"memo"`
	CreatedAt time.Time   `json:"created_at"`
}
