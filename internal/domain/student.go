package domain

import "time"

// Student 학생 financial attributes consumed by the ledger (students collection)
type Student struct {
	StudentID        string     `json:"student_id"`
	SchoolID         *string    `json:"school_id"`      // nil = unassigned
	ParentUserID     *string    `json:"parent_user_id"` // nil = no linked parent account
	Name             string     `json:"name"`
	GuardianName     string     `json:"guardian_name"`
	Phone            *string    `json:"phone,omitempty"`
	HomeAddress      *string    `json:"home_address,omitempty"`
	PickupPoint      *string    `json:"pickup_point,omitempty"`
	RouteID          *string    `json:"route_id,omitempty"`
	EmergencyContact *string    `json:"emergency_contact,omitempty"`
	FeeAmount        int64      `json:"fee_amount"`
	DepositDay       *int       `json:"deposit_day,omitempty"` // 1-31
	IsActive         bool       `json:"is_active"`
	SuspendedAt      *time.Time `json:"suspended_at"`
	Notes            *string    `json:"notes,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// ActiveAt a student counts as active when not suspended, or suspended with an
// effective date strictly after now.
func (s *Student) ActiveAt(now time.Time) bool {
	return s.SuspendedAt == nil || s.SuspendedAt.After(now)
}

// InSchool reports whether the student is assigned to schoolID
func (s *Student) InSchool(schoolID string) bool {
	return s.SchoolID != nil && *s.SchoolID == schoolID
}

// HasParent reports whether a parent account is linked
func (s *Student) HasParent() bool {
	return s.ParentUserID != nil && *s.ParentUserID != ""
}
