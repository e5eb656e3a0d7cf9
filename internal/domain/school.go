package domain

import "time"

// School 학교 (schools collection)
type School struct {
	SchoolID          string    `json:"school_id"`
	Name              string    `json:"name"`
	Address           *string   `json:"address,omitempty"`
	DefaultMonthlyFee int64     `json:"default_monthly_fee"`
	Note              *string   `json:"note,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// AllSchools sentinel school id selecting every school
const AllSchools = "ALL"
