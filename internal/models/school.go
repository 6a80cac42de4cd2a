package models

import "time"

// School groups the students a van operator serves at one campus.
type School struct {
	ID        string    `db:"id" json:"id"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SchoolSummary adds the number of students attached to a school.
type SchoolSummary struct {
	School
	StudentCount int `db:"student_count" json:"student_count"`
}

// CreateSchoolRequest is the payload for adding a school.
type CreateSchoolRequest struct {
	Name string `json:"name" validate:"required,max=150"`
}
