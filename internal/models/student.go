package models

import "time"

// StudentStatus is the enrollment state of a student.
type StudentStatus string

const (
	StudentStatusActive   StudentStatus = "active"
	StudentStatusInactive StudentStatus = "inactive"
)

// Valid reports whether the status is one of the known values.
func (s StudentStatus) Valid() bool {
	return s == StudentStatusActive || s == StudentStatusInactive
}

// Toggled returns the opposite status.
func (s StudentStatus) Toggled() StudentStatus {
	if s == StudentStatusActive {
		return StudentStatusInactive
	}
	return StudentStatusActive
}

// DateLayout is the calendar date format used in payloads and exports.
const DateLayout = "2006-01-02"

// Student represents one enrolled student owned by a teacher.
type Student struct {
	ID             string        `db:"id" json:"id"`
	UserID         string        `db:"user_id" json:"user_id"`
	FirstName      string        `db:"first_name" json:"first_name"`
	LastName       string        `db:"last_name" json:"last_name"`
	Phone          string        `db:"phone" json:"phone"`
	EnrollmentDate time.Time     `db:"enrollment_date" json:"enrollment_date"`
	Status         StudentStatus `db:"status" json:"status"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}

// CreateStudentData is a validated row ready to be persisted.
type CreateStudentData struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	UserID    string
	Search    string
	Status    *StudentStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
