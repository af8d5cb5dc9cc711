package models

import (
	"time"
)

// Profile is the department-specific record about a user kept in the
// profile store, separate from identity. This core only reads it.
type Profile struct {
	UserID     string    `json:"user_id" db:"user_id"`
	Email      string    `json:"email" db:"email"`
	FullName   string    `json:"full_name" db:"full_name"`
	Department string    `json:"department" db:"department"`
	University string    `json:"university" db:"university"`
	IsAdmin    bool      `json:"is_admin" db:"is_admin"`
	Active     bool      `json:"active" db:"active"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Profile model
func (Profile) TableName() string {
	return "profiles"
}

// MatchesInstitution reports whether the profile belongs to the expected
// department and university.
func (p *Profile) MatchesInstitution(department, university string) bool {
	return p.Department == department && p.University == university
}
