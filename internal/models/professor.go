package models

import "time"

// Professor holds the upper-cased unique name and the weekly hours committed
// through section assignments.
type Professor struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	WeeklyHours float64   `db:"weekly_hours" json:"weekly_hours"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ProfessorFilter captures filtering options for listing professors.
type ProfessorFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
