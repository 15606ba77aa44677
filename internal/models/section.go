package models

import "time"

// Section ("turma") is one offering of a component. Schedule is always stored
// in canonical encoded form.
type Section struct {
	ID            string    `db:"id" json:"id"`
	ComponentCode string    `db:"component_code" json:"component_code"`
	Number        int       `db:"number" json:"number"`
	Schedule      string    `db:"schedule" json:"schedule"`
	Seats         int       `db:"seats" json:"seats"`
	ProfessorIDs  []string  `db:"-" json:"professor_ids"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// SectionDetail is a section joined with the component attributes that
// scheduling rules depend on.
type SectionDetail struct {
	Section
	ComponentName string `db:"component_name" json:"component_name"`
	Semester      int    `db:"semester" json:"semester"`
	WeeklyLoad    int    `db:"weekly_load" json:"weekly_load"`
}

// SectionFilter narrows section listings. Zero values do not filter.
type SectionFilter struct {
	ComponentCode string
	Semester      *int
	ProfessorID   string
	Page          int
	PageSize      int
}
