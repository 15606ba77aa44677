package models

import "time"

// Department is the academic unit that offers a component.
type Department string

const (
	DepartmentDIMAP Department = "DIMAP"
	DepartmentDMAT  Department = "DMAT"
	DepartmentDEST  Department = "DEST"
	DepartmentDCA   Department = "DCA"
	DepartmentDFTE  Department = "DFTE"
	DepartmentECT   Department = "ECT"
)

// Departments lists every accepted department.
var Departments = []Department{DepartmentDIMAP, DepartmentDMAT, DepartmentDEST, DepartmentDCA, DepartmentDFTE, DepartmentECT}

// Valid reports whether d is one of the fixed departments.
func (d Department) Valid() bool {
	for _, known := range Departments {
		if d == known {
			return true
		}
	}
	return false
}

// CurricularComponent is a course identified by its seven character code.
// Semester 0 marks an elective.
type CurricularComponent struct {
	Code       string     `db:"code" json:"code"`
	Name       string     `db:"name" json:"name"`
	Semester   int        `db:"semester" json:"semester"`
	WeeklyLoad int        `db:"weekly_load" json:"weekly_load"`
	Department Department `db:"department" json:"department"`
	Mandatory  bool       `db:"mandatory" json:"mandatory"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

// ComponentFilter captures filtering options for listing components.
type ComponentFilter struct {
	Semester   *int
	Department string
	Mandatory  *bool
	Search     string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
