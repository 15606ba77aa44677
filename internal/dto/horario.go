package dto

import (
	"time"

	"github.com/ufrn-horarios/horarios-api/pkg/horario"
)

// DecodeScheduleRequest carries a raw schedule string to be checked.
type DecodeScheduleRequest struct {
	Schedule   string `json:"schedule"`
	WeeklyLoad *int   `json:"weekly_load,omitempty" validate:"omitempty,min=15"`
}

// DecodeScheduleResponse shows how a schedule string expands.
type DecodeScheduleResponse struct {
	Input     string         `json:"input"`
	Canonical string         `json:"canonical"`
	Slots     []horario.Slot `json:"slots"`
	Units     int            `json:"units"`
	Hours     int            `json:"hours"`
	LoadMatch *bool          `json:"load_match,omitempty"`
}

// SectionRef identifies a section in schedule listings and conflict reports.
type SectionRef struct {
	ID            string `json:"id"`
	ComponentCode string `json:"component_code"`
	Number        int    `json:"number"`
}

// SectionSchedule is one row of the horarios listings.
type SectionSchedule struct {
	SectionRef
	ComponentName string   `json:"component_name"`
	Semester      int      `json:"semester"`
	Schedule      string   `json:"schedule"`
	ProfessorIDs  []string `json:"professor_ids"`
}

// ConflictView reports two sections that share slots. Schedule holds the
// shared slots in canonical notation.
type ConflictView struct {
	SectionA SectionRef     `json:"section_a"`
	SectionB SectionRef     `json:"section_b"`
	Schedule string         `json:"schedule"`
	Reason   horario.Reason `json:"reason"`
}

// ConflictReport is the result of a full conflict scan.
type ConflictReport struct {
	Conflicts   []ConflictView `json:"conflicts"`
	Total       int            `json:"total"`
	BySemester  int            `json:"by_semester"`
	ByProfessor int            `json:"by_professor"`
	Sections    int            `json:"sections"`
	GeneratedAt time.Time      `json:"generated_at"`
}
