package horario

import (
	"errors"
	"fmt"
)

var (
	// ErrFormatInvalid matches every malformed schedule token.
	ErrFormatInvalid = errors.New("horario: invalid schedule format")
	// ErrLoadMismatch matches a slot count that differs from the required weekly load.
	ErrLoadMismatch = errors.New("horario: slot count does not match weekly load")
	// ErrMaxHoursExceeded matches an assignment that would break the professor hour cap.
	ErrMaxHoursExceeded = errors.New("horario: professor weekly hour cap exceeded")
)

// FormatError describes the first offending token of a schedule string.
type FormatError struct {
	Token    string `json:"token"`
	Position int    `json:"position"`
	Reason   string `json:"reason"`
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("horario: invalid token %q at position %d: %s", e.Token, e.Position, e.Reason)
}

// Is makes errors.Is(err, ErrFormatInvalid) hold.
func (e *FormatError) Is(target error) bool {
	return target == ErrFormatInvalid
}

// LoadMismatchError carries both sides of a failed load comparison.
type LoadMismatchError struct {
	Slots         int `json:"slots"`
	RequiredHours int `json:"required_hours"`
	RequiredUnits int `json:"required_units"`
}

func (e *LoadMismatchError) Error() string {
	return fmt.Sprintf("horario: schedule has %d slots, weekly load of %dh requires %d", e.Slots, e.RequiredHours, e.RequiredUnits)
}

// Is makes errors.Is(err, ErrLoadMismatch) hold.
func (e *LoadMismatchError) Is(target error) bool {
	return target == ErrLoadMismatch
}

// MaxHoursError reports a rejected assignment. Committed is the value read
// immediately before the check.
type MaxHoursError struct {
	ProfessorID string  `json:"professor_id,omitempty"`
	Committed   float64 `json:"committed"`
	Requested   float64 `json:"requested"`
	Max         float64 `json:"max"`
}

func (e *MaxHoursError) Error() string {
	return fmt.Sprintf("horario: professor %s has %.1fh committed, adding %.1fh exceeds %.1fh", e.ProfessorID, e.Committed, e.Requested, e.Max)
}

// Is makes errors.Is(err, ErrMaxHoursExceeded) hold.
func (e *MaxHoursError) Is(target error) bool {
	return target == ErrMaxHoursExceeded
}
