package horario

// MinutesPerUnit is the weekly hour load represented by one atomic slot.
const MinutesPerUnit = 15

// DefaultMaxWeeklyHours is the professor cap used when none is configured.
const DefaultMaxWeeklyHours = 20.0

// Units converts a weekly hour load into the number of atomic slots it needs.
// It reports false when the load is not a positive multiple of MinutesPerUnit.
func Units(weeklyLoad int) (int, bool) {
	if weeklyLoad <= 0 || weeklyLoad%MinutesPerUnit != 0 {
		return 0, false
	}
	return weeklyLoad / MinutesPerUnit, true
}

// ValidateLoad requires the slot count to equal exactly the units of the
// component's weekly hour load.
func ValidateLoad(set Set, requiredHours int) error {
	units, ok := Units(requiredHours)
	if !ok || set.Len() != units {
		return &LoadMismatchError{Slots: set.Len(), RequiredHours: requiredHours, RequiredUnits: units}
	}
	return nil
}

// UnitHours is the amount a section charges to each assigned professor.
func UnitHours(weeklyLoad int) float64 {
	return float64(weeklyLoad) / MinutesPerUnit
}

// Assign returns the committed hours after charging unitHours, or a
// *MaxHoursError when the result would exceed max. Nothing is charged on error.
func Assign(committed, unitHours, max float64) (float64, error) {
	next := committed + unitHours
	if next > max {
		return committed, &MaxHoursError{Committed: committed, Requested: unitHours, Max: max}
	}
	return next, nil
}

// Unassign releases unitHours, clamping at zero.
func Unassign(committed, unitHours float64) float64 {
	next := committed - unitHours
	if next < 0 {
		return 0
	}
	return next
}
