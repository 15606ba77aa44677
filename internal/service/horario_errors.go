package service

import (
	"errors"
	"fmt"

	"github.com/ufrn-horarios/horarios-api/pkg/database"
	appErrors "github.com/ufrn-horarios/horarios-api/pkg/errors"
	"github.com/ufrn-horarios/horarios-api/pkg/horario"
)

// scheduleError maps codec, load and cap errors to typed API errors that keep
// the offending input in Details.
func scheduleError(err error) error {
	var formatErr *horario.FormatError
	if errors.As(err, &formatErr) {
		msg := fmt.Sprintf("invalid schedule token %q at position %d: %s", formatErr.Token, formatErr.Position, formatErr.Reason)
		return appErrors.WithDetails(appErrors.ErrFormatInvalid, err, msg, formatErr)
	}

	var loadErr *horario.LoadMismatchError
	if errors.As(err, &loadErr) {
		msg := fmt.Sprintf("schedule has %d slots but a weekly load of %d requires %d", loadErr.Slots, loadErr.RequiredHours, loadErr.RequiredUnits)
		return appErrors.WithDetails(appErrors.ErrLoadMismatch, err, msg, loadErr)
	}

	var maxErr *horario.MaxHoursError
	if errors.As(err, &maxErr) {
		msg := fmt.Sprintf("professor %s has %.2f weekly hours, adding %.2f exceeds the limit of %.2f", maxErr.ProfessorID, maxErr.Committed, maxErr.Requested, maxErr.Max)
		return appErrors.WithDetails(appErrors.ErrMaxHoursExceeded, err, msg, maxErr)
	}

	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to process schedule")
}

// writeError maps a failed write, turning unique violations into DUPLICATE_KEY.
func writeError(err error, duplicateMsg, internalMsg string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if database.IsUniqueViolation(err) {
		return appErrors.Wrap(err, appErrors.ErrDuplicateKey.Code, appErrors.ErrDuplicateKey.Status, duplicateMsg)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internalMsg)
}
