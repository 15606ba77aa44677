package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ufrn-horarios/horarios-api/internal/models"
	appErrors "github.com/ufrn-horarios/horarios-api/pkg/errors"
	"github.com/ufrn-horarios/horarios-api/pkg/horario"
)

type professorHoursStore interface {
	LockForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Professor, error)
	UpdateWeeklyHours(ctx context.Context, exec sqlx.ExtContext, id string, hours float64) error
}

// ProfessorLoadTracker keeps professors' committed weekly hours in step with
// their section assignments. Every change reads the professor row under
// SELECT ... FOR UPDATE inside the caller's transaction, so concurrent
// transactions serialize on the row until the first one ends. The same
// transaction may touch a professor any number of times.
type ProfessorLoadTracker struct {
	store    professorHoursStore
	maxHours float64
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewProfessorLoadTracker builds a tracker. A non-positive maxHours falls back
// to horario.DefaultMaxWeeklyHours.
func NewProfessorLoadTracker(store professorHoursStore, maxHours float64, metrics *MetricsService, logger *zap.Logger) *ProfessorLoadTracker {
	if maxHours <= 0 {
		maxHours = horario.DefaultMaxWeeklyHours
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfessorLoadTracker{store: store, maxHours: maxHours, metrics: metrics, logger: logger}
}

// MaxHours returns the configured cap.
func (t *ProfessorLoadTracker) MaxHours() float64 {
	return t.maxHours
}

// Assign charges unitHours to the professor, failing with MAX_HOURS_EXCEEDED
// and leaving the row untouched when the cap would be exceeded.
func (t *ProfessorLoadTracker) Assign(ctx context.Context, exec sqlx.ExtContext, professorID string, unitHours float64) (float64, error) {
	professor, err := t.load(ctx, exec, professorID)
	if err != nil {
		return 0, err
	}

	next, err := horario.Assign(professor.WeeklyHours, unitHours, t.maxHours)
	if err != nil {
		var maxErr *horario.MaxHoursError
		if errors.As(err, &maxErr) {
			maxErr.ProfessorID = professorID
		}
		t.metrics.RecordAssignmentRejected()
		t.logger.Debug("assignment rejected by hour cap", zap.String("professor_id", professorID), zap.Float64("committed", professor.WeeklyHours), zap.Float64("requested", unitHours))
		return professor.WeeklyHours, scheduleError(err)
	}

	if err := t.store.UpdateWeeklyHours(ctx, exec, professorID, next); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update professor hours")
	}
	return next, nil
}

// Unassign releases unitHours, never going below zero.
func (t *ProfessorLoadTracker) Unassign(ctx context.Context, exec sqlx.ExtContext, professorID string, unitHours float64) (float64, error) {
	professor, err := t.load(ctx, exec, professorID)
	if err != nil {
		return 0, err
	}

	next := horario.Unassign(professor.WeeklyHours, unitHours)
	if professor.WeeklyHours < unitHours {
		t.logger.Warn("professor hours clamped at zero", zap.String("professor_id", professorID), zap.Float64("committed", professor.WeeklyHours), zap.Float64("released", unitHours))
	}
	if err := t.store.UpdateWeeklyHours(ctx, exec, professorID, next); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update professor hours")
	}
	return next, nil
}

func (t *ProfessorLoadTracker) load(ctx context.Context, exec sqlx.ExtContext, professorID string) (*models.Professor, error) {
	professor, err := t.store.LockForUpdate(ctx, exec, professorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "professor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor")
	}
	return professor, nil
}
