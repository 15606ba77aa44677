package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ufrn-horarios/horarios-api/internal/models"
	appErrors "github.com/ufrn-horarios/horarios-api/pkg/errors"
)

type professorRepository interface {
	List(ctx context.Context, filter models.ProfessorFilter) ([]models.Professor, int, error)
	FindByID(ctx context.Context, id string) (*models.Professor, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	Create(ctx context.Context, professor *models.Professor) error
	UpdateName(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error
}

// ProfessorRequest captures the writable professor fields. Weekly hours are
// owned by section assignments and any submitted value is ignored.
type ProfessorRequest struct {
	Name        string   `json:"name" validate:"required"`
	WeeklyHours *float64 `json:"weekly_hours,omitempty"`
}

// ProfessorService handles professor workflows.
type ProfessorService struct {
	repo      professorRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfessorService creates a professor service.
func NewProfessorService(repo professorRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ProfessorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfessorService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns paginated professors.
func (s *ProfessorService) List(ctx context.Context, filter models.ProfessorFilter) ([]models.Professor, *models.Pagination, error) {
	filter.Search = strings.ToUpper(strings.TrimSpace(filter.Search))
	professors, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list professors")
	}
	return professors, buildPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a professor by id.
func (s *ProfessorService) Get(ctx context.Context, id string) (*models.Professor, error) {
	professor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "professor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor")
	}
	return professor, nil
}

// Create registers a professor with zero committed hours.
func (s *ProfessorService) Create(ctx context.Context, req ProfessorRequest) (*models.Professor, error) {
	name, err := s.normalizeRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, name, ""); err != nil {
		return nil, err
	}

	professor := &models.Professor{Name: name, WeeklyHours: 0}
	if err := s.repo.Create(ctx, professor); err != nil {
		return nil, writeError(err, "professor name already exists", "failed to create professor")
	}
	return professor, nil
}

// Update renames a professor. Committed hours are left untouched.
func (s *ProfessorService) Update(ctx context.Context, id string, req ProfessorRequest) (*models.Professor, error) {
	name, err := s.normalizeRequest(req)
	if err != nil {
		return nil, err
	}

	professor, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, name, id); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateName(ctx, id, name); err != nil {
		return nil, writeError(err, "professor name already exists", "failed to update professor")
	}
	professor.Name = name
	s.cache.InvalidateSchedules(ctx)
	return professor, nil
}

// Delete removes a professor and their section assignments.
func (s *ProfessorService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete professor")
	}
	s.cache.InvalidateSchedules(ctx)
	return nil
}

func (s *ProfessorService) normalizeRequest(req ProfessorRequest) (string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid professor payload")
	}
	name := NormalizeProfessorName(req.Name)
	if err := validateName(name, "professor"); err != nil {
		return "", err
	}
	return name, nil
}

func (s *ProfessorService) ensureUniqueName(ctx context.Context, name, excludeID string) error {
	exists, err := s.repo.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check professor name")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrDuplicateKey, "professor name already exists")
	}
	return nil
}

// NormalizeProfessorName collapses whitespace and upper-cases the name.
func NormalizeProfessorName(name string) string {
	return strings.ToUpper(collapseSpaces(name))
}
