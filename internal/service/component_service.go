package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ufrn-horarios/horarios-api/internal/models"
	appErrors "github.com/ufrn-horarios/horarios-api/pkg/errors"
	"github.com/ufrn-horarios/horarios-api/pkg/horario"
)

const maxNameLength = 80

var componentCodePattern = regexp.MustCompile(`^[A-Z]{3}[0-9]{4}$`)

type componentRepository interface {
	List(ctx context.Context, filter models.ComponentFilter) ([]models.CurricularComponent, int, error)
	FindByCode(ctx context.Context, code string) (*models.CurricularComponent, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, component *models.CurricularComponent) error
	LockByCode(ctx context.Context, exec sqlx.ExtContext, code string) (*models.CurricularComponent, error)
	Update(ctx context.Context, exec sqlx.ExtContext, component *models.CurricularComponent) error
	Delete(ctx context.Context, exec sqlx.ExtContext, code string) error
}

type componentSectionReader interface {
	LockByComponent(ctx context.Context, exec sqlx.ExtContext, code string) ([]models.SectionDetail, error)
}

// componentSectionReleaser frees the professor hours held by a component's
// sections before the component is removed.
type componentSectionReleaser interface {
	ReleaseComponentSections(ctx context.Context, exec sqlx.ExtContext, code string) ([]models.SectionDetail, error)
	NotifyDeleted(ctx context.Context, sections []models.SectionDetail)
}

// CreateComponentRequest captures fields for creating components.
type CreateComponentRequest struct {
	Code       string `json:"code" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Semester   int    `json:"semester" validate:"min=0,max=6"`
	WeeklyLoad int    `json:"weekly_load" validate:"required"`
	Department string `json:"department" validate:"required"`
	Mandatory  bool   `json:"mandatory"`
}

// UpdateComponentRequest modifies component fields. The code is immutable.
type UpdateComponentRequest struct {
	Name       string `json:"name" validate:"required"`
	Semester   int    `json:"semester" validate:"min=0,max=6"`
	WeeklyLoad int    `json:"weekly_load" validate:"required"`
	Department string `json:"department" validate:"required"`
	Mandatory  bool   `json:"mandatory"`
}

// ComponentService handles curricular component workflows.
type ComponentService struct {
	repo      componentRepository
	sections  componentSectionReader
	releaser  componentSectionReleaser
	txManager txProvider
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewComponentService creates a component service.
func NewComponentService(repo componentRepository, sections componentSectionReader, releaser componentSectionReleaser, txManager txProvider, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ComponentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ComponentService{
		repo:      repo,
		sections:  sections,
		releaser:  releaser,
		txManager: txManager,
		cache:     cache,
		validator: validate,
		logger:    logger,
	}
}

// List returns paginated components.
func (s *ComponentService) List(ctx context.Context, filter models.ComponentFilter) ([]models.CurricularComponent, *models.Pagination, error) {
	components, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list components")
	}
	return components, buildPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a component by code.
func (s *ComponentService) Get(ctx context.Context, code string) (*models.CurricularComponent, error) {
	component, err := s.repo.FindByCode(ctx, normalizeCode(code))
	if err != nil {
		return nil, componentLoadError(err)
	}
	return component, nil
}

// Create registers a new component.
func (s *ComponentService) Create(ctx context.Context, req CreateComponentRequest) (*models.CurricularComponent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid component payload")
	}

	component := &models.CurricularComponent{
		Code:       normalizeCode(req.Code),
		Name:       collapseSpaces(req.Name),
		Semester:   req.Semester,
		WeeklyLoad: req.WeeklyLoad,
		Department: models.Department(strings.ToUpper(strings.TrimSpace(req.Department))),
		Mandatory:  req.Mandatory,
	}
	if !componentCodePattern.MatchString(component.Code) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "component code must be three letters followed by four digits")
	}
	if err := validateComponentFields(component); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByCode(ctx, component.Code)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check component code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrDuplicateKey, "component code already exists")
	}

	if err := s.repo.Create(ctx, component); err != nil {
		return nil, writeError(err, "component code already exists", "failed to create component")
	}
	return component, nil
}

// Update modifies a component. A weekly load change is refused while any of
// the component's sections would stop matching it. The component row stays
// locked until commit, so sections cannot be created against the old load.
func (s *ComponentService) Update(ctx context.Context, code string, req UpdateComponentRequest) (*models.CurricularComponent, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid component payload")
	}

	var component *models.CurricularComponent
	err := runInTx(ctx, s.txManager, func(tx *sqlx.Tx) error {
		current, err := s.repo.LockByCode(ctx, tx, normalizeCode(code))
		if err != nil {
			return componentLoadError(err)
		}

		previousLoad := current.WeeklyLoad
		current.Name = collapseSpaces(req.Name)
		current.Semester = req.Semester
		current.WeeklyLoad = req.WeeklyLoad
		current.Department = models.Department(strings.ToUpper(strings.TrimSpace(req.Department)))
		current.Mandatory = req.Mandatory
		if err := validateComponentFields(current); err != nil {
			return err
		}

		if current.WeeklyLoad != previousLoad && s.sections != nil {
			sections, err := s.sections.LockByComponent(ctx, tx, current.Code)
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load component sections")
			}
			for _, section := range sections {
				set, err := horario.Decode(section.Schedule)
				if err != nil {
					return scheduleError(err)
				}
				if err := horario.ValidateLoad(set, current.WeeklyLoad); err != nil {
					return scheduleError(err)
				}
			}
		}

		if err := s.repo.Update(ctx, tx, current); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update component")
		}
		component = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateSchedules(ctx)
	return component, nil
}

// Delete removes a component together with its sections, releasing the
// hours their professors held.
func (s *ComponentService) Delete(ctx context.Context, code string) error {
	var (
		component *models.CurricularComponent
		released  []models.SectionDetail
	)
	err := runInTx(ctx, s.txManager, func(tx *sqlx.Tx) error {
		locked, err := s.repo.LockByCode(ctx, tx, normalizeCode(code))
		if err != nil {
			return componentLoadError(err)
		}
		component = locked
		if s.releaser != nil {
			sections, err := s.releaser.ReleaseComponentSections(ctx, tx, component.Code)
			if err != nil {
				return err
			}
			released = sections
		}
		if err := s.repo.Delete(ctx, tx, component.Code); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete component")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("component deleted", zap.String("code", component.Code), zap.Int("sections", len(released)))
	s.cache.InvalidateSchedules(ctx)
	if s.releaser != nil && len(released) > 0 {
		s.releaser.NotifyDeleted(ctx, released)
	}
	return nil
}

func componentLoadError(err error) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "component not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load component")
}

func validateComponentFields(component *models.CurricularComponent) error {
	if err := validateName(component.Name, "component"); err != nil {
		return err
	}
	if component.Semester < 0 || component.Semester > 6 {
		return appErrors.Clone(appErrors.ErrValidation, "semester must be between 0 and 6")
	}
	if _, ok := horario.Units(component.WeeklyLoad); !ok {
		return appErrors.Clone(appErrors.ErrValidation, "weekly load must be a positive multiple of 15")
	}
	if !component.Department.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown department")
	}
	if component.Mandatory && component.Semester == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "mandatory components need a semester between 1 and 6")
	}
	return nil
}

// validateName accepts letters and single spaces up to maxNameLength runes.
func validateName(name, kind string) error {
	if name == "" {
		return appErrors.Clone(appErrors.ErrValidation, kind+" name is required")
	}
	if len([]rune(name)) > maxNameLength {
		return appErrors.Clone(appErrors.ErrValidation, kind+" name must have at most 80 characters")
	}
	for _, r := range name {
		if r != ' ' && !unicode.IsLetter(r) {
			return appErrors.Clone(appErrors.ErrValidation, kind+" name must contain only letters and spaces")
		}
	}
	return nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func collapseSpaces(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

func buildPagination(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
