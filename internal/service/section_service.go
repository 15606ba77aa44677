package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ufrn-horarios/horarios-api/internal/dto"
	"github.com/ufrn-horarios/horarios-api/internal/models"
	appErrors "github.com/ufrn-horarios/horarios-api/pkg/errors"
	"github.com/ufrn-horarios/horarios-api/pkg/horario"
)

type sectionRepository interface {
	List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.SectionDetail, error)
	LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.SectionDetail, error)
	LockByComponent(ctx context.Context, exec sqlx.ExtContext, code string) ([]models.SectionDetail, error)
	ExistsByNumber(ctx context.Context, componentCode string, number int, excludeID string) (bool, error)
	Create(ctx context.Context, exec sqlx.ExtContext, section *models.Section) error
	Update(ctx context.Context, exec sqlx.ExtContext, section *models.Section) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
	AddProfessor(ctx context.Context, exec sqlx.ExtContext, sectionID, professorID string) error
	RemoveProfessor(ctx context.Context, exec sqlx.ExtContext, sectionID, professorID string) error
	ReplaceProfessors(ctx context.Context, exec sqlx.ExtContext, sectionID string, ids []string) error
}

type componentFinder interface {
	FindByCode(ctx context.Context, code string) (*models.CurricularComponent, error)
	ShareByCode(ctx context.Context, exec sqlx.ExtContext, code string) (*models.CurricularComponent, error)
}

type professorFinder interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Professor, error)
}

type sectionEventSink interface {
	Dispatch(ctx context.Context, event dto.SectionEvent)
}

// SectionRequest captures the writable fields of a section.
type SectionRequest struct {
	ComponentCode string   `json:"component_code" validate:"required"`
	Number        int      `json:"number"`
	Schedule      string   `json:"schedule"`
	Seats         int      `json:"seats"`
	ProfessorIDs  []string `json:"professor_ids" validate:"omitempty,dive,required"`
}

// AssignProfessorRequest links a professor to a section.
type AssignProfessorRequest struct {
	ProfessorID string `json:"professor_id" validate:"required"`
}

// SectionService handles section workflows. Every mutation that touches
// professor assignments runs in one transaction together with the matching
// weekly hour updates, so either all of them apply or none do.
type SectionService struct {
	repo       sectionRepository
	components componentFinder
	professors professorFinder
	tracker    *ProfessorLoadTracker
	txManager  txProvider
	cache      *CacheService
	events     sectionEventSink
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewSectionService creates a section service.
func NewSectionService(repo sectionRepository, components componentFinder, professors professorFinder, tracker *ProfessorLoadTracker, txManager txProvider, cache *CacheService, events sectionEventSink, validate *validator.Validate, logger *zap.Logger) *SectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SectionService{
		repo:       repo,
		components: components,
		professors: professors,
		tracker:    tracker,
		txManager:  txManager,
		cache:      cache,
		events:     events,
		validator:  validate,
		logger:     logger,
	}
}

// List returns paginated sections.
func (s *SectionService) List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, *models.Pagination, error) {
	filter.ComponentCode = normalizeCode(filter.ComponentCode)
	sections, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	return sections, buildPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a section by id.
func (s *SectionService) Get(ctx context.Context, id string) (*models.SectionDetail, error) {
	section, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, sectionLoadError(err)
	}
	return section, nil
}

// Create validates and stores a section, charging its unit hours to every
// assigned professor.
func (s *SectionService) Create(ctx context.Context, req SectionRequest) (*models.SectionDetail, error) {
	component, schedule, professorIDs, err := s.prepare(ctx, req, "")
	if err != nil {
		return nil, err
	}

	section := &models.Section{
		ComponentCode: component.Code,
		Number:        req.Number,
		Schedule:      schedule,
		Seats:         req.Seats,
		ProfessorIDs:  professorIDs,
	}
	err = runInTx(ctx, s.txManager, func(tx *sqlx.Tx) error {
		locked, err := s.shareComponent(ctx, tx, component.Code, schedule)
		if err != nil {
			return err
		}
		component = locked
		unit := horario.UnitHours(component.WeeklyLoad)

		if err := s.repo.Create(ctx, tx, section); err != nil {
			return writeError(err, "section number already used for this component", "failed to create section")
		}
		if err := s.repo.ReplaceProfessors(ctx, tx, section.ID, professorIDs); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign professors")
		}
		for _, id := range professorIDs {
			if _, err := s.tracker.Assign(ctx, tx, id, unit); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	detail := sectionDetail(section, component)
	s.afterCommit(ctx, dto.SectionCreated, detail)
	return detail, nil
}

// Update replaces a section's fields and reconciles professor hours: removed
// professors are released, added ones charged, and kept ones charged the
// difference when the unit hours change.
func (s *SectionService) Update(ctx context.Context, id string, req SectionRequest) (*models.SectionDetail, error) {
	component, schedule, professorIDs, err := s.prepare(ctx, req, id)
	if err != nil {
		return nil, err
	}

	section := &models.Section{
		ID:            id,
		ComponentCode: component.Code,
		Number:        req.Number,
		Schedule:      schedule,
		Seats:         req.Seats,
		ProfessorIDs:  professorIDs,
	}
	err = runInTx(ctx, s.txManager, func(tx *sqlx.Tx) error {
		locked, err := s.shareComponent(ctx, tx, component.Code, schedule)
		if err != nil {
			return err
		}
		component = locked
		newUnit := horario.UnitHours(component.WeeklyLoad)

		existing, err := s.repo.LockByID(ctx, tx, id)
		if err != nil {
			return sectionLoadError(err)
		}
		section.CreatedAt = existing.CreatedAt
		oldUnit := horario.UnitHours(existing.WeeklyLoad)

		oldSet := toSet(existing.ProfessorIDs)
		newSet := toSet(professorIDs)
		for _, pid := range unionSorted(existing.ProfessorIDs, professorIDs) {
			_, wasAssigned := oldSet[pid]
			_, isAssigned := newSet[pid]
			switch {
			case wasAssigned && !isAssigned:
				if _, err := s.tracker.Unassign(ctx, tx, pid, oldUnit); err != nil {
					return err
				}
			case !wasAssigned && isAssigned:
				if _, err := s.tracker.Assign(ctx, tx, pid, newUnit); err != nil {
					return err
				}
			case newUnit > oldUnit:
				if _, err := s.tracker.Assign(ctx, tx, pid, newUnit-oldUnit); err != nil {
					return err
				}
			case newUnit < oldUnit:
				if _, err := s.tracker.Unassign(ctx, tx, pid, oldUnit-newUnit); err != nil {
					return err
				}
			}
		}

		if err := s.repo.Update(ctx, tx, section); err != nil {
			return writeError(err, "section number already used for this component", "failed to update section")
		}
		if err := s.repo.ReplaceProfessors(ctx, tx, id, professorIDs); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign professors")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	detail := sectionDetail(section, component)
	s.afterCommit(ctx, dto.SectionUpdated, detail)
	return detail, nil
}

// Delete removes a section and releases the hours of its professors.
func (s *SectionService) Delete(ctx context.Context, id string) error {
	var deleted *models.SectionDetail
	err := runInTx(ctx, s.txManager, func(tx *sqlx.Tx) error {
		existing, err := s.repo.LockByID(ctx, tx, id)
		if err != nil {
			return sectionLoadError(err)
		}
		unit := horario.UnitHours(existing.WeeklyLoad)
		for _, pid := range sortedCopy(existing.ProfessorIDs) {
			if _, err := s.tracker.Unassign(ctx, tx, pid, unit); err != nil {
				return err
			}
		}
		if err := s.repo.Delete(ctx, tx, id); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete section")
		}
		deleted = existing
		return nil
	})
	if err != nil {
		return err
	}

	s.afterCommit(ctx, dto.SectionDeleted, deleted)
	return nil
}

// AddProfessor assigns one professor to a section. Assigning a professor who
// is already linked is a no-op.
func (s *SectionService) AddProfessor(ctx context.Context, sectionID string, req AssignProfessorRequest) (*models.SectionDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	professorID := strings.TrimSpace(req.ProfessorID)
	if err := s.ensureProfessorsExist(ctx, []string{professorID}); err != nil {
		return nil, err
	}

	var (
		section *models.SectionDetail
		changed bool
	)
	err := runInTx(ctx, s.txManager, func(tx *sqlx.Tx) error {
		existing, err := s.repo.LockByID(ctx, tx, sectionID)
		if err != nil {
			return sectionLoadError(err)
		}
		section = existing
		if containsString(existing.ProfessorIDs, professorID) {
			return nil
		}
		if _, err := s.tracker.Assign(ctx, tx, professorID, horario.UnitHours(existing.WeeklyLoad)); err != nil {
			return err
		}
		if err := s.repo.AddProfessor(ctx, tx, sectionID, professorID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign professor")
		}
		section.ProfessorIDs = sortedCopy(append(section.ProfessorIDs, professorID))
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.afterCommit(ctx, dto.SectionProfessorAdded, section)
	}
	return section, nil
}

// RemoveProfessor unlinks a professor from a section and releases the hours.
func (s *SectionService) RemoveProfessor(ctx context.Context, sectionID, professorID string) (*models.SectionDetail, error) {
	var section *models.SectionDetail
	err := runInTx(ctx, s.txManager, func(tx *sqlx.Tx) error {
		existing, err := s.repo.LockByID(ctx, tx, sectionID)
		if err != nil {
			return sectionLoadError(err)
		}
		if !containsString(existing.ProfessorIDs, professorID) {
			return appErrors.Clone(appErrors.ErrNotFound, "professor not assigned to section")
		}
		if _, err := s.tracker.Unassign(ctx, tx, professorID, horario.UnitHours(existing.WeeklyLoad)); err != nil {
			return err
		}
		if err := s.repo.RemoveProfessor(ctx, tx, sectionID, professorID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove professor")
		}
		remaining := make([]string, 0, len(existing.ProfessorIDs))
		for _, id := range existing.ProfessorIDs {
			if id != professorID {
				remaining = append(remaining, id)
			}
		}
		existing.ProfessorIDs = remaining
		section = existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, dto.SectionProfessorRemoved, section)
	return section, nil
}

// ReleaseComponentSections deletes every section of a component inside exec,
// releasing professor hours once per professor in id order.
func (s *SectionService) ReleaseComponentSections(ctx context.Context, exec sqlx.ExtContext, code string) ([]models.SectionDetail, error) {
	sections, err := s.repo.LockByComponent(ctx, exec, code)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load component sections")
	}

	release := make(map[string]float64)
	for _, section := range sections {
		unit := horario.UnitHours(section.WeeklyLoad)
		for _, pid := range section.ProfessorIDs {
			release[pid] += unit
		}
	}
	ids := make([]string, 0, len(release))
	for id := range release {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if _, err := s.tracker.Unassign(ctx, exec, id, release[id]); err != nil {
			return nil, err
		}
	}

	for _, section := range sections {
		if err := s.repo.Delete(ctx, exec, section.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete section")
		}
	}
	return sections, nil
}

// NotifyDeleted emits deletion events for sections removed with their component.
func (s *SectionService) NotifyDeleted(ctx context.Context, sections []models.SectionDetail) {
	for i := range sections {
		s.dispatch(ctx, dto.SectionDeleted, &sections[i])
	}
}

// prepare validates req and returns the component, the canonical schedule and
// the sorted, de-duplicated professor ids.
func (s *SectionService) prepare(ctx context.Context, req SectionRequest, excludeID string) (*models.CurricularComponent, string, []string, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, "", nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}

	component, err := s.components.FindByCode(ctx, normalizeCode(req.ComponentCode))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", nil, appErrors.Clone(appErrors.ErrNotFound, "component not found")
		}
		return nil, "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load component")
	}

	if req.Number <= 0 {
		return nil, "", nil, appErrors.Clone(appErrors.ErrValidation, "section number must be positive")
	}
	exists, err := s.repo.ExistsByNumber(ctx, component.Code, req.Number, excludeID)
	if err != nil {
		return nil, "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check section number")
	}
	if exists {
		return nil, "", nil, appErrors.Clone(appErrors.ErrDuplicateKey, "section number already used for this component")
	}
	if req.Seats < 0 {
		return nil, "", nil, appErrors.Clone(appErrors.ErrValidation, "seats must not be negative")
	}

	set, err := horario.Decode(req.Schedule)
	if err != nil {
		return nil, "", nil, scheduleError(err)
	}
	if err := horario.ValidateLoad(set, component.WeeklyLoad); err != nil {
		return nil, "", nil, scheduleError(err)
	}

	professorIDs := dedupeSorted(req.ProfessorIDs)
	if err := s.ensureProfessorsExist(ctx, professorIDs); err != nil {
		return nil, "", nil, err
	}
	return component, horario.Encode(set), professorIDs, nil
}

// shareComponent re-reads the component inside exec under a share lock and
// checks schedule against the load it holds until commit.
func (s *SectionService) shareComponent(ctx context.Context, exec sqlx.ExtContext, code, schedule string) (*models.CurricularComponent, error) {
	component, err := s.components.ShareByCode(ctx, exec, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "component not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load component")
	}
	set, err := horario.Decode(schedule)
	if err != nil {
		return nil, scheduleError(err)
	}
	if err := horario.ValidateLoad(set, component.WeeklyLoad); err != nil {
		return nil, scheduleError(err)
	}
	return component, nil
}

func (s *SectionService) ensureProfessorsExist(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := s.professors.FindByIDs(ctx, ids)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professors")
	}
	if len(found) == len(ids) {
		return nil
	}
	known := make(map[string]struct{}, len(found))
	for _, p := range found {
		known[p.ID] = struct{}{}
	}
	var missing []string
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			missing = append(missing, id)
		}
	}
	return appErrors.WithDetails(appErrors.ErrNotFound, nil, "professor not found", map[string]interface{}{"professor_ids": missing})
}

func (s *SectionService) afterCommit(ctx context.Context, action dto.SectionAction, section *models.SectionDetail) {
	s.cache.InvalidateSchedules(ctx)
	s.dispatch(ctx, action, section)
}

func (s *SectionService) dispatch(ctx context.Context, action dto.SectionAction, section *models.SectionDetail) {
	if s.events == nil || section == nil {
		return
	}
	s.events.Dispatch(ctx, dto.SectionEvent{
		Action:        action,
		SectionID:     section.ID,
		ComponentCode: section.ComponentCode,
		Number:        section.Number,
		Schedule:      section.Schedule,
		ProfessorIDs:  section.ProfessorIDs,
		At:            time.Now().UTC(),
	})
}

func sectionLoadError(err error) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "section not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
}

func sectionDetail(section *models.Section, component *models.CurricularComponent) *models.SectionDetail {
	return &models.SectionDetail{
		Section:       *section,
		ComponentName: component.Name,
		Semester:      component.Semester,
		WeeklyLoad:    component.WeeklyLoad,
	}
}

func dedupeSorted(values []string) []string {
	set := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := set[v]; ok {
			continue
		}
		set[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func sortedCopy(values []string) []string {
	out := append([]string(nil), values...)
	sort.Strings(out)
	return out
}

func unionSorted(a, b []string) []string {
	return dedupeSorted(append(append([]string(nil), a...), b...))
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
