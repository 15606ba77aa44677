package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ufrn-horarios/horarios-api/internal/dto"
	"github.com/ufrn-horarios/horarios-api/internal/models"
	appErrors "github.com/ufrn-horarios/horarios-api/pkg/errors"
	"github.com/ufrn-horarios/horarios-api/pkg/horario"
)

type scheduleSectionReader interface {
	Search(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, error)
	ListAll(ctx context.Context) ([]models.SectionDetail, error)
}

type scheduleProfessorReader interface {
	FindByID(ctx context.Context, id string) (*models.Professor, error)
}

// ScheduleService serves read-only timetable views: schedule decoding, the
// per component, semester and professor listings, and the conflict report.
type ScheduleService struct {
	sections    scheduleSectionReader
	components  componentFinder
	professors  scheduleProfessorReader
	cache       *CacheService
	metrics     *MetricsService
	conflictTTL time.Duration
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewScheduleService constructs the schedule view service.
func NewScheduleService(sections scheduleSectionReader, components componentFinder, professors scheduleProfessorReader, cache *CacheService, metrics *MetricsService, conflictTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		sections:    sections,
		components:  components,
		professors:  professors,
		cache:       cache,
		metrics:     metrics,
		conflictTTL: conflictTTL,
		validator:   validate,
		logger:      logger,
	}
}

// Decode expands a schedule string and, when a weekly load is given, reports
// whether the slot count matches it.
func (s *ScheduleService) Decode(ctx context.Context, req dto.DecodeScheduleRequest) (*dto.DecodeScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decode payload")
	}

	set, err := horario.Decode(req.Schedule)
	if err != nil {
		return nil, scheduleError(err)
	}

	resp := &dto.DecodeScheduleResponse{
		Input:     req.Schedule,
		Canonical: horario.Encode(set),
		Slots:     set.Slots(),
		Units:     set.Len(),
		Hours:     set.Len() * horario.MinutesPerUnit,
	}
	if req.WeeklyLoad != nil {
		if _, ok := horario.Units(*req.WeeklyLoad); !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "weekly load must be a positive multiple of 15")
		}
		match := horario.ValidateLoad(set, *req.WeeklyLoad) == nil
		resp.LoadMatch = &match
	}
	return resp, nil
}

// ListByComponent returns the schedules of a component's sections.
func (s *ScheduleService) ListByComponent(ctx context.Context, code string) ([]dto.SectionSchedule, bool, error) {
	code = normalizeCode(code)
	if _, err := s.components.FindByCode(ctx, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "component not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load component")
	}
	return s.listCached(ctx, cacheKeyByComponent+code, models.SectionFilter{ComponentCode: code})
}

// ListBySemester returns the schedules of every section offered in semester.
func (s *ScheduleService) ListBySemester(ctx context.Context, semester int) ([]dto.SectionSchedule, bool, error) {
	if semester < 0 || semester > 6 {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "semester must be between 0 and 6")
	}
	return s.listCached(ctx, fmt.Sprintf("%s%d", cacheKeyBySemester, semester), models.SectionFilter{Semester: &semester})
}

// ListByProfessor returns the schedules of the sections a professor teaches.
func (s *ScheduleService) ListByProfessor(ctx context.Context, professorID string) ([]dto.SectionSchedule, bool, error) {
	professorID = strings.TrimSpace(professorID)
	if _, err := s.professors.FindByID(ctx, professorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "professor not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professor")
	}
	return s.listCached(ctx, cacheKeyByProfessor+professorID, models.SectionFilter{ProfessorID: professorID})
}

// Conflicts scans every section for semester and professor clashes.
func (s *ScheduleService) Conflicts(ctx context.Context) (*dto.ConflictReport, bool, error) {
	var cached dto.ConflictReport
	if s.cache.Get(ctx, cacheKeyConflicts, &cached) {
		return &cached, true, nil
	}

	sections, err := s.sections.ListAll(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sections")
	}

	start := time.Now()
	refs := make(map[string]dto.SectionRef, len(sections))
	input := make([]horario.Section, 0, len(sections))
	for _, section := range sections {
		set, err := horario.Decode(section.Schedule)
		if err != nil {
			s.logger.Warn("skipping section with unreadable schedule", zap.String("section_id", section.ID), zap.String("schedule", section.Schedule), zap.Error(err))
			continue
		}
		refs[section.ID] = sectionRef(section)
		input = append(input, horario.Section{
			ID:         section.ID,
			Component:  section.ComponentCode,
			Semester:   section.Semester,
			Schedule:   set,
			Professors: section.ProfessorIDs,
		})
	}

	found := horario.FindConflicts(input)
	report := &dto.ConflictReport{
		Conflicts:   make([]dto.ConflictView, 0, len(found)),
		Total:       len(found),
		Sections:    len(input),
		GeneratedAt: time.Now().UTC(),
	}
	for _, c := range found {
		switch c.Reason {
		case horario.BySemester:
			report.BySemester++
		case horario.ByProfessor:
			report.ByProfessor++
		}
		report.Conflicts = append(report.Conflicts, dto.ConflictView{
			SectionA: refs[c.SectionA],
			SectionB: refs[c.SectionB],
			Schedule: horario.Encode(c.Shared),
			Reason:   c.Reason,
		})
	}
	s.metrics.RecordConflictScan(report.BySemester, report.ByProfessor, time.Since(start))

	s.cache.Set(ctx, cacheKeyConflicts, report, s.conflictTTL)
	return report, false, nil
}

// Sections returns the section details matching filter without pagination.
func (s *ScheduleService) Sections(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, error) {
	sections, err := s.sections.Search(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sections")
	}
	return sections, nil
}

func (s *ScheduleService) listCached(ctx context.Context, key string, filter models.SectionFilter) ([]dto.SectionSchedule, bool, error) {
	var cached []dto.SectionSchedule
	if s.cache.Get(ctx, key, &cached) {
		return cached, true, nil
	}

	sections, err := s.Sections(ctx, filter)
	if err != nil {
		return nil, false, err
	}
	result := make([]dto.SectionSchedule, 0, len(sections))
	for _, section := range sections {
		result = append(result, dto.SectionSchedule{
			SectionRef:    sectionRef(section),
			ComponentName: section.ComponentName,
			Semester:      section.Semester,
			Schedule:      section.Schedule,
			ProfessorIDs:  section.ProfessorIDs,
		})
	}

	s.cache.Set(ctx, key, result, 0)
	return result, false, nil
}

func sectionRef(section models.SectionDetail) dto.SectionRef {
	return dto.SectionRef{ID: section.ID, ComponentCode: section.ComponentCode, Number: section.Number}
}
