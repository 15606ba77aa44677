package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ufrn-horarios/horarios-api/internal/dto"
	"github.com/ufrn-horarios/horarios-api/internal/models"
	appErrors "github.com/ufrn-horarios/horarios-api/pkg/errors"
	"github.com/ufrn-horarios/horarios-api/pkg/export"
)

const (
	headerComponent  = "componente"
	headerName       = "nome"
	headerSemester   = "semestre"
	headerSection    = "turma"
	headerSchedule   = "horario"
	headerSeats      = "vagas"
	headerProfessors = "professores"
	headerSectionA   = "turma1"
	headerSectionB   = "turma2"
	headerConflict   = "conflito"
)

type exportScheduleSource interface {
	Sections(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, error)
	Conflicts(ctx context.Context) (*dto.ConflictReport, bool, error)
}

// ExportService renders timetable reports as CSV, PDF or XLSX.
type ExportService struct {
	schedules  exportScheduleSource
	professors professorFinder
	enabled    bool
	logger     *zap.Logger
	now        func() time.Time
}

// NewExportService constructs the export service.
func NewExportService(schedules exportScheduleSource, professors professorFinder, enabled bool, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{schedules: schedules, professors: professors, enabled: enabled, logger: logger, now: time.Now}
}

// Export builds the requested report.
func (s *ExportService) Export(ctx context.Context, req dto.ExportRequest) (*dto.ExportResult, error) {
	if !s.enabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "exports are disabled")
	}

	format, err := export.ParseFormat(strings.ToLower(strings.TrimSpace(req.Format)))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if req.Kind == "" {
		req.Kind = dto.ExportSections
	}

	var dataset export.Dataset
	switch req.Kind {
	case dto.ExportSections:
		dataset, err = s.sectionsDataset(ctx, req.Semester)
	case dto.ExportConflicts:
		dataset, err = s.conflictsDataset(ctx)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export kind %q", req.Kind))
	}
	if err != nil {
		return nil, err
	}

	payload, err := export.NewRenderer(format).Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	filename := fmt.Sprintf("%s_%s.%s", req.Kind, s.now().UTC().Format("20060102_150405"), format)
	s.logger.Info("export generated", zap.String("kind", string(req.Kind)), zap.String("format", string(format)), zap.Int("rows", len(dataset.Rows)))
	return &dto.ExportResult{Filename: filename, ContentType: format.ContentType(), Payload: payload}, nil
}

func (s *ExportService) sectionsDataset(ctx context.Context, semester *int) (export.Dataset, error) {
	title := "Turmas"
	if semester != nil {
		if *semester < 0 || *semester > 6 {
			return export.Dataset{}, appErrors.Clone(appErrors.ErrValidation, "semester must be between 0 and 6")
		}
		title = fmt.Sprintf("Turmas - %do semestre", *semester)
	}

	sections, err := s.schedules.Sections(ctx, models.SectionFilter{Semester: semester})
	if err != nil {
		return export.Dataset{}, err
	}
	names, err := s.professorNames(ctx, sections)
	if err != nil {
		return export.Dataset{}, err
	}

	dataset := export.Dataset{
		Title:   title,
		Headers: []string{headerComponent, headerName, headerSemester, headerSection, headerSchedule, headerSeats, headerProfessors},
		Rows:    make([]map[string]string, 0, len(sections)),
	}
	for _, section := range sections {
		professors := make([]string, 0, len(section.ProfessorIDs))
		for _, id := range section.ProfessorIDs {
			professors = append(professors, names[id])
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			headerComponent:  section.ComponentCode,
			headerName:       section.ComponentName,
			headerSemester:   strconv.Itoa(section.Semester),
			headerSection:    fmt.Sprintf("%02d", section.Number),
			headerSchedule:   section.Schedule,
			headerSeats:      strconv.Itoa(section.Seats),
			headerProfessors: strings.Join(professors, "; "),
		})
	}
	return dataset, nil
}

func (s *ExportService) conflictsDataset(ctx context.Context) (export.Dataset, error) {
	report, _, err := s.schedules.Conflicts(ctx)
	if err != nil {
		return export.Dataset{}, err
	}

	dataset := export.Dataset{
		Title:   "Conflitos de horario",
		Headers: []string{headerSectionA, headerSectionB, headerSchedule, headerConflict},
		Rows:    make([]map[string]string, 0, len(report.Conflicts)),
	}
	for _, c := range report.Conflicts {
		dataset.Rows = append(dataset.Rows, map[string]string{
			headerSectionA: sectionLabel(c.SectionA),
			headerSectionB: sectionLabel(c.SectionB),
			headerSchedule: c.Schedule,
			headerConflict: string(c.Reason),
		})
	}
	return dataset, nil
}

func (s *ExportService) professorNames(ctx context.Context, sections []models.SectionDetail) (map[string]string, error) {
	var ids []string
	for _, section := range sections {
		ids = append(ids, section.ProfessorIDs...)
	}
	ids = dedupeSorted(ids)
	names := make(map[string]string, len(ids))
	if len(ids) == 0 || s.professors == nil {
		return names, nil
	}

	professors, err := s.professors.FindByIDs(ctx, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load professors")
	}
	for _, p := range professors {
		names[p.ID] = p.Name
	}
	return names, nil
}

func sectionLabel(ref dto.SectionRef) string {
	return fmt.Sprintf("%s-%02d", ref.ComponentCode, ref.Number)
}
