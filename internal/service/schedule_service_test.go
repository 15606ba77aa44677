package service

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ufrn-horarios/horarios-api/internal/dto"
	"github.com/ufrn-horarios/horarios-api/internal/models"
	appErrors "github.com/ufrn-horarios/horarios-api/pkg/errors"
	"github.com/ufrn-horarios/horarios-api/pkg/horario"
)

func newScheduleFixture(t *testing.T) (*ScheduleService, *sectionRepoStub) {
	t.Helper()
	components := newComponentRepoStub(
		models.CurricularComponent{Code: "DIM0120", Name: "LP", Semester: 1, WeeklyLoad: 60, Department: models.DepartmentDIMAP},
		models.CurricularComponent{Code: "DIM0121", Name: "LOGICA", Semester: 1, WeeklyLoad: 60, Department: models.DepartmentDIMAP},
		models.CurricularComponent{Code: "DIM0404", Name: "ED", Semester: 3, WeeklyLoad: 30, Department: models.DepartmentDIMAP},
	)
	sections := newSectionRepoStub(components)
	sections.seed(models.Section{ID: "s1", ComponentCode: "DIM0120", Number: 1, Schedule: "24M12", ProfessorIDs: []string{"p1"}})
	sections.seed(models.Section{ID: "s2", ComponentCode: "DIM0121", Number: 1, Schedule: "24M23", ProfessorIDs: []string{"p2"}})
	sections.seed(models.Section{ID: "s3", ComponentCode: "DIM0404", Number: 1, Schedule: "4M2", ProfessorIDs: []string{"p1"}})
	sections.seed(models.Section{ID: "s4", ComponentCode: "DIM0120", Number: 2, Schedule: "24M12", ProfessorIDs: []string{"p3"}})

	svc := NewScheduleService(sections, components, newProfessorRepoStub("p1", "p2", "p3"), nil, nil, 0, validator.New(), zap.NewNop())
	return svc, sections
}

func TestScheduleServiceDecode(t *testing.T) {
	svc, _ := newScheduleFixture(t)
	load := 60
	resp, err := svc.Decode(context.Background(), dto.DecodeScheduleRequest{Schedule: "4m21 2M12", WeeklyLoad: &load})
	require.NoError(t, err)
	assert.Equal(t, "24M12", resp.Canonical)
	assert.Equal(t, 4, resp.Units)
	assert.Equal(t, 60, resp.Hours)
	require.NotNil(t, resp.LoadMatch)
	assert.True(t, *resp.LoadMatch)
	assert.Equal(t, horario.Slot{Day: 2, Period: horario.Morning, Hour: 1}, resp.Slots[0])

	load = 30
	resp, err = svc.Decode(context.Background(), dto.DecodeScheduleRequest{Schedule: "24M12", WeeklyLoad: &load})
	require.NoError(t, err)
	assert.False(t, *resp.LoadMatch)

	_, err = svc.Decode(context.Background(), dto.DecodeScheduleRequest{Schedule: "9M1"})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrFormatInvalid))
	appErr := appErrors.FromError(err)
	formatErr, ok := appErr.Details.(*horario.FormatError)
	require.True(t, ok)
	assert.Equal(t, "9M1", formatErr.Token)
}

func TestScheduleServiceConflicts(t *testing.T) {
	svc, _ := newScheduleFixture(t)

	report, hit, err := svc.Conflicts(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 4, report.Sections)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.BySemester)
	assert.Equal(t, 1, report.ByProfessor)

	var semesterPairs []string
	for _, c := range report.Conflicts {
		switch c.Reason {
		case horario.BySemester:
			semesterPairs = append(semesterPairs, c.SectionA.ID+"-"+c.SectionB.ID+":"+c.Schedule)
		case horario.ByProfessor:
			assert.Equal(t, "s1", c.SectionA.ID)
			assert.Equal(t, "s3", c.SectionB.ID)
			assert.Equal(t, "4M2", c.Schedule)
		}
	}
	assert.ElementsMatch(t, []string{"s1-s2:24M2", "s4-s2:24M2"}, semesterPairs)
}

func TestScheduleServiceListings(t *testing.T) {
	svc, _ := newScheduleFixture(t)

	byComponent, hit, err := svc.ListByComponent(context.Background(), "dim0120")
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, byComponent, 2)
	assert.Equal(t, 1, byComponent[0].Number)
	assert.Equal(t, 2, byComponent[1].Number)

	bySemester, _, err := svc.ListBySemester(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, bySemester, 3)

	byProfessor, _, err := svc.ListByProfessor(context.Background(), "p1")
	require.NoError(t, err)
	assert.Len(t, byProfessor, 2)

	_, _, err = svc.ListByComponent(context.Background(), "XXX0000")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	_, _, err = svc.ListByProfessor(context.Background(), "ghost")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	_, _, err = svc.ListBySemester(context.Background(), 9)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
