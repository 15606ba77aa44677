package service

import (
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ufrn-horarios/horarios-api/internal/dto"
	appErrors "github.com/ufrn-horarios/horarios-api/pkg/errors"
)

func newExportFixture(t *testing.T, enabled bool) *ExportService {
	t.Helper()
	schedules, _ := newScheduleFixture(t)
	svc := NewExportService(schedules, newProfessorRepoStub("p1", "p2", "p3"), enabled, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }
	return svc
}

func TestExportServiceSectionsCSV(t *testing.T) {
	svc := newExportFixture(t, true)
	semester := 1

	result, err := svc.Export(context.Background(), dto.ExportRequest{Kind: dto.ExportSections, Format: "CSV", Semester: &semester})
	require.NoError(t, err)
	assert.Equal(t, "sections_20240301_100000.csv", result.Filename)
	assert.Equal(t, "text/csv", result.ContentType)

	records, err := csv.NewReader(strings.NewReader(string(result.Payload))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"componente", "nome", "semestre", "turma", "horario", "vagas", "professores"}, records[0])
	assert.Equal(t, "DIM0120", records[1][0])
	assert.Equal(t, "01", records[1][3])
	assert.Equal(t, "PROF P1", records[1][6])
}

func TestExportServiceConflictsXLSXAndPDF(t *testing.T) {
	svc := newExportFixture(t, true)

	xlsx, err := svc.Export(context.Background(), dto.ExportRequest{Kind: dto.ExportConflicts, Format: "xlsx"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(xlsx.Filename, ".xlsx"))
	assert.Equal(t, "PK", string(xlsx.Payload[:2]))

	pdf, err := svc.Export(context.Background(), dto.ExportRequest{Kind: dto.ExportConflicts, Format: "pdf"})
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(pdf.Payload[:4]))
}

func TestExportServiceConflictsCSVRows(t *testing.T) {
	svc := newExportFixture(t, true)

	result, err := svc.Export(context.Background(), dto.ExportRequest{Kind: dto.ExportConflicts})
	require.NoError(t, err)
	records, err := csv.NewReader(strings.NewReader(string(result.Payload))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"turma1", "turma2", "horario", "conflito"}, records[0])
	assert.Contains(t, records[1:], []string{"DIM0120-01", "DIM0404-01", "4M2", "PROFESSOR"})
}

func TestExportServiceErrors(t *testing.T) {
	disabled := newExportFixture(t, false)
	_, err := disabled.Export(context.Background(), dto.ExportRequest{})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	svc := newExportFixture(t, true)
	_, err = svc.Export(context.Background(), dto.ExportRequest{Format: "docx"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Export(context.Background(), dto.ExportRequest{Kind: "timetable"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	semester := 8
	_, err = svc.Export(context.Background(), dto.ExportRequest{Semester: &semester})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
