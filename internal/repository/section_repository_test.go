package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ufrn-horarios/horarios-api/internal/models"
)

var sectionRowColumns = []string{"id", "component_code", "number", "schedule", "seats", "created_at", "updated_at", "component_name", "semester", "weekly_load"}

func TestSectionRepositorySearchAttachesProfessors(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	semester := 1
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(sectionDetailSelect + " WHERE 1=1 AND c.semester = $1" + sectionOrder)).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(sectionRowColumns).
			AddRow("s1", "DIM0120", 1, "24M12", 40, now, now, "ESTRUTURAS DE DADOS", 1, 60).
			AddRow("s2", "DIM0121", 1, "35T34", 30, now, now, "CALCULO I", 1, 60))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT section_id, professor_id FROM section_professors WHERE section_id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"section_id", "professor_id"}).
			AddRow("s1", "p1").
			AddRow("s1", "p2"))

	sections, err := repo.Search(context.Background(), models.SectionFilter{Semester: &semester})
	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, []string{"p1", "p2"}, sections[0].ProfessorIDs)
	assert.Equal(t, []string{}, sections[1].ProfessorIDs)
	assert.Equal(t, 60, sections[0].WeeklyLoad)
	assert.Equal(t, "ESTRUTURAS DE DADOS", sections[0].ComponentName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryListFiltersByProfessor(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	where := " WHERE 1=1 AND EXISTS (SELECT 1 FROM section_professors sp WHERE sp.section_id = s.id AND sp.professor_id = $1)"
	mock.ExpectQuery(regexp.QuoteMeta(sectionDetailSelect + where + sectionOrder + " LIMIT 20 OFFSET 0")).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows(sectionRowColumns))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM sections s JOIN curricular_components c ON c.code = s.component_code" + where)).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	sections, total, err := repo.List(context.Background(), models.SectionFilter{ProfessorID: "p1"})
	require.NoError(t, err)
	assert.Empty(t, sections)
	assert.Equal(t, 0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryWritesInsideTransaction(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sections").
		WithArgs(sqlmock.AnyArg(), "DIM0120", 1, "24M12", 40, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM section_professors WHERE section_id = $1")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO section_professors").
		WithArgs(sqlmock.AnyArg(), "p1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO section_professors").
		WithArgs(sqlmock.AnyArg(), "p2").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	section := &models.Section{ComponentCode: "DIM0120", Number: 1, Schedule: "24M12", Seats: 40}
	require.NoError(t, repo.Create(context.Background(), tx, section))
	require.NotEmpty(t, section.ID)
	require.NoError(t, repo.ReplaceProfessors(context.Background(), tx, section.ID, []string{"p1", "p2"}))
	require.NoError(t, tx.Commit())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryLockByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(sectionDetailSelect + " WHERE s.id = $1 FOR UPDATE OF s")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(sectionRowColumns).AddRow("s1", "DIM0120", 1, "24M12", 40, now, now, "ESTRUTURAS DE DADOS", 1, 60))
	mock.ExpectQuery("SELECT section_id, professor_id FROM section_professors").
		WillReturnRows(sqlmock.NewRows([]string{"section_id", "professor_id"}).AddRow("s1", "p1"))
	mock.ExpectRollback()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	section, err := repo.LockByID(context.Background(), tx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, section.ProfessorIDs)
	require.NoError(t, tx.Rollback())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSectionRepositoryExistsByNumber(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSectionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM sections WHERE component_code = $1 AND number = $2 AND id <> $3 LIMIT 1")).
		WithArgs("DIM0120", 1, "s1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	exists, err := repo.ExistsByNumber(context.Background(), "DIM0120", 1, "s1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
