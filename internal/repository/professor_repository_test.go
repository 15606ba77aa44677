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

var professorRowColumns = []string{"id", "name", "weekly_hours", "created_at", "updated_at"}

func TestProfessorRepositoryListSearchesUpperCase(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewProfessorRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, weekly_hours, created_at, updated_at FROM professors WHERE 1=1 AND name LIKE $1 ORDER BY name ASC LIMIT 20 OFFSET 0")).
		WithArgs("%SILVA%").
		WillReturnRows(sqlmock.NewRows(professorRowColumns).AddRow("p1", "JOAO SILVA", 4.0, time.Now(), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM professors WHERE 1=1 AND name LIKE $1")).
		WithArgs("%SILVA%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.ProfessorFilter{Search: "silva"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 4.0, list[0].WeeklyHours)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfessorRepositoryLockAndUpdateHoursInTransaction(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewProfessorRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, weekly_hours, created_at, updated_at FROM professors WHERE id = $1 FOR UPDATE")).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows(professorRowColumns).AddRow("p1", "JOAO SILVA", 18.0, time.Now(), time.Now()))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE professors SET weekly_hours = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("p1", 20.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	professor, err := repo.LockForUpdate(context.Background(), tx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 18.0, professor.WeeklyHours)
	require.NoError(t, repo.UpdateWeeklyHours(context.Background(), tx, "p1", 20))
	require.NoError(t, tx.Commit())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfessorRepositoryExistsByNameExcludesSelf(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewProfessorRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM professors WHERE name = $1 AND id <> $2 LIMIT 1")).
		WithArgs("JOAO SILVA", "p1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	exists, err := repo.ExistsByName(context.Background(), "JOAO SILVA", "p1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfessorRepositoryCreateGeneratesID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewProfessorRepository(db)

	mock.ExpectExec("INSERT INTO professors").
		WithArgs(sqlmock.AnyArg(), "JOAO SILVA", 0.0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	professor := &models.Professor{Name: "JOAO SILVA"}
	require.NoError(t, repo.Create(context.Background(), professor))
	assert.NotEmpty(t, professor.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
