package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ufrn-horarios/horarios-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var componentRowColumns = []string{"code", "name", "semester", "weekly_load", "department", "mandatory", "created_at", "updated_at"}

func TestComponentRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewComponentRepository(db)

	semester := 2
	rows := sqlmock.NewRows(componentRowColumns).
		AddRow("DIM0120", "ESTRUTURAS DE DADOS", 2, 60, "DIMAP", true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT code, name, semester, weekly_load, department, mandatory, created_at, updated_at FROM curricular_components WHERE 1=1 AND semester = $1 AND department = $2 ORDER BY code ASC LIMIT 20 OFFSET 0")).
		WithArgs(2, "DIMAP").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM curricular_components WHERE 1=1 AND semester = $1 AND department = $2")).
		WithArgs(2, "DIMAP").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.ComponentFilter{Semester: &semester, Department: "dimap"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 60, list[0].WeeklyLoad)
	assert.Equal(t, models.DepartmentDIMAP, list[0].Department)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComponentRepositoryFindByCodeNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewComponentRepository(db)

	mock.ExpectQuery("FROM curricular_components WHERE code = \\$1").
		WithArgs("DIM9999").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByCode(context.Background(), "DIM9999")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComponentRepositoryExistsByCode(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewComponentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM curricular_components WHERE code = $1 LIMIT 1")).
		WithArgs("DIM0120").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM curricular_components WHERE code = $1 LIMIT 1")).
		WithArgs("DIM0121").
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.ExistsByCode(context.Background(), "DIM0120")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByCode(context.Background(), "DIM0121")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComponentRepositoryCreateUpdateDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewComponentRepository(db)

	component := &models.CurricularComponent{Code: "DIM0120", Name: "ESTRUTURAS DE DADOS", Semester: 2, WeeklyLoad: 60, Department: models.DepartmentDIMAP, Mandatory: true}

	mock.ExpectExec("INSERT INTO curricular_components").
		WithArgs("DIM0120", "ESTRUTURAS DE DADOS", 2, 60, models.DepartmentDIMAP, true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.Create(context.Background(), component))
	assert.False(t, component.CreatedAt.IsZero())

	mock.ExpectExec("UPDATE curricular_components SET name").
		WithArgs("ESTRUTURAS DE DADOS", 2, 90, models.DepartmentDIMAP, true, sqlmock.AnyArg(), "DIM0120").
		WillReturnResult(sqlmock.NewResult(0, 1))
	component.WeeklyLoad = 90
	require.NoError(t, repo.Update(context.Background(), db, component))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM curricular_components WHERE code = $1")).
		WithArgs("DIM0120").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), db, "DIM0120"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComponentRepositoryRowLocks(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewComponentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM curricular_components WHERE code = $1 FOR UPDATE")).
		WithArgs("DIM0120").
		WillReturnRows(sqlmock.NewRows(componentRowColumns).
			AddRow("DIM0120", "ESTRUTURAS DE DADOS", 2, 60, "DIMAP", true, time.Now(), time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("FROM curricular_components WHERE code = $1 FOR SHARE")).
		WithArgs("DIM0404").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectCommit()

	tx, err := db.Beginx()
	require.NoError(t, err)
	locked, err := repo.LockByCode(context.Background(), tx, "DIM0120")
	require.NoError(t, err)
	assert.Equal(t, 60, locked.WeeklyLoad)

	_, err = repo.ShareByCode(context.Background(), tx, "DIM0404")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, tx.Commit())

	assert.NoError(t, mock.ExpectationsWereMet())
}
