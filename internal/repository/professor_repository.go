package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ufrn-horarios/horarios-api/internal/models"
)

const professorColumns = "id, name, weekly_hours, created_at, updated_at"

// ProfessorRepository manages persistence for professors and their
// committed weekly hours.
type ProfessorRepository struct {
	db *sqlx.DB
}

// NewProfessorRepository constructs a ProfessorRepository.
func NewProfessorRepository(db *sqlx.DB) *ProfessorRepository {
	return &ProfessorRepository{db: db}
}

// List returns professors matching filters along with total count.
func (r *ProfessorRepository) List(ctx context.Context, filter models.ProfessorFilter) ([]models.Professor, int, error) {
	base := "FROM professors WHERE 1=1"
	var args []interface{}
	if filter.Search != "" {
		base += " AND name LIKE $1"
		args = append(args, "%"+strings.ToUpper(filter.Search)+"%")
	}

	allowedSorts := map[string]string{
		"name":         "name",
		"weekly_hours": "weekly_hours",
		"created_at":   "created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page, size := normalizePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", professorColumns, base, column, order, size, (page-1)*size)
	var professors []models.Professor
	if err := r.db.SelectContext(ctx, &professors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list professors: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count professors: %w", err)
	}
	return professors, total, nil
}

// FindByID fetches a professor by ID.
func (r *ProfessorRepository) FindByID(ctx context.Context, id string) (*models.Professor, error) {
	var professor models.Professor
	if err := r.db.GetContext(ctx, &professor, "SELECT "+professorColumns+" FROM professors WHERE id = $1", id); err != nil {
		return nil, err
	}
	return &professor, nil
}

// FindByIDs returns the professors among ids that exist.
func (r *ProfessorRepository) FindByIDs(ctx context.Context, ids []string) ([]models.Professor, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var professors []models.Professor
	query := "SELECT " + professorColumns + " FROM professors WHERE id = ANY($1) ORDER BY name"
	if err := r.db.SelectContext(ctx, &professors, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("find professors: %w", err)
	}
	return professors, nil
}

// ExistsByName checks if another professor uses the same normalized name.
func (r *ProfessorRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	query := "SELECT 1 FROM professors WHERE name = $1"
	args := []interface{}{name}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check professor name: %w", err)
	}
	return true, nil
}

// Create inserts a new professor record.
func (r *ProfessorRepository) Create(ctx context.Context, professor *models.Professor) error {
	if professor.ID == "" {
		professor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	professor.CreatedAt = now
	professor.UpdatedAt = now

	const query = `INSERT INTO professors (id, name, weekly_hours, created_at, updated_at)
		VALUES (:id, :name, :weekly_hours, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, professor); err != nil {
		return fmt.Errorf("create professor: %w", err)
	}
	return nil
}

// UpdateName renames a professor.
func (r *ProfessorRepository) UpdateName(ctx context.Context, id, name string) error {
	const query = `UPDATE professors SET name = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, name, time.Now().UTC()); err != nil {
		return fmt.Errorf("update professor: %w", err)
	}
	return nil
}

// Delete removes a professor. Section links cascade.
func (r *ProfessorRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM professors WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete professor: %w", err)
	}
	return nil
}

// LockForUpdate reads the professor row and holds its lock until exec's
// transaction ends.
func (r *ProfessorRepository) LockForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Professor, error) {
	var professor models.Professor
	query := "SELECT " + professorColumns + " FROM professors WHERE id = $1 FOR UPDATE"
	if err := sqlx.GetContext(ctx, exec, &professor, query, id); err != nil {
		return nil, err
	}
	return &professor, nil
}

// UpdateWeeklyHours stores the committed hours computed under the row lock.
func (r *ProfessorRepository) UpdateWeeklyHours(ctx context.Context, exec sqlx.ExtContext, id string, hours float64) error {
	const query = `UPDATE professors SET weekly_hours = $2, updated_at = $3 WHERE id = $1`
	if _, err := exec.ExecContext(ctx, query, id, hours, time.Now().UTC()); err != nil {
		return fmt.Errorf("update professor hours: %w", err)
	}
	return nil
}
