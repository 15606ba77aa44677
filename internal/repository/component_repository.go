package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ufrn-horarios/horarios-api/internal/models"
)

const componentColumns = "code, name, semester, weekly_load, department, mandatory, created_at, updated_at"

// ComponentRepository manages persistence for curricular components.
type ComponentRepository struct {
	db *sqlx.DB
}

// NewComponentRepository constructs a ComponentRepository.
func NewComponentRepository(db *sqlx.DB) *ComponentRepository {
	return &ComponentRepository{db: db}
}

// List returns components matching filters along with total count.
func (r *ComponentRepository) List(ctx context.Context, filter models.ComponentFilter) ([]models.CurricularComponent, int, error) {
	base := "FROM curricular_components WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Semester != nil {
		conditions = append(conditions, fmt.Sprintf("semester = $%d", len(args)+1))
		args = append(args, *filter.Semester)
	}
	if filter.Department != "" {
		conditions = append(conditions, fmt.Sprintf("department = $%d", len(args)+1))
		args = append(args, strings.ToUpper(filter.Department))
	}
	if filter.Mandatory != nil {
		conditions = append(conditions, fmt.Sprintf("mandatory = $%d", len(args)+1))
		args = append(args, *filter.Mandatory)
	}
	if filter.Search != "" {
		search := "%" + strings.ToLower(filter.Search) + "%"
		conditions = append(conditions, fmt.Sprintf("(LOWER(code) LIKE $%d OR LOWER(name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, search)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"code":     "code",
		"name":     "name",
		"semester": "semester",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "code"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page, size := normalizePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", componentColumns, base, column, order, size, (page-1)*size)
	var components []models.CurricularComponent
	if err := r.db.SelectContext(ctx, &components, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list components: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count components: %w", err)
	}

	return components, total, nil
}

// FindByCode fetches a component by its code.
func (r *ComponentRepository) FindByCode(ctx context.Context, code string) (*models.CurricularComponent, error) {
	query := "SELECT " + componentColumns + " FROM curricular_components WHERE code = $1"
	var component models.CurricularComponent
	if err := r.db.GetContext(ctx, &component, query, code); err != nil {
		return nil, err
	}
	return &component, nil
}

// LockByCode fetches a component and holds an exclusive row lock until exec's
// transaction ends.
func (r *ComponentRepository) LockByCode(ctx context.Context, exec sqlx.ExtContext, code string) (*models.CurricularComponent, error) {
	return findComponent(ctx, exec, "SELECT "+componentColumns+" FROM curricular_components WHERE code = $1 FOR UPDATE", code)
}

// ShareByCode fetches a component under a share lock, which keeps its weekly
// load fixed until exec's transaction ends.
func (r *ComponentRepository) ShareByCode(ctx context.Context, exec sqlx.ExtContext, code string) (*models.CurricularComponent, error) {
	return findComponent(ctx, exec, "SELECT "+componentColumns+" FROM curricular_components WHERE code = $1 FOR SHARE", code)
}

func findComponent(ctx context.Context, exec sqlx.ExtContext, query, code string) (*models.CurricularComponent, error) {
	var component models.CurricularComponent
	if err := sqlx.GetContext(ctx, exec, &component, query, code); err != nil {
		return nil, err
	}
	return &component, nil
}

// ExistsByCode reports whether a component already uses code.
func (r *ComponentRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM curricular_components WHERE code = $1 LIMIT 1", code); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check component code: %w", err)
	}
	return true, nil
}

// Create inserts a new component record.
func (r *ComponentRepository) Create(ctx context.Context, component *models.CurricularComponent) error {
	now := time.Now().UTC()
	component.CreatedAt = now
	component.UpdatedAt = now

	const query = `INSERT INTO curricular_components (code, name, semester, weekly_load, department, mandatory, created_at, updated_at)
		VALUES (:code, :name, :semester, :weekly_load, :department, :mandatory, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, component); err != nil {
		return fmt.Errorf("create component: %w", err)
	}
	return nil
}

// Update modifies an existing component inside exec. The code is immutable.
func (r *ComponentRepository) Update(ctx context.Context, exec sqlx.ExtContext, component *models.CurricularComponent) error {
	component.UpdatedAt = time.Now().UTC()
	const query = `UPDATE curricular_components SET name = :name, semester = :semester, weekly_load = :weekly_load,
		department = :department, mandatory = :mandatory, updated_at = :updated_at WHERE code = :code`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, component); err != nil {
		return fmt.Errorf("update component: %w", err)
	}
	return nil
}

// Delete removes a component using exec, normally a transaction that already
// released the component's sections.
func (r *ComponentRepository) Delete(ctx context.Context, exec sqlx.ExtContext, code string) error {
	if _, err := exec.ExecContext(ctx, "DELETE FROM curricular_components WHERE code = $1", code); err != nil {
		return fmt.Errorf("delete component: %w", err)
	}
	return nil
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return page, size
}
