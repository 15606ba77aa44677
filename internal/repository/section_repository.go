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

const sectionDetailSelect = `SELECT s.id, s.component_code, s.number, s.schedule, s.seats, s.created_at, s.updated_at,
	c.name AS component_name, c.semester, c.weekly_load
	FROM sections s JOIN curricular_components c ON c.code = s.component_code`

const sectionOrder = " ORDER BY c.semester, s.component_code, s.number"

// SectionRepository manages sections and their professor assignments. List
// results carry the component semester and weekly load plus the ids of the
// assigned professors.
type SectionRepository struct {
	db *sqlx.DB
}

// NewSectionRepository constructs a SectionRepository.
func NewSectionRepository(db *sqlx.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

func sectionConditions(filter models.SectionFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}
	if filter.ComponentCode != "" {
		conditions = append(conditions, fmt.Sprintf("s.component_code = $%d", len(args)+1))
		args = append(args, filter.ComponentCode)
	}
	if filter.Semester != nil {
		conditions = append(conditions, fmt.Sprintf("c.semester = $%d", len(args)+1))
		args = append(args, *filter.Semester)
	}
	if filter.ProfessorID != "" {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM section_professors sp WHERE sp.section_id = s.id AND sp.professor_id = $%d)", len(args)+1))
		args = append(args, filter.ProfessorID)
	}
	where := " WHERE 1=1"
	if len(conditions) > 0 {
		where += " AND " + strings.Join(conditions, " AND ")
	}
	return where, args
}

// List returns one page of sections matching filter and the total count.
func (r *SectionRepository) List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, int, error) {
	where, args := sectionConditions(filter)
	page, size := normalizePage(filter.Page, filter.PageSize)

	query := fmt.Sprintf("%s%s%s LIMIT %d OFFSET %d", sectionDetailSelect, where, sectionOrder, size, (page-1)*size)
	var sections []models.SectionDetail
	if err := r.db.SelectContext(ctx, &sections, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sections: %w", err)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM sections s JOIN curricular_components c ON c.code = s.component_code" + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sections: %w", err)
	}

	if err := attachProfessors(ctx, r.db, sections); err != nil {
		return nil, 0, err
	}
	return sections, total, nil
}

// Search returns every section matching filter, ignoring pagination.
func (r *SectionRepository) Search(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, error) {
	where, args := sectionConditions(filter)
	var sections []models.SectionDetail
	if err := r.db.SelectContext(ctx, &sections, sectionDetailSelect+where+sectionOrder, args...); err != nil {
		return nil, fmt.Errorf("search sections: %w", err)
	}
	if err := attachProfessors(ctx, r.db, sections); err != nil {
		return nil, err
	}
	return sections, nil
}

// ListAll returns every section.
func (r *SectionRepository) ListAll(ctx context.Context) ([]models.SectionDetail, error) {
	return r.Search(ctx, models.SectionFilter{})
}

// FindByID fetches a section with its professors.
func (r *SectionRepository) FindByID(ctx context.Context, id string) (*models.SectionDetail, error) {
	return findSection(ctx, r.db, sectionDetailSelect+" WHERE s.id = $1", id)
}

// LockByID fetches a section and locks its row until exec's transaction ends.
func (r *SectionRepository) LockByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.SectionDetail, error) {
	return findSection(ctx, exec, sectionDetailSelect+" WHERE s.id = $1 FOR UPDATE OF s", id)
}

// LockByComponent locks and returns every section of a component.
func (r *SectionRepository) LockByComponent(ctx context.Context, exec sqlx.ExtContext, code string) ([]models.SectionDetail, error) {
	var sections []models.SectionDetail
	query := sectionDetailSelect + " WHERE s.component_code = $1 ORDER BY s.number FOR UPDATE OF s"
	if err := sqlx.SelectContext(ctx, exec, &sections, query, code); err != nil {
		return nil, fmt.Errorf("lock component sections: %w", err)
	}
	if err := attachProfessors(ctx, exec, sections); err != nil {
		return nil, err
	}
	return sections, nil
}

// ExistsByNumber reports whether the component already has a section with
// number, ignoring excludeID.
func (r *SectionRepository) ExistsByNumber(ctx context.Context, componentCode string, number int, excludeID string) (bool, error) {
	query := "SELECT 1 FROM sections WHERE component_code = $1 AND number = $2"
	args := []interface{}{componentCode, number}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check section number: %w", err)
	}
	return true, nil
}

// Create inserts a section row. Professor links are written separately.
func (r *SectionRepository) Create(ctx context.Context, exec sqlx.ExtContext, section *models.Section) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	section.CreatedAt = now
	section.UpdatedAt = now

	const query = `INSERT INTO sections (id, component_code, number, schedule, seats, created_at, updated_at)
		VALUES (:id, :component_code, :number, :schedule, :seats, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, section); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

// Update modifies a section row.
func (r *SectionRepository) Update(ctx context.Context, exec sqlx.ExtContext, section *models.Section) error {
	section.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sections SET component_code = :component_code, number = :number, schedule = :schedule,
		seats = :seats, updated_at = :updated_at WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, section); err != nil {
		return fmt.Errorf("update section: %w", err)
	}
	return nil
}

// Delete removes a section. Professor links cascade.
func (r *SectionRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if _, err := exec.ExecContext(ctx, "DELETE FROM sections WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete section: %w", err)
	}
	return nil
}

// AddProfessor links a professor to a section.
func (r *SectionRepository) AddProfessor(ctx context.Context, exec sqlx.ExtContext, sectionID, professorID string) error {
	const query = `INSERT INTO section_professors (section_id, professor_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := exec.ExecContext(ctx, query, sectionID, professorID); err != nil {
		return fmt.Errorf("add section professor: %w", err)
	}
	return nil
}

// RemoveProfessor unlinks a professor from a section.
func (r *SectionRepository) RemoveProfessor(ctx context.Context, exec sqlx.ExtContext, sectionID, professorID string) error {
	const query = `DELETE FROM section_professors WHERE section_id = $1 AND professor_id = $2`
	if _, err := exec.ExecContext(ctx, query, sectionID, professorID); err != nil {
		return fmt.Errorf("remove section professor: %w", err)
	}
	return nil
}

// ReplaceProfessors sets the professor links of a section to exactly ids.
func (r *SectionRepository) ReplaceProfessors(ctx context.Context, exec sqlx.ExtContext, sectionID string, ids []string) error {
	if _, err := exec.ExecContext(ctx, "DELETE FROM section_professors WHERE section_id = $1", sectionID); err != nil {
		return fmt.Errorf("clear section professors: %w", err)
	}
	for _, id := range ids {
		if err := r.AddProfessor(ctx, exec, sectionID, id); err != nil {
			return err
		}
	}
	return nil
}

func findSection(ctx context.Context, q sqlx.QueryerContext, query, id string) (*models.SectionDetail, error) {
	var section models.SectionDetail
	if err := sqlx.GetContext(ctx, q, &section, query, id); err != nil {
		return nil, err
	}
	sections := []models.SectionDetail{section}
	if err := attachProfessors(ctx, q, sections); err != nil {
		return nil, err
	}
	return &sections[0], nil
}

type sectionProfessorRow struct {
	SectionID   string `db:"section_id"`
	ProfessorID string `db:"professor_id"`
}

func attachProfessors(ctx context.Context, q sqlx.QueryerContext, sections []models.SectionDetail) error {
	if len(sections) == 0 {
		return nil
	}
	ids := make([]string, len(sections))
	index := make(map[string]int, len(sections))
	for i := range sections {
		ids[i] = sections[i].ID
		index[sections[i].ID] = i
		sections[i].ProfessorIDs = []string{}
	}

	var rows []sectionProfessorRow
	const query = `SELECT section_id, professor_id FROM section_professors WHERE section_id = ANY($1) ORDER BY section_id, professor_id`
	if err := sqlx.SelectContext(ctx, q, &rows, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("load section professors: %w", err)
	}
	for _, row := range rows {
		if i, ok := index[row.SectionID]; ok {
			sections[i].ProfessorIDs = append(sections[i].ProfessorIDs, row.ProfessorID)
		}
	}
	return nil
}
