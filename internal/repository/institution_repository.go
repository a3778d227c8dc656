package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bogdanivan12/odes/internal/models"
)

// InstitutionRepository manages persistence for institutions.
type InstitutionRepository struct {
	db *sqlx.DB
}

// NewInstitutionRepository constructs an InstitutionRepository.
func NewInstitutionRepository(db *sqlx.DB) *InstitutionRepository {
	return &InstitutionRepository{db: db}
}

// List returns institutions matching filters along with total count.
func (r *InstitutionRepository) List(ctx context.Context, filter models.InstitutionFilter) ([]models.Institution, int, error) {
	base := "FROM institutions WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"name":       true,
		"created_at": true,
		"updated_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, name, time_grid_config, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", base, sortBy, order, size, offset)
	var institutions []models.Institution
	if err := r.db.SelectContext(ctx, &institutions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list institutions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count institutions: %w", err)
	}

	return institutions, total, nil
}

// FindByID fetches an institution by ID.
func (r *InstitutionRepository) FindByID(ctx context.Context, id string) (*models.Institution, error) {
	const query = `SELECT id, name, time_grid_config, created_at, updated_at FROM institutions WHERE id = $1`
	var institution models.Institution
	if err := r.db.GetContext(ctx, &institution, query, id); err != nil {
		return nil, err
	}
	return &institution, nil
}

// Create inserts a new institution record.
func (r *InstitutionRepository) Create(ctx context.Context, institution *models.Institution) error {
	if institution.ID == "" {
		institution.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if institution.CreatedAt.IsZero() {
		institution.CreatedAt = now
	}
	institution.UpdatedAt = now

	const query = `INSERT INTO institutions (id, name, time_grid_config, created_at, updated_at)
		VALUES (:id, :name, :time_grid_config, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, institution); err != nil {
		return fmt.Errorf("create institution: %w", err)
	}
	return nil
}

// Update modifies an existing institution record.
func (r *InstitutionRepository) Update(ctx context.Context, institution *models.Institution) error {
	institution.UpdatedAt = time.Now().UTC()
	const query = `UPDATE institutions SET name = :name, time_grid_config = :time_grid_config, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, institution)
	if err != nil {
		return fmt.Errorf("update institution: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("institution rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an institution record.
func (r *InstitutionRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM institutions WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete institution: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("institution rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
