package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bogdanivan12/odes/internal/models"
)

// GroupRepository manages persistence for student groups.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository constructs a GroupRepository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// ListByInstitution returns every group of an institution.
func (r *GroupRepository) ListByInstitution(ctx context.Context, institutionID string) ([]models.Group, error) {
	const query = `SELECT id, institution_id, name, parent_group_id, created_at, updated_at FROM groups WHERE institution_id = $1 ORDER BY created_at, id`
	var groups []models.Group
	if err := r.db.SelectContext(ctx, &groups, query, institutionID); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// FindByID fetches a group by ID.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.Group, error) {
	const query = `SELECT id, institution_id, name, parent_group_id, created_at, updated_at FROM groups WHERE id = $1`
	var group models.Group
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		return nil, err
	}
	return &group, nil
}

// Create inserts a new group record.
func (r *GroupRepository) Create(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if group.CreatedAt.IsZero() {
		group.CreatedAt = now
	}
	group.UpdatedAt = now

	const query = `INSERT INTO groups (id, institution_id, name, parent_group_id, created_at, updated_at)
		VALUES (:id, :institution_id, :name, :parent_group_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, group); err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

// Update modifies an existing group record.
func (r *GroupRepository) Update(ctx context.Context, group *models.Group) error {
	group.UpdatedAt = time.Now().UTC()
	const query = `UPDATE groups SET name = :name, parent_group_id = :parent_group_id, updated_at = :updated_at WHERE id = :id AND institution_id = :institution_id`
	result, err := r.db.NamedExecContext(ctx, query, group)
	if err != nil {
		return fmt.Errorf("update group: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("group rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a group record.
func (r *GroupRepository) Delete(ctx context.Context, institutionID, id string) error {
	const query = `DELETE FROM groups WHERE id = $1 AND institution_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, institutionID)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("group rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// HasChildren reports whether any group names this one as its parent.
func (r *GroupRepository) HasChildren(ctx context.Context, id string) (bool, error) {
	const query = `SELECT 1 FROM groups WHERE parent_group_id = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check group children: %w", err)
	}
	return true, nil
}
