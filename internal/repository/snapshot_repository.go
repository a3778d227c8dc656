package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/bogdanivan12/odes/internal/models"
)

// SnapshotRepository gathers every scheduling input of an institution inside one
// repeatable-read transaction, so the solver always works on a consistent cut.
// Result ordering is by (created_at, id) throughout, which pins the emitted
// model and therefore the chosen solution.
type SnapshotRepository struct {
	db *sqlx.DB
}

// NewSnapshotRepository constructs a SnapshotRepository.
func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Load reads the institution with its activities, rooms and groups. A missing
// institution surfaces as sql.ErrNoRows.
func (r *SnapshotRepository) Load(ctx context.Context, institutionID string) (*models.Snapshot, error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	var snapshot models.Snapshot

	const institutionQuery = `SELECT id, name, time_grid_config, created_at, updated_at FROM institutions WHERE id = $1`
	if err := tx.GetContext(ctx, &snapshot.Institution, institutionQuery, institutionID); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM activities WHERE institution_id = $1 ORDER BY created_at, id", activityColumns)
	if err := tx.SelectContext(ctx, &snapshot.Activities, query, institutionID); err != nil {
		return nil, fmt.Errorf("snapshot activities: %w", err)
	}
	for i := range snapshot.Activities {
		snapshot.Activities[i].HydratePin()
	}

	const roomsQuery = `SELECT id, institution_id, name, capacity, features, created_at, updated_at FROM rooms WHERE institution_id = $1 ORDER BY created_at, id`
	if err := tx.SelectContext(ctx, &snapshot.Rooms, roomsQuery, institutionID); err != nil {
		return nil, fmt.Errorf("snapshot rooms: %w", err)
	}

	const groupsQuery = `SELECT id, institution_id, name, parent_group_id, created_at, updated_at FROM groups WHERE institution_id = $1 ORDER BY created_at, id`
	if err := tx.SelectContext(ctx, &snapshot.Groups, groupsQuery, institutionID); err != nil {
		return nil, fmt.Errorf("snapshot groups: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit snapshot: %w", err)
	}
	return &snapshot, nil
}
