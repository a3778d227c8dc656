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

	"github.com/bogdanivan12/odes/internal/models"
)

// ActivityRepository manages persistence for activities. The pin lives in two flat
// columns; rows are hydrated into the nested wire shape on the way out and
// flattened on the way in.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs an ActivityRepository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

const activityColumns = `id, institution_id, course_id, activity_type, duration_slots, group_id, professor_id, required_room_features, frequency, selected_start_timeslot, selected_active_weeks, created_at, updated_at`

// ListByInstitution returns the activities of an institution, optionally narrowed
// by group, course or professor.
func (r *ActivityRepository) ListByInstitution(ctx context.Context, institutionID string, filter models.ActivityFilter) ([]models.Activity, error) {
	base := "FROM activities WHERE institution_id = $1"
	args := []interface{}{institutionID}

	var conditions []string
	if filter.GroupID != "" {
		conditions = append(conditions, fmt.Sprintf("group_id = $%d", len(args)+1))
		args = append(args, filter.GroupID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.ProfessorID != "" {
		conditions = append(conditions, fmt.Sprintf("professor_id = $%d", len(args)+1))
		args = append(args, filter.ProfessorID)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at, id", activityColumns, base)
	var activities []models.Activity
	if err := r.db.SelectContext(ctx, &activities, query, args...); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	for i := range activities {
		activities[i].HydratePin()
	}
	return activities, nil
}

// FindByID fetches an activity by ID.
func (r *ActivityRepository) FindByID(ctx context.Context, id string) (*models.Activity, error) {
	query := fmt.Sprintf("SELECT %s FROM activities WHERE id = $1", activityColumns)
	var activity models.Activity
	if err := r.db.GetContext(ctx, &activity, query, id); err != nil {
		return nil, err
	}
	activity.HydratePin()
	return &activity, nil
}

// Create inserts a new activity record.
func (r *ActivityRepository) Create(ctx context.Context, activity *models.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.NewString()
	}
	if activity.RequiredRoomFeatures == nil {
		activity.RequiredRoomFeatures = pq.StringArray{}
	}
	activity.FlattenPin()
	now := time.Now().UTC()
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = now
	}
	activity.UpdatedAt = now

	const query = `INSERT INTO activities (id, institution_id, course_id, activity_type, duration_slots, group_id, professor_id, required_room_features, frequency, selected_start_timeslot, selected_active_weeks, created_at, updated_at)
		VALUES (:id, :institution_id, :course_id, :activity_type, :duration_slots, :group_id, :professor_id, :required_room_features, :frequency, :selected_start_timeslot, :selected_active_weeks, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, activity); err != nil {
		return fmt.Errorf("create activity: %w", err)
	}
	return nil
}

// Update modifies an existing activity record.
func (r *ActivityRepository) Update(ctx context.Context, activity *models.Activity) error {
	activity.FlattenPin()
	activity.UpdatedAt = time.Now().UTC()
	const query = `UPDATE activities SET course_id = :course_id, activity_type = :activity_type, duration_slots = :duration_slots, group_id = :group_id, professor_id = :professor_id, required_room_features = :required_room_features, frequency = :frequency, selected_start_timeslot = :selected_start_timeslot, selected_active_weeks = :selected_active_weeks, updated_at = :updated_at WHERE id = :id AND institution_id = :institution_id`
	result, err := r.db.NamedExecContext(ctx, query, activity)
	if err != nil {
		return fmt.Errorf("update activity: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("activity rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an activity record.
func (r *ActivityRepository) Delete(ctx context.Context, institutionID, id string) error {
	const query = `DELETE FROM activities WHERE id = $1 AND institution_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, institutionID)
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("activity rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
