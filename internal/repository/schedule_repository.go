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

// ScheduleRepository persists generation runs and their placements. Lifecycle
// transitions are conditional updates so that duplicate job deliveries and the
// reaper cannot clobber a terminal state.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs a ScheduleRepository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleColumns = `id, institution_id, time_grid_config, timestamp, status, error_message, started_at, finished_at`

// Create inserts a new draft schedule.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.Schedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	if schedule.Status == "" {
		schedule.Status = models.ScheduleStatusDraft
	}
	if schedule.Timestamp.IsZero() {
		schedule.Timestamp = time.Now().UTC()
	}

	const query = `INSERT INTO schedules (id, institution_id, time_grid_config, timestamp, status, error_message, started_at, finished_at)
		VALUES (:id, :institution_id, :time_grid_config, :timestamp, :status, :error_message, :started_at, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

// FindByID fetches a schedule by ID.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE id = $1", scheduleColumns)
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// List returns schedules matching filters along with total count, newest first.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	base := "FROM schedules WHERE institution_id = $1"
	args := []interface{}{filter.InstitutionID}

	if filter.Status != nil {
		base += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, *filter.Status)
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"timestamp":   true,
		"status":      true,
		"finished_at": true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "timestamp"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", scheduleColumns, base, sortBy, order, size, offset)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}

	return schedules, total, nil
}

// Delete removes a schedule; placements go with it via the cascade.
func (r *ScheduleRepository) Delete(ctx context.Context, institutionID, id string) error {
	const query = `DELETE FROM schedules WHERE id = $1 AND institution_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, institutionID)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("schedule rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateStatus overwrites status and error message; the PUT endpoint's manual
// override. Transition legality is the service's job.
func (r *ScheduleRepository) UpdateStatus(ctx context.Context, id string, status models.ScheduleStatus, errorMessage *string) error {
	const query = `UPDATE schedules SET status = $2, error_message = $3 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status, errorMessage)
	if err != nil {
		return fmt.Errorf("update schedule status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update status rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ClaimRunning flips a draft schedule to running. It reports false when the
// schedule is not in draft, which is how duplicate job deliveries are dropped.
func (r *ScheduleRepository) ClaimRunning(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	const query = `UPDATE schedules SET status = $2, started_at = $3 WHERE id = $1 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, id, models.ScheduleStatusRunning, startedAt, models.ScheduleStatusDraft)
	if err != nil {
		return false, fmt.Errorf("claim schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim schedule rows affected: %w", err)
	}
	return affected == 1, nil
}

// CompleteWithPlacements stores the placements and flips the schedule to
// completed in one transaction. The status guard keeps a reaped run from
// resurrecting: when the schedule is no longer running nothing is written and
// sql.ErrNoRows comes back.
func (r *ScheduleRepository) CompleteWithPlacements(ctx context.Context, id string, placements []models.ScheduledActivity, finishedAt time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin complete schedule: %w", err)
	}
	defer tx.Rollback()

	const updateQuery = `UPDATE schedules SET status = $2, error_message = NULL, finished_at = $3 WHERE id = $1 AND status = $4`
	result, err := tx.ExecContext(ctx, updateQuery, id, models.ScheduleStatusCompleted, finishedAt, models.ScheduleStatusRunning)
	if err != nil {
		return fmt.Errorf("complete schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete schedule rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	for i := range placements {
		if placements[i].ID == "" {
			placements[i].ID = uuid.NewString()
		}
		placements[i].ScheduleID = id
	}
	if len(placements) > 0 {
		const insertQuery = `INSERT INTO scheduled_activities (id, schedule_id, activity_id, room_id, start_timeslot, active_weeks)
			VALUES (:id, :schedule_id, :activity_id, :room_id, :start_timeslot, :active_weeks)`
		if _, err := tx.NamedExecContext(ctx, insertQuery, placements); err != nil {
			return fmt.Errorf("insert placements: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit complete schedule: %w", err)
	}
	return nil
}

// MarkFailed records a failure classifier on a running schedule. Terminal
// schedules are left untouched and reported via sql.ErrNoRows.
func (r *ScheduleRepository) MarkFailed(ctx context.Context, id, message string, finishedAt time.Time) error {
	const query = `UPDATE schedules SET status = $2, error_message = $3, finished_at = $4 WHERE id = $1 AND status = $5`
	result, err := r.db.ExecContext(ctx, query, id, models.ScheduleStatusFailed, message, finishedAt, models.ScheduleStatusRunning)
	if err != nil {
		return fmt.Errorf("mark schedule failed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark failed rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ReapStale fails every schedule still running since before the cutoff and
// returns how many were reaped.
func (r *ScheduleRepository) ReapStale(ctx context.Context, cutoff time.Time, message string) (int64, error) {
	const query = `UPDATE schedules SET status = $1, error_message = $2, finished_at = $3 WHERE status = $4 AND started_at < $5`
	result, err := r.db.ExecContext(ctx, query, models.ScheduleStatusFailed, message, time.Now().UTC(), models.ScheduleStatusRunning, cutoff)
	if err != nil {
		return 0, fmt.Errorf("reap stale schedules: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reap stale rows affected: %w", err)
	}
	return affected, nil
}
