package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/bogdanivan12/odes/internal/models"
)

// ScheduledActivityRepository reads placements of completed schedules, raw and
// joined with display data for the timetable views.
type ScheduledActivityRepository struct {
	db *sqlx.DB
}

// NewScheduledActivityRepository constructs a ScheduledActivityRepository.
func NewScheduledActivityRepository(db *sqlx.DB) *ScheduledActivityRepository {
	return &ScheduledActivityRepository{db: db}
}

// ListBySchedule returns the placements of a schedule.
func (r *ScheduledActivityRepository) ListBySchedule(ctx context.Context, scheduleID string) ([]models.ScheduledActivity, error) {
	const query = `SELECT id, schedule_id, activity_id, room_id, start_timeslot, active_weeks FROM scheduled_activities WHERE schedule_id = $1 ORDER BY start_timeslot, id`
	var placements []models.ScheduledActivity
	if err := r.db.SelectContext(ctx, &placements, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list placements: %w", err)
	}
	return placements, nil
}

// CountBySchedule returns the number of placements of a schedule.
func (r *ScheduledActivityRepository) CountBySchedule(ctx context.Context, scheduleID string) (int, error) {
	const query = `SELECT COUNT(*) FROM scheduled_activities WHERE schedule_id = $1`
	var total int
	if err := r.db.GetContext(ctx, &total, query, scheduleID); err != nil {
		return 0, fmt.Errorf("count placements: %w", err)
	}
	return total, nil
}

const timetableEntryColumns = `sa.activity_id, c.name AS course_name, a.activity_type, a.group_id, g.name AS group_name,
	a.professor_id, u.full_name AS professor_name, sa.room_id, rm.name AS room_name,
	sa.start_timeslot, a.duration_slots, sa.active_weeks`

const timetableEntryJoins = `FROM scheduled_activities sa
	JOIN activities a ON a.id = sa.activity_id
	JOIN courses c ON c.id = a.course_id
	JOIN groups g ON g.id = a.group_id
	JOIN rooms rm ON rm.id = sa.room_id
	LEFT JOIN users u ON u.id = a.professor_id`

// ListEntries returns placements joined with course, group, room and professor
// names, narrowed by the filter. GroupIDs matches the activity's own group; the
// caller passes the full attendance chain when it wants inherited placements.
func (r *ScheduledActivityRepository) ListEntries(ctx context.Context, scheduleID string, filter models.TimetableFilter) ([]models.TimetableEntry, error) {
	base := fmt.Sprintf("%s WHERE sa.schedule_id = $1", timetableEntryJoins)
	args := []interface{}{scheduleID}

	var conditions []string
	if len(filter.GroupIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("a.group_id = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.GroupIDs))
	}
	if filter.ProfessorID != "" {
		conditions = append(conditions, fmt.Sprintf("a.professor_id = $%d", len(args)+1))
		args = append(args, filter.ProfessorID)
	}
	if filter.RoomID != "" {
		conditions = append(conditions, fmt.Sprintf("sa.room_id = $%d", len(args)+1))
		args = append(args, filter.RoomID)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY sa.start_timeslot, sa.id", timetableEntryColumns, base)
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list timetable entries: %w", err)
	}
	return entries, nil
}

// RoomUtilisation aggregates occupied slot-weeks per room for a schedule.
func (r *ScheduledActivityRepository) RoomUtilisation(ctx context.Context, scheduleID string) ([]models.RoomUtilisation, error) {
	const query = `SELECT sa.room_id, rm.name AS room_name,
	COALESCE(SUM(a.duration_slots * COALESCE(array_length(sa.active_weeks, 1), 0)), 0) AS occupied_slot_weeks
FROM scheduled_activities sa
	JOIN activities a ON a.id = sa.activity_id
	JOIN rooms rm ON rm.id = sa.room_id
WHERE sa.schedule_id = $1
GROUP BY sa.room_id, rm.name
ORDER BY occupied_slot_weeks DESC, sa.room_id`
	var rows []models.RoomUtilisation
	if err := r.db.SelectContext(ctx, &rows, query, scheduleID); err != nil {
		return nil, fmt.Errorf("room utilisation: %w", err)
	}
	return rows, nil
}

// ProfessorLoad aggregates taught slot-weeks per professor for a schedule.
func (r *ScheduledActivityRepository) ProfessorLoad(ctx context.Context, scheduleID string) ([]models.ProfessorLoad, error) {
	const query = `SELECT a.professor_id, u.full_name AS professor_name,
	COALESCE(SUM(a.duration_slots * COALESCE(array_length(sa.active_weeks, 1), 0)), 0) AS slot_weeks,
	COUNT(*) AS activities
FROM scheduled_activities sa
	JOIN activities a ON a.id = sa.activity_id
	JOIN users u ON u.id = a.professor_id
WHERE sa.schedule_id = $1 AND a.professor_id IS NOT NULL
GROUP BY a.professor_id, u.full_name
ORDER BY slot_weeks DESC, a.professor_id`
	var rows []models.ProfessorLoad
	if err := r.db.SelectContext(ctx, &rows, query, scheduleID); err != nil {
		return nil, fmt.Errorf("professor load: %w", err)
	}
	return rows, nil
}
