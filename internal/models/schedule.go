package models

import "time"

// ScheduleStatus represents the lifecycle phase of a generation run.
type ScheduleStatus string

const (
	ScheduleStatusDraft     ScheduleStatus = "draft"
	ScheduleStatusRunning   ScheduleStatus = "running"
	ScheduleStatusCompleted ScheduleStatus = "completed"
	ScheduleStatusFailed    ScheduleStatus = "failed"
)

// Terminal reports whether no further transition is possible.
func (s ScheduleStatus) Terminal() bool {
	return s == ScheduleStatusCompleted || s == ScheduleStatusFailed
}

// Valid reports whether the value is one of the known statuses.
func (s ScheduleStatus) Valid() bool {
	switch s {
	case ScheduleStatusDraft, ScheduleStatusRunning, ScheduleStatusCompleted, ScheduleStatusFailed:
		return true
	}
	return false
}

// Schedule is one generation run for an institution. It carries its own copy of the
// time grid; placements exist only once the status reaches completed.
type Schedule struct {
	ID             string         `db:"id" json:"id"`
	InstitutionID  string         `db:"institution_id" json:"institution_id"`
	TimeGridConfig TimeGridConfig `db:"time_grid_config" json:"time_grid_config"`
	Timestamp      time.Time      `db:"timestamp" json:"timestamp"`
	Status         ScheduleStatus `db:"status" json:"status"`
	ErrorMessage   *string        `db:"error_message" json:"error_message,omitempty"`
	StartedAt      *time.Time     `db:"started_at" json:"started_at,omitempty"`
	FinishedAt     *time.Time     `db:"finished_at" json:"finished_at,omitempty"`
}

// ScheduleFilter captures listing options for schedules.
type ScheduleFilter struct {
	InstitutionID string
	Status        *ScheduleStatus
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}
