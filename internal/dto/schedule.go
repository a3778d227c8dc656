package dto

import "github.com/bogdanivan12/odes/internal/models"

// GenerateScheduleRequest asks for a new generation run over an institution.
type GenerateScheduleRequest struct {
	InstitutionID string `json:"institution_id" validate:"required"`
}

// UpdateScheduleRequest patches a schedule's lifecycle fields. Only transitions
// the state machine allows go through.
type UpdateScheduleRequest struct {
	Status       *models.ScheduleStatus `json:"status,omitempty"`
	ErrorMessage *string                `json:"error_message,omitempty"`
}

// ScheduleListQuery filters schedule listings.
type ScheduleListQuery struct {
	InstitutionID string `form:"institution_id" validate:"required"`
	Status        string `form:"status"`
	Page          int    `form:"page"`
	PageSize      int    `form:"page_size"`
	SortBy        string `form:"sort_by"`
	SortOrder     string `form:"sort_order"`
}

// ScheduleListResponse wraps the schedules of one listing page.
type ScheduleListResponse struct {
	Schedules []models.Schedule `json:"schedules"`
}

// ScheduledActivityListResponse wraps the placements of a schedule.
type ScheduledActivityListResponse struct {
	ScheduledActivities []models.ScheduledActivity `json:"scheduled_activities"`
}

// TimetableQuery selects the scope of a timetable view; exactly one of the
// three ids must be set.
type TimetableQuery struct {
	GroupID     string `form:"group_id"`
	ProfessorID string `form:"professor_id"`
	RoomID      string `form:"room_id"`
}
