package models

import "github.com/lib/pq"

// TimetableEntry is one placement joined with display names and positioned on the
// day/slot grid. Day and Slot are derived from the start index by the view layer.
type TimetableEntry struct {
	ActivityID    string        `db:"activity_id" json:"activity_id"`
	CourseName    string        `db:"course_name" json:"course_name"`
	ActivityType  ActivityType  `db:"activity_type" json:"activity_type"`
	GroupID       string        `db:"group_id" json:"group_id"`
	GroupName     string        `db:"group_name" json:"group_name"`
	ProfessorID   *string       `db:"professor_id" json:"professor_id,omitempty"`
	ProfessorName *string       `db:"professor_name" json:"professor_name,omitempty"`
	RoomID        string        `db:"room_id" json:"room_id"`
	RoomName      string        `db:"room_name" json:"room_name"`
	StartTimeslot int           `db:"start_timeslot" json:"start_timeslot"`
	DurationSlots int           `db:"duration_slots" json:"duration_slots"`
	ActiveWeeks   pq.Int64Array `db:"active_weeks" json:"active_weeks"`
	Day           int           `db:"-" json:"day"`
	Slot          int           `db:"-" json:"slot"`
}

// TimetableFilter narrows a timetable query to one scope. GroupIDs carries the
// whole attendance chain of the requested group so inherited placements appear.
type TimetableFilter struct {
	GroupIDs    []string
	ProfessorID string
	RoomID      string
}

// TimetableView is the week grid for one scope: a group (including inherited
// placements from ancestor groups), a professor, or a room.
type TimetableView struct {
	ScheduleID  string           `json:"schedule_id"`
	GroupID     string           `json:"group_id,omitempty"`
	ProfessorID string           `json:"professor_id,omitempty"`
	RoomID      string           `json:"room_id,omitempty"`
	TimeGrid    TimeGridConfig   `json:"time_grid_config"`
	Entries     []TimetableEntry `json:"entries"`
}

// RoomUtilisation aggregates occupied slot-weeks for one room across a schedule.
type RoomUtilisation struct {
	RoomID            string  `db:"room_id" json:"room_id"`
	RoomName          string  `db:"room_name" json:"room_name"`
	OccupiedSlotWeeks int     `db:"occupied_slot_weeks" json:"occupied_slot_weeks"`
	Utilisation       float64 `db:"-" json:"utilisation"`
}

// ProfessorLoad aggregates taught slot-weeks for one professor across a schedule.
type ProfessorLoad struct {
	ProfessorID   string `db:"professor_id" json:"professor_id"`
	ProfessorName string `db:"professor_name" json:"professor_name"`
	SlotWeeks     int    `db:"slot_weeks" json:"slot_weeks"`
	Activities    int    `db:"activities" json:"activities"`
}

// ScheduleStats summarises a completed schedule.
type ScheduleStats struct {
	ScheduleID      string            `json:"schedule_id"`
	TotalPlacements int               `json:"total_placements"`
	RoomUtilisation []RoomUtilisation `json:"room_utilisation"`
	ProfessorLoad   []ProfessorLoad   `json:"professor_load"`
}
