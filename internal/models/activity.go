package models

import (
	"time"

	"github.com/lib/pq"
)

// ActivityType classifies a teaching activity.
type ActivityType string

const (
	ActivityTypeCourse     ActivityType = "course"
	ActivityTypeSeminar    ActivityType = "seminar"
	ActivityTypeLaboratory ActivityType = "laboratory"
	ActivityTypeOther      ActivityType = "other"
)

// Valid reports whether the value is one of the known activity types.
func (t ActivityType) Valid() bool {
	switch t {
	case ActivityTypeCourse, ActivityTypeSeminar, ActivityTypeLaboratory, ActivityTypeOther:
		return true
	}
	return false
}

// Frequency governs the active-weeks pattern of an activity.
type Frequency string

const (
	FrequencyWeekly       Frequency = "weekly"
	FrequencyBiweekly     Frequency = "biweekly"
	FrequencyBiweeklyOdd  Frequency = "biweekly_odd"
	FrequencyBiweeklyEven Frequency = "biweekly_even"
)

// Valid reports whether the value is one of the known frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyBiweeklyOdd, FrequencyBiweeklyEven:
		return true
	}
	return false
}

// SelectedTimeslot is a manual pin: a fixed start and, optionally, fixed active weeks.
type SelectedTimeslot struct {
	StartTimeslot int     `json:"start_timeslot"`
	ActiveWeeks   []int64 `json:"active_weeks,omitempty"`
}

// Activity is the schedulable unit: one course occurrence for one group, optionally
// taught by a professor, needing rooms with certain features.
//
// The pin is stored flattened (start column + weeks column) and exposed nested on the
// wire; repositories hydrate SelectedTimeslot from the flat columns.
type Activity struct {
	ID                    string            `db:"id" json:"id"`
	InstitutionID         string            `db:"institution_id" json:"institution_id"`
	CourseID              string            `db:"course_id" json:"course_id"`
	ActivityType          ActivityType      `db:"activity_type" json:"activity_type"`
	DurationSlots         int               `db:"duration_slots" json:"duration_slots"`
	GroupID               string            `db:"group_id" json:"group_id"`
	ProfessorID           *string           `db:"professor_id" json:"professor_id,omitempty"`
	RequiredRoomFeatures  pq.StringArray    `db:"required_room_features" json:"required_room_features"`
	Frequency             Frequency         `db:"frequency" json:"frequency"`
	SelectedStartTimeslot *int64            `db:"selected_start_timeslot" json:"-"`
	SelectedActiveWeeks   pq.Int64Array     `db:"selected_active_weeks" json:"-"`
	SelectedTimeslot      *SelectedTimeslot `db:"-" json:"selected_timeslot,omitempty"`
	CreatedAt             time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time         `db:"updated_at" json:"updated_at"`
}

// ActivityFilter narrows activity listings.
type ActivityFilter struct {
	GroupID     string
	CourseID    string
	ProfessorID string
}

// HydratePin rebuilds the nested pin from the flat columns after a row scan.
func (a *Activity) HydratePin() {
	if a.SelectedStartTimeslot == nil {
		a.SelectedTimeslot = nil
		return
	}
	a.SelectedTimeslot = &SelectedTimeslot{
		StartTimeslot: int(*a.SelectedStartTimeslot),
		ActiveWeeks:   append([]int64(nil), a.SelectedActiveWeeks...),
	}
}

// FlattenPin projects the nested pin onto the flat columns before a write.
func (a *Activity) FlattenPin() {
	if a.SelectedTimeslot == nil {
		a.SelectedStartTimeslot = nil
		a.SelectedActiveWeeks = nil
		return
	}
	start := int64(a.SelectedTimeslot.StartTimeslot)
	a.SelectedStartTimeslot = &start
	a.SelectedActiveWeeks = append(pq.Int64Array(nil), a.SelectedTimeslot.ActiveWeeks...)
}
