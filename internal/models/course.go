package models

import "time"

// Course groups activities under one subject. The optional duration field is
// descriptive metadata; scheduling reads durations from the activities themselves.
type Course struct {
	ID                      string    `db:"id" json:"id"`
	InstitutionID           string    `db:"institution_id" json:"institution_id"`
	Name                    string    `db:"name" json:"name"`
	ActivitiesDurationSlots *int      `db:"activities_duration_slots" json:"activities_duration_slots,omitempty"`
	CreatedAt               time.Time `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time `db:"updated_at" json:"updated_at"`
}
