package models

import "time"

// Institution is the root of ownership; every other entity references exactly one.
type Institution struct {
	ID             string         `db:"id" json:"id"`
	Name           string         `db:"name" json:"name"`
	TimeGridConfig TimeGridConfig `db:"time_grid_config" json:"time_grid_config"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// InstitutionFilter captures listing options for institutions.
type InstitutionFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
