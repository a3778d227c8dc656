package models

import "time"

// Group is a node in the institution's student-group forest (series, groups,
// subgroups). A group shares students with all of its ancestors and descendants.
type Group struct {
	ID            string    `db:"id" json:"id"`
	InstitutionID string    `db:"institution_id" json:"institution_id"`
	Name          string    `db:"name" json:"name"`
	ParentGroupID *string   `db:"parent_group_id" json:"parent_group_id,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}
