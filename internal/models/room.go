package models

import (
	"time"

	"github.com/lib/pq"
)

// Room is a bookable space. Features are opaque tags matched against an activity's
// required features; capacity is descriptive and takes no part in eligibility.
type Room struct {
	ID            string         `db:"id" json:"id"`
	InstitutionID string         `db:"institution_id" json:"institution_id"`
	Name          string         `db:"name" json:"name"`
	Capacity      int            `db:"capacity" json:"capacity"`
	Features      pq.StringArray `db:"features" json:"features"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// HasFeatures reports whether the room carries every required feature.
func (r Room) HasFeatures(required []string) bool {
	if len(required) == 0 {
		return true
	}
	have := make(map[string]struct{}, len(r.Features))
	for _, f := range r.Features {
		have[f] = struct{}{}
	}
	for _, f := range required {
		if _, ok := have[f]; !ok {
			return false
		}
	}
	return true
}
