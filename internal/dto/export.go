package dto

import "time"

// ExportScheduleRequest renders a completed schedule into a downloadable file.
type ExportScheduleRequest struct {
	Format  string `json:"format" validate:"required,oneof=csv pdf"`
	GroupID string `json:"group_id,omitempty"`
}

// ExportScheduleResponse returns the signed download location.
type ExportScheduleResponse struct {
	URL       string    `json:"url"`
	Format    string    `json:"format"`
	ExpiresAt time.Time `json:"expires_at"`
}
