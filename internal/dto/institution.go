package dto

import "github.com/bogdanivan12/odes/internal/models"

// TimeGridRequest carries the four grid dimensions. All must be positive.
type TimeGridRequest struct {
	Weeks                      int `json:"weeks" validate:"required,min=1"`
	Days                       int `json:"days" validate:"required,min=1"`
	TimeslotsPerDay            int `json:"timeslots_per_day" validate:"required,min=1"`
	MaxTimeslotsPerDayPerGroup int `json:"max_timeslots_per_day_per_group" validate:"required,min=1"`
}

// Grid converts the request into the model value.
func (r TimeGridRequest) Grid() models.TimeGridConfig {
	return models.TimeGridConfig{
		Weeks:                      r.Weeks,
		Days:                       r.Days,
		TimeslotsPerDay:            r.TimeslotsPerDay,
		MaxTimeslotsPerDayPerGroup: r.MaxTimeslotsPerDayPerGroup,
	}
}

// CreateInstitutionRequest registers a new institution with its grid.
type CreateInstitutionRequest struct {
	Name           string          `json:"name" validate:"required"`
	TimeGridConfig TimeGridRequest `json:"time_grid_config" validate:"required"`
}

// UpdateInstitutionRequest renames an institution.
type UpdateInstitutionRequest struct {
	Name string `json:"name" validate:"required"`
}
