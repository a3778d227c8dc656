package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// TimeGridConfig describes the weekly scheduling grid of an institution. The value is
// copied onto every schedule at creation so later edits never affect generated results.
type TimeGridConfig struct {
	Weeks                      int `json:"weeks"`
	Days                       int `json:"days"`
	TimeslotsPerDay            int `json:"timeslots_per_day"`
	MaxTimeslotsPerDayPerGroup int `json:"max_timeslots_per_day_per_group"`
}

// SlotsPerWeek returns the number of linear slot indices in one week.
func (g TimeGridConfig) SlotsPerWeek() int {
	return g.Days * g.TimeslotsPerDay
}

// Value serialises the grid for a JSONB column.
func (g TimeGridConfig) Value() (driver.Value, error) {
	return json.Marshal(g)
}

// Scan reads the grid back from a JSONB column.
func (g *TimeGridConfig) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*g = TimeGridConfig{}
		return nil
	case []byte:
		return json.Unmarshal(v, g)
	case string:
		return json.Unmarshal([]byte(v), g)
	}
	return fmt.Errorf("unsupported time grid config source %T", src)
}
