package solver

import (
	"github.com/bogdanivan12/odes/internal/models"
	apperrors "github.com/bogdanivan12/odes/pkg/errors"
)

// validateGrid rejects non-positive grid dimensions.
func validateGrid(grid models.TimeGridConfig) error {
	if grid.Weeks < 1 || grid.Days < 1 || grid.TimeslotsPerDay < 1 || grid.MaxTimeslotsPerDayPerGroup < 1 {
		return apperrors.Clone(apperrors.ErrInvalidInput, "invalid_input:grid")
	}
	return nil
}

// slotIndex maps (day, slot within day) to the linear index inside one week.
func slotIndex(grid models.TimeGridConfig, day, slot int) int {
	return day*grid.TimeslotsPerDay + slot
}

// dayOfSlot returns the day a linear slot index falls on.
func dayOfSlot(grid models.TimeGridConfig, slot int) int {
	return slot / grid.TimeslotsPerDay
}

// coveredSlots lists the linear indices occupied from start for duration slots.
func coveredSlots(start, duration int) []int {
	out := make([]int, duration)
	for i := 0; i < duration; i++ {
		out[i] = start + i
	}
	return out
}

// allowedStarts enumerates every start at which an activity of the given duration
// fits inside a single day, for each day of the week.
func allowedStarts(grid models.TimeGridConfig, duration int) ([]int, error) {
	if duration < 1 || duration > grid.TimeslotsPerDay {
		return nil, apperrors.Clone(apperrors.ErrInvalidInput, "invalid_input:duration")
	}
	starts := make([]int, 0, grid.Days*(grid.TimeslotsPerDay-duration+1))
	for day := 0; day < grid.Days; day++ {
		for s := 0; s+duration <= grid.TimeslotsPerDay; s++ {
			starts = append(starts, slotIndex(grid, day, s))
		}
	}
	return starts, nil
}
