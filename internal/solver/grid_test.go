package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bogdanivan12/odes/internal/models"
	apperrors "github.com/bogdanivan12/odes/pkg/errors"
)

func TestValidateGrid(t *testing.T) {
	valid := models.TimeGridConfig{Weeks: 2, Days: 5, TimeslotsPerDay: 6, MaxTimeslotsPerDayPerGroup: 4}
	assert.NoError(t, validateGrid(valid))

	for name, grid := range map[string]models.TimeGridConfig{
		"zero weeks":    {Weeks: 0, Days: 5, TimeslotsPerDay: 6, MaxTimeslotsPerDayPerGroup: 4},
		"zero days":     {Weeks: 2, Days: 0, TimeslotsPerDay: 6, MaxTimeslotsPerDayPerGroup: 4},
		"zero slots":    {Weeks: 2, Days: 5, TimeslotsPerDay: 0, MaxTimeslotsPerDayPerGroup: 4},
		"zero day cap":  {Weeks: 2, Days: 5, TimeslotsPerDay: 6, MaxTimeslotsPerDayPerGroup: 0},
		"negative days": {Weeks: 2, Days: -1, TimeslotsPerDay: 6, MaxTimeslotsPerDayPerGroup: 4},
	} {
		t.Run(name, func(t *testing.T) {
			err := validateGrid(grid)
			var appErr *apperrors.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, "invalid_input:grid", appErr.Message)
		})
	}
}

func TestAllowedStarts(t *testing.T) {
	grid := models.TimeGridConfig{Weeks: 1, Days: 2, TimeslotsPerDay: 4, MaxTimeslotsPerDayPerGroup: 4}

	starts, err := allowedStarts(grid, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, starts)

	starts, err = allowedStarts(grid, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 4, 5}, starts)

	starts, err = allowedStarts(grid, 4)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 4}, starts)
}

func TestAllowedStartsRejectsBadDuration(t *testing.T) {
	grid := models.TimeGridConfig{Weeks: 1, Days: 2, TimeslotsPerDay: 4, MaxTimeslotsPerDayPerGroup: 4}

	for _, duration := range []int{0, -1, 5} {
		_, err := allowedStarts(grid, duration)
		var appErr *apperrors.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperrors.ErrInvalidInput.Code, appErr.Code)
	}
}

func TestCoveredSlots(t *testing.T) {
	assert.Equal(t, []int{5}, coveredSlots(5, 1))
	assert.Equal(t, []int{2, 3, 4}, coveredSlots(2, 3))
}

func TestDayOfSlot(t *testing.T) {
	grid := models.TimeGridConfig{Weeks: 1, Days: 3, TimeslotsPerDay: 4, MaxTimeslotsPerDayPerGroup: 4}
	assert.Equal(t, 0, dayOfSlot(grid, 0))
	assert.Equal(t, 0, dayOfSlot(grid, 3))
	assert.Equal(t, 1, dayOfSlot(grid, 4))
	assert.Equal(t, 2, dayOfSlot(grid, 11))
}
