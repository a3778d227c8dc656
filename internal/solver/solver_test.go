package solver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bogdanivan12/odes/internal/models"
	apperrors "github.com/bogdanivan12/odes/pkg/errors"
)

func sp(s string) *string { return &s }

func testGrid(weeks, days, perDay, dayCap int) models.TimeGridConfig {
	return models.TimeGridConfig{
		Weeks:                      weeks,
		Days:                       days,
		TimeslotsPerDay:            perDay,
		MaxTimeslotsPerDayPerGroup: dayCap,
	}
}

func testRoom(id string, features ...string) models.Room {
	return models.Room{ID: id, InstitutionID: "inst-1", Name: id, Features: features}
}

func testActivity(id, groupID string, duration int, freq models.Frequency) models.Activity {
	return models.Activity{
		ID:            id,
		InstitutionID: "inst-1",
		CourseID:      "course-" + id,
		ActivityType:  models.ActivityTypeCourse,
		DurationSlots: duration,
		GroupID:       groupID,
		Frequency:     freq,
	}
}

var testParams = Params{MaxTime: 5 * time.Second, Workers: 4}

func requireClassifier(t *testing.T, err error, code, message string) {
	t.Helper()
	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
	assert.Equal(t, message, appErr.Message)
}

func TestGenerateSingleActivity(t *testing.T) {
	grid := testGrid(2, 2, 4, 4)
	rooms := []models.Room{testRoom("r1")}
	groups := []models.Group{{ID: "g1"}}
	acts := []models.Activity{testActivity("a1", "g1", 1, models.FrequencyWeekly)}

	placements, err := Generate(grid, acts, rooms, groups, testParams)
	require.NoError(t, err)
	require.Len(t, placements, 1)

	p := placements[0]
	assert.Equal(t, "a1", p.ActivityID)
	assert.Equal(t, "r1", p.RoomID)
	assert.GreaterOrEqual(t, p.StartTimeslot, 0)
	assert.Less(t, p.StartTimeslot, grid.SlotsPerWeek())
	assert.Equal(t, []int64{0, 1}, p.ActiveWeeks)
}

func TestGenerateNoEligibleRoom(t *testing.T) {
	grid := testGrid(1, 2, 4, 4)
	rooms := []models.Room{testRoom("r1")}
	groups := []models.Group{{ID: "g1"}}
	a := testActivity("a1", "g1", 1, models.FrequencyWeekly)
	a.RequiredRoomFeatures = []string{"lab"}

	_, err := Generate(grid, []models.Activity{a}, rooms, groups, testParams)
	requireClassifier(t, err, apperrors.ErrInfeasible.Code, "infeasible:no_eligible_room:a1")
}

func TestGenerateFeatureSubsetMatch(t *testing.T) {
	grid := testGrid(1, 1, 4, 4)
	rooms := []models.Room{
		testRoom("plain"),
		testRoom("lab", "lab", "projector"),
	}
	groups := []models.Group{{ID: "g1"}}
	a := testActivity("a1", "g1", 1, models.FrequencyWeekly)
	a.RequiredRoomFeatures = []string{"lab"}

	placements, err := Generate(grid, []models.Activity{a}, rooms, groups, testParams)
	require.NoError(t, err)
	require.Len(t, placements, 1)
	assert.Equal(t, "lab", placements[0].RoomID)
}

func TestGenerateFrequencyNeedsTwoWeeks(t *testing.T) {
	grid := testGrid(1, 2, 4, 4)
	rooms := []models.Room{testRoom("r1")}
	groups := []models.Group{{ID: "g1"}}

	for _, freq := range []models.Frequency{
		models.FrequencyBiweekly,
		models.FrequencyBiweeklyOdd,
		models.FrequencyBiweeklyEven,
	} {
		a := testActivity("a1", "g1", 1, freq)
		_, err := Generate(grid, []models.Activity{a}, rooms, groups, testParams)
		requireClassifier(t, err, apperrors.ErrInvalidInput.Code, "invalid_input:frequency:a1")
	}
}

func TestGenerateInvalidDuration(t *testing.T) {
	grid := testGrid(1, 2, 4, 4)
	rooms := []models.Room{testRoom("r1")}
	groups := []models.Group{{ID: "g1"}}
	a := testActivity("a1", "g1", 5, models.FrequencyWeekly)

	_, err := Generate(grid, []models.Activity{a}, rooms, groups, testParams)
	requireClassifier(t, err, apperrors.ErrInvalidInput.Code, "invalid_input:duration:a1")
}

func TestGenerateInvalidGrid(t *testing.T) {
	grid := testGrid(0, 2, 4, 4)

	_, err := Generate(grid, nil, nil, nil, testParams)
	requireClassifier(t, err, apperrors.ErrInvalidInput.Code, "invalid_input:grid")
}

func TestGenerateActivityWithUnknownGroup(t *testing.T) {
	grid := testGrid(1, 2, 4, 4)
	rooms := []models.Room{testRoom("r1")}
	groups := []models.Group{{ID: "g1"}}
	a := testActivity("a1", "missing", 1, models.FrequencyWeekly)

	_, err := Generate(grid, []models.Activity{a}, rooms, groups, testParams)
	requireClassifier(t, err, apperrors.ErrInvalidGraph.Code, "invalid_graph")
}

func TestGeneratePinConflicts(t *testing.T) {
	grid := testGrid(2, 2, 4, 4)
	rooms := []models.Room{testRoom("r1")}
	groups := []models.Group{{ID: "g1"}}

	t.Run("start not an allowed start", func(t *testing.T) {
		a := testActivity("a1", "g1", 2, models.FrequencyWeekly)
		a.SelectedTimeslot = &models.SelectedTimeslot{StartTimeslot: 3}

		_, err := Generate(grid, []models.Activity{a}, rooms, groups, testParams)
		requireClassifier(t, err, apperrors.ErrInfeasible.Code, "infeasible:pin_conflict:a1")
	})

	t.Run("week out of range", func(t *testing.T) {
		a := testActivity("a1", "g1", 1, models.FrequencyBiweekly)
		a.SelectedTimeslot = &models.SelectedTimeslot{StartTimeslot: 0, ActiveWeeks: []int64{3}}

		_, err := Generate(grid, []models.Activity{a}, rooms, groups, testParams)
		requireClassifier(t, err, apperrors.ErrInfeasible.Code, "infeasible:pin_conflict:a1")
	})

	t.Run("weeks contradicting frequency solve as infeasible", func(t *testing.T) {
		a := testActivity("a1", "g1", 1, models.FrequencyBiweeklyOdd)
		a.SelectedTimeslot = &models.SelectedTimeslot{StartTimeslot: 0, ActiveWeeks: []int64{1}}

		_, err := Generate(grid, []models.Activity{a}, rooms, groups, testParams)
		requireClassifier(t, err, apperrors.ErrInfeasible.Code, "infeasible")
	})
}

func TestGeneratePinHonored(t *testing.T) {
	grid := testGrid(2, 2, 4, 4)
	rooms := []models.Room{testRoom("r1"), testRoom("r2")}
	groups := []models.Group{{ID: "g1"}}
	a := testActivity("a1", "g1", 1, models.FrequencyBiweekly)
	a.SelectedTimeslot = &models.SelectedTimeslot{StartTimeslot: 4, ActiveWeeks: []int64{1}}

	placements, err := Generate(grid, []models.Activity{a}, rooms, groups, testParams)
	require.NoError(t, err)
	require.Len(t, placements, 1)
	assert.Equal(t, 4, placements[0].StartTimeslot)
	assert.Equal(t, []int64{1}, placements[0].ActiveWeeks)
}

func TestGenerateRoomContention(t *testing.T) {
	grid := testGrid(1, 1, 2, 2)
	rooms := []models.Room{testRoom("r1")}
	groups := []models.Group{{ID: "g1"}, {ID: "g2"}}
	acts := []models.Activity{
		testActivity("a1", "g1", 1, models.FrequencyWeekly),
		testActivity("a2", "g2", 1, models.FrequencyWeekly),
	}

	placements, err := Generate(grid, acts, rooms, groups, testParams)
	require.NoError(t, err)
	require.Len(t, placements, 2)
	assert.NotEqual(t, placements[0].StartTimeslot, placements[1].StartTimeslot)
}

func TestGenerateMultiSlotOverlap(t *testing.T) {
	grid := testGrid(1, 1, 4, 4)
	rooms := []models.Room{testRoom("r1")}
	groups := []models.Group{{ID: "g1"}, {ID: "g2"}}
	acts := []models.Activity{
		testActivity("a1", "g1", 2, models.FrequencyWeekly),
		testActivity("a2", "g2", 2, models.FrequencyWeekly),
	}

	placements, err := Generate(grid, acts, rooms, groups, testParams)
	require.NoError(t, err)
	require.Len(t, placements, 2)

	s1, s2 := placements[0].StartTimeslot, placements[1].StartTimeslot
	if s1 > s2 {
		s1, s2 = s2, s1
	}
	assert.GreaterOrEqual(t, s2-s1, 2, "two-slot placements in one room must not overlap")
}

func TestGenerateProfessorExclusive(t *testing.T) {
	grid := testGrid(1, 1, 2, 2)
	rooms := []models.Room{testRoom("r1"), testRoom("r2")}
	groups := []models.Group{{ID: "g1"}, {ID: "g2"}}
	a1 := testActivity("a1", "g1", 1, models.FrequencyWeekly)
	a1.ProfessorID = sp("prof-1")
	a2 := testActivity("a2", "g2", 1, models.FrequencyWeekly)
	a2.ProfessorID = sp("prof-1")

	placements, err := Generate(grid, []models.Activity{a1, a2}, rooms, groups, testParams)
	require.NoError(t, err)
	require.Len(t, placements, 2)
	assert.NotEqual(t, placements[0].StartTimeslot, placements[1].StartTimeslot)
}

func TestGenerateAncestryExclusive(t *testing.T) {
	grid := testGrid(1, 1, 2, 2)
	rooms := []models.Room{testRoom("r1"), testRoom("r2")}
	groups := []models.Group{
		{ID: "parent"},
		{ID: "child", ParentGroupID: sp("parent")},
	}
	acts := []models.Activity{
		testActivity("a1", "parent", 1, models.FrequencyWeekly),
		testActivity("a2", "child", 1, models.FrequencyWeekly),
	}

	placements, err := Generate(grid, acts, rooms, groups, testParams)
	require.NoError(t, err)
	require.Len(t, placements, 2)
	assert.NotEqual(t, placements[0].StartTimeslot, placements[1].StartTimeslot,
		"parent and child group activities must not overlap")
}

func TestGenerateSiblingsMayOverlap(t *testing.T) {
	grid := testGrid(1, 1, 1, 1)
	rooms := []models.Room{testRoom("r1"), testRoom("r2")}
	groups := []models.Group{
		{ID: "parent"},
		{ID: "left", ParentGroupID: sp("parent")},
		{ID: "right", ParentGroupID: sp("parent")},
	}
	acts := []models.Activity{
		testActivity("a1", "left", 1, models.FrequencyWeekly),
		testActivity("a2", "right", 1, models.FrequencyWeekly),
	}

	placements, err := Generate(grid, acts, rooms, groups, testParams)
	require.NoError(t, err)
	require.Len(t, placements, 2)
	assert.Equal(t, 0, placements[0].StartTimeslot)
	assert.Equal(t, 0, placements[1].StartTimeslot)
	assert.NotEqual(t, placements[0].RoomID, placements[1].RoomID)
}

func TestGenerateDailyCap(t *testing.T) {
	t.Run("spreads activities across days", func(t *testing.T) {
		grid := testGrid(1, 2, 2, 1)
		rooms := []models.Room{testRoom("r1")}
		groups := []models.Group{{ID: "g1"}}
		acts := []models.Activity{
			testActivity("a1", "g1", 1, models.FrequencyWeekly),
			testActivity("a2", "g1", 1, models.FrequencyWeekly),
		}

		placements, err := Generate(grid, acts, rooms, groups, testParams)
		require.NoError(t, err)
		require.Len(t, placements, 2)
		assert.NotEqual(t,
			dayOfSlot(grid, placements[0].StartTimeslot),
			dayOfSlot(grid, placements[1].StartTimeslot))
	})

	t.Run("infeasible when a single day cannot hold the load", func(t *testing.T) {
		grid := testGrid(1, 1, 2, 1)
		rooms := []models.Room{testRoom("r1")}
		groups := []models.Group{{ID: "g1"}}
		acts := []models.Activity{
			testActivity("a1", "g1", 1, models.FrequencyWeekly),
			testActivity("a2", "g1", 1, models.FrequencyWeekly),
		}

		_, err := Generate(grid, acts, rooms, groups, testParams)
		requireClassifier(t, err, apperrors.ErrInfeasible.Code, "infeasible")
	})

	t.Run("counts every covered slot of multi-slot placements", func(t *testing.T) {
		grid := testGrid(1, 1, 8, 6)
		rooms := []models.Room{testRoom("r1")}
		groups := []models.Group{{ID: "g1"}}
		acts := []models.Activity{
			testActivity("a1", "g1", 2, models.FrequencyWeekly),
			testActivity("a2", "g1", 2, models.FrequencyWeekly),
			testActivity("a3", "g1", 2, models.FrequencyWeekly),
			testActivity("a4", "g1", 2, models.FrequencyWeekly),
		}

		// Demand is 8 covered slots against a cap of 6.
		_, err := Generate(grid, acts, rooms, groups, testParams)
		requireClassifier(t, err, apperrors.ErrInfeasible.Code, "infeasible")

		// Raising the cap to exactly the demand admits the packing.
		grid.MaxTimeslotsPerDayPerGroup = 8
		placements, err := Generate(grid, acts, rooms, groups, testParams)
		require.NoError(t, err)
		assert.Len(t, placements, 4)
	})
}

func TestGenerateBiweeklySeparation(t *testing.T) {
	grid := testGrid(2, 1, 2, 2)
	rooms := []models.Room{testRoom("r1")}
	groups := []models.Group{{ID: "g1"}}
	acts := []models.Activity{
		testActivity("a1", "g1", 2, models.FrequencyBiweekly),
		testActivity("a2", "g1", 2, models.FrequencyBiweekly),
	}

	placements, err := Generate(grid, acts, rooms, groups, testParams)
	require.NoError(t, err)
	require.Len(t, placements, 2)

	require.Len(t, placements[0].ActiveWeeks, 1)
	require.Len(t, placements[1].ActiveWeeks, 1)
	assert.NotEqual(t, placements[0].ActiveWeeks[0], placements[1].ActiveWeeks[0],
		"two whole-day biweekly activities must take different weeks")
}

func TestGenerateFrequencyPatterns(t *testing.T) {
	grid := testGrid(2, 1, 4, 4)
	rooms := []models.Room{testRoom("r1")}
	groups := []models.Group{{ID: "g1"}, {ID: "g2"}, {ID: "g3"}, {ID: "g4"}}
	acts := []models.Activity{
		testActivity("a-weekly", "g1", 1, models.FrequencyWeekly),
		testActivity("a-biweekly", "g2", 1, models.FrequencyBiweekly),
		testActivity("a-odd", "g3", 1, models.FrequencyBiweeklyOdd),
		testActivity("a-even", "g4", 1, models.FrequencyBiweeklyEven),
	}

	placements, err := Generate(grid, acts, rooms, groups, testParams)
	require.NoError(t, err)
	require.Len(t, placements, 4)

	byID := map[string]Placement{}
	for _, p := range placements {
		byID[p.ActivityID] = p
	}
	assert.Equal(t, []int64{0, 1}, byID["a-weekly"].ActiveWeeks)
	assert.Len(t, byID["a-biweekly"].ActiveWeeks, 1)
	assert.Equal(t, []int64{0}, byID["a-odd"].ActiveWeeks)
	assert.Equal(t, []int64{1}, byID["a-even"].ActiveWeeks)
}

func TestGenerateTimeout(t *testing.T) {
	grid := testGrid(1, 1, 3, 3)
	rooms := []models.Room{testRoom("r1")}
	groups := []models.Group{{ID: "g1"}, {ID: "g2"}, {ID: "g3"}}
	acts := []models.Activity{
		testActivity("a1", "g1", 1, models.FrequencyWeekly),
		testActivity("a2", "g2", 1, models.FrequencyWeekly),
		testActivity("a3", "g3", 1, models.FrequencyWeekly),
	}

	_, err := Generate(grid, acts, rooms, groups, Params{MaxTime: time.Nanosecond, Workers: 2})
	requireClassifier(t, err, apperrors.ErrTimeout.Code, "timeout")
}

func TestGenerateDeterministic(t *testing.T) {
	grid, acts, rooms, groups := propertyFixture()

	first, err := Generate(grid, acts, rooms, groups, testParams)
	require.NoError(t, err)
	second, err := Generate(grid, acts, rooms, groups, testParams)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func propertyFixture() (models.TimeGridConfig, []models.Activity, []models.Room, []models.Group) {
	grid := testGrid(2, 5, 4, 3)
	rooms := []models.Room{
		testRoom("r-lab", "lab"),
		testRoom("r-101"),
		testRoom("r-102"),
	}
	groups := []models.Group{
		{ID: "year"},
		{ID: "series", ParentGroupID: sp("year")},
		{ID: "g1", ParentGroupID: sp("series")},
		{ID: "g2", ParentGroupID: sp("series")},
	}

	a1 := testActivity("a1", "year", 2, models.FrequencyWeekly)
	a1.ProfessorID = sp("prof-1")
	a2 := testActivity("a2", "g1", 1, models.FrequencyBiweekly)
	a2.ProfessorID = sp("prof-1")
	a2.RequiredRoomFeatures = []string{"lab"}
	a3 := testActivity("a3", "g2", 1, models.FrequencyBiweeklyOdd)
	a3.ProfessorID = sp("prof-2")
	a4 := testActivity("a4", "g1", 1, models.FrequencyWeekly)
	a5 := testActivity("a5", "g2", 2, models.FrequencyBiweeklyEven)

	return grid, []models.Activity{a1, a2, a3, a4, a5}, rooms, groups
}

func TestGenerateProperties(t *testing.T) {
	grid, acts, rooms, groups := propertyFixture()

	placements, err := Generate(grid, acts, rooms, groups, testParams)
	require.NoError(t, err)
	require.Len(t, placements, len(acts))

	actByID := map[string]models.Activity{}
	for _, a := range acts {
		actByID[a.ID] = a
	}
	byID := map[string]Placement{}
	for _, p := range placements {
		_, dup := byID[p.ActivityID]
		require.False(t, dup, "activity %s placed twice", p.ActivityID)
		byID[p.ActivityID] = p
	}

	type cell struct {
		week int64
		slot int
	}

	// Containment and week laws.
	for id, p := range byID {
		a := actByID[id]
		day := dayOfSlot(grid, p.StartTimeslot)
		last := p.StartTimeslot + a.DurationSlots - 1
		assert.Equal(t, day, dayOfSlot(grid, last), "placement of %s crosses a day boundary", id)
		for _, k := range p.ActiveWeeks {
			assert.GreaterOrEqual(t, k, int64(0))
			assert.Less(t, k, int64(grid.Weeks))
		}
		switch a.Frequency {
		case models.FrequencyWeekly:
			assert.Len(t, p.ActiveWeeks, grid.Weeks, "weekly %s must run every week", id)
		case models.FrequencyBiweekly:
			assert.Len(t, p.ActiveWeeks, 1)
		case models.FrequencyBiweeklyOdd:
			assert.Equal(t, []int64{0}, p.ActiveWeeks)
		case models.FrequencyBiweeklyEven:
			assert.Equal(t, []int64{1}, p.ActiveWeeks)
		}
	}

	// Feature eligibility.
	assert.Equal(t, "r-lab", byID["a2"].RoomID)

	// Room and professor exclusivity over expanded occupancy.
	roomBusy := map[string]map[cell]int{}
	profBusy := map[string]map[cell]int{}
	for id, p := range byID {
		a := actByID[id]
		for _, k := range p.ActiveWeeks {
			for _, slot := range coveredSlots(p.StartTimeslot, a.DurationSlots) {
				c := cell{week: k, slot: slot}
				if roomBusy[p.RoomID] == nil {
					roomBusy[p.RoomID] = map[cell]int{}
				}
				roomBusy[p.RoomID][c]++
				assert.LessOrEqual(t, roomBusy[p.RoomID][c], 1, "room %s double-booked at %+v", p.RoomID, c)
				if a.ProfessorID != nil {
					if profBusy[*a.ProfessorID] == nil {
						profBusy[*a.ProfessorID] = map[cell]int{}
					}
					profBusy[*a.ProfessorID][c]++
					assert.LessOrEqual(t, profBusy[*a.ProfessorID][c], 1, "professor %s double-booked at %+v", *a.ProfessorID, c)
				}
			}
		}
	}

	// Group-closure exclusivity and daily load.
	ancestors, err := buildAncestry(groups)
	require.NoError(t, err)
	for _, g := range groups {
		// attended(g): the group's own activities plus those of its ancestors
		attended := func(a models.Activity) bool {
			if a.GroupID == g.ID {
				return true
			}
			for _, anc := range ancestors[g.ID] {
				if anc == a.GroupID {
					return true
				}
			}
			return false
		}

		busy := map[cell]int{}
		type dayKey struct {
			week int64
			day  int
		}
		load := map[dayKey]int{}
		for id, p := range byID {
			a := actByID[id]
			if !attended(a) {
				continue
			}
			for _, k := range p.ActiveWeeks {
				for _, slot := range coveredSlots(p.StartTimeslot, a.DurationSlots) {
					c := cell{week: k, slot: slot}
					busy[c]++
					assert.LessOrEqual(t, busy[c], 1, "group %s overlaps at %+v", g.ID, c)
					load[dayKey{week: k, day: dayOfSlot(grid, slot)}]++
				}
			}
		}
		for dk, n := range load {
			assert.LessOrEqual(t, n, grid.MaxTimeslotsPerDayPerGroup,
				"group %s over daily cap at %+v", g.ID, dk)
		}
	}
}

func TestGenerateEmptyGroupListWithNoActivities(t *testing.T) {
	grid := testGrid(1, 1, 2, 2)

	placements, err := Generate(grid, nil, []models.Room{testRoom("r1")}, nil, testParams)
	require.NoError(t, err)
	assert.Empty(t, placements)
}
