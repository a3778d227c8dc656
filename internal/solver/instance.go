package solver

import (
	"fmt"

	"github.com/bogdanivan12/odes/internal/models"
	apperrors "github.com/bogdanivan12/odes/pkg/errors"
)

// instance carries the prepared inputs of one generation run: the validated grid,
// the activities in snapshot order, and the derived structures the model builder
// consumes. All slices are indexed positionally so the emitted model is identical
// across runs over the same snapshot.
type instance struct {
	grid       models.TimeGridConfig
	activities []models.Activity
	rooms      []models.Room
	groups     []models.Group

	// per activity, indices into rooms the activity may be placed in
	roomIdx [][]int
	// per activity, allowed start slots in ascending order
	starts [][]int
	// per activity, for each linear slot, the positions in starts whose
	// placement would cover that slot
	coverIdx [][][]int
	// per activity, first lookup by global room index: position in roomIdx
	// or -1 when the room is not eligible
	localRoom [][]int

	// group id to ancestor ids, parent first
	ancestors map[string][]string
	// group id to the activity indices in its conflict set
	conflicts map[string][]int
}

// newInstance validates the snapshot and derives the structures above. Validation
// walks activities in snapshot order and fails on the first defect so the same
// snapshot always reports the same error.
func newInstance(grid models.TimeGridConfig, activities []models.Activity, rooms []models.Room, groups []models.Group) (*instance, error) {
	if err := validateGrid(grid); err != nil {
		return nil, err
	}
	ancestors, err := buildAncestry(groups)
	if err != nil {
		return nil, err
	}
	groupSet := make(map[string]bool, len(groups))
	for _, g := range groups {
		groupSet[g.ID] = true
	}

	inst := &instance{
		grid:       grid,
		activities: activities,
		rooms:      rooms,
		groups:     groups,
		roomIdx:    make([][]int, len(activities)),
		starts:     make([][]int, len(activities)),
		coverIdx:   make([][][]int, len(activities)),
		localRoom:  make([][]int, len(activities)),
		ancestors:  ancestors,
	}
	slotsPerWeek := grid.SlotsPerWeek()

	for ai, a := range activities {
		if !groupSet[a.GroupID] {
			return nil, apperrors.Clone(apperrors.ErrInvalidGraph, "invalid_graph")
		}

		starts, err := allowedStarts(grid, a.DurationSlots)
		if err != nil {
			return nil, apperrors.Clone(apperrors.ErrInvalidInput, fmt.Sprintf("invalid_input:duration:%s", a.ID))
		}
		inst.starts[ai] = starts

		eligible := eligibleRooms(rooms, a)
		if len(eligible) == 0 {
			return nil, apperrors.Clone(apperrors.ErrInfeasible, fmt.Sprintf("infeasible:no_eligible_room:%s", a.ID))
		}
		inst.roomIdx[ai] = eligible
		local := make([]int, len(rooms))
		for i := range local {
			local[i] = -1
		}
		for pos, rg := range eligible {
			local[rg] = pos
		}
		inst.localRoom[ai] = local

		if !a.Frequency.Valid() || (a.Frequency != models.FrequencyWeekly && grid.Weeks < 2) {
			return nil, apperrors.Clone(apperrors.ErrInvalidInput, fmt.Sprintf("invalid_input:frequency:%s", a.ID))
		}

		if pin := a.SelectedTimeslot; pin != nil {
			if err := validatePin(grid, a, starts); err != nil {
				return nil, err
			}
		}

		cover := make([][]int, slotsPerWeek)
		for si, s := range starts {
			for _, slot := range coveredSlots(s, a.DurationSlots) {
				cover[slot] = append(cover[slot], si)
			}
		}
		inst.coverIdx[ai] = cover
	}

	inst.conflicts = buildConflictSets(activities, groups, ancestors)
	return inst, nil
}

// validatePin checks that a pinned start is among the activity's allowed starts
// and that every pinned week index falls inside the grid. A pin that merely
// contradicts the frequency pattern is left for the solver, which reports the
// model infeasible.
func validatePin(grid models.TimeGridConfig, a models.Activity, starts []int) error {
	pin := a.SelectedTimeslot
	conflict := apperrors.Clone(apperrors.ErrInfeasible, fmt.Sprintf("infeasible:pin_conflict:%s", a.ID))

	found := false
	for _, s := range starts {
		if s == pin.StartTimeslot {
			found = true
			break
		}
	}
	if !found {
		return conflict
	}
	for _, k := range pin.ActiveWeeks {
		if k < 0 || k >= int64(grid.Weeks) {
			return conflict
		}
	}
	return nil
}

// buildConflictSets collects, per group, the activities that group attends: its
// own plus those of every ancestor. An activity on an ancestor therefore blocks
// all its descendant groups, while sibling groups stay free to run in parallel.
func buildConflictSets(activities []models.Activity, groups []models.Group, ancestors map[string][]string) map[string][]int {
	conflicts := make(map[string][]int, len(groups))
	for _, g := range groups {
		gAnc := make(map[string]bool, len(ancestors[g.ID]))
		for _, anc := range ancestors[g.ID] {
			gAnc[anc] = true
		}
		for ai, a := range activities {
			if a.GroupID == g.ID || gAnc[a.GroupID] {
				conflicts[g.ID] = append(conflicts[g.ID], ai)
			}
		}
	}
	return conflicts
}
