package solver

import (
	"fmt"

	"github.com/bogdanivan12/odes/internal/models"
	"github.com/bogdanivan12/odes/pkg/cpsat"
)

// varModel indexes the decision variables of one build positionally so the decoder
// can read the assignment back.
type varModel struct {
	x [][][]cpsat.Var   // [activity][room][start]: placement choice
	w [][]cpsat.Var     // [activity][week]: active-week flag
	y [][][][]cpsat.Var // [activity][week][room][start]: placement active in a week
}

// buildModel emits variables and constraints in a fixed order derived from the
// snapshot order, so equal snapshots always produce the same model.
func buildModel(inst *instance) (*cpsat.Model, *varModel) {
	m := cpsat.NewModel()
	weeks := inst.grid.Weeks
	vm := &varModel{
		x: make([][][]cpsat.Var, len(inst.activities)),
		w: make([][]cpsat.Var, len(inst.activities)),
		y: make([][][][]cpsat.Var, len(inst.activities)),
	}

	// Placement choice: exactly one (room, start) per activity.
	for ai, a := range inst.activities {
		vm.x[ai] = make([][]cpsat.Var, len(inst.roomIdx[ai]))
		all := make([]cpsat.Var, 0, len(inst.roomIdx[ai])*len(inst.starts[ai]))
		for ri, rg := range inst.roomIdx[ai] {
			room := inst.rooms[rg]
			vm.x[ai][ri] = make([]cpsat.Var, len(inst.starts[ai]))
			for si, s := range inst.starts[ai] {
				v := m.NewBoolVar(fmt.Sprintf("x_%s_%s_%d", a.ID, room.ID, s))
				vm.x[ai][ri][si] = v
				all = append(all, v)
			}
		}
		m.AddExactlyOne(all...)
	}

	// Active weeks per frequency, then pins. Week variables come after every
	// placement variable so search branches on placements first.
	for ai, a := range inst.activities {
		vm.w[ai] = make([]cpsat.Var, weeks)
		for k := 0; k < weeks; k++ {
			vm.w[ai][k] = m.NewBoolVar(fmt.Sprintf("w_%s_%d", a.ID, k))
		}
		switch a.Frequency {
		case models.FrequencyWeekly:
			for k := 0; k < weeks; k++ {
				m.AddFixed(vm.w[ai][k], true)
			}
		case models.FrequencyBiweekly:
			m.AddExactlyOne(vm.w[ai]...)
		case models.FrequencyBiweeklyOdd:
			for k := 0; k < weeks; k++ {
				m.AddFixed(vm.w[ai][k], k == 0)
			}
		case models.FrequencyBiweeklyEven:
			for k := 0; k < weeks; k++ {
				m.AddFixed(vm.w[ai][k], k == 1)
			}
		}

		if pin := a.SelectedTimeslot; pin != nil {
			si := startPos(inst.starts[ai], pin.StartTimeslot)
			pinned := make([]cpsat.Var, 0, len(inst.roomIdx[ai]))
			for ri := range inst.roomIdx[ai] {
				pinned = append(pinned, vm.x[ai][ri][si])
			}
			m.AddExactlyOne(pinned...)
			if len(pin.ActiveWeeks) > 0 {
				active := make(map[int]bool, len(pin.ActiveWeeks))
				for _, k := range pin.ActiveWeeks {
					active[int(k)] = true
				}
				for k := 0; k < weeks; k++ {
					m.AddFixed(vm.w[ai][k], active[k])
				}
			}
		}
	}

	// Week-gated placements: y = x AND w.
	for ai, a := range inst.activities {
		vm.y[ai] = make([][][]cpsat.Var, weeks)
		for k := 0; k < weeks; k++ {
			vm.y[ai][k] = make([][]cpsat.Var, len(inst.roomIdx[ai]))
			for ri, rg := range inst.roomIdx[ai] {
				room := inst.rooms[rg]
				vm.y[ai][k][ri] = make([]cpsat.Var, len(inst.starts[ai]))
				for si, s := range inst.starts[ai] {
					v := m.NewBoolVar(fmt.Sprintf("y_%s_%d_%s_%d", a.ID, k, room.ID, s))
					vm.y[ai][k][ri][si] = v
					m.AddBoolAnd(v, vm.x[ai][ri][si], vm.w[ai][k])
				}
			}
		}
	}

	slotsPerWeek := inst.grid.SlotsPerWeek()

	// A room hosts at most one activity per (week, slot).
	for k := 0; k < weeks; k++ {
		for rg := range inst.rooms {
			for slot := 0; slot < slotsPerWeek; slot++ {
				var occ []cpsat.Var
				for ai := range inst.activities {
					ri := inst.localRoom[ai][rg]
					if ri < 0 {
						continue
					}
					for _, si := range inst.coverIdx[ai][slot] {
						occ = append(occ, vm.y[ai][k][ri][si])
					}
				}
				m.AddAtMost(1, occ...)
			}
		}
	}

	// A professor teaches at most one activity per (week, slot).
	profActs := make(map[string][]int)
	var profOrder []string
	for ai, a := range inst.activities {
		if a.ProfessorID == nil || *a.ProfessorID == "" {
			continue
		}
		if _, ok := profActs[*a.ProfessorID]; !ok {
			profOrder = append(profOrder, *a.ProfessorID)
		}
		profActs[*a.ProfessorID] = append(profActs[*a.ProfessorID], ai)
	}
	for k := 0; k < weeks; k++ {
		for _, p := range profOrder {
			for slot := 0; slot < slotsPerWeek; slot++ {
				var occ []cpsat.Var
				for _, ai := range profActs[p] {
					for ri := range inst.roomIdx[ai] {
						for _, si := range inst.coverIdx[ai][slot] {
							occ = append(occ, vm.y[ai][k][ri][si])
						}
					}
				}
				m.AddAtMost(1, occ...)
			}
		}
	}

	// Activities a group attends never overlap: its own plus those inherited
	// from ancestor groups.
	for k := 0; k < weeks; k++ {
		for _, g := range inst.groups {
			set := inst.conflicts[g.ID]
			for slot := 0; slot < slotsPerWeek; slot++ {
				var occ []cpsat.Var
				for _, ai := range set {
					for ri := range inst.roomIdx[ai] {
						for _, si := range inst.coverIdx[ai][slot] {
							occ = append(occ, vm.y[ai][k][ri][si])
						}
					}
				}
				m.AddAtMost(1, occ...)
			}
		}
	}

	// Daily load: per (week, group, day), the covered slots attributable to the
	// conflict set stay within the grid cap. A multi-slot placement counts once per
	// covered slot, hence the repeated variables.
	for k := 0; k < weeks; k++ {
		for _, g := range inst.groups {
			set := inst.conflicts[g.ID]
			for day := 0; day < inst.grid.Days; day++ {
				var load []cpsat.Var
				for off := 0; off < inst.grid.TimeslotsPerDay; off++ {
					slot := slotIndex(inst.grid, day, off)
					for _, ai := range set {
						for ri := range inst.roomIdx[ai] {
							for _, si := range inst.coverIdx[ai][slot] {
								load = append(load, vm.y[ai][k][ri][si])
							}
						}
					}
				}
				m.AddAtMost(inst.grid.MaxTimeslotsPerDayPerGroup, load...)
			}
		}
	}

	return m, vm
}

func startPos(starts []int, start int) int {
	for i, s := range starts {
		if s == start {
			return i
		}
	}
	return -1
}
