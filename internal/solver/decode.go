package solver

import "github.com/bogdanivan12/odes/pkg/cpsat"

// Placement is one decoded assignment: an activity placed in a room at a start
// slot, active in the listed weeks. Weeks are ascending.
type Placement struct {
	ActivityID    string
	RoomID        string
	StartTimeslot int
	ActiveWeeks   []int64
}

// decode reads the satisfying assignment back into placements, coalescing the
// per-week variables of each (activity, room, start) into one entry. Placements
// come out in snapshot activity order.
func decode(inst *instance, vm *varModel, res cpsat.Result) []Placement {
	type key struct{ ai, ri, si int }
	var order []key
	weeks := make(map[key][]int64)

	for ai := range inst.activities {
		for k := 0; k < inst.grid.Weeks; k++ {
			for ri := range inst.roomIdx[ai] {
				for si := range inst.starts[ai] {
					if !res.Value(vm.y[ai][k][ri][si]) {
						continue
					}
					kk := key{ai, ri, si}
					if _, seen := weeks[kk]; !seen {
						order = append(order, kk)
					}
					weeks[kk] = append(weeks[kk], int64(k))
				}
			}
		}
	}

	out := make([]Placement, 0, len(order))
	for _, kk := range order {
		out = append(out, Placement{
			ActivityID:    inst.activities[kk.ai].ID,
			RoomID:        inst.rooms[inst.roomIdx[kk.ai][kk.ri]].ID,
			StartTimeslot: inst.starts[kk.ai][kk.si],
			ActiveWeeks:   weeks[kk],
		})
	}
	return out
}
