package solver

import "github.com/bogdanivan12/odes/internal/models"

// eligibleRooms returns the indices of rooms that carry every feature the
// activity requires, preserving input order. Required features are matched as an
// unordered subset.
func eligibleRooms(rooms []models.Room, activity models.Activity) []int {
	var out []int
	for i, r := range rooms {
		if r.HasFeatures(activity.RequiredRoomFeatures) {
			out = append(out, i)
		}
	}
	return out
}
