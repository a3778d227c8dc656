package models

import "github.com/lib/pq"

// ScheduledActivity is one placement in a completed schedule: an activity assigned a
// room, a starting slot, and the weeks in which it runs. Rows are inserted atomically
// with the parent schedule's transition to completed.
type ScheduledActivity struct {
	ID            string        `db:"id" json:"id"`
	ScheduleID    string        `db:"schedule_id" json:"schedule_id"`
	ActivityID    string        `db:"activity_id" json:"activity_id"`
	RoomID        string        `db:"room_id" json:"room_id"`
	StartTimeslot int           `db:"start_timeslot" json:"start_timeslot"`
	ActiveWeeks   pq.Int64Array `db:"active_weeks" json:"active_weeks"`
}
