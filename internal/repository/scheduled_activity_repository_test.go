package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bogdanivan12/odes/internal/models"
)

func entryRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"activity_id", "course_name", "activity_type", "group_id", "group_name",
		"professor_id", "professor_name", "room_id", "room_name",
		"start_timeslot", "duration_slots", "active_weeks",
	}).AddRow("a1", "Algorithms", "course", "g1", "CS Year 1", "p1", "Ada Lovelace", "r1", "A101", 13, 2, "{0,1}")
}

func TestScheduledActivityRepositoryListBySchedule(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduledActivityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, schedule_id, activity_id, room_id, start_timeslot, active_weeks FROM scheduled_activities WHERE schedule_id = $1 ORDER BY start_timeslot, id")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "schedule_id", "activity_id", "room_id", "start_timeslot", "active_weeks"}).
			AddRow("p1", "s1", "a1", "r1", 13, "{0,1}"))

	placements, err := repo.ListBySchedule(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, placements, 1)
	assert.Equal(t, "a1", placements[0].ActivityID)
	assert.Equal(t, 13, placements[0].StartTimeslot)
	assert.Len(t, placements[0].ActiveWeeks, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduledActivityRepositoryCountBySchedule(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduledActivityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM scheduled_activities WHERE schedule_id = $1")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	total, err := repo.CountBySchedule(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 42, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduledActivityRepositoryListEntriesUnfiltered(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduledActivityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE sa.schedule_id = $1 ORDER BY sa.start_timeslot, sa.id")).
		WithArgs("s1").
		WillReturnRows(entryRows())

	entries, err := repo.ListEntries(context.Background(), "s1", models.TimetableFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Algorithms", entries[0].CourseName)
	assert.Equal(t, "A101", entries[0].RoomName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduledActivityRepositoryListEntriesGroupChain(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduledActivityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE sa.schedule_id = $1 AND a.group_id = ANY($2)")).
		WithArgs("s1", sqlmock.AnyArg()).
		WillReturnRows(entryRows())

	entries, err := repo.ListEntries(context.Background(), "s1", models.TimetableFilter{GroupIDs: []string{"g1", "series"}})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduledActivityRepositoryListEntriesRoomAndProfessor(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduledActivityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE sa.schedule_id = $1 AND a.professor_id = $2 AND sa.room_id = $3")).
		WithArgs("s1", "p1", "r1").
		WillReturnRows(entryRows())

	entries, err := repo.ListEntries(context.Background(), "s1", models.TimetableFilter{ProfessorID: "p1", RoomID: "r1"})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduledActivityRepositoryRoomUtilisation(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduledActivityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY sa.room_id, rm.name")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"room_id", "room_name", "occupied_slot_weeks"}).
			AddRow("r1", "A101", 420).
			AddRow("r2", "B202", 10))

	rows, err := repo.RoomUtilisation(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "r1", rows[0].RoomID)
	assert.Equal(t, 420, rows[0].OccupiedSlotWeeks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduledActivityRepositoryProfessorLoad(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduledActivityRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE sa.schedule_id = $1 AND a.professor_id IS NOT NULL")).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"professor_id", "professor_name", "slot_weeks", "activities"}).
			AddRow("p1", "Ada Lovelace", 56, 4))

	rows, err := repo.ProfessorLoad(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Ada Lovelace", rows[0].ProfessorName)
	assert.Equal(t, 56, rows[0].SlotWeeks)
	assert.Equal(t, 4, rows[0].Activities)
	assert.NoError(t, mock.ExpectationsWereMet())
}
