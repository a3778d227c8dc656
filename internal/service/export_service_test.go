package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bogdanivan12/odes/internal/dto"
	"github.com/bogdanivan12/odes/internal/models"
	appErrors "github.com/bogdanivan12/odes/pkg/errors"
	"github.com/bogdanivan12/odes/pkg/storage"
)

type stubTimetableViewer struct {
	view      *models.TimetableView
	err       error
	lastGroup string
}

func (s *stubTimetableViewer) GroupView(ctx context.Context, scheduleID, groupID string) (*models.TimetableView, error) {
	s.lastGroup = groupID
	if s.err != nil {
		return nil, s.err
	}
	return s.view, nil
}

func exportFixture(t *testing.T, schedule *models.Schedule, entries *stubEntryStore, viewer *stubTimetableViewer) *ExportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("export-secret", time.Hour)

	schedules := &stubScheduleReader{schedules: map[string]*models.Schedule{}}
	if schedule != nil {
		schedules.schedules[schedule.ID] = schedule
	}
	if viewer == nil {
		viewer = &stubTimetableViewer{}
	}
	return NewExportService(viewer, schedules, entries, store, signer, "http://localhost:8080/api/v1", zap.NewNop())
}

func TestExportCSVRoundTrip(t *testing.T) {
	professor := "Ada Lovelace"
	entries := &stubEntryStore{entries: []models.TimetableEntry{
		{
			ActivityID:    "a2",
			CourseName:    "Algorithms",
			ActivityType:  models.ActivityTypeLaboratory,
			GroupID:       "groupA",
			GroupName:     "Group A",
			ProfessorName: &professor,
			RoomName:      "Lab 1",
			StartTimeslot: 13,
			DurationSlots: 2,
			ActiveWeeks:   pq.Int64Array{1, 3},
		},
		{
			ActivityID:    "a1",
			CourseName:    "Algorithms",
			ActivityType:  models.ActivityTypeCourse,
			GroupID:       "series",
			GroupName:     "Year 1",
			RoomName:      "A101",
			StartTimeslot: 0,
			DurationSlots: 2,
			ActiveWeeks:   pq.Int64Array{0, 1, 2},
		},
	}}
	svc := exportFixture(t, completedScheduleFixture(), entries, nil)

	res, err := svc.Export(context.Background(), "s1", dto.ExportScheduleRequest{Format: "csv"})
	require.NoError(t, err)
	assert.Equal(t, "csv", res.Format)
	assert.True(t, strings.HasPrefix(res.URL, "http://localhost:8080/api/v1/downloads/"))
	assert.True(t, res.ExpiresAt.After(time.Now()))

	token := strings.TrimPrefix(res.URL, "http://localhost:8080/api/v1/downloads/")
	file, relPath, err := svc.ResolveDownload(token)
	require.NoError(t, err)
	defer file.Close()
	assert.Contains(t, relPath, "s1/")

	raw, err := io.ReadAll(file)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "day,slot,course,type,group,professor,room,duration_slots,active_weeks", lines[0])
	// Entries come out ordered by start index: the slot-0 course first.
	assert.Contains(t, lines[1], "A101")
	assert.Contains(t, lines[2], "Ada Lovelace")
}

func TestExportPDF(t *testing.T) {
	entries := &stubEntryStore{entries: []models.TimetableEntry{
		{ActivityID: "a1", CourseName: "Algorithms", GroupName: "Year 1", RoomName: "A101", DurationSlots: 2},
	}}
	svc := exportFixture(t, completedScheduleFixture(), entries, nil)

	res, err := svc.Export(context.Background(), "s1", dto.ExportScheduleRequest{Format: "pdf"})
	require.NoError(t, err)
	assert.Equal(t, "pdf", res.Format)

	token := strings.TrimPrefix(res.URL, "http://localhost:8080/api/v1/downloads/")
	file, _, err := svc.ResolveDownload(token)
	require.NoError(t, err)
	defer file.Close()
	header := make([]byte, 4)
	_, err = io.ReadFull(file, header)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(header))
}

func TestExportGroupScopeUsesGroupView(t *testing.T) {
	viewer := &stubTimetableViewer{view: &models.TimetableView{
		ScheduleID: "s1",
		GroupID:    "groupA",
		Entries: []models.TimetableEntry{
			{ActivityID: "a1", CourseName: "Algorithms", GroupName: "Group A", RoomName: "Lab 1", DurationSlots: 2},
		},
	}}
	svc := exportFixture(t, completedScheduleFixture(), &stubEntryStore{}, viewer)

	_, err := svc.Export(context.Background(), "s1", dto.ExportScheduleRequest{Format: "csv", GroupID: "groupA"})
	require.NoError(t, err)
	assert.Equal(t, "groupA", viewer.lastGroup)
}

func TestExportRejectsUnfinishedSchedule(t *testing.T) {
	schedule := completedScheduleFixture()
	schedule.Status = models.ScheduleStatusDraft
	svc := exportFixture(t, schedule, &stubEntryStore{}, nil)

	_, err := svc.Export(context.Background(), "s1", dto.ExportScheduleRequest{Format: "csv"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))
}

func TestExportUnsupportedFormat(t *testing.T) {
	svc := exportFixture(t, completedScheduleFixture(), &stubEntryStore{}, nil)

	_, err := svc.Export(context.Background(), "s1", dto.ExportScheduleRequest{Format: "xlsx"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestResolveDownloadTamperedToken(t *testing.T) {
	svc := exportFixture(t, completedScheduleFixture(), &stubEntryStore{}, nil)

	_, _, err := svc.ResolveDownload("not-a-valid-token")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrForbidden.Code))
}
