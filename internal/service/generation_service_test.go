package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bogdanivan12/odes/internal/models"
	"github.com/bogdanivan12/odes/pkg/jobs"
)

type mockGenerationStore struct {
	schedules map[string]*models.Schedule

	claimErr    error
	completeErr error
	failures    map[string]string
	placements  map[string][]models.ScheduledActivity
}

func newGenerationStore(schedule *models.Schedule) *mockGenerationStore {
	store := &mockGenerationStore{
		schedules:  map[string]*models.Schedule{},
		failures:   map[string]string{},
		placements: map[string][]models.ScheduledActivity{},
	}
	if schedule != nil {
		store.schedules[schedule.ID] = schedule
	}
	return store
}

func (m *mockGenerationStore) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, ok := m.schedules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *schedule
	return &copied, nil
}

func (m *mockGenerationStore) ClaimRunning(ctx context.Context, id string, startedAt time.Time) (bool, error) {
	if m.claimErr != nil {
		return false, m.claimErr
	}
	schedule, ok := m.schedules[id]
	if !ok || schedule.Status != models.ScheduleStatusDraft {
		return false, nil
	}
	schedule.Status = models.ScheduleStatusRunning
	schedule.StartedAt = &startedAt
	return true, nil
}

func (m *mockGenerationStore) CompleteWithPlacements(ctx context.Context, id string, placements []models.ScheduledActivity, finishedAt time.Time) error {
	if m.completeErr != nil {
		return m.completeErr
	}
	schedule, ok := m.schedules[id]
	if !ok || schedule.Status != models.ScheduleStatusRunning {
		return sql.ErrNoRows
	}
	schedule.Status = models.ScheduleStatusCompleted
	schedule.FinishedAt = &finishedAt
	m.placements[id] = placements
	return nil
}

func (m *mockGenerationStore) MarkFailed(ctx context.Context, id, message string, finishedAt time.Time) error {
	schedule, ok := m.schedules[id]
	if !ok {
		return sql.ErrNoRows
	}
	schedule.Status = models.ScheduleStatusFailed
	schedule.ErrorMessage = &message
	schedule.FinishedAt = &finishedAt
	m.failures[id] = message
	return nil
}

func (m *mockGenerationStore) ReapStale(ctx context.Context, cutoff time.Time, message string) (int64, error) {
	return 0, nil
}

type stubSnapshotLoader struct {
	snapshot *models.Snapshot
	err      error
	calls    int
}

func (s *stubSnapshotLoader) Load(ctx context.Context, institutionID string) (*models.Snapshot, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.snapshot, nil
}

type recordingObserver struct {
	outcomes []string
}

func (r *recordingObserver) RecordGeneration(outcome string, duration time.Duration) {
	r.outcomes = append(r.outcomes, outcome)
}

func draftSchedule() *models.Schedule {
	return &models.Schedule{
		ID:            "s1",
		InstitutionID: "inst-1",
		Status:        models.ScheduleStatusDraft,
		TimeGridConfig: models.TimeGridConfig{
			Weeks:                      2,
			Days:                       2,
			TimeslotsPerDay:            4,
			MaxTimeslotsPerDayPerGroup: 4,
		},
	}
}

func feasibleSnapshot() *models.Snapshot {
	return &models.Snapshot{
		Institution: models.Institution{ID: "inst-1"},
		Groups:      []models.Group{{ID: "g1", InstitutionID: "inst-1"}},
		Rooms:       []models.Room{{ID: "r1", InstitutionID: "inst-1", Name: "A101"}},
		Activities: []models.Activity{
			{ID: "a1", InstitutionID: "inst-1", GroupID: "g1", DurationSlots: 1, Frequency: models.FrequencyWeekly, ActivityType: models.ActivityTypeCourse},
		},
	}
}

func generationFixture(store *mockGenerationStore, snapshots *stubSnapshotLoader, observer *recordingObserver) *GenerationService {
	return NewGenerationService(store, snapshots, observer, zap.NewNop(), GenerationConfig{
		SolverMaxTime:  5 * time.Second,
		SolverWorkers:  2,
		PersistRetries: 1,
		RetryDelay:     time.Millisecond,
	})
}

func generationMessage() jobs.Message {
	return jobs.Message{TaskName: jobs.TaskGenerateSchedule, ScheduleID: "s1", InstitutionID: "inst-1"}
}

func TestGenerationHandleCompletes(t *testing.T) {
	store := newGenerationStore(draftSchedule())
	observer := &recordingObserver{}
	svc := generationFixture(store, &stubSnapshotLoader{snapshot: feasibleSnapshot()}, observer)

	require.NoError(t, svc.Handle(context.Background(), generationMessage()))

	assert.Equal(t, models.ScheduleStatusCompleted, store.schedules["s1"].Status)
	require.Len(t, store.placements["s1"], 1)
	placement := store.placements["s1"][0]
	assert.Equal(t, "s1", placement.ScheduleID)
	assert.Equal(t, "a1", placement.ActivityID)
	assert.Equal(t, "r1", placement.RoomID)
	assert.Len(t, placement.ActiveWeeks, 2)
	assert.Equal(t, []string{"completed"}, observer.outcomes)
}

func TestGenerationHandleDropsNonDraft(t *testing.T) {
	schedule := draftSchedule()
	schedule.Status = models.ScheduleStatusCompleted
	store := newGenerationStore(schedule)
	snapshots := &stubSnapshotLoader{snapshot: feasibleSnapshot()}
	svc := generationFixture(store, snapshots, &recordingObserver{})

	require.NoError(t, svc.Handle(context.Background(), generationMessage()))
	assert.Equal(t, models.ScheduleStatusCompleted, store.schedules["s1"].Status)
	assert.Zero(t, snapshots.calls, "a non-draft schedule must not trigger a solve")
}

func TestGenerationHandleNoActivities(t *testing.T) {
	store := newGenerationStore(draftSchedule())
	snapshot := feasibleSnapshot()
	snapshot.Activities = nil
	observer := &recordingObserver{}
	svc := generationFixture(store, &stubSnapshotLoader{snapshot: snapshot}, observer)

	require.NoError(t, svc.Handle(context.Background(), generationMessage()))
	assert.Equal(t, models.ScheduleStatusFailed, store.schedules["s1"].Status)
	assert.Equal(t, "no_activities", store.failures["s1"])
	assert.Equal(t, []string{"no_activities"}, observer.outcomes)
}

func TestGenerationHandleMissingInstitution(t *testing.T) {
	store := newGenerationStore(draftSchedule())
	svc := generationFixture(store, &stubSnapshotLoader{err: sql.ErrNoRows}, &recordingObserver{})

	err := svc.Handle(context.Background(), generationMessage())
	require.Error(t, err)
	assert.Equal(t, "not_found", store.failures["s1"])
}

func TestGenerationHandleInfeasibleClassifier(t *testing.T) {
	store := newGenerationStore(draftSchedule())
	snapshot := feasibleSnapshot()
	// An activity requiring a feature no room has can never be placed.
	snapshot.Activities[0].RequiredRoomFeatures = []string{"computers"}
	observer := &recordingObserver{}
	svc := generationFixture(store, &stubSnapshotLoader{snapshot: snapshot}, observer)

	require.NoError(t, svc.Handle(context.Background(), generationMessage()))
	assert.Equal(t, models.ScheduleStatusFailed, store.schedules["s1"].Status)
	assert.Equal(t, "infeasible:no_eligible_room:a1", store.failures["s1"])
	assert.Equal(t, []string{"infeasible"}, observer.outcomes, "metric label must drop the detail suffix")
}

func TestGenerationHandlePersistGuardFailure(t *testing.T) {
	store := newGenerationStore(draftSchedule())
	store.completeErr = sql.ErrNoRows
	observer := &recordingObserver{}
	svc := generationFixture(store, &stubSnapshotLoader{snapshot: feasibleSnapshot()}, observer)

	// Reaped while solving: the result is dropped without overwriting the failure.
	require.NoError(t, svc.Handle(context.Background(), generationMessage()))
	assert.Empty(t, store.placements["s1"])
	assert.Equal(t, []string{"abandoned"}, observer.outcomes)
}

func TestGenerationHandlePersistErrorClassifier(t *testing.T) {
	store := newGenerationStore(draftSchedule())
	store.completeErr = errors.New("disk full")
	svc := generationFixture(store, &stubSnapshotLoader{snapshot: feasibleSnapshot()}, &recordingObserver{})

	err := svc.Handle(context.Background(), generationMessage())
	require.Error(t, err)
	assert.Equal(t, "persist_error:disk full", store.failures["s1"])
}

func TestGenerationGatherRetriesTransientErrors(t *testing.T) {
	store := newGenerationStore(draftSchedule())
	snapshots := &stubSnapshotLoader{err: errors.New("connection reset")}
	svc := generationFixture(store, snapshots, &recordingObserver{})

	err := svc.Handle(context.Background(), generationMessage())
	require.Error(t, err)
	assert.Equal(t, 2, snapshots.calls)
	assert.Equal(t, "persist_error:snapshot", store.failures["s1"])
}

func TestOutcomeKind(t *testing.T) {
	assert.Equal(t, "infeasible", outcomeKind("infeasible:no_eligible_room:a1"))
	assert.Equal(t, "persist_error", outcomeKind("persist_error:disk full"))
	assert.Equal(t, "timeout", outcomeKind("timeout"))
}
