package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bogdanivan12/odes/internal/models"
	"github.com/bogdanivan12/odes/internal/solver"
	appErrors "github.com/bogdanivan12/odes/pkg/errors"
	"github.com/bogdanivan12/odes/pkg/jobs"
)

type generationScheduleStore interface {
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	ClaimRunning(ctx context.Context, id string, startedAt time.Time) (bool, error)
	CompleteWithPlacements(ctx context.Context, id string, placements []models.ScheduledActivity, finishedAt time.Time) error
	MarkFailed(ctx context.Context, id, message string, finishedAt time.Time) error
	ReapStale(ctx context.Context, cutoff time.Time, message string) (int64, error)
}

type snapshotLoader interface {
	Load(ctx context.Context, institutionID string) (*models.Snapshot, error)
}

type generationObserver interface {
	RecordGeneration(outcome string, duration time.Duration)
}

// GenerationConfig bounds one run and the surrounding persistence retries.
type GenerationConfig struct {
	SolverMaxTime  time.Duration
	SolverWorkers  int
	PersistRetries int
	RetryDelay     time.Duration
	ReaperInterval time.Duration
}

// GenerationService is the worker-side job driver: it claims a draft schedule,
// gathers a consistent snapshot, runs the solver and persists the outcome. Every
// terminal schedule carries either placements or a failure classifier.
type GenerationService struct {
	schedules generationScheduleStore
	snapshots snapshotLoader
	metrics   generationObserver
	logger    *zap.Logger
	cfg       GenerationConfig
}

// NewGenerationService constructs the generation service.
func NewGenerationService(schedules generationScheduleStore, snapshots snapshotLoader, metrics generationObserver, logger *zap.Logger, cfg GenerationConfig) *GenerationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SolverMaxTime <= 0 {
		cfg.SolverMaxTime = 60 * time.Second
	}
	if cfg.SolverWorkers <= 0 {
		cfg.SolverWorkers = 8
	}
	if cfg.PersistRetries <= 0 {
		cfg.PersistRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &GenerationService{
		schedules: schedules,
		snapshots: snapshots,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
	}
}

// Handle processes one queue message. Duplicate deliveries are absorbed by the
// draft-to-running claim; any other outcome leaves the schedule terminal, so
// the message is always safe to acknowledge.
func (s *GenerationService) Handle(ctx context.Context, msg jobs.Message) error {
	log := s.logger.Sugar().With("schedule_id", msg.ScheduleID, "institution_id", msg.InstitutionID)
	started := time.Now().UTC()

	claimed, err := s.schedules.ClaimRunning(ctx, msg.ScheduleID, started)
	if err != nil {
		return fmt.Errorf("claim schedule: %w", err)
	}
	if !claimed {
		log.Infow("schedule not in draft, dropping job")
		return nil
	}

	schedule, err := s.schedules.FindByID(ctx, msg.ScheduleID)
	if err != nil {
		s.fail(ctx, msg.ScheduleID, "persist_error:load_schedule", started)
		return fmt.Errorf("load schedule: %w", err)
	}

	snapshot, err := s.gather(ctx, msg.InstitutionID)
	if err != nil {
		classifier := "persist_error:snapshot"
		if errors.Is(err, sql.ErrNoRows) {
			classifier = "not_found"
		}
		s.fail(ctx, msg.ScheduleID, classifier, started)
		return fmt.Errorf("gather inputs: %w", err)
	}
	if len(snapshot.Activities) == 0 {
		s.fail(ctx, msg.ScheduleID, "no_activities", started)
		return nil
	}

	// The grid copied onto the schedule at creation wins over whatever the
	// institution says now.
	placements, err := solver.Generate(schedule.TimeGridConfig, snapshot.Activities, snapshot.Rooms, snapshot.Groups, solver.Params{
		MaxTime: s.cfg.SolverMaxTime,
		Workers: s.cfg.SolverWorkers,
	})
	if err != nil {
		s.fail(ctx, msg.ScheduleID, appErrors.FromError(err).Message, started)
		log.Infow("generation failed", "reason", appErrors.FromError(err).Message, "duration", time.Since(started))
		return nil
	}

	rows := make([]models.ScheduledActivity, 0, len(placements))
	for _, p := range placements {
		rows = append(rows, models.ScheduledActivity{
			ScheduleID:    msg.ScheduleID,
			ActivityID:    p.ActivityID,
			RoomID:        p.RoomID,
			StartTimeslot: p.StartTimeslot,
			ActiveWeeks:   p.ActiveWeeks,
		})
	}

	if err := s.persist(ctx, msg.ScheduleID, rows); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Reaped while solving; the failure is already recorded.
			log.Warnw("schedule no longer running at persist, dropping result")
			s.observe("abandoned", started)
			return nil
		}
		s.fail(ctx, msg.ScheduleID, fmt.Sprintf("persist_error:%s", shortReason(err)), started)
		return fmt.Errorf("persist placements: %w", err)
	}

	s.observe("completed", started)
	log.Infow("schedule completed", "placements", len(rows), "duration", time.Since(started))
	return nil
}

// gather loads the institution snapshot, retrying transient read errors. A
// missing institution is final and comes back as sql.ErrNoRows.
func (s *GenerationService) gather(ctx context.Context, institutionID string) (*models.Snapshot, error) {
	var lastErr error
	for attempt := 0; attempt <= s.cfg.PersistRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.cfg.RetryDelay << (attempt - 1)):
			}
		}
		snapshot, err := s.snapshots.Load(ctx, institutionID)
		if err == nil {
			return snapshot, nil
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		lastErr = err
		s.logger.Sugar().Warnw("snapshot load failed", "institution_id", institutionID, "attempt", attempt+1, "error", err)
	}
	return nil, lastErr
}

// persist writes placements plus the completed status, retrying with
// exponential backoff. sql.ErrNoRows means the running guard failed and is not
// retried.
func (s *GenerationService) persist(ctx context.Context, scheduleID string, rows []models.ScheduledActivity) error {
	var lastErr error
	for attempt := 0; attempt <= s.cfg.PersistRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.cfg.RetryDelay << (attempt - 1)):
			}
		}
		err := s.schedules.CompleteWithPlacements(ctx, scheduleID, rows, time.Now().UTC())
		if err == nil || errors.Is(err, sql.ErrNoRows) {
			return err
		}
		lastErr = err
		s.logger.Sugar().Warnw("persist placements failed", "schedule_id", scheduleID, "attempt", attempt+1, "error", err)
	}
	return lastErr
}

func (s *GenerationService) fail(ctx context.Context, scheduleID, classifier string, started time.Time) {
	if err := s.schedules.MarkFailed(ctx, scheduleID, classifier, time.Now().UTC()); err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.logger.Sugar().Errorw("failed to record schedule failure", "schedule_id", scheduleID, "classifier", classifier, "error", err)
	}
	s.observe(outcomeKind(classifier), started)
}

func (s *GenerationService) observe(outcome string, started time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordGeneration(outcome, time.Since(started))
}

// StartReaper periodically fails schedules stuck in running for longer than
// three solver budgets, covering workers that crashed mid-run.
func (s *GenerationService) StartReaper(ctx context.Context) {
	interval := s.cfg.ReaperInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().UTC().Add(-3 * s.cfg.SolverMaxTime)
				reaped, err := s.schedules.ReapStale(ctx, cutoff, "abandoned")
				if err != nil {
					s.logger.Sugar().Warnw("reaper sweep failed", "error", err)
					continue
				}
				if reaped > 0 {
					s.logger.Sugar().Warnw("reaped abandoned schedules", "count", reaped)
				}
			}
		}
	}()
}

// outcomeKind strips detail suffixes so metric labels stay low-cardinality.
func outcomeKind(classifier string) string {
	for i := 0; i < len(classifier); i++ {
		if classifier[i] == ':' {
			return classifier[:i]
		}
	}
	return classifier
}

func shortReason(err error) string {
	msg := err.Error()
	if len(msg) > 120 {
		msg = msg[:120]
	}
	return msg
}
