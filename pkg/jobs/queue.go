// Package jobs carries generation jobs between the API and the worker over a
// Redis list. Delivery is at-least-once: messages move to a processing list
// while handled and are requeued on worker restart, so handlers must be
// idempotent.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// TaskGenerateSchedule names the only task the queue carries.
const TaskGenerateSchedule = "generate_schedule"

// ErrDuplicate reports that a message with the same schedule id is already
// pending or in flight.
var ErrDuplicate = errors.New("job already enqueued")

// Message is the minimal job payload. Everything else is re-fetched by the
// worker from storage.
type Message struct {
	TaskName      string `json:"task_name"`
	ScheduleID    string `json:"schedule_id"`
	InstitutionID string `json:"institution_id"`
}

// Handler processes one message. A returned error is logged; the message is
// still acknowledged because the schedule record carries the outcome.
type Handler func(context.Context, Message) error

// QueueConfig configures queue behaviour.
type QueueConfig struct {
	Name        string
	Workers     int
	PollTimeout time.Duration
	PendingTTL  time.Duration
	Logger      *zap.Logger
}

// Queue is a reliable Redis-list queue. Producers push with Enqueue; consumers
// run Start, which moves each message to a processing list, invokes the
// handler, and removes the entry on return.
type Queue struct {
	client *redis.Client

	name        string
	processing  string
	workers     int
	pollTimeout time.Duration
	pendingTTL  time.Duration
	logger      *zap.Logger

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewQueue builds a queue on the given Redis client.
func NewQueue(client *redis.Client, cfg QueueConfig) *Queue {
	if cfg.Name == "" {
		cfg.Name = "schedule_generator_queue"
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 5 * time.Second
	}
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Queue{
		client:      client,
		name:        cfg.Name,
		processing:  cfg.Name + ":processing",
		workers:     cfg.Workers,
		pollTimeout: cfg.PollTimeout,
		pendingTTL:  cfg.PendingTTL,
		logger:      cfg.Logger,
	}
}

func (q *Queue) pendingKey(scheduleID string) string {
	return q.name + ":pending:" + scheduleID
}

// Enqueue publishes a message keyed by its schedule id. A second enqueue for
// the same schedule while the first is still pending or in flight returns
// ErrDuplicate, which is the broker-level half of the dedup contract; the
// draft-to-running guard on the schedule covers redeliveries.
func (q *Queue) Enqueue(ctx context.Context, msg Message) error {
	if msg.TaskName == "" {
		msg.TaskName = TaskGenerateSchedule
	}
	if msg.ScheduleID == "" {
		return fmt.Errorf("enqueue %s: missing schedule id", q.name)
	}

	ok, err := q.client.SetNX(ctx, q.pendingKey(msg.ScheduleID), 1, q.pendingTTL).Result()
	if err != nil {
		return fmt.Errorf("enqueue %s: mark pending: %w", q.name, err)
	}
	if !ok {
		return ErrDuplicate
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("enqueue %s: encode: %w", q.name, err)
	}
	if err := q.client.LPush(ctx, q.name, raw).Err(); err != nil {
		q.client.Del(context.WithoutCancel(ctx), q.pendingKey(msg.ScheduleID))
		return fmt.Errorf("enqueue %s: push: %w", q.name, err)
	}
	return nil
}

// Start launches the consumer workers. Safe to call once.
func (q *Queue) Start(ctx context.Context, handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	ctx, q.cancel = context.WithCancel(ctx)

	q.requeueStale(ctx)

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, handler, i+1)
	}
	q.started = true
	q.logger.Sugar().Infow("queue consuming", "queue", q.name, "workers", q.workers)
}

// Stop cancels the workers and waits for in-flight handlers to return.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Sugar().Infow("queue stopped", "queue", q.name)
}

// Depth reports how many messages wait in the queue.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.name).Result()
}

// requeueStale pushes entries left on the processing list by a crashed worker
// back onto the queue. Runs once at startup, before consumption begins.
func (q *Queue) requeueStale(ctx context.Context) {
	moved := 0
	for {
		if err := q.client.LMove(ctx, q.processing, q.name, "RIGHT", "LEFT").Err(); err != nil {
			if !errors.Is(err, redis.Nil) {
				q.logger.Sugar().Warnw("requeue stale jobs failed", "queue", q.name, "error", err)
			}
			break
		}
		moved++
	}
	if moved > 0 {
		q.logger.Sugar().Infow("requeued stale jobs", "queue", q.name, "count", moved)
	}
}

func (q *Queue) worker(ctx context.Context, handler Handler, id int) {
	defer q.wg.Done()
	log := q.logger.Sugar().With("queue", q.name, "worker", id)
	for {
		if ctx.Err() != nil {
			return
		}
		raw, err := q.client.BLMove(ctx, q.name, q.processing, "RIGHT", "LEFT", q.pollTimeout).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			log.Warnw("dequeue failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		var msg Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			log.Errorw("malformed job dropped", "error", err)
			q.ack(ctx, raw, msg)
			continue
		}

		if err := handler(ctx, msg); err != nil {
			log.Warnw("job handler failed", "schedule_id", msg.ScheduleID, "error", err)
		}
		q.ack(ctx, raw, msg)
	}
}

// ack removes the processing entry and clears the pending marker. Uses a
// detached context so shutdown cannot strand acknowledged work.
func (q *Queue) ack(ctx context.Context, raw string, msg Message) {
	ackCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := q.client.LRem(ackCtx, q.processing, 1, raw).Err(); err != nil {
		q.logger.Sugar().Warnw("job ack failed", "queue", q.name, "schedule_id", msg.ScheduleID, "error", err)
	}
	if msg.ScheduleID != "" {
		q.client.Del(ackCtx, q.pendingKey(msg.ScheduleID))
	}
}
