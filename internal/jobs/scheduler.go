package jobs

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/Student-Work-Classroom-Demo-MUBAS/iot-management-the-avengers-rebound/internal/tasks"
)

const (
	retentionSpec = "0 30 3 * * *"
	rollupSpec    = "0 0 * * * *"
)

// Runner executes a task in-process.
type Runner interface {
	Run(ctx context.Context, payload tasks.TaskPayload) error
}

// Scheduler enqueues periodic tasks onto a Redis stream. Without Redis it
// runs them in-process through local.
type Scheduler struct {
	cron   *cron.Cron
	queue  *redis.Client
	stream string
	local  Runner
	log    zerolog.Logger
	now    func() time.Time
}

func NewScheduler(queue *redis.Client, stream string, local Runner, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:   c,
		queue:  queue,
		stream: stream,
		local:  local,
		log:    log.With().Str("component", "scheduler").Logger(),
		now:    time.Now,
	}
}

func (s *Scheduler) Start() error {
	if s.queue == nil && s.local == nil {
		return nil
	}

	if _, err := s.cron.AddFunc(retentionSpec, func() { s.dispatch(tasks.TypeRetention) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(rollupSpec, func() { s.dispatch(tasks.TypeEnergyRollup) }); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts scheduling and waits up to timeout for running jobs to return.
func (s *Scheduler) Stop(timeout time.Duration) {
	select {
	case <-s.cron.Stop().Done():
	case <-time.After(timeout):
		s.log.Warn().Msg("scheduled jobs still running at shutdown")
	}
}

func (s *Scheduler) dispatch(taskType string) {
	payload := tasks.NewPayload(taskType, s.now())
	if err := s.Enqueue(context.Background(), payload); err != nil {
		s.log.Error().Err(err).Str("type", taskType).Msg("dispatch task failed")
	}
}

// Enqueue hands payload to the worker stream, or runs it locally when no queue is attached.
func (s *Scheduler) Enqueue(ctx context.Context, payload tasks.TaskPayload) error {
	if s.queue == nil {
		if s.local == nil {
			return nil
		}
		return s.local.Run(ctx, payload)
	}
	_, err := s.queue.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: payload.Values(),
	}).Result()
	return err
}
