package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shaiso/Claimflow/internal/steps"
)

// StepRunner выполняет шаги по порядку. Реализация: steps.Runner.
type StepRunner interface {
	RunAll(ctx context.Context, steps ...steps.Step) error
}

// Scheduler запускает проход конвейера по cron-расписанию.
type Scheduler struct {
	runner   StepRunner
	steps    []steps.Step
	schedule cron.Schedule
	lock     Lock
	logger   *slog.Logger
	now      func() time.Time
}

// Config: конфигурация Scheduler.
type Config struct {
	Runner StepRunner
	Steps  []steps.Step

	// Cron: расписание прохода.
	Cron string

	// Lock может быть nil: тогда проход идёт без выбора лидера.
	Lock Lock

	Logger *slog.Logger
}

// New создаёт новый Scheduler.
func New(cfg Config) (*Scheduler, error) {
	schedule, err := ParseCron(cfg.Cron)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		runner:   cfg.Runner,
		steps:    cfg.Steps,
		schedule: schedule,
		lock:     cfg.Lock,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Next возвращает время следующего прохода после from.
func (s *Scheduler) Next(from time.Time) time.Time {
	return s.schedule.Next(from)
}

// Tick выполняет один проход конвейера, если эта реплика лидер.
//
// Возвращает false без ошибки, если блокировку держит другая реплика.
// Ошибка первого упавшего шага возвращается как есть; следующие шаги
// этого прохода не запускаются.
func (s *Scheduler) Tick(ctx context.Context) (bool, error) {
	if s.lock != nil {
		release, ok, err := s.lock.TryAcquire(ctx)
		if err != nil {
			return false, err
		}
		if !ok {
			s.logger.Debug("pipeline lock held by another replica, skipping")
			return false, nil
		}
		defer release()
	}

	start := s.now()
	s.logger.Info("pipeline pass started", "steps", len(s.steps))

	if err := s.runner.RunAll(ctx, s.steps...); err != nil {
		s.logger.Error("pipeline pass failed", "error", err, "duration", s.now().Sub(start))
		return true, err
	}

	s.logger.Info("pipeline pass completed", "duration", s.now().Sub(start))
	return true, nil
}

// Run выполняет проходы по расписанию до отмены ctx. Ошибки прохода
// логируются и не останавливают цикл.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		next := s.Next(s.now())
		s.logger.Info("next pipeline pass", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}

		if _, err := s.Tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("pipeline tick", "error", err)
		}
	}
}
