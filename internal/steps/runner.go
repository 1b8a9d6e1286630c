package steps

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Claimflow/internal/domain"
	"github.com/shaiso/Claimflow/internal/mq"
	"github.com/shaiso/Claimflow/internal/statelog"
	"github.com/shaiso/Claimflow/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

// ImportLogStore сохраняет import_log запусков. Реализация: repo.ImportLogRepo.
type ImportLogStore interface {
	Create(ctx context.Context, l *domain.ImportLog) error
	Update(ctx context.Context, l *domain.ImportLog) error
}

// StepEventPublisher публикует step.completed. Реализация: mq.Publisher.
type StepEventPublisher interface {
	PublishStepCompleted(ctx context.Context, payload mq.StepCompletedPayload) error
}

// RunnerConfig: зависимости Runner.
type RunnerConfig struct {
	DB         statelog.DB
	ImportLogs ImportLogStore

	// Publisher необязателен.
	Publisher StepEventPublisher

	Logger *slog.Logger

	// EngineOptions передаются в statelog.New.
	EngineOptions []statelog.Option
}

// Runner запускает шаги и ведёт их import_log.
type Runner struct {
	db         statelog.DB
	engine     *statelog.Engine
	importLogs ImportLogStore
	publisher  StepEventPublisher
	logger     *slog.Logger
}

// NewRunner создаёт новый Runner.
func NewRunner(cfg RunnerConfig) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	opts := append([]statelog.Option{statelog.WithLogger(logger)}, cfg.EngineOptions...)

	return &Runner{
		db:         cfg.DB,
		engine:     statelog.New(cfg.DB, opts...),
		importLogs: cfg.ImportLogs,
		publisher:  cfg.Publisher,
		logger:     logger,
	}
}

// Run выполняет один проход шага.
//
// Создаёт import_log, привязывает его ко всем записям state_log шага,
// по завершении сохраняет метрики в report и статус. Ошибка шага
// возвращается без изменений; import_log возвращается и при ошибке.
func (r *Runner) Run(ctx context.Context, step Step) (*domain.ImportLog, error) {
	il := &domain.ImportLog{
		Source:     step.Name(),
		ImportType: "step",
	}
	if err := r.importLogs.Create(ctx, il); err != nil {
		return nil, fmt.Errorf("create import log for %s: %w", step.Name(), err)
	}

	logger := telemetry.WithImportLog(telemetry.WithStep(r.logger, step.Name()), il.ID)
	run := newRun(step.Name(), il.ID, r.db, r.engine.WithImportLog(il.ID), logger)
	ctx = telemetry.WithLogger(ctx, logger)

	logger.Info("step started")
	start := time.Now()

	defer func() {
		if p := recover(); p != nil {
			r.finish(ctx, run, il, time.Since(start), fmt.Errorf("panic: %v", p))
			panic(p)
		}
	}()

	err := step.RunStep(ctx, run)
	r.finish(ctx, run, il, time.Since(start), err)
	return il, err
}

// finish сохраняет итог запуска. Ошибки сохранения только логируются:
// результат шага важнее.
func (r *Runner) finish(ctx context.Context, run *Run, il *domain.ImportLog, elapsed time.Duration, stepErr error) {
	ctx = context.WithoutCancel(ctx)
	logger := run.Logger()

	report := run.report()
	if stepErr != nil {
		il.MarkFailed(report, stepErr.Error())
		logger.Error("step failed", "error", stepErr, "duration", elapsed, "metrics", run.Metrics())
	} else {
		il.MarkSucceeded(report)
		logger.Info("step completed", "duration", elapsed, "metrics", run.Metrics())
	}

	if err := r.importLogs.Update(ctx, il); err != nil {
		logger.Error("update import log", "error", err)
	}

	telemetry.ObserveStepRun(run.step, elapsed.Seconds(), stepErr)

	if r.publisher == nil {
		return
	}
	payload := mq.StepCompletedPayload{
		Step:        run.step,
		ImportLogID: il.ID,
		Status:      il.Status.String(),
		Metrics:     run.Metrics(),
		DurationMS:  elapsed.Milliseconds(),
	}
	if stepErr != nil {
		payload.Error = stepErr.Error()
	}
	if err := r.publisher.PublishStepCompleted(ctx, payload); err != nil {
		logger.Warn("publish step completed", "error", err)
	}
}

// RunAll выполняет шаги по порядку и останавливается на первой ошибке.
func (r *Runner) RunAll(ctx context.Context, steps ...Step) error {
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := r.Run(ctx, step); err != nil {
			return fmt.Errorf("step %s: %w", step.Name(), err)
		}
	}
	return nil
}

// RunParallel выполняет независимые шаги одновременно. Шаги не должны
// переводить одни и те же пары (entity, flow). Возвращает первую ошибку;
// остальные шаги получают отменённый ctx.
func (r *Runner) RunParallel(ctx context.Context, steps ...Step) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, step := range steps {
		g.Go(func() error {
			if _, err := r.Run(ctx, step); err != nil {
				return fmt.Errorf("step %s: %w", step.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
