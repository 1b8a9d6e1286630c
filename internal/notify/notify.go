// Package notify обрабатывает события конвейера из RabbitMQ:
// алерты о застрявших сущностях и итоги запусков шагов.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/shaiso/Claimflow/internal/mq"
)

// Handlers: обработчики очередей claimflow-notifier.
type Handlers struct {
	logger *slog.Logger
}

// New создаёт обработчики.
func New(logger *slog.Logger) *Handlers {
	return &Handlers{logger: logger}
}

// Consumers возвращает конфигурации потребителей для всех очередей.
func (h *Handlers) Consumers() []mq.ConsumerConfig {
	return []mq.ConsumerConfig{
		{Queue: mq.QueueAlertsStuckState, Handler: h.StuckState},
		{Queue: mq.QueueStepsCompleted, Handler: h.StepCompleted},
	}
}

// StuckState логирует алерт state.stuck.
func (h *Handlers) StuckState(ctx context.Context, msg *mq.Message) error {
	p, err := mq.ParsePayload[mq.StuckStatePayload](msg)
	if err != nil {
		return err
	}

	h.logger.WarnContext(ctx, "entity stuck in state",
		"message_id", msg.ID,
		"state_log_id", p.StateLogID,
		"state_id", p.StateID,
		"state", p.StateName,
		"associated_type", p.AssociatedType,
		"entity_id", p.EntityID,
		"threshold_days", p.ThresholdDays,
		"time_in_state", p.CheckedAt.Sub(p.EnteredAt).Round(time.Minute),
	)
	return nil
}

// StepCompleted логирует итог запуска шага. Упавшие запуски пишутся
// на уровне ERROR.
func (h *Handlers) StepCompleted(ctx context.Context, msg *mq.Message) error {
	p, err := mq.ParsePayload[mq.StepCompletedPayload](msg)
	if err != nil {
		return err
	}

	attrs := []any{
		"message_id", msg.ID,
		"step", p.Step,
		"import_log_id", p.ImportLogID,
		"status", p.Status,
		"duration_ms", p.DurationMS,
		"metrics", p.Metrics,
	}
	if p.Error != "" {
		h.logger.ErrorContext(ctx, "step failed", append(attrs, "error", p.Error)...)
		return nil
	}
	h.logger.InfoContext(ctx, "step completed", attrs...)
	return nil
}
