package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/shaiso/Claimflow/internal/domain"
	"github.com/shaiso/Claimflow/internal/mq"
)

const (
	MetricStuckCount          = "stuck_count"
	MetricAlertPublishedCount = "alert_published_count"
	MetricAlertPublishErrors  = "alert_publish_error_count"
)

// StuckCheck: "сущности класса Class стоят в State дольше Days суток".
type StuckCheck struct {
	Class domain.AssociatedType
	State domain.State
	Days  int
}

// AlertPublisher публикует алерты о застрявших сущностях.
// Реализация: mq.Publisher.
type AlertPublisher interface {
	PublishStuckState(ctx context.Context, payload mq.StuckStatePayload) error
}

// StuckStateCheckStep ищет застрявшие сущности, публикует по алерту на
// каждую и записывает веху OPERATIONS_STUCK_STATE_CHECK_COMPLETED,
// связанную с предыдущей вехой через prev_state_log_id.
type StuckStateCheckStep struct {
	checks []StuckCheck

	// alerts может быть nil: тогда застрявшие только считаются.
	alerts AlertPublisher
}

// NewStuckStateCheckStep создаёт шаг.
func NewStuckStateCheckStep(checks []StuckCheck, alerts AlertPublisher) *StuckStateCheckStep {
	return &StuckStateCheckStep{checks: checks, alerts: alerts}
}

func (s *StuckStateCheckStep) Name() string { return "StuckStateCheckStep" }

func (s *StuckStateCheckStep) RunStep(ctx context.Context, run *Run) error {
	eng := run.Engine()
	now := eng.Now()
	total := 0

	for _, check := range s.checks {
		stuck, err := eng.GetStateLogsStuckInState(ctx, check.Class, check.State, check.Days, now)
		if err != nil {
			return fmt.Errorf("check %s in state %d: %w", check.Class, check.State.ID, err)
		}
		total += len(stuck)
		run.Increment(MetricStuckCount, len(stuck))

		for i := range stuck {
			elapsed, err := eng.GetTimeInCurrentState(ctx, &stuck[i], now)
			if err != nil {
				return err
			}
			run.Logger().WarnContext(ctx, "entity stuck in state",
				"state_id", check.State.ID,
				"associated_type", check.Class,
				"entity_id", stuck[i].EntityID(),
				"time_in_state", elapsed.Round(time.Minute),
			)
			s.publish(ctx, run, check, &stuck[i], now.Add(-elapsed), now)
		}
	}

	prev, err := s.previousMilestone(ctx, run)
	if err != nil {
		return err
	}

	outcome := domain.BuildOutcome("Stuck state check completed", nil, map[string]any{
		"check_count": len(s.checks),
		"stuck_count": total,
	})
	_, err = eng.CreateStateLogWithoutAssociatedModel(ctx,
		domain.StateOperationsStuckStateCheckCompleted, domain.AssociatedTypeNone, outcome, prev)
	return err
}

func (s *StuckStateCheckStep) publish(ctx context.Context, run *Run, check StuckCheck, l *domain.StateLog, entered, now time.Time) {
	if s.alerts == nil {
		return
	}

	payload := mq.StuckStatePayload{
		StateLogID:     l.ID,
		StateID:        check.State.ID,
		StateName:      check.State.Description,
		AssociatedType: check.Class.String(),
		EntityID:       l.EntityID(),
		ThresholdDays:  check.Days,
		EnteredAt:      entered,
		CheckedAt:      now,
	}
	if err := s.alerts.PublishStuckState(ctx, payload); err != nil {
		run.Increment(MetricAlertPublishErrors)
		run.Logger().ErrorContext(ctx, "publish stuck state alert", "state_log_id", l.ID, "error", err)
		return
	}
	run.Increment(MetricAlertPublishedCount)
}

// previousMilestone возвращает последнюю веху проверки (nil для первой).
func (s *StuckStateCheckStep) previousMilestone(ctx context.Context, run *Run) (*domain.StateLog, error) {
	latest, err := run.Engine().GetAllLatestStateLogsInEndState(ctx,
		domain.AssociatedTypeNone, domain.StateOperationsStuckStateCheckCompleted)
	if err != nil {
		return nil, err
	}
	if len(latest) == 0 {
		return nil, nil
	}
	// Порядок по ended_at: последняя веха в конце.
	return &latest[len(latest)-1], nil
}
