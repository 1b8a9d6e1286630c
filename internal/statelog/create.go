package statelog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shaiso/Claimflow/internal/domain"
	"github.com/shaiso/Claimflow/internal/telemetry"
)

// CreateFinishedStateLog записывает переход entity в endState
// с ended_at = now.
//
// Если для (entity, flow) уже есть latest_state_log, новая запись
// получает prev_state_log_id = текущий указатель, а указатель
// переводится на неё. Иначе указатель создаётся.
//
// Возвращает ErrEntityNotPersisted, если у сущности нет ID, и
// ErrConcurrentTransition, если указатель изменил другой писатель.
func (e *Engine) CreateFinishedStateLog(
	ctx context.Context,
	entity Entity,
	endState domain.State,
	outcome domain.Outcome,
	startedAt *time.Time,
) (*domain.StateLog, error) {
	key, err := entity.Key()
	if err != nil {
		return nil, err
	}
	if err := checkState(endState); err != nil {
		return nil, err
	}

	var r refs
	entity.attach(&r, key)

	l := e.newStateLog(endState, outcome, startedAt, entity.Type())
	r.toStateLog(l)

	err = pgx.BeginFunc(ctx, e.db, func(tx pgx.Tx) error {
		latest, err := findLatestPointer(ctx, tx, entity.column(), key, endState.FlowID)
		if err != nil {
			e.logLookupError(ctx, l, endState.FlowID, err)
			return fmt.Errorf("get latest state log: %w", err)
		}
		if latest != nil {
			prev := latest.stateLogID
			l.PrevStateLogID = &prev
		}

		if err := insertStateLog(ctx, tx, l); err != nil {
			return err
		}

		var ok bool
		if latest != nil {
			ok, err = repointLatest(ctx, tx, latest, l.ID, endState.FlowID)
		} else {
			ok, err = insertLatest(ctx, tx, l, endState.FlowID)
		}
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s %s, flow %d", ErrConcurrentTransition, entity.Type(), key, endState.FlowID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	telemetry.IncStateTransition(endState.FlowID, endState.ID)
	return l, nil
}

// CreateStateLogWithoutAssociatedModel записывает веху flow, не
// привязанную к сущности. associated_type берётся из class.
//
// Сущности нет, поэтому предыдущую запись нельзя найти по ключу:
// prev передаётся явно. С prev указатель вехи, стоящий на prev,
// переводится на новую запись (и во flow endState). Если prev уже не
// последняя веха, возвращается ErrConcurrentTransition. Без prev
// создаётся новый указатель.
func (e *Engine) CreateStateLogWithoutAssociatedModel(
	ctx context.Context,
	endState domain.State,
	class domain.AssociatedType,
	outcome domain.Outcome,
	prev *domain.StateLog,
) (*domain.StateLog, error) {
	if err := checkState(endState); err != nil {
		return nil, err
	}

	l := e.newStateLog(endState, outcome, nil, class)
	if prev != nil {
		prevID := prev.ID
		l.PrevStateLogID = &prevID
	}

	err := pgx.BeginFunc(ctx, e.db, func(tx pgx.Tx) error {
		if err := insertStateLog(ctx, tx, l); err != nil {
			return err
		}

		if prev == nil {
			_, err := insertLatest(ctx, tx, l, endState.FlowID)
			return err
		}

		latest, err := findPointerAt(ctx, tx, prev.ID)
		if err != nil {
			e.logLookupError(ctx, l, endState.FlowID, err)
			return fmt.Errorf("get latest state log: %w", err)
		}
		if latest == nil {
			return fmt.Errorf("%w: state log %s is no longer latest", ErrConcurrentTransition, prev.ID)
		}
		ok, err := repointLatest(ctx, tx, latest, l.ID, endState.FlowID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: state log %s is no longer latest", ErrConcurrentTransition, prev.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	telemetry.IncStateTransition(endState.FlowID, endState.ID)
	return l, nil
}

func (e *Engine) newStateLog(
	endState domain.State,
	outcome domain.Outcome,
	startedAt *time.Time,
	class domain.AssociatedType,
) *domain.StateLog {
	if startedAt != nil {
		t := startedAt.Truncate(time.Microsecond)
		startedAt = &t
	}
	return &domain.StateLog{
		ID:             uuid.New(),
		EndStateID:     endState.ID,
		Outcome:        outcome,
		StartedAt:      startedAt,
		EndedAt:        e.now().Truncate(time.Microsecond),
		AssociatedType: class,
		ImportLogID:    e.importLogID,
	}
}

// checkState проверяет, что state есть в каталоге и flow совпадает.
func checkState(s domain.State) error {
	known, ok := domain.StateByID(s.ID)
	if !ok || known.FlowID != s.FlowID {
		return fmt.Errorf("%w: %d", ErrUnknownState, s.ID)
	}
	return nil
}

// logLookupError пишет ошибку поиска указателя со всеми ID записи.
func (e *Engine) logLookupError(ctx context.Context, l *domain.StateLog, flowID int, err error) {
	r := refsOf(l)
	telemetry.WithFlow(e.logger, flowID).ErrorContext(ctx, "latest state log lookup failed",
		"state_log_id", l.ID,
		"claim_id", r.claim,
		"employee_id", r.employee,
		"payment_id", r.payment,
		"reference_file_id", r.referenceFile,
		"error", err,
	)
}
