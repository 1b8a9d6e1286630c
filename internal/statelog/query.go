package statelog

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Claimflow/internal/domain"
)

// GetLatestStateLogInFlow возвращает текущую запись entity во flow.
// nil, nil: сущность ещё не входила во flow.
func (e *Engine) GetLatestStateLogInFlow(ctx context.Context, entity Entity, flow domain.Flow) (*domain.StateLog, error) {
	key, err := entity.Key()
	if err != nil {
		return nil, err
	}

	l, err := queryStateLog(ctx, e.db, `
		SELECT `+stateLogColumns+`
		FROM latest_state_log l
		JOIN state_log s ON s.state_log_id = l.state_log_id
		JOIN state st ON st.state_id = s.end_state_id
		WHERE l.`+entity.column()+` = $1 AND st.flow_id = $2
	`, key, flow.ID)
	if err != nil {
		return nil, fmt.Errorf("get latest state log in flow: %w", err)
	}
	return l, nil
}

// GetLatestStateLogInEndState возвращает текущую запись entity, если
// она стоит в endState. nil, nil: сущность сейчас не в endState.
func (e *Engine) GetLatestStateLogInEndState(ctx context.Context, entity Entity, endState domain.State) (*domain.StateLog, error) {
	key, err := entity.Key()
	if err != nil {
		return nil, err
	}

	l, err := queryStateLog(ctx, e.db, `
		SELECT `+stateLogColumns+`
		FROM latest_state_log l
		JOIN state_log s ON s.state_log_id = l.state_log_id
		WHERE l.`+entity.column()+` = $1 AND s.end_state_id = $2
	`, key, endState.ID)
	if err != nil {
		return nil, fmt.Errorf("get latest state log in end state: %w", err)
	}
	return l, nil
}

// GetAllLatestStateLogsInEndState возвращает текущие записи всех
// сущностей класса class, стоящих в endState, от старых к новым.
func (e *Engine) GetAllLatestStateLogsInEndState(
	ctx context.Context,
	class domain.AssociatedType,
	endState domain.State,
) ([]domain.StateLog, error) {
	logs, err := queryStateLogs(ctx, e.db, `
		SELECT `+stateLogColumns+`
		FROM latest_state_log l
		JOIN state_log s ON s.state_log_id = l.state_log_id
		WHERE s.associated_type = $1 AND s.end_state_id = $2
		ORDER BY s.ended_at, s.state_log_id
	`, class.String(), endState.ID)
	if err != nil {
		return nil, fmt.Errorf("get all latest state logs in end state: %w", err)
	}
	return logs, nil
}

// GetAllLatestStateLogsRegardlessOfAssociatedClass: то же без фильтра
// по классу, включая вехи без сущности.
func (e *Engine) GetAllLatestStateLogsRegardlessOfAssociatedClass(
	ctx context.Context,
	endState domain.State,
) ([]domain.StateLog, error) {
	logs, err := queryStateLogs(ctx, e.db, `
		SELECT `+stateLogColumns+`
		FROM latest_state_log l
		JOIN state_log s ON s.state_log_id = l.state_log_id
		WHERE s.end_state_id = $1
		ORDER BY s.ended_at, s.state_log_id
	`, endState.ID)
	if err != nil {
		return nil, fmt.Errorf("get all latest state logs: %w", err)
	}
	return logs, nil
}

// HasBeenInEndState проверяет всю историю entity (не только текущую
// позицию). Результат true не меняется после следующих переходов.
func (e *Engine) HasBeenInEndState(ctx context.Context, entity Entity, endState domain.State) (bool, error) {
	key, err := entity.Key()
	if err != nil {
		return false, err
	}

	var exists bool
	err = e.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM state_log
			WHERE `+entity.column()+` = $1 AND end_state_id = $2
		)
	`, key, endState.ID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("has been in end state: %w", err)
	}
	return exists, nil
}

// GetStateLog возвращает запись по ID. nil, nil: записи нет.
func (e *Engine) GetStateLog(ctx context.Context, id uuid.UUID) (*domain.StateLog, error) {
	l, err := queryStateLog(ctx, e.db, `
		SELECT `+stateLogColumns+`
		FROM state_log s
		WHERE s.state_log_id = $1
	`, id)
	if err != nil {
		return nil, fmt.Errorf("get state log: %w", err)
	}
	return l, nil
}

// GetHistory возвращает историю entity во flow, от новых к старым:
// текущая запись и все предыдущие по prev_state_log_id.
func (e *Engine) GetHistory(ctx context.Context, entity Entity, flow domain.Flow) ([]domain.StateLog, error) {
	key, err := entity.Key()
	if err != nil {
		return nil, err
	}

	logs, err := queryStateLogs(ctx, e.db, `
		WITH RECURSIVE chain AS (
			SELECT sl.*, 0 AS depth
			FROM latest_state_log l
			JOIN state_log sl ON sl.state_log_id = l.state_log_id
			WHERE l.`+entity.column()+` = $1 AND l.flow_id = $2
			UNION ALL
			SELECT p.*, c.depth + 1
			FROM state_log p
			JOIN chain c ON p.state_log_id = c.prev_state_log_id
		)
		SELECT `+stateLogColumns+`
		FROM chain s
		ORDER BY s.depth
	`, key, flow.ID)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	return logs, nil
}

// GetTimeInCurrentState возвращает время с момента, когда сущность
// вошла в state записи l.
//
// Подряд идущие записи с тем же end_state_id (повторы без реального
// перехода) считаются одним пребыванием: отсчёт идёт от ended_at самой
// ранней записи такой серии. Нулевой now заменяется текущим временем.
func (e *Engine) GetTimeInCurrentState(ctx context.Context, l *domain.StateLog, now time.Time) (time.Duration, error) {
	if now.IsZero() {
		now = e.now()
	}

	var since time.Time
	err := e.db.QueryRow(ctx, `
		WITH RECURSIVE run AS (
			SELECT state_log_id, prev_state_log_id, end_state_id, ended_at, 0 AS depth
			FROM state_log
			WHERE state_log_id = $1
			UNION ALL
			SELECT p.state_log_id, p.prev_state_log_id, p.end_state_id, p.ended_at, r.depth + 1
			FROM state_log p
			JOIN run r ON p.state_log_id = r.prev_state_log_id
			WHERE p.end_state_id = r.end_state_id
		)
		SELECT ended_at FROM run ORDER BY depth DESC LIMIT 1
	`, l.ID).Scan(&since)
	if err != nil {
		return 0, fmt.Errorf("get time in current state: %w", err)
	}
	return now.Sub(since), nil
}

// GetStateLogsStuckInState возвращает текущие записи класса class
// в endState, время пребывания которых больше daysStuck суток.
func (e *Engine) GetStateLogsStuckInState(
	ctx context.Context,
	class domain.AssociatedType,
	endState domain.State,
	daysStuck int,
	now time.Time,
) ([]domain.StateLog, error) {
	if now.IsZero() {
		now = e.now()
	}
	threshold := time.Duration(daysStuck) * 24 * time.Hour

	logs, err := e.GetAllLatestStateLogsInEndState(ctx, class, endState)
	if err != nil {
		return nil, err
	}

	var stuck []domain.StateLog
	for i := range logs {
		elapsed, err := e.GetTimeInCurrentState(ctx, &logs[i], now)
		if err != nil {
			return nil, err
		}
		if elapsed > threshold {
			stuck = append(stuck, logs[i])
		}
	}
	return stuck, nil
}

// GetStateCounts возвращает число latest-указателей в каждом state
// каталога (включая нулевые), упорядоченное по state_id.
func (e *Engine) GetStateCounts(ctx context.Context) ([]domain.StateCount, error) {
	rows, err := e.db.Query(ctx, `
		SELECT s.end_state_id, COUNT(*)
		FROM latest_state_log l
		JOIN state_log s ON s.state_log_id = l.state_log_id
		GROUP BY s.end_state_id
	`)
	if err != nil {
		return nil, fmt.Errorf("get state counts: %w", err)
	}
	defer rows.Close()

	counted := make(map[int]int)
	for rows.Next() {
		var stateID, count int
		if err := rows.Scan(&stateID, &count); err != nil {
			return nil, fmt.Errorf("scan state count: %w", err)
		}
		counted[stateID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get state counts: %w", err)
	}

	return mergeStateCounts(domain.AllStates(), counted), nil
}

// mergeStateCounts дополняет каталог нулями и добавляет states,
// которых нет в каталоге, но которые встречаются в БД.
func mergeStateCounts(catalog []domain.State, counted map[int]int) []domain.StateCount {
	out := make([]domain.StateCount, 0, len(catalog))
	seen := make(map[int]bool, len(catalog))
	for _, s := range catalog {
		out = append(out, domain.StateCount{State: s, Count: counted[s.ID]})
		seen[s.ID] = true
	}

	var extra []int
	for id := range counted {
		if !seen[id] {
			extra = append(extra, id)
		}
	}
	slices.Sort(extra)
	for _, id := range extra {
		out = append(out, domain.StateCount{State: domain.State{ID: id}, Count: counted[id]})
	}
	return out
}
