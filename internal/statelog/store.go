package statelog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shaiso/Claimflow/internal/domain"
	"github.com/shaiso/Claimflow/internal/repo"
)

const stateLogColumns = `s.state_log_id, s.end_state_id, s.outcome, s.started_at, s.ended_at,
	s.associated_type, s.claim_id, s.employee_id, s.payment_id, s.reference_file_id,
	s.prev_state_log_id, s.import_log_id`

func insertStateLog(ctx context.Context, db repo.DBTX, l *domain.StateLog) error {
	outcomeJSON, err := json.Marshal(l.Outcome)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}

	_, err = db.Exec(ctx, `
		INSERT INTO state_log (
			state_log_id, end_state_id, outcome, started_at, ended_at, associated_type,
			claim_id, employee_id, payment_id, reference_file_id,
			prev_state_log_id, import_log_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		l.ID,
		l.EndStateID,
		outcomeJSON,
		l.StartedAt,
		l.EndedAt,
		l.AssociatedType.String(),
		l.ClaimID,
		l.EmployeeID,
		l.PaymentID,
		l.ReferenceFileID,
		l.PrevStateLogID,
		l.ImportLogID,
	)
	if err != nil {
		return fmt.Errorf("insert state log: %w", err)
	}
	return nil
}

// latestPointer: строка latest_state_log, найденная перед записью.
type latestPointer struct {
	id         uuid.UUID
	stateLogID uuid.UUID
}

func findLatestPointer(ctx context.Context, db repo.DBTX, column string, key uuid.UUID, flowID int) (*latestPointer, error) {
	var p latestPointer
	err := db.QueryRow(ctx, `
		SELECT latest_state_log_id, state_log_id
		FROM latest_state_log
		WHERE `+column+` = $1 AND flow_id = $2
	`, key, flowID).Scan(&p.id, &p.stateLogID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// findPointerAt возвращает указатель вехи (без сущности), стоящий на
// stateLogID, или nil.
func findPointerAt(ctx context.Context, db repo.DBTX, stateLogID uuid.UUID) (*latestPointer, error) {
	var p latestPointer
	err := db.QueryRow(ctx, `
		SELECT latest_state_log_id, state_log_id
		FROM latest_state_log
		WHERE state_log_id = $1
		  AND claim_id IS NULL AND employee_id IS NULL
		  AND payment_id IS NULL AND reference_file_id IS NULL
	`, stateLogID).Scan(&p.id, &p.stateLogID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// repointLatest переводит указатель на новую запись во flowID, только
// если он всё ещё указывает на expected.
func repointLatest(ctx context.Context, db repo.DBTX, p *latestPointer, next uuid.UUID, flowID int) (bool, error) {
	result, err := db.Exec(ctx, `
		UPDATE latest_state_log
		SET state_log_id = $3, flow_id = $4
		WHERE latest_state_log_id = $1 AND state_log_id = $2
	`, p.id, p.stateLogID, next, flowID)
	if err != nil {
		return false, fmt.Errorf("repoint latest state log: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

// insertLatest создаёт указатель. false: указатель для (entity, flow)
// уже создан другим писателем.
func insertLatest(ctx context.Context, db repo.DBTX, l *domain.StateLog, flowID int) (bool, error) {
	result, err := db.Exec(ctx, `
		INSERT INTO latest_state_log (
			latest_state_log_id, state_log_id, flow_id,
			claim_id, employee_id, payment_id, reference_file_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT DO NOTHING
	`,
		uuid.New(),
		l.ID,
		flowID,
		l.ClaimID,
		l.EmployeeID,
		l.PaymentID,
		l.ReferenceFileID,
	)
	if err != nil {
		return false, fmt.Errorf("insert latest state log: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

func queryStateLogs(ctx context.Context, db repo.DBTX, query string, args ...any) ([]domain.StateLog, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []domain.StateLog
	for rows.Next() {
		l, err := scanStateLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, *l)
	}
	return logs, rows.Err()
}

func queryStateLog(ctx context.Context, db repo.DBTX, query string, args ...any) (*domain.StateLog, error) {
	l, err := scanStateLog(db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func scanStateLog(row pgx.Row) (*domain.StateLog, error) {
	var (
		l              domain.StateLog
		outcomeJSON    []byte
		associatedType string
		endedAt        time.Time
	)
	err := row.Scan(
		&l.ID,
		&l.EndStateID,
		&outcomeJSON,
		&l.StartedAt,
		&endedAt,
		&associatedType,
		&l.ClaimID,
		&l.EmployeeID,
		&l.PaymentID,
		&l.ReferenceFileID,
		&l.PrevStateLogID,
		&l.ImportLogID,
	)
	if err != nil {
		return nil, err
	}
	l.EndedAt = endedAt.UTC()
	if l.StartedAt != nil {
		started := l.StartedAt.UTC()
		l.StartedAt = &started
	}
	l.AssociatedType = domain.AssociatedType(associatedType)

	if err := json.Unmarshal(outcomeJSON, &l.Outcome); err != nil {
		return nil, fmt.Errorf("unmarshal outcome: %w", err)
	}
	return &l, nil
}
