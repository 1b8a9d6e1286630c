package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shaiso/Claimflow/internal/domain"
)

// ImportLogRepo: таблица import_log.
type ImportLogRepo struct {
	db DBTX
}

// NewImportLogRepo создаёт новый ImportLogRepo.
func NewImportLogRepo(db DBTX) *ImportLogRepo {
	return &ImportLogRepo{db: db}
}

// Create сохраняет запуск и заполняет ID и StartedAt.
func (r *ImportLogRepo) Create(ctx context.Context, l *domain.ImportLog) error {
	if l.Status == "" {
		l.Status = domain.ImportLogStatusInProgress
	}
	reportJSON, err := marshalReport(l.Report)
	if err != nil {
		return err
	}

	err = r.db.QueryRow(ctx, `
		INSERT INTO import_log (source, import_type, status, report)
		VALUES ($1, $2, $3, $4)
		RETURNING import_log_id, started_at
	`, l.Source, l.ImportType, l.Status.String(), reportJSON).Scan(&l.ID, &l.StartedAt)
	if err != nil {
		return fmt.Errorf("insert import log: %w", err)
	}
	return nil
}

// Update сохраняет статус, отчёт и время завершения.
func (r *ImportLogRepo) Update(ctx context.Context, l *domain.ImportLog) error {
	reportJSON, err := marshalReport(l.Report)
	if err != nil {
		return err
	}

	result, err := r.db.Exec(ctx, `
		UPDATE import_log
		SET status = $2, report = $3, completed_at = $4
		WHERE import_log_id = $1
	`, l.ID, l.Status.String(), reportJSON, l.CompletedAt)
	if err != nil {
		return fmt.Errorf("update import log: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID возвращает запуск по ID.
func (r *ImportLogRepo) GetByID(ctx context.Context, id int64) (*domain.ImportLog, error) {
	l, err := scanImportLog(r.db.QueryRow(ctx, `
		SELECT import_log_id, source, import_type, status, report, started_at, completed_at
		FROM import_log
		WHERE import_log_id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get import log: %w", err)
	}
	return l, nil
}

// ListRecent возвращает последние запуски источника (все, если source пуст).
func (r *ImportLogRepo) ListRecent(ctx context.Context, source string, limit int) ([]domain.ImportLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT import_log_id, source, import_type, status, report, started_at, completed_at
		FROM import_log
		WHERE ($1::text IS NULL OR source = $1)
		ORDER BY import_log_id DESC
		LIMIT $2
	`, nullString(source), limit)
	if err != nil {
		return nil, fmt.Errorf("list import logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.ImportLog
	for rows.Next() {
		l, err := scanImportLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan import log: %w", err)
		}
		logs = append(logs, *l)
	}
	return logs, rows.Err()
}

func marshalReport(report map[string]any) ([]byte, error) {
	if report == nil {
		return nil, nil
	}
	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	return data, nil
}

func scanImportLog(row pgx.Row) (*domain.ImportLog, error) {
	var (
		l          domain.ImportLog
		status     string
		reportJSON []byte
	)
	err := row.Scan(&l.ID, &l.Source, &l.ImportType, &status, &reportJSON, &l.StartedAt, &l.CompletedAt)
	if err != nil {
		return nil, err
	}
	l.Status = domain.ParseImportLogStatus(status)
	if reportJSON != nil {
		if err := json.Unmarshal(reportJSON, &l.Report); err != nil {
			return nil, fmt.Errorf("unmarshal report: %w", err)
		}
	}
	return &l, nil
}
